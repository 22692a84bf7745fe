package usecase

import (
	"errors"
	"fmt"
	"net/http"

	"eytstore/internal/domain/model"
)

type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error { return e.Err }

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

// DBエラーは中身をログ用に残して500にする
func dbError(err error) error {
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Message: "db error",
		Err:     err,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

// 業務ルール違反・入力不備。メッセージはそのまま利用者に見せる
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	ok := errors.As(err, &ve)
	return ve, ok
}

// よく使うメッセージ
const (
	msgEmptyCart           = "your cart is empty"
	msgMissingShipping     = "please complete shipping information"
	msgProductUnavailable  = "product unavailable"
	msgPaymentMethodNeeded = "payment method required"
)

// 在庫不足。どの商品がいくつ残っていたかを持つ
type InsufficientStockError struct {
	ProductID   int64
	VariantID   *int64
	ProductName string
	Requested   int64
	Available   int64
}

func (e *InsufficientStockError) Error() string {
	if e.VariantID != nil {
		return fmt.Sprintf("insufficient stock for product %d variant %d: requested %d, available %d",
			e.ProductID, *e.VariantID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// 利用者向けの文言
func (e *InsufficientStockError) UserMessage() string {
	name := e.ProductName
	if name == "" {
		name = "this item"
	}
	return fmt.Sprintf("%s is no longer available in the requested quantity (available: %d)", name, e.Available)
}

func AsInsufficientStockError(err error) (*InsufficientStockError, bool) {
	var se *InsufficientStockError
	ok := errors.As(err, &se)
	return se, ok
}

func newInsufficientStock(target model.StockTarget, name string, requested, available int64) error {
	return &InsufficientStockError{
		ProductID:   target.ProductID,
		VariantID:   target.VariantID,
		ProductName: name,
		Requested:   requested,
		Available:   available,
	}
}

// 注文番号の再試行が上限に達した
var ErrOrderNumberExhausted = errors.New("order number generation exhausted")
