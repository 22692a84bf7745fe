package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	"eytstore/internal/repository"
	"eytstore/internal/validator"
)

type AddressDTO struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"user_id"`
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	IsDefault  bool   `json:"is_default"`
	CreatedAt  string `json:"created_at"`
}

type AddressCreateRequest struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone"`
	IsDefault  bool   `json:"is_default"`
}

type AddressUsecase struct {
	addresses repository.AddressRepository
	clock     Clock
}

func NewAddressUsecase(addresses repository.AddressRepository, clock Clock) *AddressUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AddressUsecase{addresses: addresses, clock: clock}
}

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	if userID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, dbError(err)
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressCreateRequest) (AddressDTO, error) {
	if userID <= 0 {
		return AddressDTO{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//入力チェック（注文時の配送先と同じ必須項目）
	s := validator.NormalizeShipping(model.ShippingInfo{
		Name:       req.Name,
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		State:      req.State,
		PostalCode: req.PostalCode,
		Country:    req.Country,
		Phone:      req.Phone,
	})
	if missing := validator.MissingShippingFields(s); len(missing) > 0 {
		return AddressDTO{}, NewValidationError("%s: %s", msgMissingShipping, strings.Join(missing, ", "))
	}

	now := u.clock.Now()

	a := model.Address{
		UserID:     userID,
		Name:       s.Name,
		Line1:      s.Line1,
		Line2:      s.Line2,
		City:       s.City,
		State:      s.State,
		PostalCode: s.PostalCode,
		Country:    s.Country,
		Phone:      s.Phone,
		IsDefault:  req.IsDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	created, err := u.addresses.Create(ctx, a)
	if err != nil {
		return AddressDTO{}, dbError(err)
	}

	return toAddressDTO(&created), nil
}

// 注文には住所のコピーが入っているので、削除しても注文は変わらない
func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if userID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if addressID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	a, err := u.addresses.FindByID(ctx, addressID)
	if errors.Is(err, repository.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return dbError(err)
	}
	//所有チェック（本人のみ）
	if a.UserID != userID {
		return NewHTTPError(http.StatusForbidden, "forbidden")
	}

	if err := u.addresses.Delete(ctx, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		return dbError(err)
	}

	return nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	return AddressDTO{
		ID:         a.ID,
		UserID:     a.UserID,
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
}
