package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

// 状態遷移を1件適用する。Tx内で、ロック済みの注文に対して呼ぶこと。
// cancelledへの遷移では明細分の在庫を同じTxで戻す。
func applyTransition(ctx context.Context, r repo.TxRepos, o model.Order, to model.OrderStatus, tracking string, now time.Time) (model.OrderStatusEvent, error) {
	if !o.Status.CanTransitionTo(to) {
		return model.OrderStatusEvent{}, NewValidationError("cannot change order status to %s: order is %s", to, o.Status)
	}

	tracking = strings.TrimSpace(tracking)
	if to == model.OrderStatusShipped && tracking == "" {
		return model.OrderStatusEvent{}, NewValidationError("tracking number required to mark an order as shipped")
	}
	if to != model.OrderStatusShipped {
		// 追跡番号は発送時だけ書く
		tracking = ""
	}

	if to == model.OrderStatusCancelled {
		items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
		if err != nil {
			return model.OrderStatusEvent{}, dbError(err)
		}
		if err := restoreStock(ctx, r, o.ID, items, now); err != nil {
			return model.OrderStatusEvent{}, err
		}
	}

	err := r.Orders().UpdateStatus(ctx, o.ID, model.OrderStatusChange{
		From:           o.Status,
		To:             to,
		TrackingNumber: tracking,
		At:             now,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return model.OrderStatusEvent{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if errors.Is(err, repo.ErrConflict) {
		return model.OrderStatusEvent{}, NewHTTPError(http.StatusConflict, "order status changed concurrently")
	}
	if err != nil {
		return model.OrderStatusEvent{}, dbError(err)
	}

	return model.OrderStatusEvent{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		UserID:         o.UserID,
		From:           o.Status,
		To:             to,
		TrackingNumber: tracking,
		OccurredAt:     now,
	}, nil
}

// 利用者キャンセルの可否。理由つきのValidationErrorを返す
func checkCancellable(o model.Order, now time.Time, window time.Duration) error {
	switch o.Status {
	case model.OrderStatusShipped:
		return NewValidationError("order cannot be cancelled: already shipped")
	case model.OrderStatusDelivered:
		return NewValidationError("order cannot be cancelled: already delivered")
	case model.OrderStatusCancelled:
		return NewValidationError("order cannot be cancelled: already cancelled")
	}
	if window > 0 && now.Sub(o.CreatedAt) > window {
		return NewValidationError("order cannot be cancelled: cancellation window exceeded")
	}
	return nil
}
