package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

const maxBulkStatusOrders = 100

type AdminOrderUsecase struct {
	tx     repo.TransactionManager
	clock  Clock
	events OrderEventPublisher
}

func NewAdminOrderUsecase(tx repo.TransactionManager, clock Clock, events OrderEventPublisher) *AdminOrderUsecase {
	if clock == nil {
		clock = SystemClock{}
	}
	return &AdminOrderUsecase{tx: tx, clock: clock, events: events}
}

type AdminUpdateOrderStatusInput struct {
	Status         string
	TrackingNumber string
}

// 一括更新の1件ごとの結果
type BulkStatusResult struct {
	OrderID int64  `json:"order_id"`
	OK      bool   `json:"ok"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// 注文一覧
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, error) {
	// page/limitの最低限チェック
	if f.Page < 1 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if f.Status != "" {
		st, ok := model.ParseOrderStatus(f.Status)
		if !ok {
			return []OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid status")
		}
		f.Status = string(st)
	}

	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListAdmin(ctx, f)
		if err != nil {
			return dbError(err)
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return dbError(err)
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

// ステータス更新。遷移表にない変更はValidationError、cancelledなら在庫を戻す。
// 管理者のキャンセルには受付期間の制限をかけない。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) (OrderOutput, error) {
	if actorAdminUserID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	newStatus, ok := model.ParseOrderStatus(in.Status)
	if !ok {
		return OrderOutput{}, NewValidationError("unknown order status %q", strings.TrimSpace(in.Status))
	}

	var (
		out OrderOutput
		ev  model.OrderStatusEvent
	)

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().LockByID(ctx, orderID)
		if errors.Is(err, repo.ErrNotFound) {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return dbError(err)
		}

		now := u.clock.Now()
		ev, err = applyTransition(ctx, r, o, newStatus, in.TrackingNumber, now)
		if err != nil {
			return err
		}

		// 監査ログ（UPDATE_ORDER_STATUS）
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   fmt.Sprintf(`{"status":%q}`, o.Status),
			AfterJSON:    statusAuditJSON(newStatus, ev.TrackingNumber),
			CreatedAt:    now,
		}); err != nil {
			return dbError(err)
		}

		updated, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return dbError(err)
		}
		out = toOrderOutput(updated, items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	publishStatusEvents(ctx, u.events, ev)
	return out, nil
}

// 複数注文のステータスを1件ずつ更新する。1件の失敗で他は巻き戻さない
func (u *AdminOrderUsecase) BulkUpdateStatus(ctx context.Context, actorAdminUserID int64, orderIDs []int64, in AdminUpdateOrderStatusInput) ([]BulkStatusResult, error) {
	if actorAdminUserID <= 0 {
		return nil, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if len(orderIDs) == 0 {
		return nil, NewValidationError("order_ids required")
	}
	if len(orderIDs) > maxBulkStatusOrders {
		return nil, NewValidationError("too many orders: max %d", maxBulkStatusOrders)
	}

	results := make([]BulkStatusResult, 0, len(orderIDs))
	seen := make(map[int64]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		out, err := u.UpdateStatus(ctx, actorAdminUserID, id, in)
		if err != nil {
			results = append(results, BulkStatusResult{OrderID: id, Error: publicMessage(err)})
			continue
		}
		results = append(results, BulkStatusResult{OrderID: id, OK: true, Status: out.Status})
	}
	return results, nil
}

func statusAuditJSON(status model.OrderStatus, tracking string) string {
	if tracking == "" {
		return fmt.Sprintf(`{"status":%q}`, status)
	}
	return fmt.Sprintf(`{"status":%q,"tracking_number":%q}`, status, tracking)
}

// 利用者に見せてよい文言だけ取り出す
func publicMessage(err error) string {
	if ve, ok := AsValidationError(err); ok {
		return ve.Message
	}
	if se, ok := AsInsufficientStockError(err); ok {
		return se.UserMessage()
	}
	if he, ok := AsHTTPError(err); ok {
		return he.Message
	}
	return "internal error"
}
