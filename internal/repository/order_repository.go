package repository

import (
	"context"
	"time"

	"eytstore/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	Status string
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 行ロック付きで取得（キャンセルの二重実行を防ぐ）
	LockByID(ctx context.Context, orderID int64) (model.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, bool, error)
	// order_numberが prefix で始まる注文の件数（年ごとの連番の起点）
	CountByNumberPrefix(ctx context.Context, prefix string) (int64, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)

	// order_number重複はErrDuplicate。外側のTxは生きたまま返す
	Create(ctx context.Context, order *model.Order) error

	// statusがFromのときだけ更新。変わっていたらErrConflict
	UpdateStatus(ctx context.Context, orderID int64, change model.OrderStatusChange) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
