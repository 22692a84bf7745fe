package repository

import (
	"context"

	"eytstore/internal/domain/model"
)

// 在庫の読み書きはこのrepositoryだけが行う。
// Lock系はトランザクション内で呼ぶこと（SELECT ... FOR UPDATE）。
type InventoryRepository interface {
	LockProduct(ctx context.Context, productID int64) (model.Product, error)
	LockVariant(ctx context.Context, variantID int64) (model.ProductVariant, error)

	// ロック済みの行に新しい値を書く
	SetProductStock(ctx context.Context, productID int64, newStock int64) error
	SetVariantStock(ctx context.Context, variantID int64, newStock int64) error

	// 変動履歴
	CreateMovement(ctx context.Context, m model.StockMovement) error
	ListMovements(ctx context.Context, productID int64, limit int) ([]model.StockMovement, error)
}
