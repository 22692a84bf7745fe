package repository

import (
	"context"

	"eytstore/internal/domain/model"

	"github.com/shopspring/decimal"
)

// 一覧検索
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。在庫はInventoryRepositoryで扱う。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)
	FindVariantByID(ctx context.Context, id int64) (model.ProductVariant, error)
	ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error)
	// stock_quantityは更新しない
	Update(ctx context.Context, p model.Product) error
	Deactivate(ctx context.Context, id int64) error
}
