package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 販売する商品。注文から参照されたら物理削除しない（IsActive=falseで非公開）
type Product struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name          string          `gorm:"type:varchar(255);not null" json:"name"`
	Description   string          `gorm:"type:text" json:"description"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	StockQuantity int64           `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	IsActive      bool            `gorm:"not null;default:false;index" json:"is_active"`
	CreatedAt     time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// サイズ・色などの派生商品。在庫は商品とは別に持つ
type ProductVariant struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID       int64           `gorm:"not null;index" json:"product_id"`
	Name            string          `gorm:"type:varchar(255);not null" json:"name"`
	SKU             string          `gorm:"type:varchar(100);uniqueIndex" json:"sku"`
	PriceAdjustment decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price_adjustment"`
	StockQuantity   int64           `gorm:"not null;default:0;check:stock_quantity >= 0" json:"stock_quantity"`
	IsActive        bool            `gorm:"not null;default:true" json:"is_active"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 基本価格＋調整額
func (v ProductVariant) UnitPrice(p Product) decimal.Decimal {
	return p.Price.Add(v.PriceAdjustment)
}

// 在庫の対象（商品そのもの or バリアント）
type StockTarget struct {
	ProductID int64
	VariantID *int64
}

func (t StockTarget) IsVariant() bool {
	return t.VariantID != nil
}

// ロック順序を固定するための比較（product id → variant id）
func (t StockTarget) Less(o StockTarget) bool {
	if t.ProductID != o.ProductID {
		return t.ProductID < o.ProductID
	}
	if t.VariantID == nil {
		return o.VariantID != nil
	}
	if o.VariantID == nil {
		return false
	}
	return *t.VariantID < *o.VariantID
}
