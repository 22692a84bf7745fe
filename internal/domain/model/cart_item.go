package model

import "time"

const (
	MinCartQuantity = 1
	MaxCartQuantity = 100
)

// カートの明細。価格は注文確定時の現在価格を使うので持たない
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64     `gorm:"not null;index" json:"cart_id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	VariantID *int64    `gorm:"index" json:"variant_id,omitempty"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (it CartItem) Target() StockTarget {
	return StockTarget{ProductID: it.ProductID, VariantID: it.VariantID}
}
