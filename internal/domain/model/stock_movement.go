package model

import "time"

type StockMovementType string

const (
	StockMovementSale       StockMovementType = "sale"
	StockMovementRestore    StockMovementType = "restore"
	StockMovementAdjustment StockMovementType = "adjustment"
)

// 在庫変動の履歴
type StockMovement struct {
	ID          int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   int64             `gorm:"not null;index" json:"product_id"`
	VariantID   *int64            `gorm:"index" json:"variant_id,omitempty"`
	Type        StockMovementType `gorm:"type:varchar(20);not null" json:"type"`
	Delta       int64             `gorm:"not null" json:"delta"`
	PrevStock   int64             `gorm:"not null" json:"prev_stock"`
	NewStock    int64             `gorm:"not null" json:"new_stock"`
	OrderID     *int64            `gorm:"index" json:"order_id,omitempty"`
	ActorUserID *int64            `json:"actor_user_id,omitempty"`
	Reason      string            `gorm:"type:varchar(255)" json:"reason"`
	CreatedAt   time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
}
