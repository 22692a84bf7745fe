package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// 許可される遷移。delivered/cancelledは終端
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(strings.ToLower(strings.TrimSpace(s)))
	_, ok := orderTransitions[st]
	return st, ok
}

func (s OrderStatus) CanTransitionTo(to OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// 配送先のスナップショット（注文時点の値）
type ShippingInfo struct {
	Name       string `gorm:"type:varchar(255)" json:"name"`
	Line1      string `gorm:"type:varchar(255)" json:"line1"`
	Line2      string `gorm:"type:varchar(255)" json:"line2"`
	City       string `gorm:"type:varchar(255)" json:"city"`
	State      string `gorm:"type:varchar(100)" json:"state"`
	PostalCode string `gorm:"type:varchar(20)" json:"postal_code"`
	Country    string `gorm:"type:varchar(2)" json:"country"`
	Phone      string `gorm:"type:varchar(30)" json:"phone"`
}

// 作成後に変わるのはstatusと配送追跡の項目だけ
type Order struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber      string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`
	UserID           int64           `gorm:"not null;index;uniqueIndex:idx_orders_user_idempotency" json:"user_id"`
	Shipping         ShippingInfo    `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping"`
	PaymentMethod    string          `gorm:"type:varchar(50);not null" json:"payment_method"`
	PaymentReference string          `gorm:"type:varchar(255)" json:"payment_reference"`
	Subtotal         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	ShippingCost     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"shipping_cost"`
	Tax              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"tax"`
	Total            decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Status           OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	TrackingNumber   string          `gorm:"type:varchar(100)" json:"tracking_number,omitempty"`
	IdempotencyKey   *string         `gorm:"type:varchar(255);uniqueIndex:idx_orders_user_idempotency" json:"-"`
	ShippedAt        *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time      `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt        time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`
}

// ステータス更新時に一緒に書く項目
type OrderStatusChange struct {
	From           OrderStatus
	To             OrderStatus
	TrackingNumber string
	At             time.Time
}

// 通知側が購読するイベント
type OrderStatusEvent struct {
	OrderID        int64       `json:"order_id"`
	OrderNumber    string      `json:"order_number"`
	UserID         int64       `json:"user_id"`
	From           OrderStatus `json:"from"`
	To             OrderStatus `json:"to"`
	TrackingNumber string      `json:"tracking_number,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
}
