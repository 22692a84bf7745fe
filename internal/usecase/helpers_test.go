package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"eytstore/internal/domain/model"
	"eytstore/internal/domain/pricing"
	"eytstore/internal/infra/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// =====================
// テスト用の部品
// =====================

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.OrderStatusEvent
}

func (p *recordingPublisher) PublishStatusChange(ctx context.Context, ev model.OrderStatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []model.OrderStatusEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.OrderStatusEvent(nil), p.events...)
}

var usShipping = model.ShippingInfo{
	Name:       "Jane Doe",
	Line1:      "1 Main St",
	City:       "Springfield",
	State:      "IL",
	PostalCode: "62701",
	Country:    "US",
}

type fixture struct {
	store     *memory.Store
	clock     *fixedClock
	events    *recordingPublisher
	orders    *OrderUsecase
	admin     *AdminOrderUsecase
	carts     *CartUsecase
	inventory *InventoryUsecase
	products  *ProductUsecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.NewStore()
	clock := newFixedClock()
	events := &recordingPublisher{}

	return &fixture{
		store:  s,
		clock:  clock,
		events: events,
		orders: NewOrderUsecase(s, s.Addresses(), OrderSettings{
			Numbers: NewOrderNumberGenerator("EYT", 5),
			Pricing: pricing.DefaultPolicy(),
		}, clock, events),
		admin:     NewAdminOrderUsecase(s, clock, events),
		carts:     NewCartUsecase(s.Carts(), s.CartItems(), s.Products()),
		inventory: NewInventoryUsecase(s, s.Products(), clock),
		products:  NewProductUsecase(s, s.Products(), clock),
	}
}

func (f *fixture) seedUser(t *testing.T, email string) int64 {
	t.Helper()
	u := &model.User{Email: email, PasswordHash: "x", Role: model.RoleUser, IsActive: true}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u.ID
}

func (f *fixture) seedProduct(t *testing.T, name, price string, stock int64) model.Product {
	t.Helper()
	p, err := f.store.Products().Create(context.Background(), model.Product{
		Name:          name,
		Price:         decimal.RequireFromString(price),
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     f.clock.Now(),
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) seedVariant(t *testing.T, productID int64, name, sku, adj string, stock int64) model.ProductVariant {
	t.Helper()
	v, err := f.store.Products().CreateVariant(context.Background(), model.ProductVariant{
		ProductID:       productID,
		Name:            name,
		SKU:             sku,
		PriceAdjustment: decimal.RequireFromString(adj),
		StockQuantity:   stock,
		IsActive:        true,
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) addToCart(t *testing.T, userID, productID int64, variantID *int64, qty int64) {
	t.Helper()
	_, err := f.carts.AddToCart(context.Background(), model.CartOwner{UserID: userID}, AddCartInput{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
	})
	require.NoError(t, err)
}

func (f *fixture) placeOrder(t *testing.T, userID int64) OrderOutput {
	t.Helper()
	out, err := f.orders.PlaceOrder(context.Background(), userID, PlaceOrderInput{
		Shipping:      &usShipping,
		PaymentMethod: "card",
	})
	require.NoError(t, err)
	return out
}

func (f *fixture) productStock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := f.store.Products().FindByID(context.Background(), productID)
	require.NoError(t, err)
	return p.StockQuantity
}

func (f *fixture) variantStock(t *testing.T, variantID int64) int64 {
	t.Helper()
	v, err := f.store.Products().FindVariantByID(context.Background(), variantID)
	require.NoError(t, err)
	return v.StockQuantity
}

func httpStatus(err error) int {
	if he, ok := AsHTTPError(err); ok {
		return he.Status
	}
	return 0
}
