package usecase

import (
	"context"
	"net/http"
	"testing"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdminUpdateStatus_FollowsLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t, "a@example.com")
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Mug", "20.00", 10)
	f.addToCart(t, userID, p.ID, nil, 1)
	o := f.placeOrder(t, userID)

	update := func(status, tracking string) (OrderOutput, error) {
		return f.admin.UpdateStatus(ctx, adminID, o.ID, AdminUpdateOrderStatusInput{Status: status, TrackingNumber: tracking})
	}

	// pending -> shipped は飛ばせない
	_, err := update("shipped", "TRK")
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "cannot change order status to shipped: order is pending", ve.Message)

	// 同じステータスへの変更も不可
	_, err = update("pending", "")
	_, ok = AsValidationError(err)
	assert.True(t, ok)

	out, err := update("processing", "")
	require.NoError(t, err)
	assert.Equal(t, "processing", out.Status)

	_, err = update("shipped", "  ")
	ve, ok = AsValidationError(err)
	require.True(t, ok)
	assert.Equal(t, "tracking number required to mark an order as shipped", ve.Message)

	out, err = update("SHIPPED", "TRK-42")
	require.NoError(t, err)
	assert.Equal(t, "shipped", out.Status)
	assert.Equal(t, "TRK-42", out.TrackingNumber)
	require.NotNil(t, out.ShippedAt)

	_, err = update("cancelled", "")
	_, ok = AsValidationError(err)
	assert.True(t, ok)

	out, err = update("delivered", "")
	require.NoError(t, err)
	require.NotNil(t, out.DeliveredAt)

	for _, st := range []string{"pending", "processing", "shipped", "cancelled"} {
		_, err = update(st, "TRK")
		_, ok = AsValidationError(err)
		assert.True(t, ok, "delivered -> %s", st)
	}

	events := f.events.Events()
	require.Len(t, events, 3)
	assert.Equal(t, model.OrderStatusShipped, events[1].To)
	assert.Equal(t, "TRK-42", events[1].TrackingNumber)

	action := model.AuditActionUpdateOrderStatus
	logs, err := f.store.AuditLogs().List(ctx, repo.AuditLogFilter{Action: &action})
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, adminID, logs[0].ActorUserID)
	assert.Equal(t, `{"status":"shipped"}`, logs[0].BeforeJSON)
	assert.Equal(t, `{"status":"delivered"}`, logs[0].AfterJSON)

	assert.Equal(t, int64(9), f.productStock(t, p.ID))
}

func TestAdminUpdateStatus_CancelIgnoresWindowAndRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t, "a@example.com")
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Mug", "20.00", 10)
	f.addToCart(t, userID, p.ID, nil, 4)
	o := f.placeOrder(t, userID)

	f.clock.Advance(72 * time.Hour)
	out, err := f.admin.UpdateStatus(ctx, adminID, o.ID, AdminUpdateOrderStatusInput{Status: "cancelled"})
	require.NoError(t, err)
	assert.Equal(t, "cancelled", out.Status)
	assert.Equal(t, int64(10), f.productStock(t, p.ID))
}

func TestAdminUpdateStatus_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.seedUser(t, "admin@example.com")

	_, err := f.admin.UpdateStatus(ctx, adminID, 1, AdminUpdateOrderStatusInput{Status: "paid"})
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Message, "unknown order status")

	_, err = f.admin.UpdateStatus(ctx, adminID, 999, AdminUpdateOrderStatusInput{Status: "processing"})
	assert.Equal(t, http.StatusNotFound, httpStatus(err))

	_, err = f.admin.UpdateStatus(ctx, 0, 1, AdminUpdateOrderStatusInput{Status: "processing"})
	assert.Equal(t, http.StatusUnauthorized, httpStatus(err))
}

func TestAdminBulkUpdateStatus_ReportsPerOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	userID := f.seedUser(t, "a@example.com")
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Mug", "20.00", 10)

	f.addToCart(t, userID, p.ID, nil, 1)
	first := f.placeOrder(t, userID)
	f.addToCart(t, userID, p.ID, nil, 1)
	second := f.placeOrder(t, userID)
	_, err := f.orders.CancelOrder(ctx, userID, second.ID)
	require.NoError(t, err)

	results, err := f.admin.BulkUpdateStatus(ctx, adminID, []int64{first.ID, second.ID, first.ID, 999}, AdminUpdateOrderStatusInput{Status: "processing"})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].OK)
	assert.Equal(t, "processing", results[0].Status)

	assert.False(t, results[1].OK)
	assert.Equal(t, "cannot change order status to processing: order is cancelled", results[1].Error)

	assert.Equal(t, int64(999), results[2].OrderID)
	assert.Equal(t, "not found", results[2].Error)

	_, err = f.admin.BulkUpdateStatus(ctx, adminID, nil, AdminUpdateOrderStatusInput{Status: "processing"})
	_, ok := AsValidationError(err)
	assert.True(t, ok)

	tooMany := make([]int64, maxBulkStatusOrders+1)
	_, err = f.admin.BulkUpdateStatus(ctx, adminID, tooMany, AdminUpdateOrderStatusInput{Status: "processing"})
	_, ok = AsValidationError(err)
	assert.True(t, ok)
}

func TestAdminListOrders_Filters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.seedUser(t, "alice@example.com")
	bob := f.seedUser(t, "bob@example.com")
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Mug", "20.00", 10)

	f.addToCart(t, alice, p.ID, nil, 1)
	a := f.placeOrder(t, alice)
	f.addToCart(t, bob, p.ID, nil, 1)
	f.placeOrder(t, bob)
	_, err := f.admin.UpdateStatus(ctx, adminID, a.ID, AdminUpdateOrderStatusInput{Status: "processing"})
	require.NoError(t, err)

	all, err := f.admin.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	processing, err := f.admin.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 10, Status: "Processing"})
	require.NoError(t, err)
	require.Len(t, processing, 1)
	assert.Equal(t, a.ID, processing[0].ID)

	byUser, err := f.admin.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 10, UserID: &bob})
	require.NoError(t, err)
	require.Len(t, byUser, 1)
	assert.Equal(t, bob, byUser[0].UserID)

	_, err = f.admin.List(ctx, repo.AdminOrderListFilter{Page: 1, Limit: 10, Status: "paid"})
	assert.Equal(t, http.StatusBadRequest, httpStatus(err))
	_, err = f.admin.List(ctx, repo.AdminOrderListFilter{Page: 0, Limit: 10})
	assert.Equal(t, http.StatusBadRequest, httpStatus(err))
}
