package usecase

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdjustStock_ProductWritesMovementAndAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Mug", "20.00", 10)

	require.NoError(t, f.inventory.AdjustStock(ctx, adminID, p.ID, AdjustStockInput{NewStock: 25, Reason: "restock"}))
	assert.Equal(t, int64(25), f.productStock(t, p.ID))

	moves, err := f.inventory.ListMovements(ctx, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, model.StockMovementAdjustment, moves[0].Type)
	assert.Equal(t, int64(15), moves[0].Delta)
	assert.Equal(t, int64(10), moves[0].PrevStock)
	assert.Equal(t, "restock", moves[0].Reason)
	require.NotNil(t, moves[0].ActorUserID)
	assert.Equal(t, adminID, *moves[0].ActorUserID)

	logs, err := f.store.AuditLogs().List(ctx, repo.AuditLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, model.AuditActionUpdateStock, logs[0].Action)
	assert.Equal(t, `{"stock_quantity":10}`, logs[0].BeforeJSON)
	assert.Equal(t, `{"stock_quantity":25}`, logs[0].AfterJSON)
}

func TestAdjustStock_Variant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Shirt", "20.00", 10)
	v := f.seedVariant(t, p.ID, "S", "SHIRT-S", "0", 2)
	other := f.seedProduct(t, "Other", "5.00", 1)

	require.NoError(t, f.inventory.AdjustStock(ctx, adminID, p.ID, AdjustStockInput{VariantID: &v.ID, NewStock: 0, Reason: "audit"}))
	assert.Equal(t, int64(0), f.variantStock(t, v.ID))
	assert.Equal(t, int64(10), f.productStock(t, p.ID))

	// 別商品のバリアントは404
	err := f.inventory.AdjustStock(ctx, adminID, other.ID, AdjustStockInput{VariantID: &v.ID, NewStock: 3, Reason: "x"})
	assert.Equal(t, http.StatusNotFound, httpStatus(err))
}

func TestAdjustStock_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Mug", "20.00", 10)

	_, ok := AsValidationError(f.inventory.AdjustStock(ctx, adminID, p.ID, AdjustStockInput{NewStock: -1, Reason: "x"}))
	assert.True(t, ok)
	_, ok = AsValidationError(f.inventory.AdjustStock(ctx, adminID, p.ID, AdjustStockInput{NewStock: 1, Reason: " "}))
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpStatus(f.inventory.AdjustStock(ctx, adminID, 999, AdjustStockInput{NewStock: 1, Reason: "x"})))
	assert.Equal(t, http.StatusUnauthorized, httpStatus(f.inventory.AdjustStock(ctx, 0, p.ID, AdjustStockInput{NewStock: 1, Reason: "x"})))
	assert.Equal(t, int64(10), f.productStock(t, p.ID))
}

// memory.Store上の確認。FOR UPDATEの経路はinfra/repository/postgres_test.go
func TestReserve_NeverGoesNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "Mug", "20.00", 3)
	target := model.StockTarget{ProductID: p.ID}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.inventory.Reserve(ctx, target, 1); err == nil {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, reserved)
	assert.Equal(t, int64(0), f.productStock(t, p.ID))

	err := f.inventory.Reserve(ctx, target, 1)
	se, ok := AsInsufficientStockError(err)
	require.True(t, ok)
	assert.Equal(t, int64(0), se.Available)
}

func TestReserve_InactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := f.seedUser(t, "admin@example.com")
	p := f.seedProduct(t, "Mug", "20.00", 3)
	require.NoError(t, f.products.AdminDeactivateProduct(ctx, adminID, p.ID))

	err := f.inventory.Reserve(ctx, model.StockTarget{ProductID: p.ID}, 1)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Message, msgProductUnavailable)
	assert.Equal(t, int64(3), f.productStock(t, p.ID))
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "Mug", "20.00", 3)
	v := f.seedVariant(t, p.ID, "Big", "MUG-BIG", "2.00", 1)

	ok, err := f.inventory.CheckAvailability(ctx, model.StockTarget{ProductID: p.ID}, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.inventory.CheckAvailability(ctx, model.StockTarget{ProductID: p.ID}, 4)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.inventory.CheckAvailability(ctx, model.StockTarget{ProductID: p.ID, VariantID: &v.ID}, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.inventory.CheckAvailability(ctx, model.StockTarget{ProductID: 999}, 1)
	assert.Equal(t, http.StatusNotFound, httpStatus(err))

	_, err = f.inventory.CheckAvailability(ctx, model.StockTarget{ProductID: p.ID}, 0)
	_, isVE := AsValidationError(err)
	assert.True(t, isVE)
}

func TestReserve_NonPositivePriceIsUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.seedProduct(t, "Jacket", "20.00", 5)
	v := f.seedVariant(t, p.ID, "Outlet", "JACKET-OUT", "-15.00", 5)

	// 管理APIを通らずに値下げされたデータ
	p.Price = decimal.RequireFromString("5.00")
	require.NoError(t, f.store.Products().Update(ctx, p))

	err := f.inventory.Reserve(ctx, model.StockTarget{ProductID: p.ID, VariantID: &v.ID}, 1)
	ve, ok := AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, ve.Message, msgProductUnavailable)
	assert.Equal(t, int64(5), f.variantStock(t, v.ID))
}
