package repository_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"eytstore/internal/domain/model"
	"eytstore/internal/domain/pricing"
	"eytstore/internal/infra/db"
	infraRepo "eytstore/internal/infra/repository"
	"eytstore/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// 実DBでの行ロック・SAVEPOINT再試行の確認。EYT_TEST_DATABASE_URL が無ければskip
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("EYT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("EYT_TEST_DATABASE_URL not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return gdb
}

// 実行ごとに重ならない名前
func runTag() string {
	return fmt.Sprintf("T%09d", time.Now().UnixNano()%1_000_000_000)
}

func seedPGProduct(t *testing.T, products *infraRepo.ProductGormRepository, name string, stock int64) model.Product {
	t.Helper()
	now := time.Now()
	p, err := products.Create(context.Background(), model.Product{
		Name:          name,
		Price:         decimal.RequireFromString("10.00"),
		StockQuantity: stock,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	require.NoError(t, err)
	return p
}

func TestPostgres_ReserveNeverOversells(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	products := infraRepo.NewProductGormRepository(gdb)
	inventory := usecase.NewInventoryUsecase(infraRepo.NewTxManagerGorm(gdb), products, nil)

	p := seedPGProduct(t, products, "limited "+runTag(), 5)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		ok, shortage int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := inventory.Reserve(ctx, model.StockTarget{ProductID: p.ID}, 1)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
				return
			}
			if _, isShort := usecase.AsInsufficientStockError(err); isShort {
				shortage++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 15, shortage)

	got, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.StockQuantity)
}

// 商品を分けて行ロックで直列化されないようにし、番号の衝突→再試行を起こす
func TestPostgres_ConcurrentOrdersGetUniqueNumbers(t *testing.T) {
	gdb := openTestDB(t)
	ctx := context.Background()
	tag := runTag()

	users := infraRepo.NewUserGormRepository(gdb)
	products := infraRepo.NewProductGormRepository(gdb)
	carts := infraRepo.NewCartGormRepository(gdb)
	cartUC := usecase.NewCartUsecase(carts, carts, products)
	orderUC := usecase.NewOrderUsecase(infraRepo.NewTxManagerGorm(gdb), infraRepo.NewAddressGormRepository(gdb), usecase.OrderSettings{
		Numbers: usecase.NewOrderNumberGenerator(tag, 50),
		Pricing: pricing.DefaultPolicy(),
	}, nil, nil)

	const n = 10
	userIDs := make([]int64, n)
	for i := range userIDs {
		u := &model.User{Email: fmt.Sprintf("%s-%d@example.com", tag, i), PasswordHash: "x", Role: model.RoleUser, IsActive: true}
		require.NoError(t, users.Create(ctx, u))
		userIDs[i] = u.ID

		p := seedPGProduct(t, products, fmt.Sprintf("item %s %d", tag, i), 1)
		_, err := cartUC.AddToCart(ctx, model.CartOwner{UserID: u.ID}, usecase.AddCartInput{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
	}

	shipping := model.ShippingInfo{Name: "Jane", Line1: "1 Main St", City: "Springfield", PostalCode: "62701", Country: "US"}
	numbers := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i, id := range userIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			out, err := orderUC.PlaceOrder(ctx, id, usecase.PlaceOrderInput{Shipping: &shipping, PaymentMethod: "card"})
			numbers[i], errs[i] = out.OrderNumber, err
		}(i, id)
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range numbers {
		require.NoError(t, errs[i])
		assert.Regexp(t, `^`+tag+`-\d{4}-\d{6}$`, numbers[i])
		assert.False(t, seen[numbers[i]], numbers[i])
		seen[numbers[i]] = true
	}
	assert.Len(t, seen, n)
}
