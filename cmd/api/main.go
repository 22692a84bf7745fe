package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"eytstore/internal/config"
	"eytstore/internal/handler"
	"eytstore/internal/infra/db"
	"eytstore/internal/infra/memory"
	"eytstore/internal/infra/notify"
	infraRepo "eytstore/internal/infra/repository"
	"eytstore/internal/repository"
	"eytstore/internal/server"
	"eytstore/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

// 永続化の実装一式（postgres / memory）
type storage struct {
	tx        repository.TransactionManager
	users     repository.UserRepository
	products  repository.ProductRepository
	carts     repository.CartRepository
	cartItems repository.CartItemRepository
	addresses repository.AddressRepository
	auditLogs repository.AuditLogRepository
	close     func() error
}

func openStorage(cfg config.Config) (storage, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		s := memory.NewStore()
		return storage{
			tx:        s,
			users:     s.Users(),
			products:  s.Products(),
			carts:     s.Carts(),
			cartItems: s.CartItems(),
			addresses: s.Addresses(),
			auditLogs: s.AuditLogs(),
			close:     func() error { return nil },
		}, nil
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		return storage{}, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return storage{}, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return storage{}, err
	}

	cart := infraRepo.NewCartGormRepository(gormDB)
	return storage{
		tx:        infraRepo.NewTxManagerGorm(gormDB),
		users:     infraRepo.NewUserGormRepository(gormDB),
		products:  infraRepo.NewProductGormRepository(gormDB),
		carts:     cart,
		cartItems: cart,
		addresses: infraRepo.NewAddressGormRepository(gormDB),
		auditLogs: infraRepo.NewAuditLogGormRepository(gormDB),
		close:     sqlDB.Close,
	}, nil
}

// REDIS_ADDRがあればPub/Sub、無ければログ出力
func openPublisher(ctx context.Context, cfg config.Config) (usecase.OrderEventPublisher, func() error, error) {
	if cfg.RedisAddr == "" {
		return notify.NewLogPublisher(nil), func() error { return nil }, nil
	}
	client, err := notify.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		return nil, nil, err
	}
	return notify.NewRedisPublisher(client), client.Close, nil
}

func main() {
	// .envは任意（本番は環境変数で渡す）
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warnf("load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	policy, err := config.LoadStorePolicy(cfg.StorePolicyFile)
	if err != nil {
		log.Fatalf("store policy: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	st, err := openStorage(cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer st.close()

	events, closeEvents, err := openPublisher(ctx, cfg)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer closeEvents()

	clock := usecase.SystemClock{}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg.JWTSecret, st.users, clock)
	productUC := usecase.NewProductUsecase(st.tx, st.products, clock)
	inventoryUC := usecase.NewInventoryUsecase(st.tx, st.products, clock)
	cartUC := usecase.NewCartUsecase(st.carts, st.cartItems, st.products)
	addressUC := usecase.NewAddressUsecase(st.addresses, clock)
	orderUC := usecase.NewOrderUsecase(st.tx, st.addresses, usecase.OrderSettings{
		Numbers:      usecase.NewOrderNumberGenerator(policy.OrderPrefix, policy.OrderNumberAttempts),
		Pricing:      policy.Pricing,
		CancelWindow: policy.CancelWindow,
	}, clock, events)
	adminOrderUC := usecase.NewAdminOrderUsecase(st.tx, clock, events)
	auditUC := usecase.NewAuditLogUsecase(st.auditLogs)

	//Handler生成
	h := server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC, inventoryUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		Address:      handler.NewAddressHandler(addressUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminProduct: handler.NewAdminProductHandler(productUC, inventoryUC, auditUC),
	}

	e := server.New(cfg, st.users, h)
	log.Infof("store=%s order_prefix=%s cancel_window=%s", cfg.StoreDriver, policy.OrderPrefix, policy.CancelWindow)

	//Server起動
	if err := server.Start(ctx, e, cfg.Port); err != nil {
		log.Errorf("server: %v", err)
	}
}
