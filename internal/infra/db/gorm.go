package db

import (
	"eytstore/internal/config"
	"eytstore/internal/domain/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect はDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	gcfg := &gorm.Config{}
	if cfg.IsProd() {
		gcfg.Logger = logger.Default.LogMode(logger.Warn)
	}
	return gorm.Open(postgres.Open(cfg.PostgresDSN()), gcfg)
}

// Migrate はテーブルと一意制約を作る（order_number, (user_id, idempotency_key), sku, email）
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.ProductVariant{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.StockMovement{},
		&model.Address{},
		&model.AuditLog{},
	)
}
