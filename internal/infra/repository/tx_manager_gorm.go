package repository

import (
	"context"
	"database/sql"

	repo "eytstore/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	carts      repo.CartRepository
	cartItems  repo.CartItemRepository
	inventory  repo.InventoryRepository
	products   repo.ProductRepository
	auditLogs  repo.AuditLogRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposGorm) Carts() repo.CartRepository           { return r.carts }
func (r *txReposGorm) CartItems() repo.CartItemRepository   { return r.cartItems }
func (r *txReposGorm) Inventory() repo.InventoryRepository  { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository     { return r.products }
func (r *txReposGorm) AuditLogs() repo.AuditLogRepository   { return r.auditLogs }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

// 在庫はFOR UPDATEで直列化するのでREAD COMMITTEDで足りる
var txOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newTxRepos(tx))
	}, txOptions)
}

// 全repoを同じtxで作る
func newTxRepos(tx *gorm.DB) *txReposGorm {
	cart := NewCartGormRepository(tx)
	return &txReposGorm{
		orders:     NewOrderGormRepository(tx),
		orderItems: NewOrderItemGormRepository(tx),
		carts:      cart,
		cartItems:  cart,
		inventory:  NewInventoryGormRepository(tx),
		products:   NewProductGormRepository(tx),
		auditLogs:  NewAuditLogGormRepository(tx),
	}
}
