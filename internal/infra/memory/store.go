// Package memory はDB無しで動く repository 実装。
// トランザクションは1本ずつ直列に実行し、データの複製に対して処理してから
// 成功時だけ差し替える（失敗すれば何も残らない）。
package memory

import (
	"context"
	"sync"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

type dataset struct {
	seq map[string]int64

	users      map[int64]model.User
	products   map[int64]model.Product
	variants   map[int64]model.ProductVariant
	carts      map[int64]model.Cart
	cartItems  map[int64]model.CartItem
	orders     map[int64]model.Order
	orderItems map[int64]model.OrderItem
	addresses  map[int64]model.Address
	movements  []model.StockMovement
	auditLogs  []model.AuditLog
}

func newDataset() *dataset {
	return &dataset{
		seq:        map[string]int64{},
		users:      map[int64]model.User{},
		products:   map[int64]model.Product{},
		variants:   map[int64]model.ProductVariant{},
		carts:      map[int64]model.Cart{},
		cartItems:  map[int64]model.CartItem{},
		orders:     map[int64]model.Order{},
		orderItems: map[int64]model.OrderItem{},
		addresses:  map[int64]model.Address{},
	}
}

func (d *dataset) nextID(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (d *dataset) clone() *dataset {
	return &dataset{
		seq:        cloneMap(d.seq),
		users:      cloneMap(d.users),
		products:   cloneMap(d.products),
		variants:   cloneMap(d.variants),
		carts:      cloneMap(d.carts),
		cartItems:  cloneMap(d.cartItems),
		orders:     cloneMap(d.orders),
		orderItems: cloneMap(d.orderItems),
		addresses:  cloneMap(d.addresses),
		movements:  append([]model.StockMovement(nil), d.movements...),
		auditLogs:  append([]model.AuditLog(nil), d.auditLogs...),
	}
}

// datasetに触るための入口。Tx外ならロックを取り、Tx内なら複製をそのまま渡す
type access func(fn func(d *dataset) error) error

type Store struct {
	mu   sync.Mutex
	data *dataset
}

func NewStore() *Store {
	return &Store{data: newDataset()}
}

func (s *Store) locked(fn func(d *dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Tx外で使うrepository。WithinTxのコールバック内から呼ぶとデッドロックする
func (s *Store) Users() repo.UserRepository           { return &userRepo{run: s.locked} }
func (s *Store) Products() repo.ProductRepository     { return &productRepo{run: s.locked} }
func (s *Store) Carts() repo.CartRepository           { return &cartRepo{run: s.locked} }
func (s *Store) CartItems() repo.CartItemRepository   { return &cartItemRepo{run: s.locked} }
func (s *Store) Addresses() repo.AddressRepository    { return &addressRepo{run: s.locked} }
func (s *Store) AuditLogs() repo.AuditLogRepository   { return &auditLogRepo{run: s.locked} }
func (s *Store) Orders() repo.OrderRepository         { return &orderRepo{run: s.locked} }
func (s *Store) OrderItems() repo.OrderItemRepository { return &orderItemRepo{run: s.locked} }
func (s *Store) Inventory() repo.InventoryRepository  { return &inventoryRepo{run: s.locked} }

type txRepos struct {
	run access
}

func (r txRepos) Orders() repo.OrderRepository         { return &orderRepo{run: r.run} }
func (r txRepos) OrderItems() repo.OrderItemRepository { return &orderItemRepo{run: r.run} }
func (r txRepos) Carts() repo.CartRepository           { return &cartRepo{run: r.run} }
func (r txRepos) CartItems() repo.CartItemRepository   { return &cartItemRepo{run: r.run} }
func (r txRepos) Inventory() repo.InventoryRepository  { return &inventoryRepo{run: r.run} }
func (r txRepos) Products() repo.ProductRepository     { return &productRepo{run: r.run} }
func (r txRepos) AuditLogs() repo.AuditLogRepository   { return &auditLogRepo{run: r.run} }

// 直列化されたTx。fnがerrorを返したら複製ごと捨てる
func (s *Store) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	r := txRepos{run: func(f func(d *dataset) error) error { return f(work) }}
	if err := fn(r); err != nil {
		return err
	}
	s.data = work
	return nil
}

var _ repo.TransactionManager = (*Store)(nil)
