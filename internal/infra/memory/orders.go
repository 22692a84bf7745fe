package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

type orderRepo struct{ run access }

func (r *orderRepo) find(orderID int64) (model.Order, error) {
	var out model.Order
	err := r.run(func(d *dataset) error {
		o, ok := d.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		out = o
		return nil
	})
	return out, err
}

func (r *orderRepo) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.find(orderID)
}

// Txが直列なのでロックは不要
func (r *orderRepo) LockByID(ctx context.Context, orderID int64) (model.Order, error) {
	return r.find(orderID)
}

func (r *orderRepo) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, bool, error) {
	var out model.Order
	found := false
	err := r.run(func(d *dataset) error {
		for _, o := range d.orders {
			if o.OrderNumber == orderNumber {
				out, found = o, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *orderRepo) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	var n int64
	err := r.run(func(d *dataset) error {
		for _, o := range d.orders {
			if strings.HasPrefix(o.OrderNumber, prefix) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *orderRepo) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var out []model.Order
	var total int64
	err := r.run(func(d *dataset) error {
		list := []model.Order{}
		for _, o := range d.orders {
			if o.UserID == userID {
				list = append(list, o)
			}
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
		total = int64(len(list))
		out = paginate(list, page, limit)
		return nil
	})
	return out, total, err
}

// unique(order_number) と unique(user_id, idempotency_key) を再現する
func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	return r.run(func(d *dataset) error {
		for _, o := range d.orders {
			if o.OrderNumber == order.OrderNumber {
				return repo.ErrDuplicate
			}
		}
		if order.IdempotencyKey != nil {
			for _, o := range d.orders {
				if o.UserID == order.UserID && o.IdempotencyKey != nil && *o.IdempotencyKey == *order.IdempotencyKey {
					return repo.ErrConflict
				}
			}
		}
		order.ID = d.nextID("orders")
		d.orders[order.ID] = *order
		return nil
	})
}

func (r *orderRepo) UpdateStatus(ctx context.Context, orderID int64, change model.OrderStatusChange) error {
	return r.run(func(d *dataset) error {
		o, ok := d.orders[orderID]
		if !ok {
			return repo.ErrNotFound
		}
		if o.Status != change.From {
			return repo.ErrConflict
		}
		at := change.At
		o.Status = change.To
		o.UpdatedAt = at
		switch change.To {
		case model.OrderStatusShipped:
			o.TrackingNumber = change.TrackingNumber
			o.ShippedAt = &at
		case model.OrderStatusDelivered:
			o.DeliveredAt = &at
		case model.OrderStatusCancelled:
			o.CancelledAt = &at
		}
		d.orders[orderID] = o
		return nil
	})
}

func (r *orderRepo) FindByIdempotencyKey(ctx context.Context, userID int64, key string) (model.Order, bool, error) {
	var out model.Order
	found := false
	err := r.run(func(d *dataset) error {
		for _, o := range d.orders {
			if o.UserID == userID && o.IdempotencyKey != nil && *o.IdempotencyKey == key {
				out, found = o, true
				return nil
			}
		}
		return nil
	})
	return out, found, err
}

func (r *orderRepo) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 50
	}
	var out []model.Order
	var total int64
	err := r.run(func(d *dataset) error {
		list := []model.Order{}
		for _, o := range d.orders {
			if !matchAdminFilter(o, f) {
				continue
			}
			list = append(list, o)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
		total = int64(len(list))
		out = paginate(list, f.Page, f.Limit)
		return nil
	})
	return out, total, err
}

func matchAdminFilter(o model.Order, f repo.AdminOrderListFilter) bool {
	if f.Status != "" && string(o.Status) != f.Status {
		return false
	}
	if f.UserID != nil && o.UserID != *f.UserID {
		return false
	}
	if f.From != nil && o.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && o.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

type orderItemRepo struct{ run access }

func (r *orderItemRepo) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.run(func(d *dataset) error {
		if _, ok := d.orders[orderID]; !ok {
			return repo.ErrNotFound
		}
		now := time.Now()
		for _, it := range items {
			it.ID = d.nextID("order_items")
			it.OrderID = orderID
			if it.CreatedAt.IsZero() {
				it.CreatedAt = now
			}
			d.orderItems[it.ID] = it
		}
		return nil
	})
}

func (r *orderItemRepo) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	out := []model.OrderItem{}
	err := r.run(func(d *dataset) error {
		for _, it := range d.orderItems {
			if it.OrderID == orderID {
				out = append(out, it)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}
