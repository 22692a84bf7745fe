package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

var errNegativeStock = errors.New("stock_quantity must be >= 0")

// Txは直列なので、Lock系は読むだけでよい
type inventoryRepo struct{ run access }

func (r *inventoryRepo) LockProduct(ctx context.Context, productID int64) (model.Product, error) {
	var out model.Product
	err := r.run(func(d *dataset) error {
		p, ok := d.products[productID]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *inventoryRepo) LockVariant(ctx context.Context, variantID int64) (model.ProductVariant, error) {
	var out model.ProductVariant
	err := r.run(func(d *dataset) error {
		v, ok := d.variants[variantID]
		if !ok {
			return repo.ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

// CHECK (stock_quantity >= 0) 相当も見る
func (r *inventoryRepo) SetProductStock(ctx context.Context, productID int64, newStock int64) error {
	return r.run(func(d *dataset) error {
		p, ok := d.products[productID]
		if !ok {
			return repo.ErrNotFound
		}
		if newStock < 0 {
			return errNegativeStock
		}
		p.StockQuantity = newStock
		d.products[productID] = p
		return nil
	})
}

func (r *inventoryRepo) SetVariantStock(ctx context.Context, variantID int64, newStock int64) error {
	return r.run(func(d *dataset) error {
		v, ok := d.variants[variantID]
		if !ok {
			return repo.ErrNotFound
		}
		if newStock < 0 {
			return errNegativeStock
		}
		v.StockQuantity = newStock
		d.variants[variantID] = v
		return nil
	})
}

func (r *inventoryRepo) CreateMovement(ctx context.Context, m model.StockMovement) error {
	return r.run(func(d *dataset) error {
		m.ID = d.nextID("stock_movements")
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		d.movements = append(d.movements, m)
		return nil
	})
}

func (r *inventoryRepo) ListMovements(ctx context.Context, productID int64, limit int) ([]model.StockMovement, error) {
	out := []model.StockMovement{}
	err := r.run(func(d *dataset) error {
		for _, m := range d.movements {
			if m.ProductID == productID {
				out = append(out, m)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}
