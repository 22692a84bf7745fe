package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

type productRepo struct{ run access }

func (r *productRepo) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	var total int64
	err := r.run(func(d *dataset) error {
		needle := strings.ToLower(strings.TrimSpace(q.Q))
		list := make([]model.Product, 0, len(d.products))
		for _, p := range d.products {
			if !p.IsActive {
				continue
			}
			if needle != "" &&
				!strings.Contains(strings.ToLower(p.Name), needle) &&
				!strings.Contains(strings.ToLower(p.Description), needle) {
				continue
			}
			if q.MinPrice != nil && p.Price.LessThan(*q.MinPrice) {
				continue
			}
			if q.MaxPrice != nil && p.Price.GreaterThan(*q.MaxPrice) {
				continue
			}
			list = append(list, p)
		}

		sort.Slice(list, func(i, j int) bool {
			a, b := list[i], list[j]
			switch q.Sort {
			case "price_asc":
				if !a.Price.Equal(b.Price) {
					return a.Price.LessThan(b.Price)
				}
				return a.ID < b.ID
			case "price_desc":
				if !a.Price.Equal(b.Price) {
					return a.Price.GreaterThan(b.Price)
				}
				return a.ID > b.ID
			default:
				if !a.CreatedAt.Equal(b.CreatedAt) {
					return a.CreatedAt.After(b.CreatedAt)
				}
				return a.ID > b.ID
			}
		})

		total = int64(len(list))
		out = paginate(list, q.Page, q.Limit)
		return nil
	})
	return out, total, err
}

func (r *productRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var out model.Product
	err := r.run(func(d *dataset) error {
		p, ok := d.products[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = p
		return nil
	})
	return out, err
}

func (r *productRepo) FindVariantByID(ctx context.Context, id int64) (model.ProductVariant, error) {
	var out model.ProductVariant
	err := r.run(func(d *dataset) error {
		v, ok := d.variants[id]
		if !ok {
			return repo.ErrNotFound
		}
		out = v
		return nil
	})
	return out, err
}

func (r *productRepo) ListVariants(ctx context.Context, productID int64) ([]model.ProductVariant, error) {
	out := []model.ProductVariant{}
	err := r.run(func(d *dataset) error {
		for _, v := range d.variants {
			if v.ProductID == productID {
				out = append(out, v)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func (r *productRepo) Create(ctx context.Context, p model.Product) (model.Product, error) {
	err := r.run(func(d *dataset) error {
		p.ID = d.nextID("products")
		stamp(&p.CreatedAt, &p.UpdatedAt)
		d.products[p.ID] = p
		return nil
	})
	return p, err
}

func (r *productRepo) CreateVariant(ctx context.Context, v model.ProductVariant) (model.ProductVariant, error) {
	err := r.run(func(d *dataset) error {
		if _, ok := d.products[v.ProductID]; !ok {
			return repo.ErrNotFound
		}
		for _, other := range d.variants {
			if v.SKU != "" && other.SKU == v.SKU {
				return repo.ErrDuplicate
			}
		}
		v.ID = d.nextID("product_variants")
		stamp(&v.CreatedAt, &v.UpdatedAt)
		d.variants[v.ID] = v
		return nil
	})
	return v, err
}

func (r *productRepo) Update(ctx context.Context, p model.Product) error {
	return r.run(func(d *dataset) error {
		cur, ok := d.products[p.ID]
		if !ok {
			return repo.ErrNotFound
		}
		cur.Name = p.Name
		cur.Description = p.Description
		cur.Price = p.Price
		cur.IsActive = p.IsActive
		cur.UpdatedAt = p.UpdatedAt
		d.products[p.ID] = cur
		return nil
	})
}

func (r *productRepo) Deactivate(ctx context.Context, id int64) error {
	return r.run(func(d *dataset) error {
		cur, ok := d.products[id]
		if !ok {
			return repo.ErrNotFound
		}
		cur.IsActive = false
		d.products[id] = cur
		return nil
	})
}

func paginate[T any](list []T, page, limit int) []T {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		return list
	}
	start := (page - 1) * limit
	if start >= len(list) {
		return []T{}
	}
	end := start + limit
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

// autoCreateTime/autoUpdateTime 相当
func stamp(created, updated *time.Time) {
	now := time.Now()
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
