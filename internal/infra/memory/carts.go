package memory

import (
	"context"
	"errors"
	"sort"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

type cartRepo struct{ run access }

func ownedBy(c model.Cart, owner model.CartOwner) bool {
	if owner.UserID > 0 {
		return c.UserID != nil && *c.UserID == owner.UserID
	}
	return c.UserID == nil && c.SessionKey == owner.SessionKey
}

func activeCart(d *dataset, owner model.CartOwner) (model.Cart, bool) {
	var found model.Cart
	ok := false
	for _, c := range d.carts {
		if c.Status != model.CartStatusActive || !ownedBy(c, owner) {
			continue
		}
		if !ok || c.ID > found.ID {
			found, ok = c, true
		}
	}
	return found, ok
}

func (r *cartRepo) GetOrCreateActive(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	if !owner.Valid() {
		return model.Cart{}, errors.New("cart owner required")
	}
	var out model.Cart
	err := r.run(func(d *dataset) error {
		if c, ok := activeCart(d, owner); ok {
			out = c
			return nil
		}
		now := time.Now()
		c := model.Cart{
			ID:        d.nextID("carts"),
			Status:    model.CartStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if owner.UserID > 0 {
			uid := owner.UserID
			c.UserID = &uid
		} else {
			c.SessionKey = owner.SessionKey
		}
		d.carts[c.ID] = c
		out = c
		return nil
	})
	return out, err
}

func (r *cartRepo) FindActive(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	if !owner.Valid() {
		return model.Cart{}, repo.ErrNotFound
	}
	var out model.Cart
	err := r.run(func(d *dataset) error {
		c, ok := activeCart(d, owner)
		if !ok {
			return repo.ErrNotFound
		}
		out = c
		return nil
	})
	return out, err
}

func (r *cartRepo) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	return r.run(func(d *dataset) error {
		c, ok := d.carts[cartID]
		if !ok {
			return repo.ErrNotFound
		}
		c.Status = status
		c.UpdatedAt = time.Now()
		d.carts[cartID] = c
		return nil
	})
}

func (r *cartRepo) Clear(ctx context.Context, cartID int64) error {
	return r.run(func(d *dataset) error {
		if _, ok := d.carts[cartID]; !ok {
			return repo.ErrNotFound
		}
		for id, it := range d.cartItems {
			if it.CartID == cartID {
				delete(d.cartItems, id)
			}
		}
		return nil
	})
}

type cartItemRepo struct{ run access }

func (r *cartItemRepo) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	out := []model.CartItem{}
	err := r.run(func(d *dataset) error {
		for _, it := range d.cartItems {
			if it.CartID == cartID {
				out = append(out, it)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return nil
	})
	return out, err
}

func sameVariant(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *cartItemRepo) Upsert(ctx context.Context, cartID int64, productID int64, variantID *int64, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}
	return r.run(func(d *dataset) error {
		now := time.Now()
		for id, it := range d.cartItems {
			if it.CartID == cartID && it.ProductID == productID && sameVariant(it.VariantID, variantID) {
				it.Quantity += addQty
				it.UpdatedAt = now
				d.cartItems[id] = it
				return nil
			}
		}
		it := model.CartItem{
			ID:        d.nextID("cart_items"),
			CartID:    cartID,
			ProductID: productID,
			Quantity:  addQty,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if variantID != nil {
			v := *variantID
			it.VariantID = &v
		}
		d.cartItems[it.ID] = it
		return nil
	})
}

func (r *cartItemRepo) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	return r.run(func(d *dataset) error {
		it, ok := d.cartItems[cartItemID]
		if !ok {
			return repo.ErrNotFound
		}
		it.Quantity = qty
		it.UpdatedAt = time.Now()
		d.cartItems[cartItemID] = it
		return nil
	})
}

func (r *cartItemRepo) DeleteByID(ctx context.Context, cartItemID int64) error {
	return r.run(func(d *dataset) error {
		if _, ok := d.cartItems[cartItemID]; !ok {
			return repo.ErrNotFound
		}
		delete(d.cartItems, cartItemID)
		return nil
	})
}

func (r *cartItemRepo) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var out model.CartItem
	err := r.run(func(d *dataset) error {
		it, ok := d.cartItems[cartItemID]
		if !ok {
			return repo.ErrNotFound
		}
		out = it
		return nil
	})
	return out, err
}
