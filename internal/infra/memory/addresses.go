package memory

import (
	"context"
	"sort"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

type addressRepo struct{ run access }

// デフォルト指定なら同じユーザーの他の住所のデフォルトを外す
func (r *addressRepo) Create(ctx context.Context, address model.Address) (model.Address, error) {
	err := r.run(func(d *dataset) error {
		if address.IsDefault {
			for id, a := range d.addresses {
				if a.UserID == address.UserID && a.IsDefault {
					a.IsDefault = false
					d.addresses[id] = a
				}
			}
		}
		address.ID = d.nextID("addresses")
		d.addresses[address.ID] = address
		return nil
	})
	if err != nil {
		return model.Address{}, err
	}
	return address, nil
}

func (r *addressRepo) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	out := []model.Address{}
	err := r.run(func(d *dataset) error {
		for _, a := range d.addresses {
			if a.UserID == userID {
				out = append(out, a)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].IsDefault != out[j].IsDefault {
				return out[i].IsDefault
			}
			return out[i].ID < out[j].ID
		})
		return nil
	})
	return out, err
}

func (r *addressRepo) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	var out model.Address
	err := r.run(func(d *dataset) error {
		a, ok := d.addresses[addressID]
		if !ok {
			return repo.ErrNotFound
		}
		out = a
		return nil
	})
	return out, err
}

func (r *addressRepo) Delete(ctx context.Context, addressID int64) error {
	return r.run(func(d *dataset) error {
		if _, ok := d.addresses[addressID]; !ok {
			return repo.ErrNotFound
		}
		delete(d.addresses, addressID)
		return nil
	})
}
