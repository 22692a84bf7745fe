package memory

import (
	"context"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

type userRepo struct{ run access }

func (r *userRepo) Create(ctx context.Context, user *model.User) error {
	return r.run(func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, user.Email) {
				return repo.ErrDuplicate
			}
		}
		user.ID = d.nextID("users")
		d.users[user.ID] = *user
		return nil
	})
}

func (r *userRepo) FindByID(ctx context.Context, userID int64) (model.User, error) {
	var out model.User
	err := r.run(func(d *dataset) error {
		u, ok := d.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		out = u
		return nil
	})
	return out, err
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (model.User, error) {
	var out model.User
	err := r.run(func(d *dataset) error {
		for _, u := range d.users {
			if strings.EqualFold(u.Email, email) {
				out = u
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return out, err
}

func (r *userRepo) TouchLastLogin(ctx context.Context, userID int64) error {
	return r.run(func(d *dataset) error {
		u, ok := d.users[userID]
		if !ok {
			return repo.ErrNotFound
		}
		now := time.Now()
		u.LastLoginAt = &now
		d.users[userID] = u
		return nil
	})
}
