package repository

import (
	"context"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"gorm.io/gorm"
)

type addressGormRepository struct {
	db *gorm.DB
}

func NewAddressGormRepository(db *gorm.DB) repo.AddressRepository {
	return &addressGormRepository{db: db}
}

// デフォルト指定なら、同じTxで既存のデフォルトを外してから保存する
func (r *addressGormRepository) Create(ctx context.Context, address model.Address) (model.Address, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if address.IsDefault {
			if err := clearDefaultAddress(tx, address.UserID); err != nil {
				return err
			}
		}
		return tx.Create(&address).Error
	})
	if err != nil {
		return model.Address{}, err
	}
	return address, nil
}

func clearDefaultAddress(tx *gorm.DB, userID int64) error {
	return tx.Model(&model.Address{}).
		Where(&model.Address{UserID: userID, IsDefault: true}).
		Update("is_default", false).Error
}

// デフォルトが先頭、あとは登録順
func (r *addressGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Address, error) {
	list := []model.Address{}
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("is_default DESC").
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

func (r *addressGormRepository) FindByID(ctx context.Context, addressID int64) (model.Address, error) {
	var a model.Address
	if err := r.db.WithContext(ctx).First(&a, addressID).Error; err != nil {
		if isNotFound(err) {
			return model.Address{}, repo.ErrNotFound
		}
		return model.Address{}, err
	}
	return a, nil
}

// 注文側は住所のコピーを持っているので、ここで消しても注文には影響しない
func (r *addressGormRepository) Delete(ctx context.Context, addressID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Address{}, addressID)
	switch {
	case res.Error != nil:
		return res.Error
	case res.RowsAffected == 0:
		return repo.ErrNotFound
	default:
		return nil
	}
}
