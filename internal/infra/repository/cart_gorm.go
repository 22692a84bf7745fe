package repository

import (
	"context"
	"errors"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CartとCartItemの両方の窓口
type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// ユーザーIDがあればuser_id、無ければsession_keyで絞る
func ownerScope(owner model.CartOwner) func(*gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		if owner.UserID > 0 {
			return tx.Where("user_id = ?", owner.UserID)
		}
		return tx.Where("user_id IS NULL AND session_key = ?", owner.SessionKey)
	}
}

// ACTIVEカートを取得し、無ければ作成
func (r *CartGormRepository) GetOrCreateActive(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	if !owner.Valid() {
		return model.Cart{}, errors.New("cart owner required")
	}

	var cart model.Cart

	//トランザクションで探す→無ければ作る
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		findErr := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Scopes(ownerScope(owner)).
			Where("status = ?", model.CartStatusActive).
			Order("id desc").
			First(&cart).Error

		if findErr == nil {
			return nil
		}
		if !isNotFound(findErr) {
			return findErr
		}

		// 無ければ作る
		now := time.Now()
		newCart := model.Cart{
			Status:    model.CartStatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if owner.UserID > 0 {
			uid := owner.UserID
			newCart.UserID = &uid
		} else {
			newCart.SessionKey = owner.SessionKey
		}

		if err := tx.Create(&newCart).Error; err != nil {
			return err
		}

		cart = newCart
		return nil
	})

	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// ACTIVEカートを取得
func (r *CartGormRepository) FindActive(ctx context.Context, owner model.CartOwner) (model.Cart, error) {
	if !owner.Valid() {
		return model.Cart{}, repo.ErrNotFound
	}

	var cart model.Cart

	err := r.db.WithContext(ctx).
		Scopes(ownerScope(owner)).
		Where("status = ?", model.CartStatusActive).
		Order("id desc").
		First(&cart).Error

	if isNotFound(err) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}
	return cart, nil
}

// carts.statusを更新
func (r *CartGormRepository) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 指定カートの明細を全削除
func (r *CartGormRepository) Clear(ctx context.Context, cartID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart model.Cart
		if err := tx.Where("id = ?", cartID).First(&cart).Error; err != nil {
			if isNotFound(err) {
				return repo.ErrNotFound
			}
			return err
		}

		//cart_itemsを全削除
		return tx.Where("cart_id = ?", cartID).Delete(&model.CartItem{}).Error
	})
}

// カート明細を一覧取得
func (r *CartGormRepository) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	var items []model.CartItem

	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.CartItem{}, err
	}

	return items, nil
}

// 同一商品・同一バリアントは数量加算
func (r *CartGormRepository) Upsert(ctx context.Context, cartID int64, productID int64, variantID *int64, addQty int64) error {
	if addQty <= 0 {
		return errors.New("invalid quantity")
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.CartItem

		q := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cartID, productID)
		if variantID != nil {
			q = q.Where("variant_id = ?", *variantID)
		} else {
			q = q.Where("variant_id IS NULL")
		}
		err := q.First(&item).Error

		if err == nil {
			// 既存ありだったら数量を増やす
			res := tx.Model(&model.CartItem{}).
				Where("id = ?", item.ID).
				Update("quantity", item.Quantity+addQty)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return repo.ErrNotFound
			}
			return nil
		}
		if !isNotFound(err) {
			return err
		}

		//無い場合は新規作成
		now := time.Now()
		return tx.Create(&model.CartItem{
			CartID:    cartID,
			ProductID: productID,
			VariantID: variantID,
			Quantity:  addQty,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	})
}

// 明細の数量を更新
func (r *CartGormRepository) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", cartItemID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartGormRepository) DeleteByID(ctx context.Context, cartItemID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.CartItem{}, cartItemID)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を取得
func (r *CartGormRepository) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("id = ?", cartItemID).
		First(&item).Error

	if isNotFound(err) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}
