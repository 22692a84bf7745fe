package repository

import (
	"context"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"gorm.io/gorm"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

type auditLogGormRepository struct {
	db *gorm.DB
}

// Tx内ではtxを渡す（在庫調整・状態変更と同じTxで記録する）
func NewAuditLogGormRepository(db *gorm.DB) repo.AuditLogRepository {
	return &auditLogGormRepository{db: db}
}

func (r *auditLogGormRepository) Create(ctx context.Context, entry model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&entry).Error
}

// 新しい順。limitは既定50・最大200
func (r *auditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	logs := []model.AuditLog{}
	err := r.db.WithContext(ctx).
		Scopes(auditFilter(filter), auditPage(filter.Limit, filter.Offset)).
		Order("id DESC").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

func auditFilter(f repo.AuditLogFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		cond := map[string]any{}
		if f.ActorUserID != nil {
			cond["actor_user_id"] = *f.ActorUserID
		}
		if f.Action != nil {
			cond["action"] = string(*f.Action)
		}
		if f.ResourceType != nil {
			cond["resource_type"] = string(*f.ResourceType)
		}
		if f.ResourceID != nil {
			cond["resource_id"] = *f.ResourceID
		}
		if len(cond) > 0 {
			q = q.Where(cond)
		}
		if f.CreatedFrom != nil {
			q = q.Where("created_at >= ?", *f.CreatedFrom)
		}
		if f.CreatedTo != nil {
			q = q.Where("created_at <= ?", *f.CreatedTo)
		}
		return q
	}
}

func auditPage(limit, offset int) func(*gorm.DB) *gorm.DB {
	if limit <= 0 || limit > maxAuditLimit {
		limit = defaultAuditLimit
	}
	if offset < 0 {
		offset = 0
	}
	return func(q *gorm.DB) *gorm.DB {
		return q.Limit(limit).Offset(offset)
	}
}
