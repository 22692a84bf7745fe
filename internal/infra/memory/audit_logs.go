package memory

import (
	"context"
	"sort"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

type auditLogRepo struct{ run access }

func (r *auditLogRepo) Create(ctx context.Context, log model.AuditLog) error {
	return r.run(func(d *dataset) error {
		log.ID = d.nextID("audit_logs")
		if log.CreatedAt.IsZero() {
			log.CreatedAt = time.Now()
		}
		d.auditLogs = append(d.auditLogs, log)
		return nil
	})
}

func (r *auditLogRepo) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	out := []model.AuditLog{}
	err := r.run(func(d *dataset) error {
		for _, l := range d.auditLogs {
			if matchAuditFilter(l, filter) {
				out = append(out, l)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	//新しい順
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if offset >= len(out) {
		return []model.AuditLog{}, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func matchAuditFilter(l model.AuditLog, f repo.AuditLogFilter) bool {
	switch {
	case f.ActorUserID != nil && l.ActorUserID != *f.ActorUserID:
		return false
	case f.Action != nil && l.Action != *f.Action:
		return false
	case f.ResourceType != nil && l.ResourceType != *f.ResourceType:
		return false
	case f.ResourceID != nil && l.ResourceID != *f.ResourceID:
		return false
	case f.CreatedFrom != nil && l.CreatedAt.Before(*f.CreatedFrom):
		return false
	case f.CreatedTo != nil && l.CreatedAt.After(*f.CreatedTo):
		return false
	}
	return true
}
