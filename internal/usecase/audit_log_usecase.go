package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

// 管理画面の監査ログ閲覧
type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

type AuditLogQuery struct {
	ActorUserID  *int64
	Action       string
	ResourceType string
	ResourceID   *int64
	From         *time.Time
	To           *time.Time
	Limit        int
	Offset       int
}

func (u *AuditLogUsecase) List(ctx context.Context, q AuditLogQuery) ([]model.AuditLog, error) {
	if q.Limit < 0 || q.Limit > 200 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}
	if q.Offset < 0 {
		return []model.AuditLog{}, NewHTTPError(http.StatusBadRequest, "invalid offset")
	}

	f := repo.AuditLogFilter{
		ActorUserID: q.ActorUserID,
		ResourceID:  q.ResourceID,
		CreatedFrom: q.From,
		CreatedTo:   q.To,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
	if v := strings.TrimSpace(q.Action); v != "" {
		a := model.AuditAction(strings.ToUpper(v))
		f.Action = &a
	}
	if v := strings.TrimSpace(q.ResourceType); v != "" {
		rt := model.AuditResourceType(strings.ToLower(v))
		f.ResourceType = &rt
	}

	logs, err := u.logs.List(ctx, f)
	if err != nil {
		return []model.AuditLog{}, dbError(err)
	}
	return logs, nil
}
