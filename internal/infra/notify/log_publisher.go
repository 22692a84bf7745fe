package notify

import (
	"context"

	"eytstore/internal/domain/model"

	"github.com/labstack/gommon/log"
)

// Redisが無い環境用。イベントをログに出すだけ
type LogPublisher struct {
	logger *log.Logger
}

func NewLogPublisher(logger *log.Logger) *LogPublisher {
	if logger == nil {
		logger = log.New("order-events")
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishStatusChange(ctx context.Context, ev model.OrderStatusEvent) error {
	p.logger.Infoj(log.JSON{
		"event":        "order_status_changed",
		"order_id":     ev.OrderID,
		"order_number": ev.OrderNumber,
		"user_id":      ev.UserID,
		"from":         ev.From,
		"to":           ev.To,
		"tracking":     ev.TrackingNumber,
		"occurred_at":  ev.OccurredAt,
	})
	return nil
}
