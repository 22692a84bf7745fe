package usecase

import (
	"context"

	"eytstore/internal/domain/model"

	"github.com/labstack/gommon/log"
)

// ステータス変更の通知先（Redis / ログなど）
type OrderEventPublisher interface {
	PublishStatusChange(ctx context.Context, ev model.OrderStatusEvent) error
}

// commit後に呼ぶ。失敗してもステータス変更は取り消さない
func publishStatusEvents(ctx context.Context, pub OrderEventPublisher, events ...model.OrderStatusEvent) {
	if pub == nil {
		return
	}
	for _, ev := range events {
		if err := pub.PublishStatusChange(ctx, ev); err != nil {
			log.Errorf("publish order status event failed: order=%s %s->%s: %v", ev.OrderNumber, ev.From, ev.To, err)
		}
	}
}
