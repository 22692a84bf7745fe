package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"eytstore/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// 注文ステータス変更を流すチャンネル
const OrderStatusChannel = "orders.status"

// *redis.Client が満たす。テストでは差し替える
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	client  redisPublisher
	channel string
}

func NewRedisPublisher(client redisPublisher) *RedisPublisher {
	return &RedisPublisher{client: client, channel: OrderStatusChannel}
}

// NewRedisClient はRedisに接続してPingまで確認する
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (p *RedisPublisher) PublishStatusChange(ctx context.Context, ev model.OrderStatusEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", p.channel, err)
	}
	return nil
}
