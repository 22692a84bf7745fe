package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"
)

const (
	defaultOrderNumberAttempts = 5
	// NNNNNNの6桁に収まる上限
	maxOrderSequence = 999999
)

// PREFIX-YYYY-NNNNNN 形式の注文番号を振る。
// 連番は「その年に振られた件数+1」から始め、一意制約で弾かれたら次へ進む。
type OrderNumberGenerator struct {
	Prefix      string
	MaxAttempts int
}

func NewOrderNumberGenerator(prefix string, maxAttempts int) OrderNumberGenerator {
	if prefix == "" {
		prefix = "EYT"
	}
	if maxAttempts <= 0 {
		maxAttempts = defaultOrderNumberAttempts
	}
	return OrderNumberGenerator{Prefix: prefix, MaxAttempts: maxAttempts}
}

func (g OrderNumberGenerator) Format(year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%06d", g.Prefix, year, seq)
}

func (g OrderNumberGenerator) yearPrefix(year int) string {
	return fmt.Sprintf("%s-%04d-", g.Prefix, year)
}

// 番号を決めて注文を保存する。注文作成と同じTx内で呼ぶこと。
// 保存に成功したらorder.OrderNumberとorder.IDが埋まる。
func (g OrderNumberGenerator) CreateNumbered(ctx context.Context, orders repo.OrderRepository, order *model.Order, now time.Time) error {
	year := now.Year()

	count, err := orders.CountByNumberPrefix(ctx, g.yearPrefix(year))
	if err != nil {
		return err
	}

	seq := count + 1
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		if seq > maxOrderSequence {
			break
		}
		candidate := g.Format(year, seq)

		_, found, err := orders.FindByOrderNumber(ctx, candidate)
		if err != nil {
			return err
		}
		if found {
			seq++
			continue
		}

		order.OrderNumber = candidate
		err = orders.Create(ctx, order)
		if errors.Is(err, repo.ErrDuplicate) {
			// 同時に同じ番号を取られた
			seq++
			continue
		}
		if err != nil {
			order.OrderNumber = ""
			return err
		}
		return nil
	}

	order.OrderNumber = ""
	return ErrOrderNumberExhausted
}
