package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"eytstore/internal/domain/model"
	repo "eytstore/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// OrderRepository mock（採番だけ）
// =====================

type NumberOrderRepoMock struct {
	mock.Mock
	repo.OrderRepository
}

func (m *NumberOrderRepoMock) CountByNumberPrefix(ctx context.Context, prefix string) (int64, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NumberOrderRepoMock) FindByOrderNumber(ctx context.Context, orderNumber string) (model.Order, bool, error) {
	args := m.Called(ctx, orderNumber)
	return model.Order{}, args.Bool(0), args.Error(1)
}

func (m *NumberOrderRepoMock) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order.OrderNumber)
	if args.Error(0) == nil {
		order.ID = 77
	}
	return args.Error(0)
}

var numberTestTime = time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

func TestOrderNumberGenerator_Format(t *testing.T) {
	g := NewOrderNumberGenerator("", 0)
	assert.Equal(t, "EYT", g.Prefix)
	assert.Equal(t, defaultOrderNumberAttempts, g.MaxAttempts)
	assert.Equal(t, "EYT-2026-000042", g.Format(2026, 42))
	assert.Equal(t, "SHOP-2027-999999", NewOrderNumberGenerator("SHOP", 3).Format(2027, maxOrderSequence))
}

func TestOrderNumberGenerator_SkipsTakenAndRetriesOnDuplicate(t *testing.T) {
	ctx := context.Background()
	m := &NumberOrderRepoMock{}
	m.On("CountByNumberPrefix", ctx, "EYT-2026-").Return(int64(4), nil).Once()
	m.On("FindByOrderNumber", ctx, "EYT-2026-000005").Return(true, nil).Once()
	m.On("FindByOrderNumber", ctx, "EYT-2026-000006").Return(false, nil).Once()
	m.On("Create", ctx, "EYT-2026-000006").Return(repo.ErrDuplicate).Once()
	m.On("FindByOrderNumber", ctx, "EYT-2026-000007").Return(false, nil).Once()
	m.On("Create", ctx, "EYT-2026-000007").Return(nil).Once()

	order := &model.Order{UserID: 1}
	err := NewOrderNumberGenerator("EYT", 5).CreateNumbered(ctx, m, order, numberTestTime)
	require.NoError(t, err)
	assert.Equal(t, "EYT-2026-000007", order.OrderNumber)
	assert.Equal(t, int64(77), order.ID)
	m.AssertExpectations(t)
}

func TestOrderNumberGenerator_Exhausted(t *testing.T) {
	ctx := context.Background()
	m := &NumberOrderRepoMock{}
	m.On("CountByNumberPrefix", ctx, "EYT-2026-").Return(int64(0), nil).Once()
	m.On("FindByOrderNumber", ctx, mock.Anything).Return(false, nil).Twice()
	m.On("Create", ctx, mock.Anything).Return(repo.ErrDuplicate).Twice()

	order := &model.Order{UserID: 1}
	err := NewOrderNumberGenerator("EYT", 2).CreateNumbered(ctx, m, order, numberTestTime)
	assert.ErrorIs(t, err, ErrOrderNumberExhausted)
	assert.Empty(t, order.OrderNumber)
	m.AssertExpectations(t)
}

func TestOrderNumberGenerator_StopsAtSixDigits(t *testing.T) {
	ctx := context.Background()
	m := &NumberOrderRepoMock{}
	m.On("CountByNumberPrefix", ctx, "EYT-2026-").Return(int64(999998), nil).Once()
	m.On("FindByOrderNumber", ctx, "EYT-2026-999999").Return(true, nil).Once()

	order := &model.Order{}
	err := NewOrderNumberGenerator("EYT", 5).CreateNumbered(ctx, m, order, numberTestTime)
	assert.ErrorIs(t, err, ErrOrderNumberExhausted)
	assert.Empty(t, order.OrderNumber)
	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestOrderNumberGenerator_PassesThroughOtherErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("connection reset")
	m := &NumberOrderRepoMock{}
	m.On("CountByNumberPrefix", ctx, "EYT-2026-").Return(int64(0), nil).Once()
	m.On("FindByOrderNumber", ctx, "EYT-2026-000001").Return(false, nil).Once()
	m.On("Create", ctx, "EYT-2026-000001").Return(repo.ErrConflict).Once()

	order := &model.Order{UserID: 1}
	err := NewOrderNumberGenerator("EYT", 5).CreateNumbered(ctx, m, order, numberTestTime)
	assert.ErrorIs(t, err, repo.ErrConflict)
	assert.Empty(t, order.OrderNumber)

	m2 := &NumberOrderRepoMock{}
	m2.On("CountByNumberPrefix", ctx, "EYT-2026-").Return(int64(0), boom).Once()
	err = NewOrderNumberGenerator("EYT", 5).CreateNumbered(ctx, m2, &model.Order{}, numberTestTime)
	assert.ErrorIs(t, err, boom)
}
