package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/investtrack-backend/internal/usecase/pricing"
)

// MockPriceRefresher is a mock implementation of PriceRefresher
type MockPriceRefresher struct {
	mock.Mock
}

func (m *MockPriceRefresher) RefreshAll(ctx context.Context) (pricing.RefreshReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(pricing.RefreshReport), args.Error(1)
}

// MockSweeper is a mock implementation of Sweeper
type MockSweeper struct {
	mock.Mock
}

func (m *MockSweeper) Sweep() int {
	return m.Called().Int(0)
}

func TestPriceRefreshJob_Run(t *testing.T) {
	refresher := new(MockPriceRefresher)
	refresher.On("RefreshAll", mock.MatchedBy(func(ctx context.Context) bool {
		_, hasDeadline := ctx.Deadline()
		return hasDeadline
	})).Return(pricing.RefreshReport{Assets: 3, Updated: 2, Failed: 1}, nil)

	job := NewPriceRefreshJob(refresher, time.Minute, zerolog.Nop())

	assert.Equal(t, "price_refresh", job.Name())
	assert.NoError(t, job.Run())
	refresher.AssertExpectations(t)
}

func TestPriceRefreshJob_RunError(t *testing.T) {
	refresher := new(MockPriceRefresher)
	refresher.On("RefreshAll", mock.Anything).Return(pricing.RefreshReport{}, errors.New("db down"))

	job := NewPriceRefreshJob(refresher, 0, zerolog.Nop())

	err := job.Run()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to refresh prices")
	refresher.AssertExpectations(t)
}

func TestCacheSweepJob_Run(t *testing.T) {
	sweeper := new(MockSweeper)
	sweeper.On("Sweep").Return(4)

	job := NewCacheSweepJob(sweeper, zerolog.Nop())

	assert.Equal(t, "cache_sweep", job.Name())
	assert.NoError(t, job.Run())
	sweeper.AssertExpectations(t)
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.Nop())
	sweeper := new(MockSweeper)

	require.NoError(t, s.AddJob("@every 5m", NewCacheSweepJob(sweeper, zerolog.Nop())))
	require.NoError(t, s.AddJob("*/5 * * * *", NewCacheSweepJob(sweeper, zerolog.Nop())))
	assert.Error(t, s.AddJob("not a schedule", NewCacheSweepJob(sweeper, zerolog.Nop())))
	assert.Equal(t, 2, s.Len())

	s.Start()
	s.Stop()
	sweeper.AssertNotCalled(t, "Sweep")
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.Nop())
	sweeper := new(MockSweeper)
	sweeper.On("Sweep").Return(0)

	assert.NoError(t, s.RunNow(NewCacheSweepJob(sweeper, zerolog.Nop())))
	sweeper.AssertNumberOfCalls(t, "Sweep", 1)
}
