package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/simaogato/investtrack-backend/internal/usecase/pricing"
)

// PriceRefresher fetches and records fresh quotes for every held asset
type PriceRefresher interface {
	RefreshAll(ctx context.Context) (pricing.RefreshReport, error)
}

// PriceRefreshJob refreshes the prices of all held assets
type PriceRefreshJob struct {
	Prices  PriceRefresher
	Timeout time.Duration

	log zerolog.Logger
}

// NewPriceRefreshJob creates a new price refresh job.
// A non-positive timeout leaves the batch unbounded.
func NewPriceRefreshJob(prices PriceRefresher, timeout time.Duration, log zerolog.Logger) *PriceRefreshJob {
	return &PriceRefreshJob{
		Prices:  prices,
		Timeout: timeout,
		log:     log.With().Str("job", "price_refresh").Logger(),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Run refreshes every held asset once.
// Per-asset failures are part of the report; only a batch-level failure is an error.
func (j *PriceRefreshJob) Run() error {
	ctx := context.Background()
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := j.Prices.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh prices: %w", err)
	}

	j.log.Info().
		Int("assets", report.Assets).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Dur("duration", time.Since(start)).
		Msg("price refresh completed")

	return nil
}

// Sweeper drops expired cache entries
type Sweeper interface {
	Sweep() int
}

// CacheSweepJob removes expired entries from the view cache
type CacheSweepJob struct {
	Cache Sweeper

	log zerolog.Logger
}

// NewCacheSweepJob creates a new cache sweep job
func NewCacheSweepJob(cache Sweeper, log zerolog.Logger) *CacheSweepJob {
	return &CacheSweepJob{
		Cache: cache,
		log:   log.With().Str("job", "cache_sweep").Logger(),
	}
}

// Name returns the job name
func (j *CacheSweepJob) Name() string {
	return "cache_sweep"
}

// Run sweeps the cache
func (j *CacheSweepJob) Run() error {
	if removed := j.Cache.Sweep(); removed > 0 {
		j.log.Debug().Int("removed", removed).Msg("expired cache entries removed")
	}
	return nil
}
