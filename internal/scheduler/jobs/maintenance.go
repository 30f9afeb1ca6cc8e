package jobs

import (
	"context"

	"github.com/wonhee/bracket/internal/feed"
	"github.com/wonhee/bracket/pkg/logger"
)

// CandleCleanupJob evicts stale candles so market-entry validation never
// runs against a price from a dead feed.
type CandleCleanupJob struct {
	cache    *feed.Cache
	schedule string
	logger   *logger.Logger
}

// NewCandleCleanupJob creates a candle cache cleanup job.
func NewCandleCleanupJob(cache *feed.Cache, schedule string, log *logger.Logger) *CandleCleanupJob {
	return &CandleCleanupJob{
		cache:    cache,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *CandleCleanupJob) Name() string {
	return "candle_cleanup"
}

// Schedule returns the cron schedule expression
func (j *CandleCleanupJob) Schedule() string {
	return j.schedule
}

// Run evicts candles older than the cache TTL
func (j *CandleCleanupJob) Run(ctx context.Context) error {
	removed := j.cache.CleanStale()
	if removed > 0 {
		j.logger.WithField("removed", removed).Debug("Evicted stale candles")
	}
	return nil
}
