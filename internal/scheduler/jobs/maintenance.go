package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/redis"
)

// CacheFlushJob drops cached screener results so the next request reads
// freshly built signals
type CacheFlushJob struct {
	cache  *redis.Cache
	logger *logger.Logger
}

// NewCacheFlushJob creates a new cache flush job
func NewCacheFlushJob(cache *redis.Cache, log *logger.Logger) *CacheFlushJob {
	if log == nil {
		log = logger.Nop()
	}
	return &CacheFlushJob{
		cache:  cache,
		logger: log,
	}
}

// Name returns the job name
func (j *CacheFlushJob) Name() string {
	return "screener_cache_flush"
}

// Schedule returns the cron schedule (weekdays 19:30, after the signal pipeline)
func (j *CacheFlushJob) Schedule() string {
	return "0 30 19 * * MON-FRI"
}

// Run executes the cache flush
func (j *CacheFlushJob) Run(ctx context.Context) error {
	return flushScreenerCache(ctx, j.cache, j.logger)
}

func flushScreenerCache(ctx context.Context, cache *redis.Cache, log *logger.Logger) error {
	if cache == nil {
		return nil
	}
	removed, err := cache.DeletePrefix(ctx, redis.ScreenerPrefix)
	if err != nil {
		return fmt.Errorf("flush screener cache: %w", err)
	}
	if removed > 0 {
		log.WithField("removed", removed).Info("Screener cache flushed")
	}
	return nil
}
