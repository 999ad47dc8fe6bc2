package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/logger"
)

// UniverseRefresher rebuilds the tradable universe from the provider listing
type UniverseRefresher interface {
	Refresh(ctx context.Context) (*contracts.Universe, error)
}

// UniverseJob refreshes the universe weekly
// ⭐ SSOT: Universe 갱신 스케줄은 이 Job에서만
type UniverseJob struct {
	builder UniverseRefresher
	logger  *logger.Logger
}

// NewUniverseJob creates a new universe job
func NewUniverseJob(builder UniverseRefresher, log *logger.Logger) *UniverseJob {
	if log == nil {
		log = logger.Nop()
	}
	return &UniverseJob{
		builder: builder,
		logger:  log,
	}
}

// Name returns the job name
func (j *UniverseJob) Name() string {
	return "universe_refresh"
}

// Schedule returns the cron schedule (Saturday 06:00, market closed)
func (j *UniverseJob) Schedule() string {
	return "0 0 6 * * SAT"
}

// Run executes the universe refresh
func (j *UniverseJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled universe refresh")

	universe, err := j.builder.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh universe: %w", err)
	}
	if universe.Count() == 0 {
		return fmt.Errorf("refresh universe: no tradable symbols")
	}

	j.logger.WithFields(map[string]interface{}{
		"total_count":    universe.TotalCount,
		"included_count": universe.Count(),
		"excluded_count": len(universe.Excluded),
	}).Info("Universe refreshed successfully")

	return nil
}
