package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/redis"
)

// SignalRunner runs the signal builders
type SignalRunner interface {
	Run(ctx context.Context, req contracts.BuildRequest) ([]*contracts.BuildReport, error)
}

// SignalPipelineJob rebuilds the derived signal tables after price collection
// ⭐ SSOT: 시그널 생성 스케줄은 이 Job에서만
type SignalPipelineJob struct {
	pipeline SignalRunner
	cache    *redis.Cache
	logger   *logger.Logger
}

// NewSignalPipelineJob creates a new signal pipeline job. cache may be nil.
func NewSignalPipelineJob(pipeline SignalRunner, cache *redis.Cache, log *logger.Logger) *SignalPipelineJob {
	if log == nil {
		log = logger.Nop()
	}
	return &SignalPipelineJob{
		pipeline: pipeline,
		cache:    cache,
		logger:   log,
	}
}

// Name returns the job name
func (j *SignalPipelineJob) Name() string {
	return "signal_pipeline"
}

// Schedule returns the cron schedule (weekdays 19:00, after price collection)
func (j *SignalPipelineJob) Schedule() string {
	return "0 0 19 * * MON-FRI"
}

// Run executes every builder in incremental mode
func (j *SignalPipelineJob) Run(ctx context.Context) error {
	j.logger.Info("Starting scheduled signal pipeline")

	reports, err := j.pipeline.Run(ctx, contracts.BuildRequest{Mode: contracts.ModeIncremental})
	for _, r := range reports {
		j.logger.WithFields(map[string]interface{}{
			"builder": r.Builder,
			"written": r.Written,
			"skipped": r.Skipped,
			"failed":  r.Failed,
		}).Info("Builder report")
	}
	if err != nil {
		return fmt.Errorf("signal pipeline: %w", err)
	}

	// 새 시그널 반영
	if err := flushScreenerCache(ctx, j.cache, j.logger); err != nil {
		j.logger.WithError(err).Warn("Screener cache flush failed")
	}
	return nil
}
