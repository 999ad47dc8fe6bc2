package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s0_data/collector"
	"github.com/wonny/trendscan/pkg/logger"
)

// PriceCollector fetches daily bars
type PriceCollector interface {
	FetchPrices(ctx context.Context, symbols []string, days int) (*collector.Result, error)
	FetchAllPrices(ctx context.Context, days int) (*collector.Result, error)
}

// FundamentalsCollector fetches quarterly statements and ratios
type FundamentalsCollector interface {
	FetchAllFundamentals(ctx context.Context, quarters int) (*collector.Result, error)
}

// UniverseSource returns the latest universe snapshot
type UniverseSource interface {
	LatestUniverse(ctx context.Context) (*contracts.Universe, error)
}

// PriceCollectionJob collects daily bars after the US close
// ⭐ SSOT: 가격 수집 스케줄은 이 Job에서만
type PriceCollectionJob struct {
	collector PriceCollector
	universe  UniverseSource
	days      int
	logger    *logger.Logger
}

// NewPriceCollectionJob creates a new price collection job.
// universe may be nil; the symbols table is used then.
func NewPriceCollectionJob(c PriceCollector, universe UniverseSource, days int, log *logger.Logger) *PriceCollectionJob {
	if log == nil {
		log = logger.Nop()
	}
	return &PriceCollectionJob{
		collector: c,
		universe:  universe,
		days:      days,
		logger:    log,
	}
}

// Name returns the job name
func (j *PriceCollectionJob) Name() string {
	return "price_collection"
}

// Schedule returns the cron schedule (weekdays 17:30 exchange time)
func (j *PriceCollectionJob) Schedule() string {
	return "0 30 17 * * MON-FRI"
}

// Run executes the price collection
func (j *PriceCollectionJob) Run(ctx context.Context) error {
	j.logger.WithField("days", j.days).Info("Starting scheduled price collection")

	symbols, err := j.symbols(ctx)
	if err != nil {
		return err
	}

	var result *collector.Result
	if symbols != nil {
		result, err = j.collector.FetchPrices(ctx, symbols, j.days)
	} else {
		result, err = j.collector.FetchAllPrices(ctx, j.days)
	}
	if err != nil {
		return fmt.Errorf("collect prices: %w", err)
	}
	return checkResult("prices", result)
}

// symbols returns the latest snapshot's symbols, or nil to collect everything tradable
func (j *PriceCollectionJob) symbols(ctx context.Context) ([]string, error) {
	if j.universe == nil {
		return nil, nil
	}
	u, err := j.universe.LatestUniverse(ctx)
	if errors.Is(err, contracts.ErrNotFound) {
		j.logger.Warn("No universe snapshot yet, collecting all tradable symbols")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load universe: %w", err)
	}
	return u.Symbols, nil
}

// FundamentalsJob collects statements and valuation ratios daily
type FundamentalsJob struct {
	collector FundamentalsCollector
	quarters  int
	logger    *logger.Logger
}

// NewFundamentalsJob creates a new fundamentals collection job
func NewFundamentalsJob(c FundamentalsCollector, quarters int, log *logger.Logger) *FundamentalsJob {
	if log == nil {
		log = logger.Nop()
	}
	return &FundamentalsJob{
		collector: c,
		quarters:  quarters,
		logger:    log,
	}
}

// Name returns the job name
func (j *FundamentalsJob) Name() string {
	return "fundamentals_collection"
}

// Schedule returns the cron schedule (daily 20:00)
func (j *FundamentalsJob) Schedule() string {
	return "0 0 20 * * *"
}

// Run executes the fundamentals collection
func (j *FundamentalsJob) Run(ctx context.Context) error {
	j.logger.WithField("quarters", j.quarters).Info("Starting scheduled fundamentals collection")

	result, err := j.collector.FetchAllFundamentals(ctx, j.quarters)
	if err != nil {
		return fmt.Errorf("collect fundamentals: %w", err)
	}
	return checkResult("fundamentals", result)
}

// checkResult fails the run only when every symbol failed.
// Partial failures are logged by the collector and retried next run.
func checkResult(kind string, r *collector.Result) error {
	if r == nil {
		return nil
	}
	if r.Symbols > 0 && r.Succeeded == 0 {
		return fmt.Errorf("collect %s: all %d symbols failed", kind, r.Symbols)
	}
	return nil
}
