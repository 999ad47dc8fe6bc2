package s2_signals

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/indicators"
	"github.com/wonny/trendscan/internal/s0_data/quality"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/workerpool"
)

// MovingAverageBuilder computes SMA20/50/100/200 of close and SMA30 of volume
// ⭐ SSOT: daily_ma 생성은 여기서만
type MovingAverageBuilder struct {
	bars   contracts.BarRepository
	store  contracts.MovingAverageRepository
	cfg    strategyconfig.MovingAverage
	pool   workerpool.Config
	logger *logger.Logger
}

var _ contracts.SignalBuilder = (*MovingAverageBuilder)(nil)

// NewMovingAverageBuilder creates a new moving-average builder
func NewMovingAverageBuilder(
	bars contracts.BarRepository,
	store contracts.MovingAverageRepository,
	cfg strategyconfig.MovingAverage,
	pool workerpool.Config,
	log *logger.Logger,
) *MovingAverageBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &MovingAverageBuilder{
		bars:   bars,
		store:  store,
		cfg:    cfg,
		pool:   pool,
		logger: log.WithModule("moving_average"),
	}
}

func (b *MovingAverageBuilder) Name() string { return "moving_average" }

// Build processes dates sequentially; every date is recomputed from raw bars
func (b *MovingAverageBuilder) Build(ctx context.Context, req contracts.BuildRequest) (*contracts.BuildReport, error) {
	start := time.Now()
	dates, err := resolveDates(ctx, b.bars, req)
	if err != nil {
		return nil, err
	}

	report := &contracts.BuildReport{Builder: b.Name()}
	for _, date := range dates {
		if ctx.Err() != nil {
			break
		}
		r, err := b.buildDate(ctx, date)
		if err != nil {
			b.logger.WithError(err).WithField("date", formatDate(date)).Error("Moving averages failed for date")
			report.Failed++
			continue
		}
		report.Merge(r)
	}
	report.Duration = time.Since(start)

	b.logger.WithFields(map[string]interface{}{
		"dates":    len(report.Dates),
		"written":  report.Written,
		"skipped":  report.Skipped,
		"failed":   report.Failed,
		"warnings": report.Warnings,
	}).Info("Moving averages completed")

	return report, ctx.Err()
}

func (b *MovingAverageBuilder) buildDate(ctx context.Context, date time.Time) (*contracts.BuildReport, error) {
	symbols, err := b.bars.ActiveSymbols(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("active symbols: %w", err)
	}

	var written, skipped, warnings int64
	summary := workerpool.Run(ctx, symbols, b.pool, symbolKey, func(ctx context.Context, symbol string) error {
		bars, err := b.bars.TrailingBars(ctx, symbol, date, b.cfg.WindowBars)
		if err != nil {
			return fmt.Errorf("trailing bars: %w", err)
		}

		row, ok := ComputeMovingAverages(symbol, date, bars, b.cfg.MinBars)
		if !ok {
			atomic.AddInt64(&skipped, 1)
			return nil
		}

		for _, w := range quality.CheckMovingAverages(row) {
			b.logger.WithSymbol(symbol).WithField("code", w.Code).Warn(w.Message)
			atomic.AddInt64(&warnings, 1)
		}

		if err := b.store.UpsertByKey(ctx, contracts.NewKey(symbol, date), row); err != nil {
			return fmt.Errorf("upsert: %w", err)
		}
		atomic.AddInt64(&written, 1)
		return nil
	}, b.logger)

	return &contracts.BuildReport{
		Dates:     []time.Time{date},
		Processed: summary.Total,
		Written:   int(written),
		Skipped:   int(skipped),
		Failed:    summary.Failed,
		Warnings:  int(warnings),
	}, nil
}

// ComputeMovingAverages derives the MA row for date from ascending bars.
// No row when fewer than minBars bars exist or no bar falls on date.
func ComputeMovingAverages(symbol string, date time.Time, bars []contracts.DailyBar, minBars int) (contracts.MovingAverageRow, bool) {
	date = contracts.TradingDay(date)
	if len(bars) < minBars || !endsOn(bars, date) {
		return contracts.MovingAverageRow{}, false
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
		volumes[i] = float64(bar.Volume)
	}

	return contracts.MovingAverageRow{
		Symbol:  symbol,
		Date:    date,
		MA20:    lastValue(indicators.SMA(closes, 20)),
		MA50:    lastValue(indicators.SMA(closes, 50)),
		MA100:   lastValue(indicators.SMA(closes, 100)),
		MA200:   lastValue(indicators.SMA(closes, 200)),
		VolMA30: lastValue(indicators.SMA(volumes, 30)),
	}, true
}

func lastValue(series []float64) null.Float {
	if len(series) == 0 {
		return null.Float{}
	}
	return definedFloat(series[len(series)-1])
}

func definedFloat(v float64) null.Float {
	if !indicators.Defined(v) {
		return null.Float{}
	}
	return null.FloatFrom(v)
}
