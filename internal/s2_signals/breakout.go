package s2_signals

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/indicators"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/workerpool"
)

// BreakoutBuilder flags confirmed breakouts and perfect retests.
// It evaluates the trading date before the latest one, since the latest
// session may still be accumulating.
// ⭐ SSOT: breakout_signals 생성은 여기서만
type BreakoutBuilder struct {
	bars   contracts.BarRepository
	mas    contracts.MovingAverageRepository
	store  contracts.BreakoutRepository
	cfg    strategyconfig.Breakout
	pool   workerpool.Config
	logger *logger.Logger
}

var _ contracts.SignalBuilder = (*BreakoutBuilder)(nil)

// NewBreakoutBuilder creates a new breakout/retest builder
func NewBreakoutBuilder(
	bars contracts.BarRepository,
	mas contracts.MovingAverageRepository,
	store contracts.BreakoutRepository,
	cfg strategyconfig.Breakout,
	pool workerpool.Config,
	log *logger.Logger,
) *BreakoutBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &BreakoutBuilder{
		bars:   bars,
		mas:    mas,
		store:  store,
		cfg:    cfg,
		pool:   pool,
		logger: log.WithModule("breakout"),
	}
}

func (b *BreakoutBuilder) Name() string { return "breakout" }

// EvaluationDates maps the run's dates to the trading date before each
func (b *BreakoutBuilder) EvaluationDates(ctx context.Context, req contracts.BuildRequest) ([]time.Time, error) {
	dates, err := resolveDates(ctx, b.bars, req)
	if err != nil {
		return nil, err
	}

	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		prev, err := b.bars.PreviousTradingDate(ctx, d)
		if errors.Is(err, contracts.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("previous trading date: %w", err)
		}
		out = append(out, prev)
	}
	return out, nil
}

// Build emits rows only for symbols with at least one flag; other rows are left untouched
func (b *BreakoutBuilder) Build(ctx context.Context, req contracts.BuildRequest) (*contracts.BuildReport, error) {
	start := time.Now()
	dates, err := b.EvaluationDates(ctx, req)
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
			b.logger.WithError(err).WithField("date", formatDate(date)).Error("Breakout scan failed for date")
			report.Failed++
			continue
		}
		report.Merge(r)
	}
	report.Duration = time.Since(start)

	b.logger.WithFields(map[string]interface{}{
		"dates":   len(report.Dates),
		"signals": report.Written,
		"failed":  report.Failed,
	}).Info("Breakout scan completed")

	return report, ctx.Err()
}

func (b *BreakoutBuilder) buildDate(ctx context.Context, date time.Time) (*contracts.BuildReport, error) {
	symbols, err := b.bars.ActiveSymbols(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("active symbols: %w", err)
	}

	var written, skipped int64
	summary := workerpool.Run(ctx, symbols, b.pool, symbolKey, func(ctx context.Context, symbol string) error {
		bars, err := b.bars.TrailingBars(ctx, symbol, date, b.cfg.BarsNeeded())
		if err != nil {
			return fmt.Errorf("trailing bars: %w", err)
		}
		if !endsOn(bars, date) {
			atomic.AddInt64(&skipped, 1)
			return nil
		}

		ma20 := null.Float{}
		row, err := b.mas.GetByKey(ctx, contracts.NewKey(symbol, date))
		switch {
		case err == nil:
			ma20 = row.MA20
		case !errors.Is(err, contracts.ErrNotFound):
			return fmt.Errorf("moving averages: %w", err)
		}

		sig := EvaluateBreakout(bars, ma20, b.cfg)
		if !sig.HasSignal() {
			atomic.AddInt64(&skipped, 1)
			return nil
		}
		if err := b.store.UpsertByKey(ctx, contracts.NewKey(symbol, date), sig); err != nil {
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
	}, nil
}

// EvaluateBreakout runs both detectors on the last bar of an ascending series
func EvaluateBreakout(bars []contracts.DailyBar, ma20 null.Float, cfg strategyconfig.Breakout) contracts.BreakoutSignal {
	if len(bars) == 0 {
		return contracts.BreakoutSignal{}
	}
	last := bars[len(bars)-1]
	sig := contracts.BreakoutSignal{
		Symbol: last.Symbol,
		Date:   contracts.TradingDay(last.Date),
	}

	br := DetectBreakout(last, bars[:len(bars)-1], cfg)
	if br.Computed {
		sig.IsConfirmedBreakout = br.Confirmed
		sig.BreakoutPercent = null.FloatFrom(br.BreakoutPercent)
		sig.VolumeRatio = null.FloatFrom(br.VolumeRatio)
	}

	rt := DetectRetest(bars, ma20, cfg)
	sig.IsPerfectRetest = rt.Perfect
	sig.MA20DistancePercent = rt.MA20DistancePercent

	return sig
}

// BreakoutResult is the confirmed-breakout detector output
type BreakoutResult struct {
	Computed        bool // inputs were clean and complete
	Confirmed       bool
	High20d         float64
	AvgVolume20d    float64
	BreakoutPercent float64 // close/high20d - 1
	VolumeRatio     float64 // volume/avgVolume20d
}

// DetectBreakout compares bar with the LookbackBars bars immediately before it
func DetectBreakout(bar contracts.DailyBar, prior []contracts.DailyBar, cfg strategyconfig.Breakout) BreakoutResult {
	if cfg.LookbackBars < 1 || len(prior) < cfg.LookbackBars || !bar.Clean() {
		return BreakoutResult{}
	}

	window := prior[len(prior)-cfg.LookbackBars:]
	highs := make([]float64, len(window))
	volumes := make([]float64, len(window))
	for i, w := range window {
		if !w.Clean() {
			return BreakoutResult{}
		}
		highs[i] = w.High
		volumes[i] = float64(w.Volume)
	}

	high20 := indicators.Highest(highs)
	avgVol := indicators.Mean(volumes)
	if high20 <= 0 || avgVol <= 0 {
		return BreakoutResult{}
	}

	res := BreakoutResult{
		Computed:        true,
		High20d:         high20,
		AvgVolume20d:    avgVol,
		BreakoutPercent: bar.Close/high20 - 1,
		VolumeRatio:     float64(bar.Volume) / avgVol,
	}

	rng := bar.High - bar.Low
	res.Confirmed = rng > 0 &&
		bar.Close >= high20 &&
		float64(bar.Volume) >= cfg.VolumeMultiple*avgVol &&
		(bar.High-bar.Close) < cfg.UpperWickMaxPct*rng

	return res
}

// RetestResult is the perfect-retest detector output
type RetestResult struct {
	Perfect             bool
	PastBreakoutDaysAgo int // 0 when none found
	MA20DistancePercent null.Float
}

// DetectRetest looks for a close at a new LookbackBars high between
// RetestMinDaysAgo and RetestMaxDaysAgo bars before the last bar, then checks
// the last bar sits in the MA20 band and is not a weak down candle.
func DetectRetest(bars []contracts.DailyBar, ma20 null.Float, cfg strategyconfig.Breakout) RetestResult {
	var res RetestResult
	n := len(bars)
	if n == 0 {
		return res
	}
	last := bars[n-1]
	if !last.Clean() || !ma20.Valid || ma20.Float64 <= 0 {
		return res
	}

	dist := (last.Close/ma20.Float64 - 1) * 100
	res.MA20DistancePercent = null.FloatFrom(dist)
	inBand := dist >= cfg.MA20BandLowPct && dist <= cfg.MA20BandHighPct

	for k := cfg.RetestMinDaysAgo; k <= cfg.RetestMaxDaysAgo; k++ {
		idx := n - 1 - k
		if idx-cfg.LookbackBars < 0 {
			break
		}
		if newHighClose(bars[idx], bars[idx-cfg.LookbackBars:idx]) {
			res.PastBreakoutDaysAgo = k
			break
		}
	}

	res.Perfect = res.PastBreakoutDaysAgo > 0 && inBand && strongCandle(last, cfg.LowerWickBodyRatio)
	return res
}

// newHighClose reports bar closed at or above the highest high of prior
func newHighClose(bar contracts.DailyBar, prior []contracts.DailyBar) bool {
	if !bar.Clean() || len(prior) == 0 {
		return false
	}
	highs := make([]float64, len(prior))
	for i, p := range prior {
		if !p.Clean() {
			return false
		}
		highs[i] = p.High
	}
	return bar.Close >= indicators.Highest(highs)
}

// strongCandle: an up day, or a down day whose lower wick is at least
// ratio times its body
func strongCandle(bar contracts.DailyBar, ratio float64) bool {
	if bar.Close >= bar.Open {
		return true
	}
	body := bar.Open - bar.Close
	lowerWick := math.Min(bar.Open, bar.Close) - bar.Low
	return lowerWick >= ratio*body
}
