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

// NoiseBuilder computes liquidity, volatility compression, candle body and
// MA convergence for the latest trading date. Each metric is independent.
// ⭐ SSOT: noise_signals 생성은 여기서만
type NoiseBuilder struct {
	bars   contracts.BarRepository
	mas    contracts.MovingAverageRepository
	store  contracts.NoiseRepository
	cfg    strategyconfig.Noise
	pool   workerpool.Config
	logger *logger.Logger
}

var _ contracts.SignalBuilder = (*NoiseBuilder)(nil)

// NewNoiseBuilder creates a new noise builder
func NewNoiseBuilder(
	bars contracts.BarRepository,
	mas contracts.MovingAverageRepository,
	store contracts.NoiseRepository,
	cfg strategyconfig.Noise,
	pool workerpool.Config,
	log *logger.Logger,
) *NoiseBuilder {
	if log == nil {
		log = logger.Nop()
	}
	return &NoiseBuilder{
		bars:   bars,
		mas:    mas,
		store:  store,
		cfg:    cfg,
		pool:   pool,
		logger: log.WithModule("noise"),
	}
}

func (b *NoiseBuilder) Name() string { return "noise" }

// Build upserts one row per symbol with at least one metric
func (b *NoiseBuilder) Build(ctx context.Context, req contracts.BuildRequest) (*contracts.BuildReport, error) {
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
			b.logger.WithError(err).WithField("date", formatDate(date)).Error("Noise metrics failed for date")
			report.Failed++
			continue
		}
		report.Merge(r)
	}
	report.Duration = time.Since(start)

	b.logger.WithFields(map[string]interface{}{
		"dates":   len(report.Dates),
		"written": report.Written,
		"skipped": report.Skipped,
		"failed":  report.Failed,
	}).Info("Noise metrics completed")

	return report, ctx.Err()
}

func (b *NoiseBuilder) buildDate(ctx context.Context, date time.Time) (*contracts.BuildReport, error) {
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

		ma, err := b.mas.GetByKey(ctx, contracts.NewKey(symbol, date))
		if err != nil && !errors.Is(err, contracts.ErrNotFound) {
			return fmt.Errorf("moving averages: %w", err)
		}

		sig := ComputeNoise(bars, ma, b.cfg)
		if !sig.HasAnyMetric() {
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

// ComputeNoise derives every available metric for the last bar of an
// ascending series. ma may be the zero row when no MA row exists.
func ComputeNoise(bars []contracts.DailyBar, ma contracts.MovingAverageRow, cfg strategyconfig.Noise) contracts.NoiseSignal {
	n := len(bars)
	if n == 0 {
		return contracts.NoiseSignal{}
	}
	last := bars[n-1]
	sig := contracts.NoiseSignal{
		Symbol: last.Symbol,
		Date:   contracts.TradingDay(last.Date),
	}

	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	for i, bar := range bars {
		highs[i], lows[i], closes[i] = bar.High, bar.Low, bar.Close
	}

	// 유동성
	if cfg.LiquidityBars > 0 && n >= cfg.LiquidityBars {
		window := bars[n-cfg.LiquidityBars:]
		dollars := make([]float64, len(window))
		volumes := make([]float64, len(window))
		for i, bar := range window {
			volumes[i] = float64(bar.Volume)
			dollars[i] = volumes[i] * bar.Close
		}
		sig.AvgDollarVolume20d = definedFloat(indicators.Mean(dollars))
		sig.AvgVolume20d = definedFloat(indicators.Mean(volumes))
	}

	// 변동성 수축 (VCP)
	if atr := indicators.ATR(highs, lows, closes, cfg.ATRPeriod); indicators.Defined(atr) {
		sig.ATR14 = null.FloatFrom(atr)
		if last.Close > 0 {
			sig.ATR14Percent = null.FloatFrom(atr / last.Close)
		}
	}

	widths := indicators.BollingerWidth(closes, cfg.BBPeriod, cfg.BBStdDevs)
	sig.BBWidthCurrent = definedFloat(widths[n-1])
	sig.BBWidthAvg60d = trailingWidthAverage(widths, cfg.BBAvgSkipBars, cfg.BBAvgLookbackBars)

	if sig.ATR14Percent.Valid && sig.BBWidthCurrent.Valid && sig.BBWidthAvg60d.Valid {
		sig.IsVCP = null.BoolFrom(IsVCP(sig.ATR14Percent.Float64, sig.BBWidthCurrent.Float64, sig.BBWidthAvg60d.Float64, cfg))
	}

	// 캔들 몸통 비율
	if rng := last.High - last.Low; rng > 0 {
		sig.BodyRatio = null.FloatFrom(math.Abs(last.Close-last.Open) / rng)
	}

	// 이평 수렴
	if ma.MA20.Valid && ma.MA50.Valid && ma.MA50.Float64 != 0 {
		sig.MA20MA50DistancePercent = null.FloatFrom((ma.MA20.Float64 - ma.MA50.Float64) / ma.MA50.Float64 * 100)
	}

	return sig
}

// trailingWidthAverage averages widths from skip to lookback bars back,
// null unless every width in that range is defined
func trailingWidthAverage(widths []float64, skip, lookback int) null.Float {
	n := len(widths)
	if skip < 0 || lookback < skip || n-1-lookback < 0 {
		return null.Float{}
	}
	vals := make([]float64, 0, lookback-skip+1)
	for k := skip; k <= lookback; k++ {
		w := widths[n-1-k]
		if !indicators.Defined(w) {
			return null.Float{}
		}
		vals = append(vals, w)
	}
	return definedFloat(indicators.Mean(vals))
}

// IsVCP: ATR% under the cap and current width below the ratio of its trailing average
func IsVCP(atrPct, widthCurrent, widthAvg float64, cfg strategyconfig.Noise) bool {
	return atrPct < cfg.VCPMaxATRPct && widthCurrent < cfg.VCPWidthRatio*widthAvg
}
