package s2_signals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/workerpool"
)

// Deps are the stores the signal builders read and write
type Deps struct {
	Bars           contracts.BarRepository
	Ranks          contracts.RelativeStrengthRepository
	MovingAverages contracts.MovingAverageRepository
	Breakouts      contracts.BreakoutRepository
	Noise          contracts.NoiseRepository
}

// Builders holds one instance of every S2 builder
type Builders struct {
	MovingAverage    *MovingAverageBuilder
	RelativeStrength *RelativeStrengthRanker
	Breakout         *BreakoutBuilder
	Noise            *NoiseBuilder
}

// NewBuilders wires every builder from the shared thresholds
func NewBuilders(deps Deps, cfg *strategyconfig.Config, pool workerpool.Config, log *logger.Logger) *Builders {
	return &Builders{
		MovingAverage:    NewMovingAverageBuilder(deps.Bars, deps.MovingAverages, cfg.MovingAverage, pool, log),
		RelativeStrength: NewRelativeStrengthRanker(deps.Bars, deps.Ranks, cfg.RelativeStrength, log),
		Breakout:         NewBreakoutBuilder(deps.Bars, deps.MovingAverages, deps.Breakouts, cfg.Breakout, pool, log),
		Noise:            NewNoiseBuilder(deps.Bars, deps.MovingAverages, deps.Noise, cfg.Noise, pool, log),
	}
}

// All returns the builders in pipeline order: MA first, since the breakout
// and noise builders read daily_ma
func (b *Builders) All() []contracts.SignalBuilder {
	return []contracts.SignalBuilder{b.MovingAverage, b.RelativeStrength, b.Breakout, b.Noise}
}

// ByName looks a builder up by its Name()
func (b *Builders) ByName(name string) (contracts.SignalBuilder, bool) {
	for _, sb := range b.All() {
		if sb.Name() == name {
			return sb, true
		}
	}
	return nil, false
}

// Pipeline runs signal builders one after another
// ⭐ SSOT: 시그널 생성 오케스트레이션은 여기서만
type Pipeline struct {
	builders []contracts.SignalBuilder
	logger   *logger.Logger
}

// NewPipeline creates a pipeline over builders, run in the given order
func NewPipeline(log *logger.Logger, builders ...contracts.SignalBuilder) *Pipeline {
	if log == nil {
		log = logger.Nop()
	}
	return &Pipeline{
		builders: builders,
		logger:   log.WithModule("pipeline"),
	}
}

// Run executes every builder sequentially. A failing builder does not stop
// the ones after it; its error is returned joined with the others.
func (p *Pipeline) Run(ctx context.Context, req contracts.BuildRequest) ([]*contracts.BuildReport, error) {
	start := time.Now()
	reports := make([]*contracts.BuildReport, 0, len(p.builders))
	var errs []error

	for _, b := range p.builders {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		report, err := b.Build(ctx, req)
		if err != nil {
			p.logger.WithError(err).WithField("builder", b.Name()).Error("Builder failed")
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
		if report != nil {
			reports = append(reports, report)
		}
	}

	p.logger.WithFields(map[string]interface{}{
		"builders": len(p.builders),
		"failed":   len(errs),
		"duration": time.Since(start).String(),
		"mode":     string(req.Mode),
	}).Info("Signal pipeline completed")

	return reports, errors.Join(errs...)
}
