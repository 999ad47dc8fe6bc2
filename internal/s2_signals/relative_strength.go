package s2_signals

import (
	"context"
	"math"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/logger"
)

// RelativeStrengthRanker writes the composite RS score onto daily_prices.rs_score.
// Dates run sequentially; a failed date is logged and skipped.
type RelativeStrengthRanker struct {
	bars   contracts.BarRepository
	store  contracts.RelativeStrengthRepository
	cfg    strategyconfig.RelativeStrength
	logger *logger.Logger
}

var _ contracts.SignalBuilder = (*RelativeStrengthRanker)(nil)

// NewRelativeStrengthRanker creates a new RS ranker
func NewRelativeStrengthRanker(
	bars contracts.BarRepository,
	store contracts.RelativeStrengthRepository,
	cfg strategyconfig.RelativeStrength,
	log *logger.Logger,
) *RelativeStrengthRanker {
	if log == nil {
		log = logger.Nop()
	}
	return &RelativeStrengthRanker{
		bars:   bars,
		store:  store,
		cfg:    cfg,
		logger: log.WithModule("relative_strength"),
	}
}

func (r *RelativeStrengthRanker) Name() string { return "relative_strength" }

// Build ranks every requested date
func (r *RelativeStrengthRanker) Build(ctx context.Context, req contracts.BuildRequest) (*contracts.BuildReport, error) {
	start := time.Now()
	dates, err := resolveDates(ctx, r.bars, req)
	if err != nil {
		return nil, err
	}

	report := &contracts.BuildReport{Builder: r.Name()}
	for _, date := range dates {
		if ctx.Err() != nil {
			break
		}
		log := r.logger.WithField("date", formatDate(date))

		ranks, err := r.store.RankReturns(ctx, date, r.cfg.LookbackDays)
		if err != nil {
			log.WithError(err).Error("Ranking failed, date skipped")
			report.Failed++
			continue
		}

		scores := CompositeScores(ranks, r.cfg.Weights)
		n, err := r.store.UpdateScores(ctx, date, scores)
		if err != nil {
			log.WithError(err).Error("Score update failed, date skipped")
			report.Failed++
			continue
		}

		nulls := 0
		for _, s := range scores {
			if !s.Score.Valid {
				nulls++
			}
		}

		report.Dates = append(report.Dates, date)
		report.Processed += len(scores)
		report.Written += n
		report.Skipped += nulls

		log.WithFields(map[string]interface{}{
			"symbols": len(scores),
			"updated": n,
			"null":    nulls,
		}).Debug("RS scores updated")
	}
	report.Duration = time.Since(start)

	r.logger.WithFields(map[string]interface{}{
		"dates":   len(report.Dates),
		"written": report.Written,
		"failed":  report.Failed,
	}).Info("Relative strength completed")

	return report, ctx.Err()
}

// CompositeScores blends each symbol's horizon ranks
func CompositeScores(ranks []contracts.HorizonRanks, w strategyconfig.RSWeights) []contracts.RSScore {
	out := make([]contracts.RSScore, len(ranks))
	for i, rk := range ranks {
		out[i] = contracts.RSScore{Symbol: rk.Symbol, Score: Composite(rk, w)}
	}
	return out
}

// Composite is round(100 * weighted rank sum), null when any horizon is missing.
// A partial score is never produced.
func Composite(r contracts.HorizonRanks, w strategyconfig.RSWeights) null.Int {
	if !r.PR12.Valid || !r.PR6.Valid || !r.PR3.Valid {
		return null.Int{}
	}
	v := math.Round(100 * (r.PR12.Float64*w.Long + r.PR6.Float64*w.Mid + r.PR3.Float64*w.Short))
	if math.IsNaN(v) {
		return null.Int{}
	}
	v = math.Max(0, math.Min(100, v))
	return null.IntFrom(int64(v))
}
