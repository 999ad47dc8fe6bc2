package s0_data

import (
	"context"
	"fmt"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database"
)

// MovingAverageRepository implements contracts.MovingAverageRepository over daily_ma
type MovingAverageRepository struct {
	db *database.DB
}

// NewMovingAverageRepository creates a new moving-average repository
func NewMovingAverageRepository(db *database.DB) *MovingAverageRepository {
	return &MovingAverageRepository{db: db}
}

// UpsertByKey writes the row for key, overwriting every column on conflict
func (r *MovingAverageRepository) UpsertByKey(ctx context.Context, key contracts.Key, row contracts.MovingAverageRow) error {
	query := `
		INSERT INTO daily_ma (symbol, date, ma_20, ma_50, ma_100, ma_200, vol_ma_30)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, date) DO UPDATE SET
			ma_20 = EXCLUDED.ma_20,
			ma_50 = EXCLUDED.ma_50,
			ma_100 = EXCLUDED.ma_100,
			ma_200 = EXCLUDED.ma_200,
			vol_ma_30 = EXCLUDED.vol_ma_30
	`

	err := r.db.Retry(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, query,
			key.Symbol, key.Date, row.MA20, row.MA50, row.MA100, row.MA200, row.VolMA30)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert daily_ma %s: %w", key, err)
	}
	return nil
}

// GetByKey returns the stored row or contracts.ErrNotFound
func (r *MovingAverageRepository) GetByKey(ctx context.Context, key contracts.Key) (contracts.MovingAverageRow, error) {
	query := `
		SELECT symbol, date, ma_20, ma_50, ma_100, ma_200, vol_ma_30
		FROM daily_ma
		WHERE symbol = $1 AND date = $2
	`

	var row contracts.MovingAverageRow
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, query, key.Symbol, key.Date).Scan(
			&row.Symbol, &row.Date, &row.MA20, &row.MA50, &row.MA100, &row.MA200, &row.VolMA30,
		)
	})
	if err != nil {
		return contracts.MovingAverageRow{}, notFound(err)
	}
	row.Date = contracts.TradingDay(row.Date)
	return row, nil
}

// BreakoutRepository implements contracts.BreakoutRepository over breakout_signals
type BreakoutRepository struct {
	db *database.DB
}

// NewBreakoutRepository creates a new breakout repository
func NewBreakoutRepository(db *database.DB) *BreakoutRepository {
	return &BreakoutRepository{db: db}
}

// UpsertByKey writes the signal for key, overwriting every column on conflict
func (r *BreakoutRepository) UpsertByKey(ctx context.Context, key contracts.Key, sig contracts.BreakoutSignal) error {
	query := `
		INSERT INTO breakout_signals
			(symbol, date, is_confirmed_breakout, breakout_percent, volume_ratio, is_perfect_retest, ma20_distance_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (symbol, date) DO UPDATE SET
			is_confirmed_breakout = EXCLUDED.is_confirmed_breakout,
			breakout_percent = EXCLUDED.breakout_percent,
			volume_ratio = EXCLUDED.volume_ratio,
			is_perfect_retest = EXCLUDED.is_perfect_retest,
			ma20_distance_percent = EXCLUDED.ma20_distance_percent
	`

	err := r.db.Retry(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, query,
			key.Symbol, key.Date, sig.IsConfirmedBreakout, sig.BreakoutPercent, sig.VolumeRatio,
			sig.IsPerfectRetest, sig.MA20DistancePercent)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert breakout_signals %s: %w", key, err)
	}
	return nil
}

// NoiseRepository implements contracts.NoiseRepository over noise_signals
type NoiseRepository struct {
	db *database.DB
}

// NewNoiseRepository creates a new noise repository
func NewNoiseRepository(db *database.DB) *NoiseRepository {
	return &NoiseRepository{db: db}
}

// UpsertByKey writes the signal for key, overwriting every column on conflict
func (r *NoiseRepository) UpsertByKey(ctx context.Context, key contracts.Key, sig contracts.NoiseSignal) error {
	query := `
		INSERT INTO noise_signals
			(symbol, date, avg_dollar_volume_20d, avg_volume_20d, atr_14, atr_14_percent,
			 bb_width_current, bb_width_avg_60d, is_vcp, body_ratio, ma20_ma50_distance_percent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (symbol, date) DO UPDATE SET
			avg_dollar_volume_20d = EXCLUDED.avg_dollar_volume_20d,
			avg_volume_20d = EXCLUDED.avg_volume_20d,
			atr_14 = EXCLUDED.atr_14,
			atr_14_percent = EXCLUDED.atr_14_percent,
			bb_width_current = EXCLUDED.bb_width_current,
			bb_width_avg_60d = EXCLUDED.bb_width_avg_60d,
			is_vcp = EXCLUDED.is_vcp,
			body_ratio = EXCLUDED.body_ratio,
			ma20_ma50_distance_percent = EXCLUDED.ma20_ma50_distance_percent
	`

	err := r.db.Retry(ctx, func(ctx context.Context) error {
		_, err := r.db.Pool.Exec(ctx, query,
			key.Symbol, key.Date, sig.AvgDollarVolume20d, sig.AvgVolume20d, sig.ATR14, sig.ATR14Percent,
			sig.BBWidthCurrent, sig.BBWidthAvg60d, sig.IsVCP, sig.BodyRatio, sig.MA20MA50DistancePercent)
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert noise_signals %s: %w", key, err)
	}
	return nil
}
