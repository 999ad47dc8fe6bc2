package s0_data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database"
)

// PriceRepository implements contracts.BarRepository and
// contracts.RelativeStrengthRepository over daily_prices
// ⭐ SSOT: 가격 데이터 저장소는 여기서만
type PriceRepository struct {
	db *database.DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *database.DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// LatestTradingDate returns the most recent date with any bar
func (r *PriceRepository) LatestTradingDate(ctx context.Context) (time.Time, error) {
	return r.scanDate(ctx, `SELECT MAX(date) FROM daily_prices`)
}

// PreviousTradingDate returns the latest bar date strictly before the given date
func (r *PriceRepository) PreviousTradingDate(ctx context.Context, before time.Time) (time.Time, error) {
	return r.scanDate(ctx, `SELECT MAX(date) FROM daily_prices WHERE date < $1`, contracts.TradingDay(before))
}

func (r *PriceRepository) scanDate(ctx context.Context, query string, args ...interface{}) (time.Time, error) {
	var d *time.Time
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		return r.db.Pool.QueryRow(ctx, query, args...).Scan(&d)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("query trading date: %w", err)
	}
	if d == nil {
		return time.Time{}, contracts.ErrNotFound
	}
	return contracts.TradingDay(*d), nil
}

// TradingDates returns distinct bar dates in [from, to], ascending
func (r *PriceRepository) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT date
		FROM daily_prices
		WHERE date BETWEEN $1 AND $2
		ORDER BY date ASC
	`

	var dates []time.Time
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		dates = dates[:0]
		rows, err := r.db.Pool.Query(ctx, query, contracts.TradingDay(from), contracts.TradingDay(to))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var d time.Time
			if err := rows.Scan(&d); err != nil {
				return err
			}
			dates = append(dates, contracts.TradingDay(d))
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query trading dates: %w", err)
	}
	return dates, nil
}

// ActiveSymbols returns symbols that have a bar on date
func (r *PriceRepository) ActiveSymbols(ctx context.Context, date time.Time) ([]string, error) {
	query := `
		SELECT DISTINCT symbol
		FROM daily_prices
		WHERE date = $1
		ORDER BY symbol
	`

	var symbols []string
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		symbols = symbols[:0]
		rows, err := r.db.Pool.Query(ctx, query, contracts.TradingDay(date))
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s string
			if err := rows.Scan(&s); err != nil {
				return err
			}
			symbols = append(symbols, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query active symbols: %w", err)
	}
	return symbols, nil
}

// TrailingBars returns up to limit bars dated on or before asOf, ascending
func (r *PriceRepository) TrailingBars(ctx context.Context, symbol string, asOf time.Time, limit int) ([]contracts.DailyBar, error) {
	query := `
		SELECT symbol, date, open, high, low, close, adj_close, volume, rs_score
		FROM (
			SELECT symbol, date, open, high, low, close, adj_close, volume, rs_score
			FROM daily_prices
			WHERE symbol = $1 AND date <= $2
			ORDER BY date DESC
			LIMIT $3
		) t
		ORDER BY date ASC
	`

	var bars []contracts.DailyBar
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		bars = bars[:0]
		rows, err := r.db.Pool.Query(ctx, query, symbol, contracts.TradingDay(asOf), limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var b contracts.DailyBar
			if err := rows.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.AdjClose, &b.Volume, &b.RSScore); err != nil {
				return err
			}
			b.Date = contracts.TradingDay(b.Date)
			bars = append(bars, b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("query trailing bars for %s: %w", symbol, err)
	}
	return bars, nil
}

// UpsertBars overwrites OHLCV on conflict; rs_score is left untouched
func (r *PriceRepository) UpsertBars(ctx context.Context, bars []contracts.DailyBar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO daily_prices (symbol, date, open, high, low, close, adj_close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			adj_close = EXCLUDED.adj_close,
			volume = EXCLUDED.volume,
			updated_at = NOW()
	`

	err := sendBatch(ctx, r.db, func(batch *pgx.Batch) {
		for _, b := range bars {
			batch.Queue(query, b.Symbol, contracts.TradingDay(b.Date), b.Open, b.High, b.Low, b.Close, b.AdjClose, b.Volume)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("upsert bars: %w", err)
	}
	return len(bars), nil
}

// RankReturns percentile-ranks 12/6/3-month returns across every symbol with
// a close on date. Lags are the latest close on or before date minus the
// lookback in calendar days; a horizon without a valid lag stays null and is
// excluded from that horizon's ranking.
func (r *PriceRepository) RankReturns(ctx context.Context, date time.Time, lookbacks contracts.Lookbacks) ([]contracts.HorizonRanks, error) {
	query := `
		WITH base AS (
			SELECT symbol, close
			FROM daily_prices
			WHERE date = $1 AND close > 0
		),
		lags AS (
			SELECT b.symbol, b.close,
				l12.close AS lag12,
				l6.close AS lag6,
				l3.close AS lag3
			FROM base b
			LEFT JOIN LATERAL (
				SELECT close FROM daily_prices
				WHERE symbol = b.symbol AND date <= $1::date - $2::int
				ORDER BY date DESC LIMIT 1
			) l12 ON TRUE
			LEFT JOIN LATERAL (
				SELECT close FROM daily_prices
				WHERE symbol = b.symbol AND date <= $1::date - $3::int
				ORDER BY date DESC LIMIT 1
			) l6 ON TRUE
			LEFT JOIN LATERAL (
				SELECT close FROM daily_prices
				WHERE symbol = b.symbol AND date <= $1::date - $4::int
				ORDER BY date DESC LIMIT 1
			) l3 ON TRUE
		),
		rets AS (
			SELECT symbol,
				CASE WHEN lag12 IS NOT NULL AND lag12 <> 0 THEN close / lag12 - 1 END AS r12,
				CASE WHEN lag6 IS NOT NULL AND lag6 <> 0 THEN close / lag6 - 1 END AS r6,
				CASE WHEN lag3 IS NOT NULL AND lag3 <> 0 THEN close / lag3 - 1 END AS r3
			FROM lags
		)
		SELECT symbol,
			CASE WHEN r12 IS NOT NULL THEN percent_rank() OVER (PARTITION BY (r12 IS NULL) ORDER BY r12) END AS pr12,
			CASE WHEN r6 IS NOT NULL THEN percent_rank() OVER (PARTITION BY (r6 IS NULL) ORDER BY r6) END AS pr6,
			CASE WHEN r3 IS NOT NULL THEN percent_rank() OVER (PARTITION BY (r3 IS NULL) ORDER BY r3) END AS pr3
		FROM rets
		ORDER BY symbol
	`

	var ranks []contracts.HorizonRanks
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		ranks = ranks[:0]
		rows, err := r.db.Pool.Query(ctx, query, contracts.TradingDay(date), lookbacks.Long, lookbacks.Mid, lookbacks.Short)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var h contracts.HorizonRanks
			if err := rows.Scan(&h.Symbol, &h.PR12, &h.PR6, &h.PR3); err != nil {
				return err
			}
			ranks = append(ranks, h)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("rank returns for %s: %w", date.Format(contracts.DateLayout), err)
	}
	return ranks, nil
}

// UpdateScores sets rs_score on existing bars; rows that do not exist are not created
func (r *PriceRepository) UpdateScores(ctx context.Context, date time.Time, scores []contracts.RSScore) (int, error) {
	if len(scores) == 0 {
		return 0, nil
	}

	query := `UPDATE daily_prices SET rs_score = $3 WHERE symbol = $1 AND date = $2`
	day := contracts.TradingDay(date)

	updated := 0
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		updated = 0
		batch := &pgx.Batch{}
		for _, s := range scores {
			batch.Queue(query, s.Symbol, day, s.Score)
		}

		br := r.db.Pool.SendBatch(ctx, batch)
		defer br.Close()

		for range scores {
			tag, err := br.Exec()
			if err != nil {
				return err
			}
			updated += int(tag.RowsAffected())
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("update rs scores: %w", err)
	}
	return updated, nil
}

// sendBatch builds a fresh batch per attempt and executes it under the retry policy
func sendBatch(ctx context.Context, db *database.DB, queue func(batch *pgx.Batch)) error {
	return db.Retry(ctx, func(ctx context.Context) error {
		batch := &pgx.Batch{}
		queue(batch)

		br := db.Pool.SendBatch(ctx, batch)
		defer br.Close()

		for i := 0; i < batch.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				return err
			}
		}
		return nil
	})
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return contracts.ErrNotFound
	}
	return err
}
