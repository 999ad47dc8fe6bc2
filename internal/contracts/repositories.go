package contracts

import (
	"context"
	"time"
)

// BarRepository reads and writes daily bars
// ⭐ SSOT: daily_prices 접근 인터페이스
type BarRepository interface {
	// LatestTradingDate returns the most recent date with any bar (ErrNotFound if empty)
	LatestTradingDate(ctx context.Context) (time.Time, error)
	// PreviousTradingDate returns the latest bar date strictly before the given date
	PreviousTradingDate(ctx context.Context, before time.Time) (time.Time, error)
	// TradingDates returns distinct bar dates in [from, to], ascending
	TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error)
	// ActiveSymbols returns symbols that have a bar on date
	ActiveSymbols(ctx context.Context, date time.Time) ([]string, error)
	// TrailingBars returns up to limit bars dated on or before asOf, ascending
	TrailingBars(ctx context.Context, symbol string, asOf time.Time, limit int) ([]DailyBar, error)
	// UpsertBars overwrites OHLCV on conflict and leaves rs_score untouched
	UpsertBars(ctx context.Context, bars []DailyBar) (int, error)
}

// MovingAverageRepository stores MovingAverageRow by key.
// UpsertByKey fully overwrites every column of an existing row.
type MovingAverageRepository interface {
	UpsertByKey(ctx context.Context, key Key, row MovingAverageRow) error
	GetByKey(ctx context.Context, key Key) (MovingAverageRow, error)
}

// RelativeStrengthRepository exposes the cross-sectional ranking primitive
type RelativeStrengthRepository interface {
	// RankReturns percentile-ranks each horizon's return across symbols with a bar on date
	RankReturns(ctx context.Context, date time.Time, lookbacks Lookbacks) ([]HorizonRanks, error)
	// UpdateScores sets rs_score on existing bars for date; never inserts
	UpdateScores(ctx context.Context, date time.Time, scores []RSScore) (int, error)
}

// BreakoutRepository stores breakout/retest rows with full overwrite
type BreakoutRepository interface {
	UpsertByKey(ctx context.Context, key Key, sig BreakoutSignal) error
}

// NoiseRepository stores noise rows with full overwrite
type NoiseRepository interface {
	UpsertByKey(ctx context.Context, key Key, sig NoiseSignal) error
}

// SymbolRepository maintains symbol reference data
type SymbolRepository interface {
	UpsertSymbols(ctx context.Context, symbols []SymbolMeta) (int, error)
	ListTradable(ctx context.Context) ([]SymbolMeta, error)
}

// FundamentalsRepository stores quarterly financials and valuation ratios
type FundamentalsRepository interface {
	UpsertQuarterlyFinancials(ctx context.Context, rows []QuarterlyFinancial) (int, error)
	UpsertDailyRatios(ctx context.Context, rows []ValuationRatios) (int, error)
	UpsertQuarterlyRatios(ctx context.Context, rows []ValuationRatios) (int, error)
}
