// Package contractstest provides in-memory repository implementations for tests.
package contractstest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/contracts"
)

// Bars is an in-memory BarRepository and RelativeStrengthRepository.
// Ranks are not computed here: tests seed them per date with SetRanks.
type Bars struct {
	mu      sync.Mutex
	bars    map[string]map[string]contracts.DailyBar // symbol -> date -> bar
	ranks   map[string][]contracts.HorizonRanks
	FailOn  map[string]error // date -> RankReturns error
	Upserts int
}

// NewBars creates an empty store seeded with bars
func NewBars(bars ...contracts.DailyBar) *Bars {
	b := &Bars{
		bars:   make(map[string]map[string]contracts.DailyBar),
		ranks:  make(map[string][]contracts.HorizonRanks),
		FailOn: make(map[string]error),
	}
	b.put(bars)
	return b
}

func day(t time.Time) string { return contracts.TradingDay(t).Format(contracts.DateLayout) }

func (b *Bars) put(bars []contracts.DailyBar) {
	for _, bar := range bars {
		bar.Date = contracts.TradingDay(bar.Date)
		if b.bars[bar.Symbol] == nil {
			b.bars[bar.Symbol] = make(map[string]contracts.DailyBar)
		}
		if prev, ok := b.bars[bar.Symbol][day(bar.Date)]; ok {
			bar.RSScore = prev.RSScore
		}
		b.bars[bar.Symbol][day(bar.Date)] = bar
	}
}

func (b *Bars) dates() []time.Time {
	seen := make(map[string]time.Time)
	for _, byDate := range b.bars {
		for k, bar := range byDate {
			seen[k] = bar.Date
		}
	}
	out := make([]time.Time, 0, len(seen))
	for _, d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (b *Bars) LatestTradingDate(ctx context.Context) (time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	dates := b.dates()
	if len(dates) == 0 {
		return time.Time{}, contracts.ErrNotFound
	}
	return dates[len(dates)-1], nil
}

func (b *Bars) PreviousTradingDate(ctx context.Context, before time.Time) (time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	before = contracts.TradingDay(before)
	dates := b.dates()
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i].Before(before) {
			return dates[i], nil
		}
	}
	return time.Time{}, contracts.ErrNotFound
}

func (b *Bars) TradingDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	from, to = contracts.TradingDay(from), contracts.TradingDay(to)
	var out []time.Time
	for _, d := range b.dates() {
		if !d.Before(from) && !d.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (b *Bars) ActiveSymbols(ctx context.Context, date time.Time) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for symbol, byDate := range b.bars {
		if _, ok := byDate[day(date)]; ok {
			out = append(out, symbol)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *Bars) TrailingBars(ctx context.Context, symbol string, asOf time.Time, limit int) ([]contracts.DailyBar, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	asOf = contracts.TradingDay(asOf)
	var out []contracts.DailyBar
	for _, bar := range b.bars[symbol] {
		if !bar.Date.After(asOf) {
			out = append(out, bar)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (b *Bars) UpsertBars(ctx context.Context, bars []contracts.DailyBar) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.put(bars)
	b.Upserts++
	return len(bars), nil
}

// SetRanks seeds RankReturns output for one date
func (b *Bars) SetRanks(date time.Time, ranks []contracts.HorizonRanks) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ranks[day(date)] = ranks
}

func (b *Bars) RankReturns(ctx context.Context, date time.Time, lookbacks contracts.Lookbacks) ([]contracts.HorizonRanks, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.FailOn[day(date)]; err != nil {
		return nil, err
	}
	return b.ranks[day(date)], nil
}

func (b *Bars) UpdateScores(ctx context.Context, date time.Time, scores []contracts.RSScore) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, s := range scores {
		bar, ok := b.bars[s.Symbol][day(date)]
		if !ok {
			continue
		}
		bar.RSScore = s.Score
		b.bars[s.Symbol][day(date)] = bar
		n++
	}
	return n, nil
}

// Score returns the stored rs_score
func (b *Bars) Score(symbol string, date time.Time) (null.Int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	bar, ok := b.bars[symbol][day(date)]
	return bar.RSScore, ok
}

// Count returns the number of stored bars
func (b *Bars) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, byDate := range b.bars {
		n += len(byDate)
	}
	return n
}

// MovingAverages is an in-memory MovingAverageRepository
type MovingAverages struct {
	mu      sync.Mutex
	Rows    map[contracts.Key]contracts.MovingAverageRow
	Upserts int
}

func NewMovingAverages() *MovingAverages {
	return &MovingAverages{Rows: make(map[contracts.Key]contracts.MovingAverageRow)}
}

func (m *MovingAverages) UpsertByKey(ctx context.Context, key contracts.Key, row contracts.MovingAverageRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rows[contracts.NewKey(key.Symbol, key.Date)] = row
	m.Upserts++
	return nil
}

func (m *MovingAverages) GetByKey(ctx context.Context, key contracts.Key) (contracts.MovingAverageRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.Rows[contracts.NewKey(key.Symbol, key.Date)]
	if !ok {
		return contracts.MovingAverageRow{}, contracts.ErrNotFound
	}
	return row, nil
}

// Breakouts is an in-memory BreakoutRepository
type Breakouts struct {
	mu   sync.Mutex
	Rows map[contracts.Key]contracts.BreakoutSignal
}

func NewBreakouts() *Breakouts {
	return &Breakouts{Rows: make(map[contracts.Key]contracts.BreakoutSignal)}
}

func (b *Breakouts) UpsertByKey(ctx context.Context, key contracts.Key, sig contracts.BreakoutSignal) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Rows[contracts.NewKey(key.Symbol, key.Date)] = sig
	return nil
}

// Noise is an in-memory NoiseRepository
type Noise struct {
	mu   sync.Mutex
	Rows map[contracts.Key]contracts.NoiseSignal
}

func NewNoise() *Noise {
	return &Noise{Rows: make(map[contracts.Key]contracts.NoiseSignal)}
}

func (n *Noise) UpsertByKey(ctx context.Context, key contracts.Key, sig contracts.NoiseSignal) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Rows[contracts.NewKey(key.Symbol, key.Date)] = sig
	return nil
}

// Symbols is an in-memory SymbolRepository
type Symbols struct {
	mu   sync.Mutex
	Rows map[string]contracts.SymbolMeta
}

func NewSymbols(metas ...contracts.SymbolMeta) *Symbols {
	s := &Symbols{Rows: make(map[string]contracts.SymbolMeta)}
	for _, m := range metas {
		s.Rows[m.Symbol] = m
	}
	return s
}

func (s *Symbols) UpsertSymbols(ctx context.Context, metas []contracts.SymbolMeta) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range metas {
		s.Rows[m.Symbol] = m
	}
	return len(metas), nil
}

func (s *Symbols) ListTradable(ctx context.Context) ([]contracts.SymbolMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []contracts.SymbolMeta
	for _, m := range s.Rows {
		if m.IsActivelyTrading && !m.IsETF {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

// Fundamentals is an in-memory FundamentalsRepository
type Fundamentals struct {
	mu              sync.Mutex
	Financials      map[string]contracts.QuarterlyFinancial
	DailyRatios     map[string]contracts.ValuationRatios
	QuarterlyRatios map[string]contracts.ValuationRatios
}

func NewFundamentals() *Fundamentals {
	return &Fundamentals{
		Financials:      make(map[string]contracts.QuarterlyFinancial),
		DailyRatios:     make(map[string]contracts.ValuationRatios),
		QuarterlyRatios: make(map[string]contracts.ValuationRatios),
	}
}

func rowKey(symbol string, date time.Time) string {
	return fmt.Sprintf("%s@%s", symbol, day(date))
}

func (f *Fundamentals) UpsertQuarterlyFinancials(ctx context.Context, rows []contracts.QuarterlyFinancial) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.Financials[rowKey(r.Symbol, r.PeriodEndDate)] = r
	}
	return len(rows), nil
}

func (f *Fundamentals) UpsertDailyRatios(ctx context.Context, rows []contracts.ValuationRatios) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.DailyRatios[rowKey(r.Symbol, r.Date)] = r
	}
	return len(rows), nil
}

func (f *Fundamentals) UpsertQuarterlyRatios(ctx context.Context, rows []contracts.ValuationRatios) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rows {
		f.QuarterlyRatios[rowKey(r.Symbol, r.Date)] = r
	}
	return len(rows), nil
}

// Compile-time interface checks
var (
	_ contracts.BarRepository              = (*Bars)(nil)
	_ contracts.RelativeStrengthRepository = (*Bars)(nil)
	_ contracts.MovingAverageRepository    = (*MovingAverages)(nil)
	_ contracts.BreakoutRepository         = (*Breakouts)(nil)
	_ contracts.NoiseRepository            = (*Noise)(nil)
	_ contracts.SymbolRepository           = (*Symbols)(nil)
	_ contracts.FundamentalsRepository     = (*Fundamentals)(nil)
)
