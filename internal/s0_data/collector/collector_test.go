package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/contracts/contractstest"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/workerpool"
)

type fakeProvider struct {
	mu       sync.Mutex
	bars     map[string][]contracts.DailyBar
	fail     map[string]error
	ttm      map[string]contracts.ValuationRatios
	calls    int
	quarters []int
}

func (f *fakeProvider) FetchDailyBars(ctx context.Context, symbol string, days int) ([]contracts.DailyBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	return f.bars[symbol], nil
}

func (f *fakeProvider) FetchTTMRatios(ctx context.Context, symbol string, asOf time.Time) (contracts.ValuationRatios, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.ttm[symbol]
	if !ok {
		return contracts.ValuationRatios{}, contracts.ErrNotFound
	}
	r.Symbol = symbol
	r.Date = asOf
	return r, nil
}

func (f *fakeProvider) FetchQuarterlyRatios(ctx context.Context, symbol string, limit int) ([]contracts.ValuationRatios, error) {
	return []contracts.ValuationRatios{{
		Symbol: symbol,
		Date:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		PE:     null.FloatFrom(25),
	}}, nil
}

func (f *fakeProvider) FetchQuarterlyIncome(ctx context.Context, symbol string, limit int) ([]contracts.QuarterlyFinancial, error) {
	f.mu.Lock()
	f.quarters = append(f.quarters, limit)
	f.mu.Unlock()
	if err := f.fail[symbol]; err != nil {
		return nil, err
	}
	return []contracts.QuarterlyFinancial{
		{Symbol: symbol, PeriodEndDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), Revenue: null.FloatFrom(100)},
		{Symbol: symbol, PeriodEndDate: time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC), Revenue: null.FloatFrom(90)},
	}, nil
}

func testPool() workerpool.Config {
	return workerpool.Config{Workers: 2, BatchSize: 10}
}

func TestFetchPrices(t *testing.T) {
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	good := contractstest.Flat("AAPL", end, 5, 100, 1000)
	withBad := contractstest.Flat("MSFT", end, 3, 50, 500)
	withBad[1].High = withBad[1].Low - 1 // inverted range

	provider := &fakeProvider{
		bars: map[string][]contracts.DailyBar{"AAPL": good, "MSFT": withBad},
		fail: map[string]error{"BAD": errors.New("boom")},
	}
	store := contractstest.NewBars()

	c := NewCollector(Deps{Prices: provider, Bars: store}, testPool(), logger.Nop())
	result, err := c.FetchPrices(context.Background(), []string{"AAPL", "MSFT", "BAD"}, 5)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Symbols)
	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 7, result.Written)
	assert.Equal(t, 1, result.Rejected)
	assert.Equal(t, 7, store.Count())
}

func TestFetchAllPricesUsesTradableSymbols(t *testing.T) {
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	provider := &fakeProvider{bars: map[string][]contracts.DailyBar{
		"AAPL": contractstest.Flat("AAPL", end, 2, 100, 1000),
		"SPY":  contractstest.Flat("SPY", end, 2, 500, 1000),
	}}
	symbols := contractstest.NewSymbols(
		contracts.SymbolMeta{Symbol: "AAPL", IsActivelyTrading: true},
		contracts.SymbolMeta{Symbol: "SPY", IsActivelyTrading: true, IsETF: true},
	)
	store := contractstest.NewBars()

	c := NewCollector(Deps{Prices: provider, Bars: store, Symbols: symbols}, testPool(), nil)
	result, err := c.FetchAllPrices(context.Background(), 2)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Symbols)
	assert.Equal(t, 1, provider.calls)
	assert.Equal(t, 2, store.Count())
}

func TestFetchFundamentals(t *testing.T) {
	provider := &fakeProvider{
		ttm: map[string]contracts.ValuationRatios{
			"NVDA": {PE: null.FloatFrom(5000), PEG: null.FloatFrom(0.5)}, // implausible PE
		},
		fail: map[string]error{"BAD": errors.New("boom")},
	}
	repo := contractstest.NewFundamentals()

	c := NewCollector(Deps{Fundamentals: provider, Financials: repo}, testPool(), logger.Nop())
	c.now = func() time.Time { return time.Date(2024, 4, 2, 22, 0, 0, 0, time.UTC) }

	result, err := c.FetchFundamentals(context.Background(), []string{"NVDA", "AAPL", "BAD"}, 8)
	require.NoError(t, err)

	assert.Equal(t, 2, result.Succeeded)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, 1, result.Warnings)
	assert.Len(t, repo.Financials, 4)
	assert.Len(t, repo.QuarterlyRatios, 2)

	// AAPL has no TTM ratios; only NVDA gets a daily row, stamped with today
	require.Len(t, repo.DailyRatios, 1)
	ttm, ok := repo.DailyRatios["NVDA@2024-04-02"]
	require.True(t, ok)
	assert.Equal(t, 0.5, ttm.PEG.Float64)

	for _, q := range provider.quarters {
		assert.Equal(t, 8, q)
	}
}

func TestCollectorWithoutSource(t *testing.T) {
	c := NewCollector(Deps{}, testPool(), nil)

	_, err := c.FetchPrices(context.Background(), []string{"AAPL"}, 5)
	assert.Error(t, err)

	_, err = c.FetchFundamentals(context.Background(), []string{"AAPL"}, 8)
	assert.Error(t, err)
}
