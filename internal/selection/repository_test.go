package selection

import (
	"context"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s0_data"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/database/dbtest"
)

func meta(symbol, exchange string, mcap float64, etf bool) contracts.SymbolMeta {
	return contracts.SymbolMeta{
		Symbol:            symbol,
		CompanyName:       symbol + " Inc",
		MarketCap:         null.FloatFrom(mcap),
		Exchange:          exchange,
		IsETF:             etf,
		IsActivelyTrading: true,
	}
}

// quarters builds revenue rows newest first, one quarter apart
func quarters(symbol string, revenues ...float64) []contracts.QuarterlyFinancial {
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.QuarterlyFinancial, len(revenues))
	for i, r := range revenues {
		out[i] = contracts.QuarterlyFinancial{
			Symbol:        symbol,
			PeriodEndDate: end.AddDate(0, -3*i, 0),
			Revenue:       null.FloatFrom(r),
			NetIncome:     null.FloatFrom(r / 10),
		}
	}
	return out
}

func TestRepository_Screen(t *testing.T) {
	db := dbtest.New(t)
	ctx := context.Background()
	date := time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)

	symbols := []contracts.SymbolMeta{
		meta("AAPL", "NASDAQ", 3e12, false),
		meta("MSFT", "NASDAQ", 2.5e12, false),
		meta("SMAL", "NYSE", 5e8, false),
		meta("BRK.B", "NYSE", 8e11, false),
		meta("SPY", "AMEX", 5e11, true),
		meta("OTCX", "OTC", 2e9, false),
	}
	_, err := s0_data.NewSymbolRepository(db).UpsertSymbols(ctx, symbols)
	require.NoError(t, err)

	bars := make([]contracts.DailyBar, 0, len(symbols))
	for _, s := range symbols {
		bars = append(bars, contracts.DailyBar{
			Symbol: s.Symbol, Date: date,
			Open: 10, High: 11, Low: 9, Close: 10.5, AdjClose: 10.5, Volume: 1000,
		})
	}
	_, err = s0_data.NewPriceRepository(db).UpsertBars(ctx, bars)
	require.NoError(t, err)

	fins := append(quarters("AAPL", 400, 300, 200, 100), quarters("MSFT", 400, 300, 350, 100)...)
	_, err = s0_data.NewFinancialRepository(db).UpsertQuarterlyFinancials(ctx, fins)
	require.NoError(t, err)

	s, err := NewScreener(NewRepository(db), nil, strategyconfig.Default(), nil)
	require.NoError(t, err)

	t.Run("min market cap only", func(t *testing.T) {
		resp, err := s.Screen(ctx, Filters{MinMcap: null.FloatFrom(1e9)})
		require.NoError(t, err)
		require.Equal(t, []string{"AAPL", "MSFT"}, symbolsOf(resp.Results))

		aapl := resp.Results[0]
		assert.Equal(t, 10.5, aapl.Close)
		assert.Equal(t, ClassProfitable, aapl.Profitability)
		assert.Len(t, aapl.Financials, 4)
		assert.Equal(t, null.IntFrom(4), aapl.RevenueGrowthQuarters)
		assert.False(t, aapl.Ordered)

		msft := resp.Results[1]
		assert.Equal(t, null.IntFrom(2), msft.RevenueGrowthQuarters)
	})

	t.Run("revenue streak of four", func(t *testing.T) {
		resp, err := s.Screen(ctx, Filters{RevenueGrowth: true, RevenueGrowthQuarters: 4})
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL"}, symbolsOf(resp.Results))

		// (100/300 + 100/200 + 100/100) / 3
		require.True(t, resp.Results[0].RevenueGrowthRate.Valid)
		assert.InDelta(t, 61.11, resp.Results[0].RevenueGrowthRate.Float64, 0.01)
	})

	t.Run("revenue streak with rate", func(t *testing.T) {
		resp, err := s.Screen(ctx, Filters{RevenueGrowth: true, RevenueGrowthQuarters: 4, RevenueGrowthRate: null.FloatFrom(70)})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
	})

	t.Run("rate is null when a streak step has no positive base", func(t *testing.T) {
		_, err := s0_data.NewSymbolRepository(db).UpsertSymbols(ctx, []contracts.SymbolMeta{meta("ZERO", "NYSE", 1e9, false)})
		require.NoError(t, err)
		_, err = s0_data.NewPriceRepository(db).UpsertBars(ctx, []contracts.DailyBar{{
			Symbol: "ZERO", Date: date,
			Open: 10, High: 11, Low: 9, Close: 10.5, AdjClose: 10.5, Volume: 1000,
		}})
		require.NoError(t, err)
		_, err = s0_data.NewFinancialRepository(db).UpsertQuarterlyFinancials(ctx, quarters("ZERO", 300, 200, 100, 0))
		require.NoError(t, err)

		resp, err := s.Screen(ctx, Filters{RevenueGrowth: true, RevenueGrowthQuarters: 4})
		require.NoError(t, err)
		require.Equal(t, []string{"AAPL", "ZERO"}, symbolsOf(resp.Results))

		zero := resp.Results[1]
		assert.Equal(t, null.IntFrom(4), zero.RevenueGrowthQuarters)
		assert.False(t, zero.RevenueGrowthRate.Valid)

		resp, err = s.Screen(ctx, Filters{RevenueGrowth: true, RevenueGrowthQuarters: 4, RevenueGrowthRate: null.FloatFrom(0)})
		require.NoError(t, err)
		assert.Equal(t, []string{"AAPL"}, symbolsOf(resp.Results))
	})

	t.Run("ordering filter needs MA rows", func(t *testing.T) {
		resp, err := s.Screen(ctx, Filters{Ordered: true})
		require.NoError(t, err)
		assert.Empty(t, resp.Results)
	})
}
