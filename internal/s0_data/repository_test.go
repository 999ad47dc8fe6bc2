package s0_data

import (
	"context"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database/dbtest"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func closeBar(symbol string, date time.Time, close float64) contracts.DailyBar {
	return contracts.DailyBar{
		Symbol: symbol, Date: date,
		Open: close, High: close, Low: close, Close: close, AdjClose: close,
		Volume: 1000,
	}
}

func TestPriceRepository(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db).Prices
	ctx := context.Background()

	_, err := repo.LatestTradingDate(ctx)
	require.ErrorIs(t, err, contracts.ErrNotFound)

	latest := day(2024, 6, 14)
	bars := []contracts.DailyBar{
		// 12개월 전
		closeBar("AAA", day(2023, 6, 14), 10),
		closeBar("BBB", day(2023, 6, 14), 10),
		// 6개월 전
		closeBar("AAA", day(2023, 12, 14), 20),
		closeBar("BBB", day(2023, 12, 14), 10),
		// 3개월 전
		closeBar("AAA", day(2024, 3, 14), 25),
		closeBar("BBB", day(2024, 3, 14), 10),
		closeBar("CCC", day(2024, 3, 14), 10),
		closeBar("AAA", day(2024, 6, 13), 29),
		closeBar("AAA", latest, 30),
		closeBar("BBB", latest, 20),
		closeBar("CCC", latest, 15),
	}
	n, err := repo.UpsertBars(ctx, bars)
	require.NoError(t, err)
	assert.Equal(t, len(bars), n)

	t.Run("trading dates", func(t *testing.T) {
		got, err := repo.LatestTradingDate(ctx)
		require.NoError(t, err)
		assert.Equal(t, latest, got)

		prev, err := repo.PreviousTradingDate(ctx, latest)
		require.NoError(t, err)
		assert.Equal(t, day(2024, 6, 13), prev)

		dates, err := repo.TradingDates(ctx, day(2024, 6, 1), day(2024, 6, 30))
		require.NoError(t, err)
		assert.Equal(t, []time.Time{day(2024, 6, 13), latest}, dates)

		symbols, err := repo.ActiveSymbols(ctx, latest)
		require.NoError(t, err)
		assert.Equal(t, []string{"AAA", "BBB", "CCC"}, symbols)
	})

	t.Run("trailing bars ascending", func(t *testing.T) {
		got, err := repo.TrailingBars(ctx, "AAA", latest, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, day(2024, 6, 13), got[0].Date)
		assert.Equal(t, 30.0, got[1].Close)
	})

	t.Run("rank returns by horizon", func(t *testing.T) {
		ranks, err := repo.RankReturns(ctx, latest, contracts.Lookbacks{Long: 365, Mid: 183, Short: 92})
		require.NoError(t, err)
		require.Len(t, ranks, 3)

		bySymbol := map[string]contracts.HorizonRanks{}
		for _, r := range ranks {
			bySymbol[r.Symbol] = r
		}

		// 12M: AAA +200%, BBB +100%, CCC 이력 없음
		assert.Equal(t, null.FloatFrom(1), bySymbol["AAA"].PR12)
		assert.Equal(t, null.FloatFrom(0), bySymbol["BBB"].PR12)
		assert.False(t, bySymbol["CCC"].PR12.Valid)
		assert.False(t, bySymbol["CCC"].PR6.Valid)

		// 3M: AAA +20%, CCC +50%, BBB +100%
		assert.Equal(t, null.FloatFrom(0), bySymbol["AAA"].PR3)
		assert.Equal(t, null.FloatFrom(0.5), bySymbol["CCC"].PR3)
		assert.Equal(t, null.FloatFrom(1), bySymbol["BBB"].PR3)
	})

	t.Run("scores survive bar upsert", func(t *testing.T) {
		updated, err := repo.UpdateScores(ctx, latest, []contracts.RSScore{
			{Symbol: "AAA", Score: null.IntFrom(99)},
			{Symbol: "ZZZ", Score: null.IntFrom(50)},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, updated, "missing rows are not created")

		_, err = repo.UpsertBars(ctx, []contracts.DailyBar{closeBar("AAA", latest, 31)})
		require.NoError(t, err)

		got, err := repo.TrailingBars(ctx, "AAA", latest, 1)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, 31.0, got[0].Close)
		assert.Equal(t, null.IntFrom(99), got[0].RSScore)
	})
}

func TestSignalRepositories(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db)
	ctx := context.Background()
	key := contracts.NewKey("AAPL", day(2024, 6, 14))

	_, err := repo.MovingAverages.GetByKey(ctx, key)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	row := contracts.MovingAverageRow{
		Symbol: "AAPL", Date: key.Date,
		MA20: null.FloatFrom(210.5), MA50: null.FloatFrom(195.5),
		MA100: null.FloatFrom(170.5), MA200: null.Float{},
		VolMA30: null.FloatFrom(5000),
	}
	require.NoError(t, repo.MovingAverages.UpsertByKey(ctx, key, row))

	// 같은 키 재실행은 덮어쓰기
	row.MA200 = null.FloatFrom(120.5)
	require.NoError(t, repo.MovingAverages.UpsertByKey(ctx, key, row))

	got, err := repo.MovingAverages.GetByKey(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, row, got)
	assert.True(t, got.Ordered())

	require.NoError(t, repo.Breakouts.UpsertByKey(ctx, key, contracts.BreakoutSignal{
		Symbol: "AAPL", Date: key.Date, IsConfirmedBreakout: true,
		BreakoutPercent: null.FloatFrom(1.2), VolumeRatio: null.FloatFrom(2.5),
	}))
	require.NoError(t, repo.Noise.UpsertByKey(ctx, key, contracts.NoiseSignal{
		Symbol: "AAPL", Date: key.Date, IsVCP: null.BoolFrom(true), BodyRatio: null.FloatFrom(0.6),
	}))

	var confirmed bool
	var isVCP null.Bool
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT b.is_confirmed_breakout, n.is_vcp
		 FROM breakout_signals b JOIN noise_signals n USING (symbol, date)
		 WHERE symbol = $1 AND date = $2`, key.Symbol, key.Date).Scan(&confirmed, &isVCP))
	assert.True(t, confirmed)
	assert.Equal(t, null.BoolFrom(true), isVCP)
}

func TestSymbolAndFinancialRepositories(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.Symbols.UpsertSymbols(ctx, []contracts.SymbolMeta{
		{Symbol: "AAPL", CompanyName: "Apple Inc.", Exchange: "NASDAQ", IsActivelyTrading: true, MarketCap: null.FloatFrom(3e12)},
		{Symbol: "SPY", CompanyName: "SPDR S&P 500", Exchange: "AMEX", IsETF: true, IsActivelyTrading: true},
		{Symbol: "DEAD", CompanyName: "Delisted Co", Exchange: "NYSE"},
	})
	require.NoError(t, err)

	tradable, err := repo.Symbols.ListTradable(ctx)
	require.NoError(t, err)
	require.Len(t, tradable, 1)
	assert.Equal(t, "AAPL", tradable[0].Symbol)
	assert.Equal(t, null.FloatFrom(3e12), tradable[0].MarketCap)

	q := contracts.QuarterlyFinancial{
		Symbol: "AAPL", PeriodEndDate: day(2024, 3, 31),
		Revenue: null.FloatFrom(90e9), NetIncome: null.FloatFrom(23e9),
	}
	_, err = repo.Financials.UpsertQuarterlyFinancials(ctx, []contracts.QuarterlyFinancial{q})
	require.NoError(t, err)
	q.NetIncome = null.FloatFrom(24e9)
	_, err = repo.Financials.UpsertQuarterlyFinancials(ctx, []contracts.QuarterlyFinancial{q})
	require.NoError(t, err)

	_, err = repo.Financials.UpsertDailyRatios(ctx, []contracts.ValuationRatios{
		{Symbol: "AAPL", Date: day(2024, 6, 14), PE: null.FloatFrom(30), PEG: null.FloatFrom(2.1)},
	})
	require.NoError(t, err)

	var netIncome float64
	var count int
	require.NoError(t, db.Pool.QueryRow(ctx,
		`SELECT net_income, (SELECT COUNT(*) FROM quarterly_financials) FROM quarterly_financials WHERE symbol = 'AAPL'`).
		Scan(&netIncome, &count))
	assert.Equal(t, 24e9, netIncome)
	assert.Equal(t, 1, count)
}
