package s1_universe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/contracts/contractstest"
	"github.com/wonny/trendscan/internal/external/fmp"
	"github.com/wonny/trendscan/pkg/database/dbtest"
	"github.com/wonny/trendscan/pkg/logger"
)

type fakeListing struct {
	rows   []contracts.SymbolMeta
	err    error
	params fmp.ScreenerParams
}

func (f *fakeListing) FetchScreener(ctx context.Context, p fmp.ScreenerParams) ([]contracts.SymbolMeta, error) {
	f.params = p
	return f.rows, f.err
}

type memorySnapshots struct {
	saved []*contracts.Universe
}

func (m *memorySnapshots) SaveUniverse(ctx context.Context, u *contracts.Universe) error {
	m.saved = append(m.saved, u)
	return nil
}

func stock(symbol, exchange string, mcap float64) contracts.SymbolMeta {
	return contracts.SymbolMeta{
		Symbol:            symbol,
		Exchange:          exchange,
		IsActivelyTrading: true,
		MarketCap:         null.FloatFrom(mcap),
		Price:             null.FloatFrom(50),
		AvgVolume:         null.FloatFrom(1e6),
		Sector:            null.StringFrom("Technology"),
	}
}

func TestCheckExclusion(t *testing.T) {
	etf := stock("SPY", "AMEX", 5e11)
	etf.IsETF = true
	inactive := stock("DEAD", "NYSE", 1e9)
	inactive.IsActivelyTrading = false
	noCap := stock("NOCP", "NYSE", 0)
	noCap.MarketCap = null.Float{}
	bank := stock("JPM", "NYSE", 5e11)
	bank.Sector = null.StringFrom("Financial Services")

	b := NewBuilder(nil, nil, nil, Config{
		Exchanges:      []string{"NYSE", "NASDAQ", "AMEX"},
		MinMarketCap:   3e8,
		ExcludeSectors: []string{"financial services"},
	}, logger.Nop())

	tests := []struct {
		name string
		meta contracts.SymbolMeta
		want string
	}{
		{"eligible", stock("AAPL", "NASDAQ", 2.6e12), ""},
		{"etf", etf, ReasonETF},
		{"inactive", inactive, ReasonInactive},
		{"otc", stock("GBTC", "OTC", 2e10), ReasonExchange},
		{"pink sheets", stock("TCEHY", "PNK", 4e11), ReasonExchange},
		{"unlisted exchange", stock("SHOP", "TSX", 1e11), ReasonExchange},
		{"class share", stock("BRK-B", "NYSE", 8e11), ReasonShape},
		{"too small", stock("TINY", "NASDAQ", 1e8), ReasonMarketCap},
		{"unknown market cap", noCap, ReasonMarketCap},
		{"excluded sector", bank, ReasonSector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, b.checkExclusion(tt.meta))
		})
	}
}

func TestRefresh(t *testing.T) {
	etf := stock("QQQ", "NASDAQ", 2e11)
	etf.IsETF = true
	listing := &fakeListing{rows: []contracts.SymbolMeta{
		stock("MSFT", "NASDAQ", 3e12),
		stock("AAPL", "NASDAQ", 2.6e12),
		etf,
		stock("BRK-A", "NYSE", 8e11),
	}}
	symbols := contractstest.NewSymbols()
	snapshots := &memorySnapshots{}

	b := NewBuilder(listing, symbols, snapshots, DefaultConfig(), logger.Nop())
	b.now = func() time.Time { return time.Date(2024, 3, 16, 15, 0, 0, 0, time.UTC) }

	u, err := b.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"AAPL", "MSFT"}, u.Symbols)
	assert.Equal(t, 2, u.TotalCount)
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), u.Date)

	excluded, reason := u.IsExcluded("QQQ")
	assert.True(t, excluded)
	assert.Equal(t, ReasonETF, reason)
	_, reason = u.IsExcluded("BRK-A")
	assert.Equal(t, ReasonShape, reason)

	// every listed symbol is stored, eligible or not
	assert.Len(t, symbols.Rows, 4)
	require.Len(t, snapshots.saved, 1)
	assert.Same(t, u, snapshots.saved[0])
	assert.Equal(t, []string{"NYSE", "NASDAQ", "AMEX"}, listing.params.Exchanges)
}

func TestRefreshProviderFailure(t *testing.T) {
	listing := &fakeListing{err: errors.New("provider down")}
	symbols := contractstest.NewSymbols()

	b := NewBuilder(listing, symbols, nil, DefaultConfig(), logger.Nop())
	_, err := b.Refresh(context.Background())
	require.Error(t, err)
	assert.Empty(t, symbols.Rows)
}

func TestRepository_SaveAndLoad(t *testing.T) {
	db := dbtest.New(t)
	repo := NewRepository(db)
	ctx := context.Background()

	_, err := repo.LatestUniverse(ctx)
	assert.ErrorIs(t, err, contracts.ErrNotFound)

	u := &contracts.Universe{
		Date:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		Symbols:    []string{"AAPL", "MSFT"},
		Excluded:   map[string]string{"SPY": ReasonETF},
		TotalCount: 2,
	}
	require.NoError(t, repo.SaveUniverse(ctx, u))

	// same date replaces
	u.Symbols = []string{"AAPL", "MSFT", "NVDA"}
	u.TotalCount = 3
	require.NoError(t, repo.SaveUniverse(ctx, u))

	got, err := repo.LatestUniverse(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.Symbols, got.Symbols)
	assert.Equal(t, 3, got.TotalCount)
	assert.Equal(t, ReasonETF, got.Excluded["SPY"])
	assert.True(t, u.Date.Equal(got.Date))
}
