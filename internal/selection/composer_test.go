package selection

import (
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/strategyconfig"
)

func compose(t *testing.T, f Filters) *Query {
	t.Helper()
	cfg := strategyconfig.Default().Screener
	require.NoError(t, f.Validate(cfg))
	return NewComposer(cfg).Compose(f.WithDefaults(cfg))
}

var placeholder = regexp.MustCompile(`\$(\d+)`)

// every placeholder is bound and every arg is referenced
func assertPlaceholders(t *testing.T, q *Query) {
	t.Helper()
	seen := map[int]bool{}
	for _, m := range placeholder.FindAllStringSubmatch(q.SQL(), -1) {
		n, err := strconv.Atoi(m[1])
		require.NoError(t, err)
		seen[n] = true
	}
	assert.Len(t, seen, len(q.Args))
	for i := 1; i <= len(q.Args); i++ {
		assert.True(t, seen[i], "$%d unreferenced", i)
	}
}

func TestCompose_MinMcapOnly(t *testing.T) {
	q := compose(t, Filters{MinMcap: null.FloatFrom(1e9)})

	latest := q.cte("latest")
	require.NotNil(t, latest)
	assert.Contains(t, latest.Body, "FROM daily_prices")

	base := q.cte("base")
	require.NotNil(t, base)
	assert.Contains(t, base.Body, "LEFT JOIN daily_ma m")

	assert.Equal(t, []string{
		"latest_date", "symbol_shape", "active", "non_etf", "otc", "min_mcap",
		"trailing_quarters", "latest_two_quarters",
	}, q.PredicateNames())

	assert.False(t, q.HasCTE("last_misorder"))
	assert.False(t, q.HasCTE("breakouts"))
	assert.False(t, q.HasJoin("ns"))
	assert.False(t, q.HasJoin("bo"))
	assert.False(t, q.HasJoin("lm"))
	assert.Empty(t, q.Predicates)

	assert.Contains(t, q.Args, 1e9)
	assert.NotContains(t, q.SQL(), "1e+09")
	assert.Contains(t, q.SQL(), "ORDER BY b.market_cap DESC NULLS LAST, b.symbol ASC")
	assertPlaceholders(t, q)
}

func TestCompose_RevenueStreakWithoutRate(t *testing.T) {
	q := compose(t, Filters{RevenueGrowth: true, RevenueGrowthQuarters: 4})

	assert.True(t, q.HasPredicate("revenue_streak"))
	assert.False(t, q.HasPredicate("revenue_rate"))
	assert.False(t, q.HasPredicate("income_streak"))
	assert.Contains(t, q.Args, 4)
	assert.True(t, q.HasCTE("growth_streaks"))
	assert.True(t, q.HasJoin("g"))
	assertPlaceholders(t, q)
}

func TestCompose_RateNeedsStreak(t *testing.T) {
	withStreak := compose(t, Filters{RevenueGrowth: true, RevenueGrowthRate: null.FloatFrom(25)})
	assert.True(t, withStreak.HasPredicate("revenue_streak"))
	assert.True(t, withStreak.HasPredicate("revenue_rate"))
	assert.Contains(t, withStreak.Args, 3, "default quarters")
	assert.Contains(t, withStreak.SQL(), "COUNT(fs.revenue_rate) FILTER (WHERE fs.rn < st.revenue_quarters) = st.revenue_quarters - 1")
	assertPlaceholders(t, withStreak)

	rateOnly := compose(t, Filters{RevenueGrowthRate: null.FloatFrom(25)})
	assert.False(t, rateOnly.HasPredicate("revenue_rate"))
	assert.False(t, rateOnly.HasPredicate("revenue_streak"))
}

func TestCompose_MovingAverageFilters(t *testing.T) {
	q := compose(t, Filters{Ordered: true, MA50Above: true})

	assert.Contains(t, q.cte("latest").Body, "FROM daily_ma")
	assert.Contains(t, q.cte("base").Body, "\nJOIN daily_ma m")
	assert.True(t, q.HasPredicate("ordered"))
	assert.True(t, q.HasPredicate("ma50_above"))
	assert.False(t, q.HasPredicate("golden_cross"))
	assert.False(t, q.HasCTE("last_misorder"))
}

func TestCompose_JustTurned(t *testing.T) {
	q := compose(t, Filters{JustTurned: true, LookbackDays: 7})

	assert.True(t, q.HasCTE("last_misorder"))
	assert.True(t, q.HasJoin("lm"))
	assert.True(t, q.HasPredicate("ordered"), "turned means ordered now")
	assert.True(t, q.HasPredicate("just_turned"))
	assert.Contains(t, q.Args, 7)
	assertPlaceholders(t, q)
}

func TestCompose_SignalJoins(t *testing.T) {
	q := compose(t, Filters{BreakoutStrategy: BreakoutConfirmed, VCPFilter: true, VolumeFilter: true})

	assert.True(t, q.HasCTE("breakouts"))
	assert.True(t, q.HasJoin("bo"))
	assert.True(t, q.HasJoin("ns"))
	assert.True(t, q.HasPredicate("breakout_confirmed"))
	assert.False(t, q.HasPredicate("breakout_retest"))
	assert.True(t, q.HasPredicate("vcp"))
	assert.True(t, q.HasPredicate("volume"))
	assert.False(t, q.HasPredicate("body"))
	assert.Contains(t, q.Args, strategyconfig.Default().Screener.MinDollarVolume)
	assertPlaceholders(t, q)
}

func TestCompose_Fundamentals(t *testing.T) {
	q := compose(t, Filters{PEGFilter: true, TurnAround: true, Profitability: ProfitabilityUnprofitable, Offset: 20})

	assert.True(t, q.HasPredicate("peg"))
	assert.True(t, q.HasPredicate("turn_around"))
	assert.True(t, q.HasPredicate("unprofitable"))
	assert.False(t, q.HasPredicate("profitable"))
	assert.True(t, strings.Contains(q.SQL(), "OFFSET $"))
	assertPlaceholders(t, q)
}
