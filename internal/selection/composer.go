package selection

import (
	"fmt"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/strategyconfig"
)

// trailingQuarters bounds the growth-streak walk
const trailingQuarters = 8

const (
	orderedExpr = "%[1]s.ma_20 > %[1]s.ma_50 AND %[1]s.ma_50 > %[1]s.ma_100 AND %[1]s.ma_100 > %[1]s.ma_200"

	// daily ratios win over quarterly ones whenever a daily row exists
	pegExpr = "CASE WHEN rd.symbol IS NOT NULL THEN rd.peg ELSE rq.peg END"
)

func ratioColumn(col string) string {
	return fmt.Sprintf("CASE WHEN rd.symbol IS NOT NULL THEN rd.%[1]s ELSE rq.%[1]s END AS %[1]s", col)
}

// Composer turns validated filters into a Query.
// Joins and CTEs are added only for active filters.
// ⭐ SSOT: 스크리너 SQL 조립은 여기서만
type Composer struct {
	thresholds strategyconfig.Screener
}

// NewComposer creates a composer bound to the noise thresholds
func NewComposer(thresholds strategyconfig.Screener) *Composer {
	return &Composer{thresholds: thresholds}
}

// Compose builds the query. f must already be validated and defaulted.
func (c *Composer) Compose(f Filters) *Query {
	q := &Query{}

	c.latest(q, f)
	c.base(q, f)
	if f.JustTurned {
		c.justTurned(q, f)
	}
	c.fundamentals(q)
	if f.BreakoutStrategy != BreakoutNone {
		c.breakouts(q, f)
	}

	q.Columns = []string{
		"b.symbol", "b.company_name", "b.date", "b.close", "b.market_cap", "b.sector", "b.rs_score",
		ratioColumn("pe"), ratioColumn("peg"), ratioColumn("ps"), ratioColumn("pb"),
		"g.revenue_growth_quarters", "g.income_growth_quarters",
		"g.revenue_growth_rate", "g.income_growth_rate",
		"fl.net_income_q1",
		"COALESCE(" + fmt.Sprintf(orderedExpr, "b") + ", FALSE) AS ordered",
	}
	q.From = "base b"
	q.Joins = append(q.Joins,
		Join{Kind: "LEFT JOIN", Table: "growth", Alias: "g", On: "g.symbol = b.symbol"},
		Join{Kind: "LEFT JOIN", Table: "fin_latest", Alias: "fl", On: "fl.symbol = b.symbol"},
		Join{Kind: "LEFT JOIN", Table: "ratios_d", Alias: "rd", On: "rd.symbol = b.symbol"},
		Join{Kind: "LEFT JOIN", Table: "ratios_q", Alias: "rq", On: "rq.symbol = b.symbol"},
	)
	if f.JustTurned {
		q.Joins = append(q.Joins, Join{Kind: "JOIN", Table: "last_misorder", Alias: "lm", On: "lm.symbol = b.symbol"})
	}
	if f.BreakoutStrategy != BreakoutNone {
		q.Joins = append(q.Joins, Join{Kind: "LEFT JOIN", Table: "breakouts", Alias: "bo", On: "bo.symbol = b.symbol"})
	}
	if f.NoiseDependent() {
		q.Joins = append(q.Joins, Join{Kind: "LEFT JOIN", Table: "noise_signals", Alias: "ns", On: "ns.symbol = b.symbol AND ns.date = b.date"})
	}

	c.fundamentalPredicates(q, f)
	c.signalPredicates(q, f)

	q.OrderBy = []string{"b.market_cap DESC NULLS LAST", "b.symbol ASC"}
	q.Limit = q.Bind(f.Limit)
	if f.Offset > 0 {
		q.Offset = q.Bind(f.Offset)
	}
	return q
}

// 1. 기준일: MA 필터가 있으면 daily_ma, 아니면 daily_prices
func (c *Composer) latest(q *Query, f Filters) {
	source := "daily_prices"
	if f.MADependent() {
		source = "daily_ma"
	}
	q.CTEs = append(q.CTEs, CTE{
		Name: "latest",
		Body: "SELECT MAX(date) AS d FROM " + source,
	})
}

// 2-3. 현재 데이터: MA 조건 + 심볼 형태 + 저비용 스칼라 필터
func (c *Composer) base(q *Query, f Filters) {
	maJoin := "LEFT JOIN"
	if f.MADependent() {
		maJoin = "JOIN"
	}

	cte := CTE{
		Name: "base",
		Body: `SELECT p.symbol, p.date, p.close, p.rs_score,
       s.company_name, s.sector, s.market_cap,
       m.ma_20, m.ma_50, m.ma_100, m.ma_200
FROM daily_prices p
JOIN symbols s ON s.symbol = p.symbol
` + maJoin + ` daily_ma m ON m.symbol = p.symbol AND m.date = p.date`,
	}

	add := func(name, sql string) {
		cte.Where = append(cte.Where, Predicate{Name: name, SQL: sql})
	}

	add("latest_date", "p.date = (SELECT d FROM latest)")
	add("symbol_shape", "p.symbol ~ "+q.Bind(contracts.CommonStockPattern))

	if f.Ordered || f.JustTurned {
		add("ordered", fmt.Sprintf(orderedExpr, "m"))
	}
	if f.GoldenCross {
		add("golden_cross", "m.ma_50 > m.ma_200")
	}
	for _, ma := range []struct {
		on     bool
		name   string
		column string
	}{
		{f.MA20Above, "ma20_above", "ma_20"},
		{f.MA50Above, "ma50_above", "ma_50"},
		{f.MA100Above, "ma100_above", "ma_100"},
		{f.MA200Above, "ma200_above", "ma_200"},
	} {
		if ma.on {
			add(ma.name, "p.close > m."+ma.column)
		}
	}

	add("active", "s.is_actively_trading")
	add("non_etf", "NOT s.is_etf")
	add("otc", "COALESCE(s.exchange, '') NOT ILIKE 'OTC%' AND COALESCE(s.exchange, '') <> 'PNK'")
	if f.MinMcap.Valid {
		add("min_mcap", "s.market_cap >= "+q.Bind(f.MinMcap.Float64))
	}
	if f.MinPrice.Valid {
		add("min_price", "p.close >= "+q.Bind(f.MinPrice.Float64))
	}
	if f.MinAvgVol.Valid {
		add("min_avg_vol", "s.avg_volume >= "+q.Bind(f.MinAvgVol.Float64))
	}

	q.CTEs = append(q.CTEs, cte)
}

// 4. 최근 역배열 시점: justTurned일 때만 두 번째 윈도우 스캔
func (c *Composer) justTurned(q *Query, f Filters) {
	q.CTEs = append(q.CTEs, CTE{
		Name: "last_misorder",
		Body: `SELECT m.symbol, MAX(m.date) AS last_misordered
FROM daily_ma m
JOIN base b ON b.symbol = m.symbol`,
		Where: []Predicate{
			{Name: "just_turned_window", SQL: "m.date < b.date AND m.date >= b.date - " + q.Bind(f.LookbackDays) + "::int"},
			{Name: "misordered", SQL: "NOT COALESCE(" + fmt.Sprintf(orderedExpr, "m") + ", FALSE)"},
		},
		Tail: "GROUP BY m.symbol",
	})
}

// 5. 펀더멘털: 최근 분기부터 연속 성장 분기 수, 연속 구간 평균 성장률, 밸류에이션
func (c *Composer) fundamentals(q *Query) {
	q.CTEs = append(q.CTEs,
		CTE{
			Name: "fin",
			Body: `SELECT f.symbol, f.period_end_date, f.revenue, f.net_income,
       ROW_NUMBER() OVER (PARTITION BY f.symbol ORDER BY f.period_end_date DESC) AS rn
FROM quarterly_financials f
JOIN base b ON b.symbol = f.symbol`,
		},
		CTE{
			Name: "fin_steps",
			Body: `SELECT cur.symbol, cur.rn,
       cur.revenue > prev.revenue AS revenue_up,
       cur.net_income > prev.net_income AS income_up,
       CASE WHEN prev.revenue > 0 THEN (cur.revenue - prev.revenue) / prev.revenue * 100 END AS revenue_rate,
       CASE WHEN prev.net_income > 0 THEN (cur.net_income - prev.net_income) / prev.net_income * 100 END AS income_rate
FROM fin cur
JOIN fin prev ON prev.symbol = cur.symbol AND prev.rn = cur.rn + 1`,
			Where: []Predicate{
				{Name: "trailing_quarters", SQL: fmt.Sprintf("cur.rn < %d", trailingQuarters)},
			},
		},
		// streak = quarters in the run of increases ending at the latest quarter
		CTE{
			Name: "growth_streaks",
			Body: `SELECT symbol,
       COALESCE(MIN(rn) FILTER (WHERE NOT COALESCE(revenue_up, FALSE)), COUNT(*) + 1) AS revenue_quarters,
       COALESCE(MIN(rn) FILTER (WHERE NOT COALESCE(income_up, FALSE)), COUNT(*) + 1) AS income_quarters
FROM fin_steps`,
			Tail: "GROUP BY symbol",
		},
		// rate is NULL unless every step of the streak has a positive prior value
		CTE{
			Name: "growth",
			Body: `SELECT st.symbol,
       st.revenue_quarters AS revenue_growth_quarters,
       st.income_quarters AS income_growth_quarters,
       CASE WHEN COUNT(fs.revenue_rate) FILTER (WHERE fs.rn < st.revenue_quarters) = st.revenue_quarters - 1
            THEN AVG(fs.revenue_rate) FILTER (WHERE fs.rn < st.revenue_quarters) END AS revenue_growth_rate,
       CASE WHEN COUNT(fs.income_rate) FILTER (WHERE fs.rn < st.income_quarters) = st.income_quarters - 1
            THEN AVG(fs.income_rate) FILTER (WHERE fs.rn < st.income_quarters) END AS income_growth_rate
FROM growth_streaks st
JOIN fin_steps fs ON fs.symbol = st.symbol`,
			Tail: "GROUP BY st.symbol, st.revenue_quarters, st.income_quarters",
		},
		CTE{
			Name: "fin_latest",
			Body: `SELECT symbol,
       MAX(net_income) FILTER (WHERE rn = 1) AS net_income_q1,
       MAX(net_income) FILTER (WHERE rn = 2) AS net_income_q2
FROM fin`,
			Where: []Predicate{{Name: "latest_two_quarters", SQL: "rn <= 2"}},
			Tail:  "GROUP BY symbol",
		},
		CTE{
			Name: "ratios_d",
			Body: `SELECT DISTINCT ON (r.symbol) r.symbol, r.pe, r.peg, r.ps, r.pb
FROM ratios_daily r
JOIN base b ON b.symbol = r.symbol`,
			Tail: "ORDER BY r.symbol, r.date DESC",
		},
		CTE{
			Name: "ratios_q",
			Body: `SELECT DISTINCT ON (r.symbol) r.symbol, r.pe, r.peg, r.ps, r.pb
FROM ratios_quarterly r
JOIN base b ON b.symbol = r.symbol`,
			Tail: "ORDER BY r.symbol, r.period_end_date DESC",
		},
	)
}

// 6. 돌파 시그널: 최근 lookbackDays 안의 플래그
func (c *Composer) breakouts(q *Query, f Filters) {
	q.CTEs = append(q.CTEs, CTE{
		Name: "breakouts",
		Body: `SELECT bs.symbol,
       BOOL_OR(bs.is_confirmed_breakout) AS confirmed,
       BOOL_OR(bs.is_perfect_retest) AS retest
FROM breakout_signals bs
JOIN base b ON b.symbol = bs.symbol`,
		Where: []Predicate{
			{Name: "breakout_window", SQL: "bs.date <= b.date AND bs.date > b.date - " + q.Bind(f.LookbackDays) + "::int"},
		},
		Tail: "GROUP BY bs.symbol",
	})
}

// 7. 최종 조건. 비율 조건은 연속 분기 조건과 함께일 때만 적용
func (c *Composer) fundamentalPredicates(q *Query, f Filters) {
	add := func(name, sql string) {
		q.Predicates = append(q.Predicates, Predicate{Name: name, SQL: sql})
	}

	if f.JustTurned {
		add("just_turned", "lm.last_misordered IS NOT NULL")
	}
	if f.RevenueGrowth {
		add("revenue_streak", "g.revenue_growth_quarters >= "+q.Bind(f.RevenueGrowthQuarters))
		if f.RevenueGrowthRate.Valid {
			add("revenue_rate", "g.revenue_growth_rate >= "+q.Bind(f.RevenueGrowthRate.Float64))
		}
	}
	if f.IncomeGrowth {
		add("income_streak", "g.income_growth_quarters >= "+q.Bind(f.IncomeGrowthQuarters))
		if f.IncomeGrowthRate.Valid {
			add("income_rate", "g.income_growth_rate >= "+q.Bind(f.IncomeGrowthRate.Float64))
		}
	}
	switch f.Profitability {
	case ProfitabilityProfitable:
		add("profitable", "fl.net_income_q1 > 0")
	case ProfitabilityUnprofitable:
		add("unprofitable", "fl.net_income_q1 <= 0")
	}
	if f.TurnAround {
		add("turn_around", "fl.net_income_q1 > 0 AND fl.net_income_q2 <= 0")
	}
	if f.PEGFilter {
		add("peg", pegExpr+" > 0 AND "+pegExpr+" < 1")
	}
}

func (c *Composer) signalPredicates(q *Query, f Filters) {
	add := func(name, sql string) {
		q.Predicates = append(q.Predicates, Predicate{Name: name, SQL: sql})
	}

	switch f.BreakoutStrategy {
	case BreakoutConfirmed:
		add("breakout_confirmed", "COALESCE(bo.confirmed, FALSE)")
	case BreakoutRetest:
		add("breakout_retest", "COALESCE(bo.retest, FALSE)")
	}

	if f.VolumeFilter {
		add("volume", "ns.avg_dollar_volume_20d >= "+q.Bind(c.thresholds.MinDollarVolume))
	}
	if f.VCPFilter {
		add("vcp", "COALESCE(ns.is_vcp, FALSE)")
	}
	if f.BodyFilter {
		add("body", "ns.body_ratio >= "+q.Bind(c.thresholds.MinBodyRatio))
	}
	if f.MAConvergenceFilter {
		add("ma_convergence", "ABS(ns.ma20_ma50_distance_percent) <= "+q.Bind(c.thresholds.MaxMADistancePct))
	}
}
