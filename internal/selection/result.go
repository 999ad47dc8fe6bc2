package selection

import (
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/contracts"
)

// Profitability classes reported per symbol
const (
	ClassProfitable   = "profitable"
	ClassUnprofitable = "unprofitable"
	ClassUnknown      = "unknown"
)

// Result is one screener row
type Result struct {
	Symbol      string      `json:"symbol"`
	CompanyName string      `json:"companyName"`
	Date        time.Time   `json:"date"`
	Close       float64     `json:"close"`
	MarketCap   null.Float  `json:"marketCap"`
	Sector      null.String `json:"sector"`
	RSScore     null.Int    `json:"rsScore"`

	PE  null.Float `json:"pe"`
	PEG null.Float `json:"peg"`
	PS  null.Float `json:"ps"`
	PB  null.Float `json:"pb"`

	RevenueGrowthQuarters null.Int   `json:"revenueGrowthQuarters"`
	IncomeGrowthQuarters  null.Int   `json:"incomeGrowthQuarters"`
	RevenueGrowthRate     null.Float `json:"revenueGrowthRate"`
	IncomeGrowthRate      null.Float `json:"incomeGrowthRate"`
	LatestNetIncome       null.Float `json:"-"`
	Profitability         string     `json:"profitability"`

	Ordered    bool                           `json:"ordered"`
	Financials []contracts.QuarterlyFinancial `json:"financials"`
}

// Response is the screener output
type Response struct {
	Count   int      `json:"count"`
	Results []Result `json:"results"`
	Cached  bool     `json:"cached"`
}

// Classify sets Profitability from the latest quarter's net income
func (r *Result) Classify() {
	switch {
	case !r.LatestNetIncome.Valid:
		r.Profitability = ClassUnknown
	case r.LatestNetIncome.Float64 > 0:
		r.Profitability = ClassProfitable
	default:
		r.Profitability = ClassUnprofitable
	}
}

// attachFinancials joins each result with its quarterly series, newest first
func attachFinancials(results []Result, series map[string][]contracts.QuarterlyFinancial) {
	for i := range results {
		results[i].Classify()
		fin := series[results[i].Symbol]
		if fin == nil {
			fin = []contracts.QuarterlyFinancial{}
		}
		results[i].Financials = fin
	}
}

func symbolsOf(results []Result) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Symbol
	}
	return out
}
