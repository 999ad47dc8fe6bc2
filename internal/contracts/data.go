package contracts

import (
	"errors"
	"fmt"
	"time"

	"github.com/guregu/null/v6"
)

// ErrNotFound is returned by repositories when the requested row does not exist
var ErrNotFound = errors.New("not found")

// DateLayout is the canonical trading-date format
const DateLayout = "2006-01-02"

// Key identifies a per-symbol, per-day row in every derived table
type Key struct {
	Symbol string
	Date   time.Time
}

// NewKey normalizes the date to a UTC calendar day
func NewKey(symbol string, date time.Time) Key {
	return Key{Symbol: symbol, Date: TradingDay(date)}
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Symbol, k.Date.Format(DateLayout))
}

// TradingDay truncates t to midnight UTC of its calendar date
func TradingDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DailyBar is one end-of-day OHLCV record.
// ⭐ SSOT: 모든 파생 시그널의 원천 데이터
type DailyBar struct {
	Symbol   string    `json:"symbol"`
	Date     time.Time `json:"date"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
	AdjClose float64   `json:"adj_close"`
	Volume   int64     `json:"volume"`
	RSScore  null.Int  `json:"rs_score"`
}

// Key returns the bar's (symbol, date) key
func (b DailyBar) Key() Key {
	return NewKey(b.Symbol, b.Date)
}

// Clean reports whether the bar can feed a detector (no zero or inverted prices)
func (b DailyBar) Clean() bool {
	return b.Open > 0 && b.High > 0 && b.Low > 0 && b.Close > 0 && b.High >= b.Low && b.Volume > 0
}

// SymbolMeta is reference data for one listed symbol
type SymbolMeta struct {
	Symbol            string      `json:"symbol"`
	CompanyName       string      `json:"company_name"`
	Sector            null.String `json:"sector"`
	Industry          null.String `json:"industry"`
	MarketCap         null.Float  `json:"market_cap"`
	Exchange          string      `json:"exchange"`
	IsETF             bool        `json:"is_etf"`
	IsActivelyTrading bool        `json:"is_actively_trading"`
	AvgVolume         null.Float  `json:"avg_volume"`
	Price             null.Float  `json:"price"`
}

// QuarterlyFinancial is one reported quarter
type QuarterlyFinancial struct {
	Symbol        string     `json:"symbol"`
	PeriodEndDate time.Time  `json:"period_end_date"`
	Revenue       null.Float `json:"revenue"`
	NetIncome     null.Float `json:"net_income"`
	EPSDiluted    null.Float `json:"eps_diluted"`
}

// ValuationRatios holds price multiples. Date is the trading day for the
// daily TTM source and the period end for the quarterly source.
type ValuationRatios struct {
	Symbol string     `json:"symbol"`
	Date   time.Time  `json:"date"`
	PE     null.Float `json:"pe"`
	PEG    null.Float `json:"peg"`
	PS     null.Float `json:"ps"`
	PB     null.Float `json:"pb"`
}

// Empty reports whether no ratio is present
func (r ValuationRatios) Empty() bool {
	return !r.PE.Valid && !r.PEG.Valid && !r.PS.Valid && !r.PB.Valid
}
