package s2_signals

import (
	"context"
	"fmt"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/indicators"
	"github.com/wonny/trendscan/pkg/logger"
)

// technicalWindow leaves the MACD signal line ~85 bars to settle
const technicalWindow = 120

// TechnicalReading is the oscillator snapshot of one symbol on its last bar
type TechnicalReading struct {
	Symbol        string     `json:"symbol"`
	Date          time.Time  `json:"date"`
	Close         float64    `json:"close"`
	EMA20         null.Float `json:"ema20"`
	RSI14         null.Float `json:"rsi14"`
	MACD          null.Float `json:"macd"`
	MACDSignal    null.Float `json:"macdSignal"`
	MACDHistogram null.Float `json:"macdHistogram"`
}

// TechnicalCalculator reads RSI/MACD/EMA off stored bars. Nothing is persisted.
// ⭐ SSOT: 기술적 지표 조회는 여기서만
type TechnicalCalculator struct {
	bars   contracts.BarRepository
	logger *logger.Logger
}

// NewTechnicalCalculator creates a new technical calculator
func NewTechnicalCalculator(bars contracts.BarRepository, log *logger.Logger) *TechnicalCalculator {
	if log == nil {
		log = logger.Nop()
	}
	return &TechnicalCalculator{
		bars:   bars,
		logger: log.WithModule("technical"),
	}
}

// Calculate returns the reading on the last bar at or before asOf.
// A zero asOf means the latest trading date. ErrNotFound when the symbol has no bars.
func (c *TechnicalCalculator) Calculate(ctx context.Context, symbol string, asOf time.Time) (TechnicalReading, error) {
	date, err := anchorDate(ctx, c.bars, contracts.BuildRequest{AsOf: asOf})
	if err != nil {
		return TechnicalReading{}, err
	}

	bars, err := c.bars.TrailingBars(ctx, symbol, date, technicalWindow)
	if err != nil {
		return TechnicalReading{}, fmt.Errorf("load bars %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return TechnicalReading{}, fmt.Errorf("%s on %s: %w", symbol, formatDate(date), contracts.ErrNotFound)
	}

	r := ComputeTechnical(symbol, bars)
	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"date":   formatDate(r.Date),
		"rsi":    r.RSI14,
		"macd":   r.MACD,
	}).Debug("Calculated technical reading")
	return r, nil
}

// ComputeTechnical evaluates EMA20, RSI14 and MACD(12,26,9) on the last of
// ascending bars. Indicators without enough history stay null.
func ComputeTechnical(symbol string, bars []contracts.DailyBar) TechnicalReading {
	if len(bars) == 0 {
		return TechnicalReading{Symbol: symbol}
	}

	closes := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
	}
	last := bars[len(bars)-1]

	r := TechnicalReading{
		Symbol: symbol,
		Date:   contracts.TradingDay(last.Date),
		Close:  last.Close,
		EMA20:  lastValue(indicators.EMA(closes, 20)),
		RSI14:  lastValue(indicators.RSI(closes, indicators.DefaultRSIPeriod)),
	}

	if m := indicators.MACD(closes, indicators.DefaultMACDFast, indicators.DefaultMACDSlow, indicators.DefaultMACDSignal); m != nil {
		r.MACD = lastValue(m.MACD)
		r.MACDSignal = lastValue(m.Signal)
		r.MACDHistogram = lastValue(m.Histogram)
	}
	return r
}
