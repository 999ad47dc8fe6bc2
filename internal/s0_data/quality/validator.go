// Package quality validates provider records before they are stored.
// Errors reject a single record; warnings are logged and the record is kept.
package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/trendscan/internal/contracts"
)

// RecordError rejects one record without aborting the batch
type RecordError struct {
	Symbol string
	Date   string
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("invalid record %s@%s: %s", e.Symbol, e.Date, e.Reason)
}

// Warning is a plausibility issue that does not block the write
type Warning struct {
	Symbol  string
	Code    string
	Message string
}

func (w Warning) String() string {
	return fmt.Sprintf("%s %s: %s", w.Symbol, w.Code, w.Message)
}

// Report summarizes one validated batch
type Report struct {
	Total    int
	Accepted int
	Rejected []*RecordError
}

// ParseDate parses a provider date, rejecting anything that is not YYYY-MM-DD
func ParseDate(symbol, raw string) (time.Time, error) {
	d, err := time.Parse(contracts.DateLayout, raw)
	if err != nil {
		return time.Time{}, &RecordError{Symbol: symbol, Date: raw, Reason: "unparseable date"}
	}
	return d, nil
}

// ValidateBar checks OHLCV consistency
// ⭐ SSOT: 가격 레코드 검증 규칙은 여기서만
func ValidateBar(b contracts.DailyBar) error {
	reject := func(reason string) error {
		return &RecordError{Symbol: b.Symbol, Date: b.Date.Format(contracts.DateLayout), Reason: reason}
	}

	if b.Symbol == "" {
		return reject("missing symbol")
	}
	if b.Date.IsZero() {
		return reject("missing date")
	}
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.AdjClose} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return reject("non-finite price")
		}
		if v < 0 {
			return reject("negative price")
		}
	}
	if b.Volume < 0 {
		return reject("negative volume")
	}
	if b.High < b.Low {
		return reject("high < low")
	}
	if b.Open > b.High || b.Open < b.Low || b.Close > b.High || b.Close < b.Low {
		return reject("open/close outside high-low range")
	}
	return nil
}

// FilterBars keeps valid bars and collects the rejected ones
func FilterBars(bars []contracts.DailyBar) ([]contracts.DailyBar, Report) {
	report := Report{Total: len(bars)}
	valid := make([]contracts.DailyBar, 0, len(bars))

	for _, b := range bars {
		if err := ValidateBar(b); err != nil {
			report.Rejected = append(report.Rejected, err.(*RecordError))
			continue
		}
		valid = append(valid, b)
	}
	report.Accepted = len(valid)
	return valid, report
}

// Ratio plausibility bounds
const (
	maxPlausiblePE  = 1000
	maxPlausiblePEG = 100
	maxPlausiblePS  = 500
	maxPlausiblePB  = 500
)

// CheckRatios flags implausible valuation ratios
func CheckRatios(r contracts.ValuationRatios) []Warning {
	var warnings []Warning

	check := func(name string, v float64, valid bool, limit float64) {
		if !valid {
			return
		}
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
			warnings = append(warnings, Warning{
				Symbol:  r.Symbol,
				Code:    "IMPLAUSIBLE_" + name,
				Message: fmt.Sprintf("%s=%.2f outside ±%.0f", name, v, limit),
			})
		}
	}

	check("PE", r.PE.Float64, r.PE.Valid, maxPlausiblePE)
	check("PEG", r.PEG.Float64, r.PEG.Valid, maxPlausiblePEG)
	check("PS", r.PS.Float64, r.PS.Valid, maxPlausiblePS)
	check("PB", r.PB.Float64, r.PB.Valid, maxPlausiblePB)

	return warnings
}

// CheckMovingAverages flags the golden-cross-adjacent anomaly (MA50 > MA200, MA20 < MA50)
func CheckMovingAverages(row contracts.MovingAverageRow) []Warning {
	if !row.GoldenCrossAdjacent() {
		return nil
	}
	return []Warning{{
		Symbol:  row.Symbol,
		Code:    "GOLDEN_CROSS_ADJACENT",
		Message: fmt.Sprintf("ma50=%.4f > ma200=%.4f but ma20=%.4f < ma50", row.MA50.Float64, row.MA200.Float64, row.MA20.Float64),
	}}
}
