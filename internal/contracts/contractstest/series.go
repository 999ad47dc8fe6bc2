package contractstest

import (
	"time"

	"github.com/wonny/trendscan/internal/contracts"
)

// Weekdays returns n consecutive weekdays ending on end (inclusive), ascending
func Weekdays(end time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	d := contracts.TradingDay(end)
	for i := n - 1; i >= 0; {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out[i] = d
			i--
		}
		d = d.AddDate(0, 0, -1)
	}
	return out
}

// Flat builds n bars ending on end where every bar opens and closes at price
// with a 1% range and constant volume
func Flat(symbol string, end time.Time, n int, price float64, volume int64) []contracts.DailyBar {
	dates := Weekdays(end, n)
	bars := make([]contracts.DailyBar, n)
	for i, d := range dates {
		bars[i] = contracts.DailyBar{
			Symbol:   symbol,
			Date:     d,
			Open:     price,
			High:     price * 1.005,
			Low:      price * 0.995,
			Close:    price,
			AdjClose: price,
			Volume:   volume,
		}
	}
	return bars
}

// Closes builds one bar per close ending on end; open equals close
func Closes(symbol string, end time.Time, closes []float64, volume int64) []contracts.DailyBar {
	dates := Weekdays(end, len(closes))
	bars := make([]contracts.DailyBar, len(closes))
	for i, c := range closes {
		bars[i] = contracts.DailyBar{
			Symbol:   symbol,
			Date:     dates[i],
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			AdjClose: c,
			Volume:   volume,
		}
	}
	return bars
}
