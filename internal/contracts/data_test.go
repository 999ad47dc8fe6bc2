package contracts

import (
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
)

func TestNewKey_NormalizesDate(t *testing.T) {
	ny, _ := time.LoadLocation("America/New_York")
	k := NewKey("AAPL", time.Date(2024, 3, 15, 16, 30, 0, 0, ny))

	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), k.Date)
	assert.Equal(t, "AAPL@2024-03-15", k.String())
}

func TestDailyBar_Clean(t *testing.T) {
	tests := []struct {
		name string
		bar  DailyBar
		want bool
	}{
		{"normal", DailyBar{Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 100}, true},
		{"flat candle", DailyBar{Open: 10, High: 10, Low: 10, Close: 10, Volume: 100}, true},
		{"zero close", DailyBar{Open: 10, High: 11, Low: 9, Close: 0, Volume: 100}, false},
		{"inverted", DailyBar{Open: 10, High: 9, Low: 11, Close: 10, Volume: 100}, false},
		{"no volume", DailyBar{Open: 10, High: 11, Low: 9, Close: 10, Volume: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.bar.Clean())
		})
	}
}

func TestValuationRatios_Empty(t *testing.T) {
	assert.True(t, ValuationRatios{}.Empty())
	assert.False(t, ValuationRatios{PEG: null.FloatFrom(0.8)}.Empty())
}

func TestUniverse(t *testing.T) {
	u := &Universe{
		Symbols:  []string{"AAPL", "MSFT"},
		Excluded: map[string]string{"SPY": "etf"},
	}

	assert.True(t, u.Contains("AAPL"))
	assert.False(t, u.Contains("SPY"))
	assert.Equal(t, 2, u.Count())

	excluded, reason := u.IsExcluded("SPY")
	assert.True(t, excluded)
	assert.Equal(t, "etf", reason)
}

func TestBuildReport_Merge(t *testing.T) {
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := d1.AddDate(0, 0, 1)

	r := &BuildReport{Builder: "ma", Dates: []time.Time{d1}, Processed: 10, Written: 8, Skipped: 1, Failed: 1}
	r.Merge(&BuildReport{Dates: []time.Time{d2}, Processed: 5, Written: 5, Warnings: 2})

	assert.Equal(t, []time.Time{d1, d2}, r.Dates)
	assert.Equal(t, 15, r.Processed)
	assert.Equal(t, 13, r.Written)
	assert.Equal(t, 2, r.Warnings)
}

func TestIsCommonStockSymbol(t *testing.T) {
	tests := []struct {
		symbol string
		want   bool
	}{
		{"AAPL", true},
		{"F", true},
		{"GOOGL", true},
		{"BRK.B", false},
		{"BRK-B", false},
		{"ABCDEF", false},
		{"aapl", false},
		{"", false},
		{"SPAC1", false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCommonStockSymbol(tt.symbol))
		})
	}
}
