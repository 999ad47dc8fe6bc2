package indicators

import "math"

// TrueRange per Wilder: max(high-low, |high-prevClose|, |low-prevClose|).
// The first bar has no previous close and uses high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if len(highs) != n || len(lows) != n {
		return nil
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		tr := highs[i] - lows[i]
		if i > 0 {
			pc := closes[i-1]
			tr = math.Max(tr, math.Max(math.Abs(highs[i]-pc), math.Abs(lows[i]-pc)))
		}
		out[i] = tr
	}
	return out
}

// ATR is the simple mean of the last period true ranges.
// Every range used needs a previous close, so at least period+1 bars are required.
func ATR(highs, lows, closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return math.NaN()
	}
	tr := TrueRange(highs, lows, closes)
	if tr == nil {
		return math.NaN()
	}
	return Mean(tr[len(tr)-period:])
}

// StdDev is the trailing population standard deviation
func StdDev(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	means := SMA(values, period)
	for i := period - 1; i < len(values); i++ {
		var ss float64
		for _, v := range values[i-period+1 : i+1] {
			d := v - means[i]
			ss += d * d
		}
		out[i] = math.Sqrt(ss / float64(period))
	}
	return out
}

// BollingerWidth is (upper-lower)/middle = 2*k*stddev/sma.
// With k=1 this is (2*stddev)/sma.
func BollingerWidth(closes []float64, period int, k float64) []float64 {
	out := undefined(len(closes))
	sma := SMA(closes, period)
	std := StdDev(closes, period)
	for i := range closes {
		if Defined(sma[i]) && Defined(std[i]) && sma[i] != 0 {
			out[i] = 2 * k * std[i] / sma[i]
		}
	}
	return out
}
