// Package indicators holds pure technical-analysis functions over ordered
// series (oldest first). Positions without enough data are NaN.
// ⭐ SSOT: 지표 계산은 이 패키지에서만
package indicators

import "math"

// Defined reports whether v holds a computed value
func Defined(v float64) bool {
	return !math.IsNaN(v)
}

func undefined(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// SMA returns the trailing arithmetic mean over period values.
// Indices below period-1 are NaN.
func SMA(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 || len(values) < period {
		return out
	}

	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA seeds with the SMA of the first period values, then applies
// ema = (x - prev) * 2/(period+1) + prev. Leading NaN inputs are skipped,
// so EMA can be chained on another indicator's output.
func EMA(values []float64, period int) []float64 {
	out := undefined(len(values))
	if period <= 0 {
		return out
	}

	start := 0
	for start < len(values) && !Defined(values[start]) {
		start++
	}
	seedIdx := start + period - 1
	if seedIdx >= len(values) {
		return out
	}

	var sum float64
	for _, v := range values[start : seedIdx+1] {
		sum += v
	}
	ema := sum / float64(period)
	out[seedIdx] = ema

	k := 2.0 / (float64(period) + 1.0)
	for i := seedIdx + 1; i < len(values); i++ {
		ema = (values[i]-ema)*k + ema
		out[i] = ema
	}
	return out
}

// Mean is the arithmetic mean of values, NaN when empty
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Highest is the maximum of values, NaN when empty
func Highest(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	hi := values[0]
	for _, v := range values[1:] {
		if v > hi {
			hi = v
		}
	}
	return hi
}
