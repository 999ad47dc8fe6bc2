package contracts

import (
	"time"

	"github.com/guregu/null/v6"
)

// MovingAverageRow is the derived MA state for one (symbol, date)
type MovingAverageRow struct {
	Symbol  string     `json:"symbol"`
	Date    time.Time  `json:"date"`
	MA20    null.Float `json:"ma20"`
	MA50    null.Float `json:"ma50"`
	MA100   null.Float `json:"ma100"`
	MA200   null.Float `json:"ma200"`
	VolMA30 null.Float `json:"vol_ma30"`
}

// Ordered reports full trend ordering: MA20 > MA50 > MA100 > MA200
func (m MovingAverageRow) Ordered() bool {
	if !m.MA20.Valid || !m.MA50.Valid || !m.MA100.Valid || !m.MA200.Valid {
		return false
	}
	return m.MA20.Float64 > m.MA50.Float64 &&
		m.MA50.Float64 > m.MA100.Float64 &&
		m.MA100.Float64 > m.MA200.Float64
}

// GoldenCross reports MA50 > MA200
func (m MovingAverageRow) GoldenCross() bool {
	return m.MA50.Valid && m.MA200.Valid && m.MA50.Float64 > m.MA200.Float64
}

// GoldenCrossAdjacent flags the MA50 > MA200 but MA20 < MA50 anomaly
func (m MovingAverageRow) GoldenCrossAdjacent() bool {
	return m.GoldenCross() && m.MA20.Valid && m.MA20.Float64 < m.MA50.Float64
}

// BreakoutSignal is written only when at least one flag is true
type BreakoutSignal struct {
	Symbol              string     `json:"symbol"`
	Date                time.Time  `json:"date"`
	IsConfirmedBreakout bool       `json:"is_confirmed_breakout"`
	BreakoutPercent     null.Float `json:"breakout_percent"`
	VolumeRatio         null.Float `json:"volume_ratio"`
	IsPerfectRetest     bool       `json:"is_perfect_retest"`
	MA20DistancePercent null.Float `json:"ma20_distance_percent"`
}

// HasSignal reports whether either detector fired
func (s BreakoutSignal) HasSignal() bool {
	return s.IsConfirmedBreakout || s.IsPerfectRetest
}

// NoiseSignal holds the four independent noise metrics.
// Any metric may be null when its inputs were unavailable.
type NoiseSignal struct {
	Symbol                  string     `json:"symbol"`
	Date                    time.Time  `json:"date"`
	AvgDollarVolume20d      null.Float `json:"avg_dollar_volume_20d"`
	AvgVolume20d            null.Float `json:"avg_volume_20d"`
	ATR14                   null.Float `json:"atr14"`
	ATR14Percent            null.Float `json:"atr14_percent"`
	BBWidthCurrent          null.Float `json:"bb_width_current"`
	BBWidthAvg60d           null.Float `json:"bb_width_avg_60d"`
	IsVCP                   null.Bool  `json:"is_vcp"`
	BodyRatio               null.Float `json:"body_ratio"`
	MA20MA50DistancePercent null.Float `json:"ma20_ma50_distance_percent"`
}

// HasAnyMetric reports whether at least one metric was computed
func (n NoiseSignal) HasAnyMetric() bool {
	return n.AvgDollarVolume20d.Valid || n.ATR14.Valid || n.BBWidthCurrent.Valid ||
		n.BodyRatio.Valid || n.MA20MA50DistancePercent.Valid
}

// Lookbacks are the calendar-day offsets for the 12/6/3-month horizons
type Lookbacks struct {
	Long  int `json:"long" yaml:"long"`
	Mid   int `json:"mid" yaml:"mid"`
	Short int `json:"short" yaml:"short"`
}

// HorizonRanks holds per-horizon percentile ranks (0..1) for one symbol.
// A horizon without a valid lag price is null.
type HorizonRanks struct {
	Symbol string
	PR12   null.Float
	PR6    null.Float
	PR3    null.Float
}

// RSScore is the composite relative-strength score for one symbol
type RSScore struct {
	Symbol string
	Score  null.Int
}
