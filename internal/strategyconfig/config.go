package strategyconfig

import "github.com/wonny/trendscan/internal/contracts"

// Config는 시그널 빌더와 스크리너의 튜닝 가능한 임계값 전체
// ⭐ SSOT: 하드코딩 임계값 대신 여기서만 정의
type Config struct {
	Meta             Meta             `yaml:"meta" json:"meta"`
	MovingAverage    MovingAverage    `yaml:"moving_average" json:"moving_average"`
	RelativeStrength RelativeStrength `yaml:"relative_strength" json:"relative_strength"`
	Breakout         Breakout         `yaml:"breakout" json:"breakout"`
	Noise            Noise            `yaml:"noise" json:"noise"`
	Screener         Screener         `yaml:"screener" json:"screener"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// MovingAverage S2: 이동평균 윈도우
type MovingAverage struct {
	WindowBars int `yaml:"window_bars" json:"window_bars"` // trailing bars loaded per date
	MinBars    int `yaml:"min_bars" json:"min_bars"`         // fewer bars -> no row
}

// RelativeStrength S2: 상대강도 호라이즌 및 가중치
type RelativeStrength struct {
	LookbackDays contracts.Lookbacks `yaml:"lookback_days" json:"lookback_days"`
	Weights      RSWeights           `yaml:"weights" json:"weights"`
}

// RSWeights blends the per-horizon percentile ranks
type RSWeights struct {
	Long  float64 `yaml:"long" json:"long"`
	Mid   float64 `yaml:"mid" json:"mid"`
	Short float64 `yaml:"short" json:"short"`
}

// Sum returns the total weight
func (w RSWeights) Sum() float64 {
	return w.Long + w.Mid + w.Short
}

// Breakout S2: 돌파/리테스트 판정 임계값
type Breakout struct {
	LookbackBars       int     `yaml:"lookback_bars" json:"lookback_bars"`
	VolumeMultiple     float64 `yaml:"volume_multiple" json:"volume_multiple"`
	UpperWickMaxPct    float64 `yaml:"upper_wick_max_pct" json:"upper_wick_max_pct"`
	RetestMinDaysAgo   int     `yaml:"retest_min_days_ago" json:"retest_min_days_ago"`
	RetestMaxDaysAgo   int     `yaml:"retest_max_days_ago" json:"retest_max_days_ago"`
	MA20BandLowPct     float64 `yaml:"ma20_band_low_pct" json:"ma20_band_low_pct"`
	MA20BandHighPct    float64 `yaml:"ma20_band_high_pct" json:"ma20_band_high_pct"`
	LowerWickBodyRatio float64 `yaml:"lower_wick_body_ratio" json:"lower_wick_body_ratio"`
}

// Noise S2: 노이즈 지표 파라미터
type Noise struct {
	LiquidityBars int     `yaml:"liquidity_bars" json:"liquidity_bars"`
	ATRPeriod     int     `yaml:"atr_period" json:"atr_period"`
	BBPeriod      int     `yaml:"bb_period" json:"bb_period"`
	BBStdDevs     float64 `yaml:"bb_std_devs" json:"bb_std_devs"`

	// The width average covers widths from BBAvgSkipBars to
	// BBAvgLookbackBars bars back, excluding the most recent window.
	BBAvgSkipBars     int `yaml:"bb_avg_skip_bars" json:"bb_avg_skip_bars"`
	BBAvgLookbackBars int `yaml:"bb_avg_lookback_bars" json:"bb_avg_lookback_bars"`

	VCPMaxATRPct  float64 `yaml:"vcp_max_atr_pct" json:"vcp_max_atr_pct"`
	VCPWidthRatio float64 `yaml:"vcp_width_ratio" json:"vcp_width_ratio"`
}

// Screener S3: 스크리너 필터 기본값 및 노이즈 필터 임계값
type Screener struct {
	DefaultLookbackDays   int     `yaml:"default_lookback_days" json:"default_lookback_days"`
	DefaultGrowthQuarters int     `yaml:"default_growth_quarters" json:"default_growth_quarters"`
	MinDollarVolume       float64 `yaml:"min_dollar_volume" json:"min_dollar_volume"`
	MinBodyRatio          float64 `yaml:"min_body_ratio" json:"min_body_ratio"`
	MaxMADistancePct      float64 `yaml:"max_ma_distance_pct" json:"max_ma_distance_pct"`
	DefaultLimit          int     `yaml:"default_limit" json:"default_limit"`
	MaxLimit              int     `yaml:"max_limit" json:"max_limit"`
	CacheTTLSeconds       int     `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
}

// Default returns the built-in thresholds
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "trendscan_default",
			Version:    "1",
		},
		MovingAverage: MovingAverage{
			WindowBars: 220,
			MinBars:    200,
		},
		RelativeStrength: RelativeStrength{
			LookbackDays: contracts.Lookbacks{Long: 252, Mid: 126, Short: 63},
			Weights:      RSWeights{Long: 0.20, Mid: 0.30, Short: 0.50},
		},
		Breakout: Breakout{
			LookbackBars:       20,
			VolumeMultiple:     2.0,
			UpperWickMaxPct:    0.2,
			RetestMinDaysAgo:   3,
			RetestMaxDaysAgo:   10,
			MA20BandLowPct:     -2,
			MA20BandHighPct:    5,
			LowerWickBodyRatio: 1.0,
		},
		Noise: Noise{
			LiquidityBars:     20,
			ATRPeriod:         14,
			BBPeriod:          20,
			BBStdDevs:         1.0,
			BBAvgSkipBars:     20,
			BBAvgLookbackBars: 60,
			VCPMaxATRPct:      0.05,
			VCPWidthRatio:     0.8,
		},
		Screener: Screener{
			DefaultLookbackDays:   5,
			DefaultGrowthQuarters: 3,
			MinDollarVolume:       20_000_000,
			MinBodyRatio:          0.5,
			MaxMADistancePct:      3,
			DefaultLimit:          100,
			MaxLimit:              500,
			CacheTTLSeconds:       600,
		},
	}
}

// BarsNeeded is how many trailing bars the noise builder must load
func (n Noise) BarsNeeded() int {
	// widths reach BBAvgLookbackBars back, each needing BBPeriod closes
	need := n.BBAvgLookbackBars + n.BBPeriod + 1
	if n.ATRPeriod+1 > need {
		need = n.ATRPeriod + 1
	}
	if n.LiquidityBars > need {
		need = n.LiquidityBars
	}
	return need
}

// BarsNeeded is how many trailing bars the breakout builder must load
func (b Breakout) BarsNeeded() int {
	// the oldest retest candidate needs its own LookbackBars of history
	return b.RetestMaxDaysAgo + b.LookbackBars + 1
}
