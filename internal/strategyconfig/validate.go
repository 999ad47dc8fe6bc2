package strategyconfig

import (
	"fmt"
	"math"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Moving average ===
	if cfg.MovingAverage.MinBars < 200 {
		return ValidationError{"moving_average.min_bars", "must be >= 200 (ma200 needs 200 bars)"}
	}
	if cfg.MovingAverage.WindowBars < cfg.MovingAverage.MinBars {
		return ValidationError{"moving_average.window_bars", "must be >= min_bars"}
	}

	// === Relative strength ===
	lb := cfg.RelativeStrength.LookbackDays
	if lb.Short <= 0 || lb.Mid <= lb.Short || lb.Long <= lb.Mid {
		return ValidationError{"relative_strength.lookback_days", "must satisfy 0 < short < mid < long"}
	}
	w := cfg.RelativeStrength.Weights
	if w.Long < 0 || w.Mid < 0 || w.Short < 0 {
		return ValidationError{"relative_strength.weights", "must be >= 0"}
	}
	if math.Abs(w.Sum()-1.0) > 1e-6 {
		return ValidationError{"relative_strength.weights", fmt.Sprintf("must sum to 1.00, got %.4f", w.Sum())}
	}

	// === Breakout ===
	b := cfg.Breakout
	if b.LookbackBars < 2 {
		return ValidationError{"breakout.lookback_bars", "must be >= 2"}
	}
	if b.VolumeMultiple <= 0 {
		return ValidationError{"breakout.volume_multiple", "must be > 0"}
	}
	if err := validatePctRange(b.UpperWickMaxPct, "breakout.upper_wick_max_pct"); err != nil {
		return err
	}
	if b.RetestMinDaysAgo < 1 || b.RetestMaxDaysAgo < b.RetestMinDaysAgo {
		return ValidationError{"breakout.retest_days_ago", "must satisfy 1 <= min <= max"}
	}
	if b.MA20BandLowPct > b.MA20BandHighPct {
		return ValidationError{"breakout.ma20_band", "low must be <= high"}
	}
	if b.LowerWickBodyRatio < 0 {
		return ValidationError{"breakout.lower_wick_body_ratio", "must be >= 0"}
	}

	// === Noise ===
	n := cfg.Noise
	if n.LiquidityBars < 1 || n.ATRPeriod < 1 || n.BBPeriod < 2 {
		return ValidationError{"noise", "liquidity_bars, atr_period must be >= 1 and bb_period >= 2"}
	}
	if n.BBStdDevs <= 0 {
		return ValidationError{"noise.bb_std_devs", "must be > 0"}
	}
	if n.BBAvgSkipBars < 0 || n.BBAvgLookbackBars <= n.BBAvgSkipBars {
		return ValidationError{"noise.bb_avg", "must satisfy 0 <= skip_bars < lookback_bars"}
	}
	if err := validatePctRange(n.VCPMaxATRPct, "noise.vcp_max_atr_pct"); err != nil {
		return err
	}
	if n.VCPWidthRatio <= 0 {
		return ValidationError{"noise.vcp_width_ratio", "must be > 0"}
	}

	// === Screener ===
	s := cfg.Screener
	if s.DefaultLookbackDays < 1 || s.DefaultLookbackDays > 60 {
		return ValidationError{"screener.default_lookback_days", "must be in [1, 60]"}
	}
	if s.DefaultGrowthQuarters < 2 || s.DefaultGrowthQuarters > 8 {
		return ValidationError{"screener.default_growth_quarters", "must be in [2, 8]"}
	}
	if s.MinDollarVolume < 0 || s.MinBodyRatio < 0 || s.MaxMADistancePct < 0 {
		return ValidationError{"screener", "noise thresholds must be >= 0"}
	}
	if s.DefaultLimit < 1 || s.MaxLimit < s.DefaultLimit {
		return ValidationError{"screener.limit", "must satisfy 1 <= default_limit <= max_limit"}
	}
	if s.CacheTTLSeconds < 0 {
		return ValidationError{"screener.cache_ttl_seconds", "must be >= 0"}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Breakout.VolumeMultiple < 1.5 {
		warnings = append(warnings, Warning{
			Code:    "LOW_VOLUME_MULTIPLE",
			Message: "breakout volume multiple < 1.5: weak confirmation",
		})
	}

	if cfg.Noise.VCPMaxATRPct > 0.1 {
		warnings = append(warnings, Warning{
			Code:    "LOOSE_VCP",
			Message: "vcp max ATR% > 10%: most symbols will qualify",
		})
	}

	if cfg.Screener.MinDollarVolume < 1_000_000 {
		warnings = append(warnings, Warning{
			Code:    "LOW_LIQUIDITY",
			Message: "min dollar volume < $1M: fill/slippage risk",
		})
	}

	return warnings
}

// validatePctRange는 퍼센트 값이 0~1 범위인지 검증
func validatePctRange(pct float64, field string) error {
	if pct < 0 || pct > 1 {
		return ValidationError{field, "must be in range [0, 1]"}
	}
	return nil
}
