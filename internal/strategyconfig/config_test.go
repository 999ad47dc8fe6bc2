package strategyconfig

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	// 테스트용 YAML 경로
	path := "../../configs/strategy/trendscan_default.yaml"

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, yamlData, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, yamlData)
	assert.Equal(t, "trendscan_default", cfg.Meta.StrategyID)

	// 파일과 기본값이 동일해야 함
	fileHash, err := Hash(cfg)
	require.NoError(t, err)
	defaultHash, err := Hash(Default())
	require.NoError(t, err)
	assert.Equal(t, defaultHash, fileHash)
	assert.Len(t, fileHash, 64)
}

func TestParse_PartialOverride(t *testing.T) {
	cfg, err := Parse([]byte(`
breakout:
  retest_max_days_ago: 12
  volume_multiple: 2.5
`))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.Breakout.RetestMaxDaysAgo)
	assert.Equal(t, 2.5, cfg.Breakout.VolumeMultiple)
	// untouched keys keep defaults
	assert.Equal(t, 3, cfg.Breakout.RetestMinDaysAgo)
	assert.Equal(t, 220, cfg.MovingAverage.WindowBars)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte(`
breakout:
  volume_multipel: 2.5
`))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"min bars below 200", func(c *Config) { c.MovingAverage.MinBars = 150 }, "moving_average.min_bars"},
		{"window smaller than min", func(c *Config) { c.MovingAverage.WindowBars = 210; c.MovingAverage.MinBars = 215 }, "moving_average.window_bars"},
		{"weights do not sum to 1", func(c *Config) { c.RelativeStrength.Weights.Short = 0.6 }, "relative_strength.weights"},
		{"lookbacks unordered", func(c *Config) { c.RelativeStrength.LookbackDays.Mid = 300 }, "relative_strength.lookback_days"},
		{"retest window inverted", func(c *Config) { c.Breakout.RetestMinDaysAgo = 11 }, "breakout.retest_days_ago"},
		{"band inverted", func(c *Config) { c.Breakout.MA20BandLowPct = 6 }, "breakout.ma20_band"},
		{"wick pct out of range", func(c *Config) { c.Breakout.UpperWickMaxPct = 1.5 }, "breakout.upper_wick_max_pct"},
		{"bb avg window inverted", func(c *Config) { c.Noise.BBAvgSkipBars = 60 }, "noise.bb_avg"},
		{"lookback days too large", func(c *Config) { c.Screener.DefaultLookbackDays = 61 }, "screener.default_lookback_days"},
		{"growth quarters too small", func(c *Config) { c.Screener.DefaultGrowthQuarters = 1 }, "screener.default_growth_quarters"},
	}

	require.NoError(t, Validate(Default()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var vErr ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
		})
	}
}

func TestHash_ChangesWithThresholds(t *testing.T) {
	a, err := Hash(Default())
	require.NoError(t, err)

	cfg := Default()
	cfg.Noise.VCPWidthRatio = 0.75
	b, err := Hash(cfg)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBarsNeeded(t *testing.T) {
	cfg := Default()
	assert.GreaterOrEqual(t, cfg.Noise.BarsNeeded(), 80)
	assert.Equal(t, 31, cfg.Breakout.BarsNeeded())
}

func TestWarn(t *testing.T) {
	assert.Empty(t, Warn(Default()))

	cfg := Default()
	cfg.Breakout.VolumeMultiple = 1.2
	warnings := Warn(cfg)
	require.Len(t, warnings, 1)
	assert.Equal(t, "LOW_VOLUME_MULTIPLE", warnings[0].Code)
}

func TestLoadOrDefault(t *testing.T) {
	cfg, err := LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOrDefault("does-not-exist.yaml")
	assert.Error(t, err)
}
