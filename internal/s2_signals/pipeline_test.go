package s2_signals

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/contracts/contractstest"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/workerpool"
)

type stubBuilder struct {
	name  string
	err   error
	calls *[]string
}

func (s stubBuilder) Name() string { return s.name }

func (s stubBuilder) Build(ctx context.Context, req contracts.BuildRequest) (*contracts.BuildReport, error) {
	*s.calls = append(*s.calls, s.name)
	if s.err != nil {
		return nil, s.err
	}
	return &contracts.BuildReport{Builder: s.name}, nil
}

func TestPipeline_ContinuesAfterFailure(t *testing.T) {
	var calls []string
	boom := errors.New("boom")

	p := NewPipeline(nil,
		stubBuilder{name: "a", calls: &calls},
		stubBuilder{name: "b", err: boom, calls: &calls},
		stubBuilder{name: "c", calls: &calls},
	)

	reports, err := p.Run(context.Background(), contracts.BuildRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "b: boom")
	assert.Equal(t, []string{"a", "b", "c"}, calls)
	assert.Len(t, reports, 2)
}

func TestPipeline_StopsOnCancel(t *testing.T) {
	var calls []string
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(nil, stubBuilder{name: "a", calls: &calls})
	_, err := p.Run(ctx, contracts.BuildRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, calls)
}

func newTestBuilders(bars *contractstest.Bars) (*Builders, *contractstest.MovingAverages, *contractstest.Noise) {
	mas := contractstest.NewMovingAverages()
	noise := contractstest.NewNoise()
	b := NewBuilders(Deps{
		Bars:           bars,
		Ranks:          bars,
		MovingAverages: mas,
		Breakouts:      contractstest.NewBreakouts(),
		Noise:          noise,
	}, strategyconfig.Default(), workerpool.Config{Workers: 2}, nil)
	return b, mas, noise
}

func TestBuilders_ByName(t *testing.T) {
	b, _, _ := newTestBuilders(contractstest.NewBars())

	names := make([]string, 0, 4)
	for _, sb := range b.All() {
		names = append(names, sb.Name())
	}
	assert.Equal(t, []string{"moving_average", "relative_strength", "breakout", "noise"}, names)

	sb, ok := b.ByName("noise")
	require.True(t, ok)
	assert.Same(t, b.Noise, sb)

	_, ok = b.ByName("momentum")
	assert.False(t, ok)
}

func TestPipeline_EndToEnd(t *testing.T) {
	bars := contractstest.NewBars(contractstest.Closes("AAPL", testEnd, ramp(230), 5000)...)
	b, mas, noise := newTestBuilders(bars)

	reports, err := NewPipeline(nil, b.All()...).Run(context.Background(), contracts.BuildRequest{})
	require.NoError(t, err)
	require.Len(t, reports, 4)

	key := contracts.NewKey("AAPL", testEnd)
	_, ok := mas.Rows[key]
	assert.True(t, ok)

	// noise reads the MA row written earlier in the same run
	sig, ok := noise.Rows[key]
	require.True(t, ok)
	assert.True(t, sig.MA20MA50DistancePercent.Valid)
}

func TestResolveDates(t *testing.T) {
	ctx := context.Background()
	bars := contractstest.NewBars(contractstest.Flat("AAPL", testEnd, 10, 10, 100)...)
	week := contractstest.Weekdays(testEnd, 5)

	tests := []struct {
		name    string
		req     contracts.BuildRequest
		want    []time.Time
		wantErr bool
	}{
		{"incremental uses latest date", contracts.BuildRequest{Mode: contracts.ModeIncremental}, []time.Time{testEnd}, false},
		{"empty mode is incremental", contracts.BuildRequest{}, []time.Time{testEnd}, false},
		{"as-of overrides latest", contracts.BuildRequest{AsOf: week[2].Add(15 * time.Hour)}, []time.Time{week[2]}, false},
		{"backfill of one day", contracts.BuildRequest{Mode: contracts.ModeBackfill, BackfillDays: 1}, []time.Time{testEnd}, false},
		{"backfill spans weekend", contracts.BuildRequest{Mode: contracts.ModeBackfill, BackfillDays: 7}, week, false},
		{"backfill window starts days-1 back", contracts.BuildRequest{Mode: contracts.ModeBackfill, BackfillDays: 5}, week, false},
		{"backfill window excludes day n", contracts.BuildRequest{Mode: contracts.ModeBackfill, BackfillDays: 4}, week[1:], false},
		{"backfill needs days", contracts.BuildRequest{Mode: contracts.ModeBackfill}, nil, true},
		{"unknown mode", contracts.BuildRequest{Mode: "replay"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveDates(ctx, bars, tt.req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDates_EmptyStore(t *testing.T) {
	_, err := resolveDates(context.Background(), contractstest.NewBars(), contracts.BuildRequest{})
	assert.ErrorIs(t, err, contracts.ErrNotFound)
}
