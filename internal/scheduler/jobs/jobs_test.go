package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s0_data/collector"
	"github.com/wonny/trendscan/internal/scheduler"
	"github.com/wonny/trendscan/pkg/redis"
)

var (
	_ scheduler.Job = (*UniverseJob)(nil)
	_ scheduler.Job = (*PriceCollectionJob)(nil)
	_ scheduler.Job = (*FundamentalsJob)(nil)
	_ scheduler.Job = (*SignalPipelineJob)(nil)
	_ scheduler.Job = (*CacheFlushJob)(nil)
)

type fakeCollector struct {
	symbols  []string
	all      bool
	days     int
	quarters int
	result   *collector.Result
	err      error
}

func (f *fakeCollector) FetchPrices(ctx context.Context, symbols []string, days int) (*collector.Result, error) {
	f.symbols, f.days = symbols, days
	return f.result, f.err
}

func (f *fakeCollector) FetchAllPrices(ctx context.Context, days int) (*collector.Result, error) {
	f.all, f.days = true, days
	return f.result, f.err
}

func (f *fakeCollector) FetchAllFundamentals(ctx context.Context, quarters int) (*collector.Result, error) {
	f.all, f.quarters = true, quarters
	return f.result, f.err
}

type fakeUniverse struct {
	u   *contracts.Universe
	err error
}

func (f *fakeUniverse) LatestUniverse(ctx context.Context) (*contracts.Universe, error) {
	return f.u, f.err
}

func (f *fakeUniverse) Refresh(ctx context.Context) (*contracts.Universe, error) {
	return f.u, f.err
}

func TestPriceCollectionJob(t *testing.T) {
	ok := &collector.Result{Symbols: 2, Succeeded: 2}

	t.Run("uses latest snapshot", func(t *testing.T) {
		c := &fakeCollector{result: ok}
		u := &fakeUniverse{u: &contracts.Universe{Symbols: []string{"AAPL", "MSFT"}}}

		require.NoError(t, NewPriceCollectionJob(c, u, 400, nil).Run(context.Background()))
		assert.Equal(t, []string{"AAPL", "MSFT"}, c.symbols)
		assert.False(t, c.all)
		assert.Equal(t, 400, c.days)
	})

	t.Run("no snapshot falls back to tradable symbols", func(t *testing.T) {
		c := &fakeCollector{result: ok}
		u := &fakeUniverse{err: contracts.ErrNotFound}

		require.NoError(t, NewPriceCollectionJob(c, u, 30, nil).Run(context.Background()))
		assert.True(t, c.all)
	})

	t.Run("snapshot load failure", func(t *testing.T) {
		c := &fakeCollector{result: ok}
		u := &fakeUniverse{err: errors.New("conn refused")}

		assert.Error(t, NewPriceCollectionJob(c, u, 30, nil).Run(context.Background()))
		assert.False(t, c.all)
	})

	t.Run("every symbol failed", func(t *testing.T) {
		c := &fakeCollector{result: &collector.Result{Symbols: 3, Failed: 3}}

		err := NewPriceCollectionJob(c, nil, 30, nil).Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all 3 symbols failed")
	})

	t.Run("partial failure passes", func(t *testing.T) {
		c := &fakeCollector{result: &collector.Result{Symbols: 3, Succeeded: 1, Failed: 2}}

		assert.NoError(t, NewPriceCollectionJob(c, nil, 30, nil).Run(context.Background()))
	})
}

func TestFundamentalsJob(t *testing.T) {
	c := &fakeCollector{result: &collector.Result{Symbols: 1, Succeeded: 1}}
	require.NoError(t, NewFundamentalsJob(c, 12, nil).Run(context.Background()))
	assert.Equal(t, 12, c.quarters)

	c = &fakeCollector{err: errors.New("quota")}
	assert.Error(t, NewFundamentalsJob(c, 12, nil).Run(context.Background()))
}

func TestUniverseJob(t *testing.T) {
	u := &fakeUniverse{u: &contracts.Universe{Symbols: []string{"AAPL"}, TotalCount: 3}}
	assert.NoError(t, NewUniverseJob(u, nil).Run(context.Background()))

	empty := &fakeUniverse{u: &contracts.Universe{}}
	assert.Error(t, NewUniverseJob(empty, nil).Run(context.Background()))

	failing := &fakeUniverse{err: errors.New("provider 500")}
	assert.Error(t, NewUniverseJob(failing, nil).Run(context.Background()))
}

type fakePipeline struct {
	req     contracts.BuildRequest
	reports []*contracts.BuildReport
	err     error
}

func (f *fakePipeline) Run(ctx context.Context, req contracts.BuildRequest) ([]*contracts.BuildReport, error) {
	f.req = req
	return f.reports, f.err
}

func TestSignalPipelineJob(t *testing.T) {
	cache := redis.NewCache(redis.Disabled(), "test")

	p := &fakePipeline{reports: []*contracts.BuildReport{{Builder: "moving_average", Written: 10}}}
	require.NoError(t, NewSignalPipelineJob(p, cache, nil).Run(context.Background()))
	assert.Equal(t, contracts.ModeIncremental, p.req.Mode)

	p = &fakePipeline{err: errors.New("breakout: boom")}
	err := NewSignalPipelineJob(p, nil, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "breakout: boom")
}

func TestCacheFlushJob_Disabled(t *testing.T) {
	job := NewCacheFlushJob(redis.NewCache(redis.Disabled(), "test"), nil)
	assert.NoError(t, job.Run(context.Background()))
	assert.NoError(t, NewCacheFlushJob(nil, nil).Run(context.Background()))
}

func TestSchedulesParse(t *testing.T) {
	s := scheduler.New(scheduler.Options{}, nil)
	for _, job := range []scheduler.Job{
		NewUniverseJob(&fakeUniverse{}, nil),
		NewPriceCollectionJob(&fakeCollector{}, nil, 1, nil),
		NewFundamentalsJob(&fakeCollector{}, 1, nil),
		NewSignalPipelineJob(&fakePipeline{}, nil, nil),
		NewCacheFlushJob(nil, nil),
	} {
		assert.NoError(t, s.AddJob(job), job.Name())
	}
	assert.Len(t, s.GetAllJobs(), 5)
}
