package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wonny/trendscan/internal/external/fmp"
	"github.com/wonny/trendscan/internal/s0_data"
	"github.com/wonny/trendscan/internal/s0_data/collector"
	"github.com/wonny/trendscan/internal/s1_universe"
	"github.com/wonny/trendscan/internal/s2_signals"
	"github.com/wonny/trendscan/internal/scheduler"
	"github.com/wonny/trendscan/internal/scheduler/jobs"
	"github.com/wonny/trendscan/internal/selection"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/config"
	"github.com/wonny/trendscan/pkg/database"
	"github.com/wonny/trendscan/pkg/httputil"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/redis"
	"github.com/wonny/trendscan/pkg/workerpool"
)

const redisPrefix = "trendscan"

// app holds the process-wide dependencies every command shares
// ⭐ SSOT: 의존성 조립은 여기서만
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	strategy *strategyconfig.Config
	repo     *s0_data.Repository
}

// newApp loads config, connects Postgres and Redis and loads the thresholds
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	log := logger.New(cfg)

	path := cfg.StrategyConfigPath
	if strategyFile != "" {
		path = strategyFile
	}
	strategy, err := strategyconfig.LoadOrDefault(path)
	if err != nil {
		return nil, fmt.Errorf("load strategy config: %w", err)
	}
	for _, w := range strategyconfig.Warn(strategy) {
		log.WithField("code", w.Code).Warn(w.Message)
	}

	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	rc, err := redis.New(cfg)
	if err != nil {
		// 캐시 없이도 동작
		log.WithError(err).Warn("Redis unavailable, continuing without cache")
		rc = redis.Disabled()
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    rc,
		strategy: strategy,
		repo:     s0_data.NewRepository(db),
	}, nil
}

// Close releases connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Redis close failed")
	}
	a.db.Close()
}

func (a *app) pool() workerpool.Config {
	return workerpool.FromConfig(a.cfg.Jobs)
}

// provider builds the rate-limited provider client
func (a *app) provider() (*fmp.Client, error) {
	if err := a.cfg.RequireProvider(); err != nil {
		return nil, err
	}
	httpClient := httputil.New(a.cfg, a.log).
		WithRateLimiter(redis.NewRateLimiter(a.redis, redisPrefix), redis.ProviderRateLimit(a.cfg.Provider.RequestsPerSecond))
	return fmp.NewClient(httpClient, a.cfg.Provider, a.log), nil
}

func (a *app) collector() (*collector.Collector, error) {
	client, err := a.provider()
	if err != nil {
		return nil, err
	}
	return collector.NewCollector(collector.Deps{
		Prices:       client,
		Fundamentals: client,
		Bars:         a.repo.Prices,
		Symbols:      a.repo.Symbols,
		Financials:   a.repo.Financials,
	}, a.pool(), a.log), nil
}

func (a *app) universeRepo() *s1_universe.Repository {
	return s1_universe.NewRepository(a.db)
}

func (a *app) universeBuilder() (*s1_universe.Builder, error) {
	client, err := a.provider()
	if err != nil {
		return nil, err
	}
	return s1_universe.NewBuilder(client, a.repo.Symbols, a.universeRepo(), s1_universe.DefaultConfig(), a.log), nil
}

func (a *app) builders() *s2_signals.Builders {
	return s2_signals.NewBuilders(s2_signals.Deps{
		Bars:           a.repo.Prices,
		Ranks:          a.repo.Prices,
		MovingAverages: a.repo.MovingAverages,
		Breakouts:      a.repo.Breakouts,
		Noise:          a.repo.Noise,
	}, a.strategy, a.pool(), a.log)
}

func (a *app) pipeline() *s2_signals.Pipeline {
	return s2_signals.NewPipeline(a.log, a.builders().All()...)
}

func (a *app) cache() *redis.Cache {
	return redis.NewCache(a.redis, redisPrefix)
}

func (a *app) screener() (*selection.Screener, error) {
	return selection.NewScreener(selection.NewRepository(a.db), a.cache(), a.strategy, a.log)
}

// scheduler registers every job. Provider-backed jobs need PROVIDER_API_KEY.
func (a *app) scheduler() (*scheduler.Scheduler, error) {
	opts, err := scheduler.OptionsFromConfig(a.cfg.Jobs)
	if err != nil {
		return nil, err
	}
	s := scheduler.New(opts, a.log)

	col, err := a.collector()
	if err != nil {
		return nil, err
	}
	ub, err := a.universeBuilder()
	if err != nil {
		return nil, err
	}

	for _, job := range []scheduler.Job{
		jobs.NewUniverseJob(ub, a.log),
		jobs.NewPriceCollectionJob(col, a.universeRepo(), a.cfg.Jobs.HistoryDays, a.log),
		jobs.NewFundamentalsJob(col, a.cfg.Jobs.Quarters, a.log),
		jobs.NewSignalPipelineJob(a.pipeline(), a.cache(), a.log),
		jobs.NewCacheFlushJob(a.cache(), a.log),
	} {
		if err := s.AddJob(job); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// signalContext is cancelled on Ctrl+C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
