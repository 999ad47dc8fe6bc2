// Package selection composes and runs the screener query over the derived
// signal tables and fundamentals.
package selection

import (
	"context"
	"net/url"
	"time"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/strategyconfig"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/redis"
)

// Executor runs composed queries against the store
type Executor interface {
	Execute(ctx context.Context, q *Query) ([]Result, error)
	Financials(ctx context.Context, symbols []string) (map[string][]contracts.QuarterlyFinancial, error)
}

// Screener validates filters, composes, executes and caches
// ⭐ SSOT: 스크리너 진입점은 여기서만
type Screener struct {
	composer       *Composer
	executor       Executor
	cache          *redis.Cache
	thresholds     strategyconfig.Screener
	thresholdsHash string
	ttl            time.Duration
	logger         *logger.Logger
}

// NewScreener creates a new screener. cache may be nil.
func NewScreener(executor Executor, cache *redis.Cache, cfg *strategyconfig.Config, log *logger.Logger) (*Screener, error) {
	if log == nil {
		log = logger.Nop()
	}
	hash, err := strategyconfig.Hash(cfg)
	if err != nil {
		return nil, err
	}
	ttl := time.Duration(cfg.Screener.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = redis.TTLMedium
	}
	return &Screener{
		composer:       NewComposer(cfg.Screener),
		executor:       executor,
		cache:          cache,
		thresholds:     cfg.Screener,
		thresholdsHash: hash[:16],
		ttl:            ttl,
		logger:         log.WithModule("screener"),
	}, nil
}

// Parse reads and validates raw query parameters, applying defaults
func (s *Screener) Parse(values url.Values) (Filters, error) {
	f, err := ParseFilters(values)
	if err != nil {
		return Filters{}, err
	}
	if err := f.Validate(s.thresholds); err != nil {
		return Filters{}, err
	}
	return f.WithDefaults(s.thresholds), nil
}

// ScreenValues is Parse followed by Screen
func (s *Screener) ScreenValues(ctx context.Context, values url.Values) (*Response, error) {
	f, err := s.Parse(values)
	if err != nil {
		return nil, err
	}
	return s.Screen(ctx, f)
}

// Screen returns the symbols that satisfy f, ordered by market cap.
// Returns *ValidationError for bad input and *QueryError for store failures.
func (s *Screener) Screen(ctx context.Context, f Filters) (*Response, error) {
	if err := f.Validate(s.thresholds); err != nil {
		return nil, err
	}
	f = f.WithDefaults(s.thresholds)

	key := redis.ScreenerKey(f.Hash(), s.thresholdsHash)
	if s.cache != nil {
		var cached Response
		hit, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).Warn("Screener cache read failed")
		}
		if hit {
			cached.Cached = true
			return &cached, nil
		}
	}

	start := time.Now()
	q := s.composer.Compose(f)

	results, err := s.executor.Execute(ctx, q)
	if err != nil {
		s.logger.WithError(err).Error("Screener query failed")
		return nil, classify("query", err)
	}

	series, err := s.executor.Financials(ctx, symbolsOf(results))
	if err != nil {
		s.logger.WithError(err).Error("Screener financials failed")
		return nil, classify("financials", err)
	}
	attachFinancials(results, series)

	if results == nil {
		results = []Result{}
	}
	resp := &Response{Count: len(results), Results: results}

	s.logger.WithFields(map[string]interface{}{
		"predicates": q.PredicateNames(),
		"results":    resp.Count,
		"duration":   time.Since(start).String(),
	}).Info("Screener completed")

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, resp, s.ttl); err != nil {
			s.logger.WithError(err).Warn("Screener cache write failed")
		}
	}
	return resp, nil
}
