package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s0_data/quality"
	"github.com/wonny/trendscan/pkg/logger"
	"github.com/wonny/trendscan/pkg/workerpool"
)

// PriceSource provides daily bars (fmp.Client in production)
type PriceSource interface {
	FetchDailyBars(ctx context.Context, symbol string, days int) ([]contracts.DailyBar, error)
}

// FundamentalsSource provides financial statements and valuation ratios
type FundamentalsSource interface {
	FetchTTMRatios(ctx context.Context, symbol string, asOf time.Time) (contracts.ValuationRatios, error)
	FetchQuarterlyRatios(ctx context.Context, symbol string, limit int) ([]contracts.ValuationRatios, error)
	FetchQuarterlyIncome(ctx context.Context, symbol string, limit int) ([]contracts.QuarterlyFinancial, error)
}

// Collector orchestrates data collection from the provider
// ⭐ SSOT: 데이터 수집 오케스트레이션은 이 패키지에서만
type Collector struct {
	prices       PriceSource
	fundamentals FundamentalsSource
	bars         contracts.BarRepository
	symbols      contracts.SymbolRepository
	financials   contracts.FundamentalsRepository
	pool         workerpool.Config
	logger       *logger.Logger
	now          func() time.Time
}

// Deps wires the collector's collaborators
type Deps struct {
	Prices       PriceSource
	Fundamentals FundamentalsSource
	Bars         contracts.BarRepository
	Symbols      contracts.SymbolRepository
	Financials   contracts.FundamentalsRepository
}

// NewCollector creates a new Collector instance
func NewCollector(deps Deps, pool workerpool.Config, log *logger.Logger) *Collector {
	if log == nil {
		log = logger.Nop()
	}
	return &Collector{
		prices:       deps.Prices,
		fundamentals: deps.Fundamentals,
		bars:         deps.Bars,
		symbols:      deps.Symbols,
		financials:   deps.Financials,
		pool:         pool,
		logger:       log.WithModule("collector"),
		now:          time.Now,
	}
}

// Result summarizes one collection run
type Result struct {
	Symbols   int `json:"symbols"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Written   int `json:"written"`
	Rejected  int `json:"rejected"`
	Warnings  int `json:"warnings"`
}

// TradableSymbols lists symbols from the universe table
func (c *Collector) TradableSymbols(ctx context.Context) ([]string, error) {
	metas, err := c.symbols.ListTradable(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tradable symbols: %w", err)
	}
	out := make([]string, len(metas))
	for i, m := range metas {
		out[i] = m.Symbol
	}
	return out, nil
}

// FetchAllPrices fetches price data for every tradable symbol
func (c *Collector) FetchAllPrices(ctx context.Context, days int) (*Result, error) {
	symbols, err := c.TradableSymbols(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchPrices(ctx, symbols, days)
}

// FetchPrices fetches, validates and upserts the last days bars of each symbol.
// Invalid bars are rejected one by one; a failing symbol never stops the batch.
func (c *Collector) FetchPrices(ctx context.Context, symbols []string, days int) (*Result, error) {
	if c.prices == nil {
		return nil, errors.New("price source not configured")
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"days":    days,
		"workers": c.pool.Workers,
	}).Info("Starting price collection")

	var written, rejected int64
	summary := workerpool.Run(ctx, symbols, c.pool, identity, func(ctx context.Context, symbol string) error {
		bars, err := c.prices.FetchDailyBars(ctx, symbol, days)
		if err != nil {
			return fmt.Errorf("fetch prices: %w", err)
		}

		valid, report := quality.FilterBars(bars)
		for _, rej := range report.Rejected {
			c.logger.WithSymbol(symbol).WithField("date", rej.Date).Warn(rej.Reason)
		}
		atomic.AddInt64(&rejected, int64(len(report.Rejected)))

		if len(valid) == 0 {
			return nil
		}
		n, err := c.bars.UpsertBars(ctx, valid)
		if err != nil {
			return fmt.Errorf("save prices: %w", err)
		}
		atomic.AddInt64(&written, int64(n))
		return nil
	}, c.logger)

	result := &Result{
		Symbols:   len(symbols),
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Written:   int(written),
		Rejected:  int(rejected),
	}

	c.logger.WithFields(map[string]interface{}{
		"success":  result.Succeeded,
		"failed":   result.Failed,
		"total":    result.Symbols,
		"written":  result.Written,
		"rejected": result.Rejected,
	}).Info("Price collection completed")

	return result, ctx.Err()
}

// FetchAllFundamentals fetches fundamentals for every tradable symbol
func (c *Collector) FetchAllFundamentals(ctx context.Context, quarters int) (*Result, error) {
	symbols, err := c.TradableSymbols(ctx)
	if err != nil {
		return nil, err
	}
	return c.FetchFundamentals(ctx, symbols, quarters)
}

// FetchFundamentals stores quarterly income statements, quarterly ratios and
// today's TTM ratios. Implausible ratios are logged and still stored.
// ⭐ SSOT: 재무/밸류에이션 수집은 이 함수에서만
func (c *Collector) FetchFundamentals(ctx context.Context, symbols []string, quarters int) (*Result, error) {
	if c.fundamentals == nil {
		return nil, errors.New("fundamentals source not configured")
	}

	asOf := contracts.TradingDay(c.now())
	c.logger.WithFields(map[string]interface{}{
		"symbols":  len(symbols),
		"quarters": quarters,
		"as_of":    asOf.Format(contracts.DateLayout),
	}).Info("Starting fundamentals collection")

	var written, warnings int64
	summary := workerpool.Run(ctx, symbols, c.pool, identity, func(ctx context.Context, symbol string) error {
		n, w, err := c.collectFundamentals(ctx, symbol, quarters, asOf)
		atomic.AddInt64(&written, int64(n))
		atomic.AddInt64(&warnings, int64(w))
		return err
	}, c.logger)

	result := &Result{
		Symbols:   len(symbols),
		Succeeded: summary.Succeeded,
		Failed:    summary.Failed,
		Written:   int(written),
		Warnings:  int(warnings),
	}

	c.logger.WithFields(map[string]interface{}{
		"success":  result.Succeeded,
		"failed":   result.Failed,
		"total":    result.Symbols,
		"written":  result.Written,
		"warnings": result.Warnings,
	}).Info("Fundamentals collection completed")

	return result, ctx.Err()
}

func (c *Collector) collectFundamentals(ctx context.Context, symbol string, quarters int, asOf time.Time) (int, int, error) {
	written, warned := 0, 0
	log := c.logger.WithSymbol(symbol)

	income, err := c.fundamentals.FetchQuarterlyIncome(ctx, symbol, quarters)
	if err != nil {
		return written, warned, fmt.Errorf("fetch income statements: %w", err)
	}
	n, err := c.financials.UpsertQuarterlyFinancials(ctx, income)
	if err != nil {
		return written, warned, fmt.Errorf("save income statements: %w", err)
	}
	written += n

	quarterly, err := c.fundamentals.FetchQuarterlyRatios(ctx, symbol, quarters)
	if err != nil {
		return written, warned, fmt.Errorf("fetch quarterly ratios: %w", err)
	}
	for _, r := range quarterly {
		warned += logWarnings(log, quality.CheckRatios(r))
	}
	n, err = c.financials.UpsertQuarterlyRatios(ctx, quarterly)
	if err != nil {
		return written, warned, fmt.Errorf("save quarterly ratios: %w", err)
	}
	written += n

	ttm, err := c.fundamentals.FetchTTMRatios(ctx, symbol, asOf)
	switch {
	case errors.Is(err, contracts.ErrNotFound):
		log.Debug("No TTM ratios")
		return written, warned, nil
	case err != nil:
		return written, warned, fmt.Errorf("fetch ttm ratios: %w", err)
	}
	if ttm.Empty() {
		return written, warned, nil
	}
	warned += logWarnings(log, quality.CheckRatios(ttm))
	n, err = c.financials.UpsertDailyRatios(ctx, []contracts.ValuationRatios{ttm})
	if err != nil {
		return written, warned, fmt.Errorf("save ttm ratios: %w", err)
	}
	written += n

	return written, warned, nil
}

func logWarnings(log *logger.Logger, warnings []quality.Warning) int {
	for _, w := range warnings {
		log.WithField("code", w.Code).Warn(w.Message)
	}
	return len(warnings)
}

func identity(s string) string { return s }
