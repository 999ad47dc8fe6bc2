package s1_universe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/external/fmp"
	"github.com/wonny/trendscan/pkg/logger"
)

// Exclusion reasons
const (
	ReasonETF       = "etf"
	ReasonInactive  = "inactive"
	ReasonExchange  = "exchange"
	ReasonShape     = "symbol_shape"
	ReasonMarketCap = "market_cap"
	ReasonPrice     = "price"
	ReasonAvgVolume = "avg_volume"
	ReasonSector    = "sector"
)

// ListingSource lists companies with reference data (fmp.Client in production)
type ListingSource interface {
	FetchScreener(ctx context.Context, p fmp.ScreenerParams) ([]contracts.SymbolMeta, error)
}

// SnapshotStore persists universe snapshots
type SnapshotStore interface {
	SaveUniverse(ctx context.Context, universe *contracts.Universe) error
}

// Config holds universe filter criteria
type Config struct {
	Exchanges      []string `yaml:"exchanges"`      // 상장 거래소 (OTC 제외)
	MinMarketCap   float64  `yaml:"min_market_cap"` // USD
	MinPrice       float64  `yaml:"min_price"`      // USD
	MinAvgVolume   float64  `yaml:"min_avg_volume"` // shares
	ExcludeSectors []string `yaml:"exclude_sectors"`
}

// DefaultConfig keeps every listed common stock on the major exchanges
func DefaultConfig() Config {
	return Config{
		Exchanges: []string{"NYSE", "NASDAQ", "AMEX"},
	}
}

// Builder constructs the tradable universe
type Builder struct {
	source   ListingSource
	symbols  contracts.SymbolRepository
	snapshot SnapshotStore
	config   Config
	logger   *logger.Logger
	now      func() time.Time
}

var _ contracts.UniverseBuilder = (*Builder)(nil)

// NewBuilder creates a new Universe Builder. snapshot may be nil.
func NewBuilder(source ListingSource, symbols contracts.SymbolRepository, snapshot SnapshotStore, config Config, log *logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		source:   source,
		symbols:  symbols,
		snapshot: snapshot,
		config:   config,
		logger:   log.WithModule("universe"),
		now:      time.Now,
	}
}

// Refresh pulls the provider listing, stores every symbol's reference data and
// returns the filtered universe. ETFs and excluded symbols are still stored so
// the screener can apply its own filters.
// ⭐ SSOT: S1 유니버스 생성
func (b *Builder) Refresh(ctx context.Context) (*contracts.Universe, error) {
	listing, err := b.source.FetchScreener(ctx, fmp.ScreenerParams{
		Exchanges:         b.config.Exchanges,
		MarketCapMoreThan: b.config.MinMarketCap,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}

	n, err := b.symbols.UpsertSymbols(ctx, listing)
	if err != nil {
		return nil, fmt.Errorf("save symbols: %w", err)
	}

	universe := b.Build(listing)

	if b.snapshot != nil {
		if err := b.snapshot.SaveUniverse(ctx, universe); err != nil {
			return nil, fmt.Errorf("save universe: %w", err)
		}
	}

	b.logger.WithFields(map[string]interface{}{
		"listed":   len(listing),
		"stored":   n,
		"eligible": universe.TotalCount,
		"excluded": len(universe.Excluded),
	}).Info("Universe refreshed")

	return universe, nil
}

// Build filters a listing into a universe without touching storage
func (b *Builder) Build(listing []contracts.SymbolMeta) *contracts.Universe {
	universe := &contracts.Universe{
		Date:     contracts.TradingDay(b.now()),
		Symbols:  make([]string, 0, len(listing)),
		Excluded: make(map[string]string),
	}

	for _, meta := range listing {
		if reason := b.checkExclusion(meta); reason != "" {
			universe.Excluded[meta.Symbol] = reason
			continue
		}
		universe.Symbols = append(universe.Symbols, meta.Symbol)
	}
	sort.Strings(universe.Symbols)

	universe.TotalCount = len(universe.Symbols)
	return universe
}

// checkExclusion returns the first exclusion reason, or "" when eligible
func (b *Builder) checkExclusion(meta contracts.SymbolMeta) string {
	// 우선순위 순서로 체크
	if meta.IsETF {
		return ReasonETF
	}
	if !meta.IsActivelyTrading {
		return ReasonInactive
	}
	if !b.listedOn(meta.Exchange) {
		return ReasonExchange
	}
	if !contracts.IsCommonStockSymbol(meta.Symbol) {
		return ReasonShape
	}
	if b.config.MinMarketCap > 0 && (!meta.MarketCap.Valid || meta.MarketCap.Float64 < b.config.MinMarketCap) {
		return ReasonMarketCap
	}
	if b.config.MinPrice > 0 && (!meta.Price.Valid || meta.Price.Float64 < b.config.MinPrice) {
		return ReasonPrice
	}
	if b.config.MinAvgVolume > 0 && (!meta.AvgVolume.Valid || meta.AvgVolume.Float64 < b.config.MinAvgVolume) {
		return ReasonAvgVolume
	}
	for _, sector := range b.config.ExcludeSectors {
		if meta.Sector.Valid && strings.EqualFold(meta.Sector.String, sector) {
			return ReasonSector
		}
	}
	return ""
}

// listedOn rejects OTC and anything outside the configured exchanges
func (b *Builder) listedOn(exchange string) bool {
	exchange = strings.ToUpper(exchange)
	if exchange == "" || strings.HasPrefix(exchange, "OTC") || exchange == "PNK" {
		return false
	}
	if len(b.config.Exchanges) == 0 {
		return true
	}
	for _, e := range b.config.Exchanges {
		if strings.EqualFold(e, exchange) {
			return true
		}
	}
	return false
}
