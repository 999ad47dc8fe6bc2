package s0_data

import (
	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database"
)

// Compile-time interface checks
var (
	_ contracts.BarRepository              = (*PriceRepository)(nil)
	_ contracts.RelativeStrengthRepository = (*PriceRepository)(nil)
	_ contracts.MovingAverageRepository    = (*MovingAverageRepository)(nil)
	_ contracts.BreakoutRepository         = (*BreakoutRepository)(nil)
	_ contracts.NoiseRepository            = (*NoiseRepository)(nil)
	_ contracts.SymbolRepository           = (*SymbolRepository)(nil)
	_ contracts.FundamentalsRepository     = (*FinancialRepository)(nil)
)

// Repository bundles every S0 store over one pool
type Repository struct {
	db *database.DB

	Prices         *PriceRepository
	MovingAverages *MovingAverageRepository
	Breakouts      *BreakoutRepository
	Noise          *NoiseRepository
	Symbols        *SymbolRepository
	Financials     *FinancialRepository
}

// NewRepository creates a new Repository instance
func NewRepository(db *database.DB) *Repository {
	return &Repository{
		db:             db,
		Prices:         NewPriceRepository(db),
		MovingAverages: NewMovingAverageRepository(db),
		Breakouts:      NewBreakoutRepository(db),
		Noise:          NewNoiseRepository(db),
		Symbols:        NewSymbolRepository(db),
		Financials:     NewFinancialRepository(db),
	}
}

// DB returns the underlying database handle
func (r *Repository) DB() *database.DB {
	return r.db
}
