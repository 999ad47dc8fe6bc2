package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database"
)

// SymbolRepository implements contracts.SymbolRepository over symbols
type SymbolRepository struct {
	db *database.DB
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(db *database.DB) *SymbolRepository {
	return &SymbolRepository{db: db}
}

// UpsertSymbols writes reference data, overwriting on conflict
func (r *SymbolRepository) UpsertSymbols(ctx context.Context, symbols []contracts.SymbolMeta) (int, error) {
	if len(symbols) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO symbols
			(symbol, company_name, sector, industry, market_cap, exchange, is_etf, is_actively_trading, avg_volume, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (symbol) DO UPDATE SET
			company_name = EXCLUDED.company_name,
			sector = EXCLUDED.sector,
			industry = EXCLUDED.industry,
			market_cap = EXCLUDED.market_cap,
			exchange = EXCLUDED.exchange,
			is_etf = EXCLUDED.is_etf,
			is_actively_trading = EXCLUDED.is_actively_trading,
			avg_volume = EXCLUDED.avg_volume,
			price = EXCLUDED.price,
			updated_at = NOW()
	`

	err := sendBatch(ctx, r.db, func(batch *pgx.Batch) {
		for _, s := range symbols {
			batch.Queue(query, s.Symbol, s.CompanyName, s.Sector, s.Industry, s.MarketCap,
				s.Exchange, s.IsETF, s.IsActivelyTrading, s.AvgVolume, s.Price)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("upsert symbols: %w", err)
	}
	return len(symbols), nil
}

// ListTradable returns actively trading non-ETF symbols, ordered by symbol
func (r *SymbolRepository) ListTradable(ctx context.Context) ([]contracts.SymbolMeta, error) {
	query := `
		SELECT symbol, company_name, sector, industry, market_cap, exchange,
			is_etf, is_actively_trading, avg_volume, price
		FROM symbols
		WHERE is_actively_trading AND NOT is_etf
		ORDER BY symbol
	`

	var out []contracts.SymbolMeta
	err := r.db.Retry(ctx, func(ctx context.Context) error {
		out = out[:0]
		rows, err := r.db.Pool.Query(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var s contracts.SymbolMeta
			if err := rows.Scan(&s.Symbol, &s.CompanyName, &s.Sector, &s.Industry, &s.MarketCap,
				&s.Exchange, &s.IsETF, &s.IsActivelyTrading, &s.AvgVolume, &s.Price); err != nil {
				return err
			}
			out = append(out, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list tradable symbols: %w", err)
	}
	return out, nil
}
