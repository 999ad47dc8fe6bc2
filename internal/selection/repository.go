package selection

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database"
)

// Repository executes composed screener queries
// ⭐ SSOT: 스크리너 조회는 여기서만
type Repository struct {
	db *database.DB
}

var _ Executor = (*Repository)(nil)

// NewRepository creates a new selection repository
func NewRepository(db *database.DB) *Repository {
	return &Repository{db: db}
}

// Execute runs q and scans one Result per row
func (r *Repository) Execute(ctx context.Context, q *Query) ([]Result, error) {
	sql := q.SQL()
	var results []Result

	err := r.db.Retry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Pool.Query(ctx, sql, q.Args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		results = results[:0]
		for rows.Next() {
			var res Result
			if err := rows.Scan(
				&res.Symbol, &res.CompanyName, &res.Date, &res.Close, &res.MarketCap, &res.Sector, &res.RSScore,
				&res.PE, &res.PEG, &res.PS, &res.PB,
				&res.RevenueGrowthQuarters, &res.IncomeGrowthQuarters,
				&res.RevenueGrowthRate, &res.IncomeGrowthRate,
				&res.LatestNetIncome,
				&res.Ordered,
			); err != nil {
				return fmt.Errorf("scan: %w", err)
			}
			results = append(results, res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Financials returns the last trailingQuarters quarters per symbol, newest first
func (r *Repository) Financials(ctx context.Context, symbols []string) (map[string][]contracts.QuarterlyFinancial, error) {
	out := make(map[string][]contracts.QuarterlyFinancial, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	query := `
		SELECT symbol, period_end_date, revenue, net_income, eps_diluted
		FROM (
			SELECT symbol, period_end_date, revenue, net_income, eps_diluted,
			       ROW_NUMBER() OVER (PARTITION BY symbol ORDER BY period_end_date DESC) AS rn
			FROM quarterly_financials
			WHERE symbol = ANY($1)
		) t
		WHERE rn <= $2
		ORDER BY symbol, period_end_date DESC
	`

	err := r.db.Retry(ctx, func(ctx context.Context) error {
		rows, err := r.db.Pool.Query(ctx, query, symbols, trailingQuarters)
		if err != nil {
			return err
		}
		fins, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (contracts.QuarterlyFinancial, error) {
			var f contracts.QuarterlyFinancial
			err := row.Scan(&f.Symbol, &f.PeriodEndDate, &f.Revenue, &f.NetIncome, &f.EPSDiluted)
			return f, err
		})
		if err != nil {
			return err
		}
		clear(out)
		for _, f := range fins {
			out[f.Symbol] = append(out[f.Symbol], f)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
