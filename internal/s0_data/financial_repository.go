package s0_data

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/pkg/database"
)

// FinancialRepository implements contracts.FundamentalsRepository
// ⭐ SSOT: 재무/밸류에이션 저장소는 여기서만
type FinancialRepository struct {
	db *database.DB
}

// NewFinancialRepository creates a new financial repository
func NewFinancialRepository(db *database.DB) *FinancialRepository {
	return &FinancialRepository{db: db}
}

// UpsertQuarterlyFinancials writes quarterly income statement rows
func (r *FinancialRepository) UpsertQuarterlyFinancials(ctx context.Context, rows []contracts.QuarterlyFinancial) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := `
		INSERT INTO quarterly_financials (symbol, period_end_date, revenue, net_income, eps_diluted)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (symbol, period_end_date) DO UPDATE SET
			revenue = EXCLUDED.revenue,
			net_income = EXCLUDED.net_income,
			eps_diluted = EXCLUDED.eps_diluted
	`

	err := sendBatch(ctx, r.db, func(batch *pgx.Batch) {
		for _, q := range rows {
			batch.Queue(query, q.Symbol, contracts.TradingDay(q.PeriodEndDate), q.Revenue, q.NetIncome, q.EPSDiluted)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("upsert quarterly financials: %w", err)
	}
	return len(rows), nil
}

// UpsertDailyRatios writes TTM ratios keyed by trading day
func (r *FinancialRepository) UpsertDailyRatios(ctx context.Context, rows []contracts.ValuationRatios) (int, error) {
	return r.upsertRatios(ctx, "ratios_daily", "date", rows)
}

// UpsertQuarterlyRatios writes quarterly ratios keyed by period end
func (r *FinancialRepository) UpsertQuarterlyRatios(ctx context.Context, rows []contracts.ValuationRatios) (int, error) {
	return r.upsertRatios(ctx, "ratios_quarterly", "period_end_date", rows)
}

// upsertRatios shares the statement shape; table and column are constants from the callers above
func (r *FinancialRepository) upsertRatios(ctx context.Context, table, dateColumn string, rows []contracts.ValuationRatios) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (symbol, %s, pe, peg, ps, pb)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (symbol, %s) DO UPDATE SET
			pe = EXCLUDED.pe,
			peg = EXCLUDED.peg,
			ps = EXCLUDED.ps,
			pb = EXCLUDED.pb
	`, table, dateColumn, dateColumn)

	err := sendBatch(ctx, r.db, func(batch *pgx.Batch) {
		for _, v := range rows {
			batch.Queue(query, v.Symbol, contracts.TradingDay(v.Date), v.PE, v.PEG, v.PS, v.PB)
		}
	})
	if err != nil {
		return 0, fmt.Errorf("upsert %s: %w", table, err)
	}
	return len(rows), nil
}
