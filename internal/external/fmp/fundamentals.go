package fmp

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s0_data/quality"
)

// FetchTTMRatios fetches trailing-twelve-month valuation ratios, stamped with asOf.
// Returns contracts.ErrNotFound when the provider has no ratios for the symbol.
func (c *Client) FetchTTMRatios(ctx context.Context, symbol string, asOf time.Time) (contracts.ValuationRatios, error) {
	symbol = normalizeSymbol(symbol)
	var rows []ttmRatios
	if err := c.getJSON(ctx, "/ratios-ttm/"+url.PathEscape(symbol), nil, &rows); err != nil {
		return contracts.ValuationRatios{}, err
	}
	if len(rows) == 0 {
		return contracts.ValuationRatios{}, contracts.ErrNotFound
	}

	r := rows[0]
	return contracts.ValuationRatios{
		Symbol: symbol,
		Date:   contracts.TradingDay(asOf),
		PE:     nullFloat(r.PE),
		PEG:    nullFloat(r.PEG),
		PS:     nullFloat(r.PS),
		PB:     nullFloat(r.PB),
	}, nil
}

// FetchQuarterlyRatios fetches up to limit quarterly ratio rows keyed by period end
func (c *Client) FetchQuarterlyRatios(ctx context.Context, symbol string, limit int) ([]contracts.ValuationRatios, error) {
	symbol = normalizeSymbol(symbol)
	var rows []quarterlyRatios
	if err := c.getJSON(ctx, "/ratios/"+url.PathEscape(symbol), quarterParams(limit), &rows); err != nil {
		return nil, err
	}

	out := make([]contracts.ValuationRatios, 0, len(rows))
	for _, row := range rows {
		date, err := quality.ParseDate(symbol, row.Date)
		if err != nil {
			c.logger.WithSymbol(symbol).WithError(err).Warn("Skipped quarterly ratios")
			continue
		}
		out = append(out, contracts.ValuationRatios{
			Symbol: symbol,
			Date:   date,
			PE:     nullFloat(row.PE),
			PEG:    nullFloat(row.PEG),
			PS:     nullFloat(row.PS),
			PB:     nullFloat(row.PB),
		})
	}
	return out, nil
}

// FetchQuarterlyIncome fetches up to limit quarterly income statements
func (c *Client) FetchQuarterlyIncome(ctx context.Context, symbol string, limit int) ([]contracts.QuarterlyFinancial, error) {
	symbol = normalizeSymbol(symbol)
	var rows []incomeStatement
	if err := c.getJSON(ctx, "/income-statement/"+url.PathEscape(symbol), quarterParams(limit), &rows); err != nil {
		return nil, err
	}

	out := make([]contracts.QuarterlyFinancial, 0, len(rows))
	for _, row := range rows {
		date, err := quality.ParseDate(symbol, row.Date)
		if err != nil {
			c.logger.WithSymbol(symbol).WithError(err).Warn("Skipped income statement")
			continue
		}
		out = append(out, contracts.QuarterlyFinancial{
			Symbol:        symbol,
			PeriodEndDate: date,
			Revenue:       nullFloat(row.Revenue),
			NetIncome:     nullFloat(row.NetIncome),
			EPSDiluted:    nullFloat(row.EPSDiluted),
		})
	}
	return out, nil
}

func quarterParams(limit int) url.Values {
	params := url.Values{}
	params.Set("period", "quarter")
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return params
}
