package fmp

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/wonny/trendscan/internal/contracts"
)

// ScreenerParams narrows the provider's company listing
type ScreenerParams struct {
	Exchanges         []string // e.g. NYSE, NASDAQ, AMEX
	MarketCapMoreThan float64
	Limit             int
}

// DefaultScreenerParams lists the major US exchanges
func DefaultScreenerParams() ScreenerParams {
	return ScreenerParams{
		Exchanges: []string{"NYSE", "NASDAQ", "AMEX"},
		Limit:     10000,
	}
}

// FetchScreener lists companies with reference data.
// ETF and activity flags are returned as reported; filtering is the caller's job.
func (c *Client) FetchScreener(ctx context.Context, p ScreenerParams) ([]contracts.SymbolMeta, error) {
	params := url.Values{}
	if len(p.Exchanges) > 0 {
		params.Set("exchange", strings.Join(p.Exchanges, ","))
	}
	if p.MarketCapMoreThan > 0 {
		params.Set("marketCapMoreThan", strconv.FormatFloat(p.MarketCapMoreThan, 'f', 0, 64))
	}
	if p.Limit > 0 {
		params.Set("limit", strconv.Itoa(p.Limit))
	}

	var rows []screenerRow
	if err := c.getJSON(ctx, "/stock-screener", params, &rows); err != nil {
		return nil, err
	}

	out := make([]contracts.SymbolMeta, 0, len(rows))
	for _, row := range rows {
		symbol := normalizeSymbol(row.Symbol)
		if symbol == "" {
			continue
		}
		out = append(out, contracts.SymbolMeta{
			Symbol:            symbol,
			CompanyName:       row.CompanyName,
			Sector:            nullString(row.Sector),
			Industry:          nullString(row.Industry),
			MarketCap:         nullFloat(row.MarketCap),
			Exchange:          strings.ToUpper(row.ExchangeShortName),
			IsETF:             row.IsETF,
			IsActivelyTrading: row.IsActivelyTrading,
			AvgVolume:         nullFloat(row.Volume),
			Price:             nullFloat(row.Price),
		})
	}

	c.logger.WithField("count", len(out)).Info("Fetched screener listing")
	return out, nil
}
