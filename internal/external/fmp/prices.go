package fmp

import (
	"context"
	"net/url"
	"sort"
	"strconv"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s0_data/quality"
)

// FetchDailyBars fetches up to days most recent daily bars for symbol, ascending by date.
// Rows with an unparseable date are dropped and logged.
// ⭐ SSOT: 일봉 수집 API 호출은 이 함수에서만
func (c *Client) FetchDailyBars(ctx context.Context, symbol string, days int) ([]contracts.DailyBar, error) {
	symbol = normalizeSymbol(symbol)
	params := url.Values{}
	if days > 0 {
		params.Set("timeseries", strconv.Itoa(days))
	}

	var resp historicalResponse
	if err := c.getJSON(ctx, "/historical-price-full/"+url.PathEscape(symbol), params, &resp); err != nil {
		return nil, err
	}

	bars, dropped := parseHistorical(symbol, resp.Historical)
	if dropped > 0 {
		c.logger.WithSymbol(symbol).WithField("dropped", dropped).Warn("Dropped bars with invalid dates")
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  len(bars),
	}).Debug("Fetched daily bars")
	return bars, nil
}

// parseHistorical converts provider rows (newest first) to ascending bars
func parseHistorical(symbol string, rows []historicalBar) ([]contracts.DailyBar, int) {
	bars := make([]contracts.DailyBar, 0, len(rows))
	dropped := 0

	for _, row := range rows {
		date, err := quality.ParseDate(symbol, row.Date)
		if err != nil {
			dropped++
			continue
		}

		closePrice := row.Close.InexactFloat64()
		adjClose := closePrice
		if row.AdjClose.Valid {
			adjClose = row.AdjClose.Decimal.InexactFloat64()
		}

		bars = append(bars, contracts.DailyBar{
			Symbol:   symbol,
			Date:     date,
			Open:     row.Open.InexactFloat64(),
			High:     row.High.InexactFloat64(),
			Low:      row.Low.InexactFloat64(),
			Close:    closePrice,
			AdjClose: adjClose,
			Volume:   row.Volume.Round(0).IntPart(),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})
	return bars, dropped
}
