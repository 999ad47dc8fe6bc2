// Package s2_signals builds the derived signal tables from stored daily bars.
// Builders are independent batch jobs that share only the price and MA tables.
package s2_signals

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/trendscan/internal/contracts"
)

// anchorDate is req.AsOf, or the latest trading date in the store
func anchorDate(ctx context.Context, bars contracts.BarRepository, req contracts.BuildRequest) (time.Time, error) {
	if !req.AsOf.IsZero() {
		return contracts.TradingDay(req.AsOf), nil
	}
	latest, err := bars.LatestTradingDate(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("latest trading date: %w", err)
	}
	return latest, nil
}

// resolveDates returns the dates one run processes, ascending.
// Incremental: the anchor date. Backfill: every trading date in the
// BackfillDays calendar days ending on the anchor date.
func resolveDates(ctx context.Context, bars contracts.BarRepository, req contracts.BuildRequest) ([]time.Time, error) {
	anchor, err := anchorDate(ctx, bars, req)
	if err != nil {
		return nil, err
	}

	switch req.Mode {
	case contracts.ModeBackfill:
		if req.BackfillDays < 1 {
			return nil, fmt.Errorf("backfill days must be positive, got %d", req.BackfillDays)
		}
		from := anchor.AddDate(0, 0, -(req.BackfillDays - 1))
		dates, err := bars.TradingDates(ctx, from, anchor)
		if err != nil {
			return nil, fmt.Errorf("trading dates: %w", err)
		}
		return dates, nil
	case contracts.ModeIncremental, "":
		return []time.Time{anchor}, nil
	default:
		return nil, fmt.Errorf("unknown build mode %q", req.Mode)
	}
}

func symbolKey(s string) string { return s }

func formatDate(t time.Time) string { return t.Format(contracts.DateLayout) }

// endsOn reports whether the last bar of an ascending series falls on date
func endsOn(bars []contracts.DailyBar, date time.Time) bool {
	return len(bars) > 0 && contracts.TradingDay(bars[len(bars)-1].Date).Equal(contracts.TradingDay(date))
}
