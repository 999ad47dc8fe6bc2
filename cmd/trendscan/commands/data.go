package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/trendscan/internal/s0_data/collector"
)

// migrateCmd applies embedded schema migrations
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "스키마 마이그레이션 적용",
	RunE:  runMigrate,
}

var universeCmd = &cobra.Command{
	Use:   "universe",
	Short: "Universe 관리",
}

var universeRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "상장 종목 목록으로 universe 갱신",
	Long: `프로바이더 스크리너에서 상장 종목을 받아 symbols 테이블과
universe 스냅샷을 갱신합니다.

Example:
  go run ./cmd/trendscan universe refresh`,
	RunE: runUniverseRefresh,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "데이터 수집",
	Long: `프로바이더에서 시세/재무 데이터를 수집합니다.
심볼을 생략하면 tradable 종목 전체를 수집합니다.

Example:
  go run ./cmd/trendscan fetch prices --days 400
  go run ./cmd/trendscan fetch prices AAPL MSFT
  go run ./cmd/trendscan fetch fundamentals --quarters 12`,
}

var fetchPricesCmd = &cobra.Command{
	Use:   "prices [SYMBOL...]",
	Short: "일봉 수집",
	RunE:  runFetchPrices,
}

var fetchFundamentalsCmd = &cobra.Command{
	Use:   "fundamentals [SYMBOL...]",
	Short: "분기 재무 + 밸류에이션 수집",
	RunE:  runFetchFundamentals,
}

var (
	fetchDays     int
	fetchQuarters int
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(universeCmd)
	universeCmd.AddCommand(universeRefreshCmd)
	rootCmd.AddCommand(fetchCmd)
	fetchCmd.AddCommand(fetchPricesCmd)
	fetchCmd.AddCommand(fetchFundamentalsCmd)

	fetchPricesCmd.Flags().IntVar(&fetchDays, "days", 0, "bars per symbol (default JOBS_HISTORY_DAYS)")
	fetchFundamentalsCmd.Flags().IntVar(&fetchQuarters, "quarters", 0, "quarters per symbol (default JOBS_QUARTERS)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if err := a.db.Migrate(ctx, a.log); err != nil {
		PrintError("Migration failed")
		return err
	}
	version, err := a.db.MigrationVersion(ctx)
	if err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("Schema at version %d", version))
	return nil
}

func runUniverseRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	builder, err := a.universeBuilder()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	PrintJobHeader(JobMetadata{JobType: "Universe Refresh", Tag: "Universe"})
	start := time.Now()

	universe, err := builder.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("refresh universe: %w", err)
	}

	PrintKeyValue("Listed", strconv.Itoa(universe.TotalCount), 10)
	PrintKeyValue("Included", strconv.Itoa(universe.Count()), 10)
	PrintKeyValue("Excluded", strconv.Itoa(len(universe.Excluded)), 10)
	PrintJobCompletion("Universe refresh", time.Since(start))
	return nil
}

func runFetchPrices(cmd *cobra.Command, args []string) error {
	return runFetch("Price Collection", args, func(ctx context.Context, a *app, c *collector.Collector, symbols []string) (*collector.Result, error) {
		days := fetchDays
		if days <= 0 {
			days = a.cfg.Jobs.HistoryDays
		}
		if len(symbols) == 0 {
			return c.FetchAllPrices(ctx, days)
		}
		return c.FetchPrices(ctx, symbols, days)
	})
}

func runFetchFundamentals(cmd *cobra.Command, args []string) error {
	return runFetch("Fundamentals Collection", args, func(ctx context.Context, a *app, c *collector.Collector, symbols []string) (*collector.Result, error) {
		quarters := fetchQuarters
		if quarters <= 0 {
			quarters = a.cfg.Jobs.Quarters
		}
		if len(symbols) == 0 {
			return c.FetchAllFundamentals(ctx, quarters)
		}
		return c.FetchFundamentals(ctx, symbols, quarters)
	})
}

type fetchFunc func(ctx context.Context, a *app, c *collector.Collector, symbols []string) (*collector.Result, error)

func runFetch(jobType string, args []string, fetch fetchFunc) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := a.collector()
	if err != nil {
		return err
	}

	symbols := make([]string, len(args))
	for i, s := range args {
		symbols[i] = strings.ToUpper(strings.TrimSpace(s))
	}

	meta := JobMetadata{JobType: jobType, Tag: "Fetch", Symbols: "all tradable"}
	if len(symbols) > 0 {
		meta.Symbols = strings.Join(symbols, ", ")
	}
	PrintJobHeader(meta)

	ctx, cancel := signalContext()
	defer cancel()
	start := time.Now()

	result, err := fetch(ctx, a, c, symbols)
	PrintCollectionResult(result)
	if err != nil {
		return err
	}
	if result != nil && result.Failed > 0 {
		PrintWarning(fmt.Sprintf("%d symbols failed, see logs", result.Failed))
	}
	PrintJobCompletion(jobType, time.Since(start))
	return nil
}
