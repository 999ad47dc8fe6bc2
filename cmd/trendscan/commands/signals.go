package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/spf13/cobra"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s2_signals"
	"github.com/wonny/trendscan/pkg/redis"
)

var signalsCmd = &cobra.Command{
	Use:   "signals",
	Short: "시그널 생성",
	Long: `파생 시그널 테이블을 생성합니다.

Builders:
  ma        - daily_ma (MA20/50/100/200, VolMA30)
  rs        - RS 점수 (1-99 백분위 가중 합성)
  breakout  - 돌파/리테스트 플래그 (직전 거래일 평가)
  noise     - 유동성/ATR/볼린저 폭/VCP
  technical - RSI14/MACD/EMA20 조회 (저장 안 함)

기본은 최신 거래일 1회(incremental). --backfill N은 최근 N일(달력) 재생성.

Example:
  go run ./cmd/trendscan signals ma
  go run ./cmd/trendscan signals rs --backfill 30`,
}

var technicalCmd = &cobra.Command{
	Use:   "technical SYMBOL...",
	Short: "RSI14 / MACD / EMA20 조회",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTechnical,
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "시그널 파이프라인",
}

var pipelineRunCmd = &cobra.Command{
	Use:   "run",
	Short: "MA → RS → 돌파 → 노이즈 순서로 전체 실행",
	RunE:  runPipeline,
}

var (
	signalsBackfill int
	signalsAsOf     string
)

// builderAliases maps CLI names to builder names
var builderAliases = map[string]string{
	"ma":       "moving_average",
	"rs":       "relative_strength",
	"breakout": "breakout",
	"noise":    "noise",
}

func resolveBuilderName(alias string) string {
	if name, ok := builderAliases[alias]; ok {
		return name
	}
	return alias
}

func init() {
	rootCmd.AddCommand(signalsCmd)
	for _, alias := range []string{"ma", "rs", "breakout", "noise"} {
		alias := alias
		sub := &cobra.Command{
			Use:   alias,
			Short: fmt.Sprintf("%s 시그널 생성", resolveBuilderName(alias)),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSignals(resolveBuilderName(alias))
			},
		}
		addBuildFlags(sub)
		signalsCmd.AddCommand(sub)
	}

	signalsCmd.AddCommand(technicalCmd)
	technicalCmd.Flags().StringVar(&signalsAsOf, "as-of", "", "reading date YYYY-MM-DD (default: latest trading date)")

	rootCmd.AddCommand(pipelineCmd)
	pipelineCmd.AddCommand(pipelineRunCmd)
	addBuildFlags(pipelineRunCmd)
}

func addBuildFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&signalsBackfill, "backfill", 0, "rebuild the last N calendar days")
	cmd.Flags().StringVar(&signalsAsOf, "as-of", "", "anchor date YYYY-MM-DD (default: latest trading date)")
}

// buildRequest maps the flags to a build request
func buildRequest(backfill int, asOf string) (contracts.BuildRequest, error) {
	req := contracts.BuildRequest{Mode: contracts.ModeIncremental}
	if backfill > 0 {
		req.Mode = contracts.ModeBackfill
		req.BackfillDays = backfill
	}
	if asOf != "" {
		t, err := time.Parse(contracts.DateLayout, asOf)
		if err != nil {
			return req, fmt.Errorf("invalid --as-of %q: %w", asOf, err)
		}
		req.AsOf = t
	}
	return req, nil
}

func runSignals(name string) error {
	req, err := buildRequest(signalsBackfill, signalsAsOf)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	builder, ok := a.builders().ByName(name)
	if !ok {
		return fmt.Errorf("unknown builder: %s", name)
	}

	ctx, cancel := signalContext()
	defer cancel()

	PrintJobHeader(JobMetadata{JobType: "Signals: " + name, Tag: "Signals", Mode: string(req.Mode)})
	start := time.Now()

	report, err := builder.Build(ctx, req)
	if report != nil {
		PrintBuildReports([]*contracts.BuildReport{report})
	}
	if err != nil {
		return err
	}
	PrintJobCompletion(name, time.Since(start))
	return nil
}

func runTechnical(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(0, signalsAsOf)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	calc := s2_signals.NewTechnicalCalculator(a.repo.Prices, a.log)
	widths := []int{8, 12, 10, 10, 8, 10, 10, 10}
	PrintTableHeader([]string{"Symbol", "Date", "Close", "EMA20", "RSI14", "MACD", "Signal", "Hist"}, widths)

	for _, symbol := range args {
		r, err := calc.Calculate(ctx, strings.ToUpper(strings.TrimSpace(symbol)), req.AsOf)
		if errors.Is(err, contracts.ErrNotFound) {
			PrintWarning(fmt.Sprintf("%s: no bars", symbol))
			continue
		}
		if err != nil {
			return err
		}
		PrintTableRow([]string{
			r.Symbol,
			r.Date.Format(contracts.DateLayout),
			formatFloat(null.FloatFrom(r.Close), 2),
			formatFloat(r.EMA20, 2),
			formatFloat(r.RSI14, 1),
			formatFloat(r.MACD, 3),
			formatFloat(r.MACDSignal, 3),
			formatFloat(r.MACDHistogram, 3),
		}, widths)
	}
	return nil
}

func runPipeline(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(signalsBackfill, signalsAsOf)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext()
	defer cancel()

	PrintJobHeader(JobMetadata{JobType: "Signal Pipeline", Tag: "Pipeline", Mode: string(req.Mode)})
	start := time.Now()

	reports, err := a.pipeline().Run(ctx, req)
	PrintBuildReports(reports)
	if err != nil {
		PrintError(err.Error())
		return err
	}

	// 새 시그널 반영
	if n, err := a.cache().DeletePrefix(ctx, redis.ScreenerPrefix); err != nil {
		a.log.WithError(err).Warn("Screener cache flush failed")
	} else if n > 0 {
		PrintInfo(fmt.Sprintf("Flushed %d cached screener results", n))
	}

	PrintJobCompletion("Signal pipeline", time.Since(start))
	return nil
}
