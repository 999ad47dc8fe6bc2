package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/trendscan/internal/selection"
)

var screenCmd = &cobra.Command{
	Use:   "screen [filter=value...]",
	Short: "스크리너 실행",
	Long: `HTTP 엔드포인트와 같은 필터를 key=value 형태로 받아 스크리너를 실행합니다.

Filters:
  ordered, goldenCross, justTurned, ma20Above ... ma200Above
  turnAround, revenueGrowth, incomeGrowth, pegFilter, profitability
  revenueGrowthQuarters, revenueGrowthRate, incomeGrowthQuarters, incomeGrowthRate
  volumeFilter, vcpFilter, bodyFilter, maConvergenceFilter, breakoutStrategy
  minMcap, minPrice, minAvgVol, lookbackDays, limit, offset

Example:
  go run ./cmd/trendscan screen ordered=true minMcap=2e9
  go run ./cmd/trendscan screen revenueGrowth=true revenueGrowthQuarters=4 --json`,
	RunE: runScreen,
}

var screenJSON bool

func init() {
	rootCmd.AddCommand(screenCmd)
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "print the raw JSON response")
}

// parseScreenArgs turns key=value arguments into query values
func parseScreenArgs(args []string) (url.Values, error) {
	values := url.Values{}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid filter %q: expected key=value", arg)
		}
		values.Add(key, value)
	}
	return values, nil
}

func runScreen(cmd *cobra.Command, args []string) error {
	values, err := parseScreenArgs(args)
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	screener, err := a.screener()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	resp, err := screener.ScreenValues(ctx, values)
	if err != nil {
		var vErr *selection.ValidationError
		if errors.As(err, &vErr) {
			PrintError(vErr.Error())
		}
		return err
	}

	if screenJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	printScreenResults(resp)
	return nil
}

func printScreenResults(resp *selection.Response) {
	if resp.Count == 0 {
		PrintWarning("No symbols matched")
		return
	}

	widths := []int{7, 28, 9, 9, 4, 7, 7, 5, 5, 13}
	PrintTableHeader([]string{"SYMBOL", "COMPANY", "CLOSE", "MCAP", "RS", "PE", "PEG", "REV", "INC", "PROFIT"}, widths)
	for _, r := range resp.Results {
		PrintTableRow([]string{
			r.Symbol,
			truncate(r.CompanyName, 28),
			strconv.FormatFloat(r.Close, 'f', 2, 64),
			formatMoney(r.MarketCap),
			formatInt(r.RSScore),
			formatFloat(r.PE, 1),
			formatFloat(r.PEG, 2),
			formatInt(r.RevenueGrowthQuarters),
			formatInt(r.IncomeGrowthQuarters),
			r.Profitability,
		}, widths)
	}
	fmt.Println()

	summary := []string{fmt.Sprintf("%d symbols", resp.Count)}
	if resp.Cached {
		summary = append(summary, "served from cache")
	}
	PrintList(summary)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
