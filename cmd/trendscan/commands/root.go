package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "trendscan",
	Short: "US equity trend screener",
	Long: `trendscan CLI

시세/재무 수집, 시그널 생성(이평, RS, 돌파, 노이즈), 스크리너.

Usage:
  go run ./cmd/trendscan [command]

Examples:
  go run ./cmd/trendscan migrate
  go run ./cmd/trendscan fetch prices --days 400
  go run ./cmd/trendscan signals ma --backfill 30
  go run ./cmd/trendscan screen ordered=true minMcap=1e9
  go run ./cmd/trendscan api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy thresholds YAML (default: STRATEGY_CONFIG or built-in)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
