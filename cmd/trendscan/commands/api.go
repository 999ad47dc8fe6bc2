package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/trendscan/internal/api"
	"github.com/wonny/trendscan/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `스크리너 HTTP API 서버를 시작합니다.

Endpoints:
  GET  /health         - Health check (DB ping)
  GET  /api/screener   - 스크리너 (쿼리 파라미터 = 필터)
  GET  /api/universe   - 최신 universe 스냅샷

Example:
  go run ./cmd/trendscan api
  go run ./cmd/trendscan api --port 8080`,
	RunE: runAPIServer,
}

var apiPort string

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	screener, err := a.screener()
	if err != nil {
		return err
	}

	router := api.NewRouter(api.Handlers{
		Screener: handlers.NewScreenerHandler(screener, a.log),
		Universe: handlers.NewUniverseHandler(a.universeRepo(), a.log),
		DB:       a.db,
	}, a.log)
	server := api.New(a.cfg, a.log, router)

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nAvailable endpoints:")
	PrintList([]string{"GET  /health", "GET  /api/screener", "GET  /api/universe"})
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.Run(ctx, 30*time.Second); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
