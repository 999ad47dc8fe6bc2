package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/trendscan/pkg/config"
	"github.com/wonny/trendscan/pkg/database"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "PostgreSQL 연결 테스트",
	Long: `데이터베이스 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- Ping 및 Health Check 실행
- 마이그레이션 버전과 Connection Pool 통계 표시

Example:
  go run ./cmd/trendscan test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== trendscan Database Connection Test ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("❌ Failed to load config: %w", err)
	}
	PrintSuccess(fmt.Sprintf("Config loaded (ENV: %s)", cfg.Env))
	PrintKeyValue("Database URL", maskPassword(cfg.Database.URL), 12)

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("❌ Failed to connect to database: %w", err)
	}
	defer db.Close()
	PrintSuccess("Database connection established")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}
	PrintSuccess("Health check passed")
	PrintKeyValue("Healthy", fmt.Sprint(status.Healthy), 24)
	PrintKeyValue("Response Time", status.ResponseTime.String(), 24)

	if version, err := db.MigrationVersion(ctx); err != nil {
		PrintWarning("Schema version unknown: run `trendscan migrate`")
	} else {
		PrintKeyValue("Schema Version", fmt.Sprint(version), 24)
	}

	fmt.Println("\n📊 Connection Pool Statistics:")
	PrintKeyValue("Max Connections", fmt.Sprint(status.Stats.MaxConns), 24)
	PrintKeyValue("Total Connections", fmt.Sprint(status.Stats.TotalConns), 24)
	PrintKeyValue("Acquired Connections", fmt.Sprint(status.Stats.AcquiredConns), 24)
	PrintKeyValue("Idle Connections", fmt.Sprint(status.Stats.IdleConns), 24)
	PrintKeyValue("Acquire Count", fmt.Sprint(status.Stats.AcquireCount), 24)
	PrintKeyValue("Acquire Duration", status.Stats.AcquireDuration.String(), 24)

	fmt.Println()
	PrintSuccess("All tests passed!")
	return nil
}

// maskPassword hides the password in a connection URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
