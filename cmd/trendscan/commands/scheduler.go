package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업과 다음 실행 시각
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/trendscan scheduler start
  go run ./cmd/trendscan scheduler list
  go run ./cmd/trendscan scheduler run price_collection`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다 (JOBS_TIMEZONE 기준).

등록되는 작업:
- universe_refresh: 토요일 06:00
- price_collection: 평일 17:30 (장 마감 후)
- signal_pipeline: 평일 19:00
- screener_cache_flush: 평일 19:30
- fundamentals_collection: 매일 20:00

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.scheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	sched.Start(ctx)

	PrintSuccess("Scheduler started")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	PrintSuccess("Scheduler stopped")
	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.scheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	loc, err := time.LoadLocation(a.cfg.Jobs.Timezone)
	if err != nil {
		return err
	}
	next := sched.NextRuns(time.Now().In(loc))

	widths := []int{26, 22, 25}
	PrintTableHeader([]string{"JOB", "SCHEDULE", "NEXT RUN"}, widths)
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		PrintTableRow([]string{
			name,
			stats[name].Schedule,
			next[name].Format("2006-01-02 15:04 MST"),
		}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := a.scheduler()
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	PrintJobHeader(JobMetadata{JobType: "Job: " + args[0], Tag: "Scheduler"})

	result, err := sched.RunNow(ctx, args[0])
	if err != nil {
		return err
	}

	PrintKeyValue("Run ID", result.RunID, 9)
	PrintKeyValue("Attempts", strconv.Itoa(result.Attempts), 9)
	PrintKeyValue("Duration", result.Duration.Round(time.Millisecond).String(), 9)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", result.JobName)
	}
	PrintJobCompletion(result.JobName, result.Duration)
	return nil
}
