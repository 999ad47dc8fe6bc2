package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"

	"github.com/wonny/trendscan/internal/contracts"
	"github.com/wonny/trendscan/internal/s0_data/collector"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// JobMetadata holds job execution metadata
type JobMetadata struct {
	JobType string
	Tag     string
	Mode    string // Optional
	Symbols string // Optional
}

// PrintJobHeader prints a formatted job header
func PrintJobHeader(meta JobMetadata) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s\n", meta.JobType)
	PrintSeparator()

	if meta.Mode != "" {
		fmt.Printf("  Mode      : %s\n", meta.Mode)
	}
	if meta.Symbols != "" {
		fmt.Printf("  Symbols   : %s\n", meta.Symbols)
	}

	PrintSeparator()
	fmt.Printf("[%s] Manual run triggered at %s\n", meta.Tag, time.Now().Format(time.RFC3339))
}

// PrintJobCompletion prints job completion message
func PrintJobCompletion(tag string, duration time.Duration) {
	fmt.Println()
	fmt.Printf("✅ %s completed in %.2fs\n", tag, duration.Seconds())
}

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Println()
	fmt.Printf("⚠️  %s\n", message)
	fmt.Println()
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(message string) {
	fmt.Printf("ℹ️  %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintList prints a bulleted list
func PrintList(items []string) {
	for _, item := range items {
		fmt.Printf("   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

// PrintBuildReports prints one row per builder report
func PrintBuildReports(reports []*contracts.BuildReport) {
	widths := []int{18, 24, 9, 9, 9, 7, 10}
	PrintTableHeader([]string{"BUILDER", "DATES", "PROCESSED", "WRITTEN", "SKIPPED", "FAILED", "DURATION"}, widths)
	for _, r := range reports {
		PrintTableRow([]string{
			r.Builder,
			formatDates(r.Dates),
			strconv.Itoa(r.Processed),
			strconv.Itoa(r.Written),
			strconv.Itoa(r.Skipped),
			strconv.Itoa(r.Failed),
			r.Duration.Round(time.Millisecond).String(),
		}, widths)
	}
}

// PrintCollectionResult prints a collector summary
func PrintCollectionResult(r *collector.Result) {
	if r == nil {
		return
	}
	PrintKeyValue("Symbols", strconv.Itoa(r.Symbols), 10)
	PrintKeyValue("Succeeded", strconv.Itoa(r.Succeeded), 10)
	PrintKeyValue("Failed", strconv.Itoa(r.Failed), 10)
	PrintKeyValue("Written", strconv.Itoa(r.Written), 10)
	PrintKeyValue("Rejected", strconv.Itoa(r.Rejected), 10)
	PrintKeyValue("Warnings", strconv.Itoa(r.Warnings), 10)
}

// formatDates renders a date list as "first ~ last (n)"
func formatDates(dates []time.Time) string {
	switch len(dates) {
	case 0:
		return "-"
	case 1:
		return dates[0].Format(contracts.DateLayout)
	}
	return fmt.Sprintf("%s ~ %s (%d)",
		dates[0].Format(contracts.DateLayout), dates[len(dates)-1].Format(contracts.DateLayout), len(dates))
}

// formatMoney abbreviates large dollar amounts: 2.35T, 410.2B, 12.0M
func formatMoney(v null.Float) string {
	if !v.Valid {
		return "-"
	}
	abs := v.Float64
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1e12:
		return fmt.Sprintf("%.2fT", v.Float64/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", v.Float64/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v.Float64/1e6)
	}
	return strconv.FormatFloat(v.Float64, 'f', 0, 64)
}

func formatFloat(v null.Float, prec int) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Float64, 'f', prec, 64)
}

func formatInt(v null.Int) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatInt(v.Int64, 10)
}
