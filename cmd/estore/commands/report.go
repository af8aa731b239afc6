package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Report flags
	reportFrom string
	reportTo   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a sales report for a date range and print it as JSON",
	Long: `Aggregate order lines between --from and --to (inclusive, YYYY-MM-DD),
upload the result to the report store and print it.

Examples:
  estore report --from 2026-01-01 --to 2026-01-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := time.ParseInLocation("2006-01-02", reportFrom, time.Local)
		if err != nil {
			return fmt.Errorf("--from: %w", err)
		}
		to, err := time.ParseInLocation("2006-01-02", reportTo, time.Local)
		if err != nil {
			return fmt.Errorf("--to: %w", err)
		}
		// 終了日はその日の終わりまで
		to = to.Add(24*time.Hour - time.Nanosecond)

		rt, err := buildRuntime(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.close()

		report, err := rt.uc.Reports.GenerateReport(cmd.Context(), from, to)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVar(&reportFrom, "from", "", "First day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "Last day (YYYY-MM-DD)")
	_ = reportCmd.MarkFlagRequired("from")
	_ = reportCmd.MarkFlagRequired("to")
}
