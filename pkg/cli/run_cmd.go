package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trackdq/internal/app"
	"trackdq/internal/domain"
	"trackdq/internal/runner"
)

func newRunCmd() *cobra.Command {
	var (
		dimension   string
		failingOnly bool
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run data-quality checks and report the outcome",
		Long:  "Evaluates the registered check suite against the warehouse.\nExits 0 only when every check passed; failed or undetermined checks exit 1.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, loadConfig(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			var report *runner.RunReport
			if dimension != "" {
				dim, err := domain.ParseDimension(dimension)
				if err != nil {
					return err
				}
				report, err = a.Runner.RunDimension(ctx, dim)
				if err != nil {
					return err
				}
			} else {
				report, err = a.Runner.RunAll(ctx)
				if err != nil {
					return err
				}
			}

			if asJSON {
				if err := printRunJSON(report, failingOnly); err != nil {
					return err
				}
			} else {
				printRunText(report, failingOnly)
			}

			if !report.Report.OverallPassed {
				return errChecksFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dimension, "dimension", "", "run checks for one dimension only")
	cmd.Flags().BoolVar(&failingOnly, "failing-only", false, "print only non-passing checks")
	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
	return cmd
}

func printRunText(report *runner.RunReport, failingOnly bool) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DIMENSION\tTABLE\tMETRIC\tVALUE\tTHRESHOLD\tOUTCOME")
	for _, r := range report.Report.Results {
		if failingOnly && r.Passed() {
			continue
		}
		value := "-"
		if r.Value != nil {
			value = fmt.Sprintf("%.4f", *r.Value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%s\n",
			r.Dimension, r.TableName, r.MetricName, value, r.Threshold, r.Outcome)
	}
	_ = w.Flush()

	fmt.Printf("\nrun %s: %s (%d passed, %d failed, %d undetermined)\n",
		report.Run.ID, report.Status,
		report.Report.PassedCount, report.Report.FailedCount, report.Report.UndetCount)

	if report.Decision.Triggered {
		fmt.Println("\n" + report.Notification.Message)
	}
}

func printRunJSON(report *runner.RunReport, failingOnly bool) error {
	results := report.Report.Results
	if failingOnly {
		var kept []domain.MetricResult
		for _, r := range results {
			if !r.Passed() {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	out := map[string]interface{}{
		"run_id":         report.Run.ID,
		"status":         report.Status,
		"overall_passed": report.Report.OverallPassed,
		"passed":         report.Report.PassedCount,
		"failed":         report.Report.FailedCount,
		"undetermined":   report.Report.UndetCount,
		"results":        results,
		"alert":          report.Decision,
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
