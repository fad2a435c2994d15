package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trackdq/internal/alert"
	"trackdq/internal/app"
	"trackdq/internal/domain"
)

func newAlertsCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Evaluate alert thresholds against the latest recorded run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, loadConfig(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			runID, err := a.Store.LatestRunID(ctx)
			if err != nil {
				return err
			}
			if runID == "" {
				return fmt.Errorf("no runs recorded yet, run `trackdq run` first")
			}

			results, err := a.Store.ListRunMetrics(ctx, runID)
			if err != nil {
				return err
			}
			found, err := a.Discovery.Discover(ctx)
			if err != nil {
				return err
			}

			report := &domain.AggregateReport{RunID: runID, Results: results}
			decision := a.Alerts.Evaluate(report, found)

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(decision)
			}

			pipeline := a.Config.PipelineName
			if a.Suite.Pipeline != "" {
				pipeline = a.Suite.Pipeline
			}
			fmt.Println(alert.FormatNotification(decision, pipeline, a.Config.DashboardURL).Message)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of the notification body")
	return cmd
}
