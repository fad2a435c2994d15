package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"trackdq/internal/app"
)

func newDiscoverCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List failure-capture tables that currently hold failing rows",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := app.New(ctx, loadConfig(cmd))
			if err != nil {
				return err
			}
			defer a.Close()

			found, err := a.Discovery.Discover(ctx)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(found)
			}

			if len(found) == 0 {
				fmt.Println("no failure tables with rows")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tCHECK TYPE\tSEVERITY\tFAILING ROWS")
			for _, f := range found {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", f.TableName, f.CheckType, f.Severity, f.RowCount)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON instead of a table")
	return cmd
}
