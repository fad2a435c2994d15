package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"trackdq/internal/app"
	"trackdq/internal/runner"
)

func newServeCmd() *cobra.Command {
	var (
		addr       string
		schedule   string
		noSchedule bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard query API and run checks on a schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(cmd)
			if cmd.Flags().Changed("addr") {
				cfg.ListenAddr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if !noSchedule {
				cronExpr := cfg.Schedule
				if cmd.Flags().Changed("schedule") {
					cronExpr = schedule
				}
				sched := runner.NewScheduler(a.Runner, a.Logger)
				if err := sched.Start(cronExpr); err != nil {
					return err
				}
				defer sched.Stop()
			}

			srv := &http.Server{
				Addr:              cfg.ListenAddr,
				Handler:           a.API.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				a.Logger.Info("query surface listening", "addr", cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "HTTP listen address")
	cmd.Flags().StringVar(&schedule, "schedule", runner.DefaultSchedule, "cron expression for scheduled runs")
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "serve the API without scheduled runs")
	return cmd
}
