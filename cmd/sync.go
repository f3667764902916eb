package cmd

import (
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/carrierwatcher/carrierwatcher/progress"
	"github.com/carrierwatcher/carrierwatcher/stats"
)

func newSyncCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Fetch recent messages and update the application table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			r, err := newRunner(a.cfg, a.logger)
			if err != nil {
				return err
			}

			bar := progress.New(a.cfg.LogLevel)
			reporter := stats.NewReporter(a.logger)
			r.Subscribe(bar)
			r.Subscribe(reporter)

			a.logger.Info("starting sync", "source", a.cfg.Source, "dataDir", a.cfg.DataDir, "dryRun", a.cfg.DryRun)
			started := time.Now()
			summary, err := r.RunOnce(ctx)
			bar.Stop()
			reporter.Finish()
			if err != nil {
				return err
			}

			progress.PrintSummary(a.out(cmd), summary, time.Since(started))
			return nil
		},
	}
}
