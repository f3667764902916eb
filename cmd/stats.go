package cmd

import (
	"github.com/spf13/cobra"

	"github.com/carrierwatcher/carrierwatcher/progress"
	"github.com/carrierwatcher/carrierwatcher/store"
)

func newStatsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show application counts per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := store.New(a.cfg.DataDir, a.logger).Load()
			if err != nil {
				return err
			}
			return progress.PrintMetrics(a.out(cmd), store.ComputeMetrics(table))
		},
	}
}
