// Package cmd holds the carrierwatcher subcommands.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/carrierwatcher/carrierwatcher/config"
)

// LoggerFunc builds the process logger from the parsed configuration. The
// returned cleanup runs after the subcommand finishes.
type LoggerFunc func(cfg config.Config) (*slog.Logger, func() error, error)

// app is the state shared by subcommands once flags are parsed.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	cleanup func() error
}

func (a *app) out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

// NewRootCommand returns the root command with every subcommand attached.
func NewRootCommand(setupLogger LoggerFunc) (*cobra.Command, error) {
	a := &app{cleanup: func() error { return nil }}

	root := &cobra.Command{
		Use:           "carrierwatcher",
		Short:         "Track internship applications and update them from your inbox",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cmd)
			if err != nil {
				return err
			}
			logger, cleanup, err := setupLogger(cfg)
			if err != nil {
				return fmt.Errorf("setup logger: %w", err)
			}
			slog.SetDefault(logger)
			a.cfg = cfg
			a.logger = logger
			a.cleanup = cleanup
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.cleanup()
		},
	}

	if err := config.RegisterFlags(root); err != nil {
		return nil, fmt.Errorf("register flags: %w", err)
	}

	root.AddCommand(
		newSyncCommand(a),
		newListCommand(a),
		newAddCommand(a),
		newEditCommand(a),
		newDeleteCommand(a),
		newStatsCommand(a),
		newServeCommand(a),
	)
	return root, nil
}

// Execute runs the root command and exits non-zero on failure.
func Execute(setupLogger LoggerFunc) {
	root, err := NewRootCommand(setupLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
