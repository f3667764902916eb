package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/carrierwatcher/carrierwatcher/api"
	"github.com/carrierwatcher/carrierwatcher/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the application table and sync over a JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var syncer api.Syncer
			r, err := newRunner(a.cfg, a.logger)
			if err != nil {
				a.logger.Warn("sync endpoint disabled", "source", a.cfg.Source, "err", err)
			} else {
				syncer = r
			}

			srv := api.NewServer(store.New(a.cfg.DataDir, a.logger), syncer, a.logger)

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(listen)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "127.0.0.1:8080", "Address the API listens on")
	return cmd
}
