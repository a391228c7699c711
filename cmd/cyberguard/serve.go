package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"cyberguard/internal/logging"

	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the local HTTP API for the browser UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			log := logging.NewLogger("serve")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- a.Start()
			}()

			select {
			case err = <-errCh:
			case <-ctx.Done():
				log.Info("shutting down server")
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := a.Shutdown(shutdownCtx); shutdownErr != nil && err == nil {
				err = shutdownErr
			}
			return err
		},
	}
}
