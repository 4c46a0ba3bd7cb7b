package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/memvra/docbot/internal/httpapi"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the assistant over HTTP",
		Long: `Start the HTTP API. Each client creates a session with
POST /v1/sessions and sends messages to /v1/sessions/{id}/messages. Files
are uploaded to /v1/files. Prometheus metrics are exposed on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(appOptions{console: true, metrics: true})
			if err != nil {
				return err
			}
			defer a.Close()

			if listen == "" {
				listen = a.cfg.Server.Listen
			}
			srv := &http.Server{
				Addr:              listen,
				Handler:           httpapi.New(a.agent, a.metrics, a.logger).Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("listening", zap.String("addr", listen))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (default from config)")

	return cmd
}
