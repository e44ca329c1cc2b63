package cmd

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

	"github.com/feedloom/feedloom/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the scheduled ingestion service with the ops HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			svc, err := buildServices(ctx)
			if err != nil {
				return err
			}
			defer svc.Close()

			httpServer := &http.Server{
				Addr:              fmt.Sprintf(":%d", svc.cfg.Server.Port),
				Handler:           api.NewServer(svc.runner, svc.logger).Handler(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				svc.logger.Info("http server listening", zap.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			go svc.runner.Start(ctx)

			select {
			case <-ctx.Done():
				svc.logger.Info("shutdown signal received")
			case err := <-errCh:
				stop()
				svc.logger.Error("http server failed", zap.Error(err))
				return err
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				svc.logger.Warn("http shutdown incomplete", zap.Error(err))
			}
			return nil
		},
	}
}
