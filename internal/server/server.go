// Package server binds the HTTP and gRPC listeners and shuts them down
// gracefully when the context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/shashiranjanraj/shopkart/config"
	grpcserver "github.com/shashiranjanraj/shopkart/pkg/grpc"
	"github.com/shashiranjanraj/shopkart/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Run serves handler on APP_PORT and the gRPC health service on GRPC_PORT
// until ctx is cancelled or a listener fails.
func Run(ctx context.Context, handler http.Handler, check func(context.Context) error) error {
	addr := ":" + config.AppPort()
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	grpcSrv, err := grpcserver.Start(config.GRPCPort(), check)
	if err != nil {
		return err
	}
	defer grpcserver.Stop(grpcSrv)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server starting", "addr", addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server: listen on %s: %w", addr, err)
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
