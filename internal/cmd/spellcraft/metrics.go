package spellcraft

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spellcraft/spellcraft/internal/platform/timeouts"
)

// serveMetrics serves handler on addr until ctx ends. The returned channel
// yields the serve result once the server has stopped.
func serveMetrics(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) <-chan error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: timeouts.ReadHeader,
	}

	done := make(chan error, 1)
	serveErr := make(chan error, 1)
	logger.Info("metrics listening", slog.String("addr", addr))
	go func() {
		serveErr <- srv.ListenAndServe()
	}()
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			err := srv.Shutdown(shutdownCtx)
			cancel()
			if err != nil {
				done <- fmt.Errorf("shutdown metrics server: %w", err)
				return
			}
			done <- nil
		case err := <-serveErr:
			if errors.Is(err, http.ErrServerClosed) {
				done <- nil
				return
			}
			logger.Error("metrics server stopped", slog.Any("error", err))
			done <- fmt.Errorf("serve metrics: %w", err)
		}
	}()
	return done
}
