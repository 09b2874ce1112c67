// Package server exposes the session's status, health and metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mohammed-shakir/layer-report-client/internal/core/health"
	middleware "github.com/mohammed-shakir/layer-report-client/internal/core/middleware"
	"github.com/mohammed-shakir/layer-report-client/internal/core/model"
	"github.com/mohammed-shakir/layer-report-client/internal/status"
)

// Snapshot is what /status reports.
type Snapshot struct {
	Status   status.Status       `json:"status"`
	Resolver string              `json:"resolver"`
	Layer    string              `json:"layer,omitempty"`
	FilterID string              `json:"filter_id,omitempty"`
	Result   *model.ReportResult `json:"result,omitempty"`
}

type Source interface {
	health.ReadinessReporter
	Snapshot() Snapshot
}

// Handler builds the router. metrics may be nil.
func Handler(logger *slog.Logger, src Source, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger, "status-server"))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(src))
	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(src.Snapshot())
	})
	if metrics != nil {
		r.Handle("/metrics", metrics)
	}
	return r
}

// Run serves h on addr until ctx is done.
func Run(ctx context.Context, addr string, logger *slog.Logger, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
