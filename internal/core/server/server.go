package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mohammed-shakir/geoitems/internal/core/health"
	middleware "github.com/mohammed-shakir/geoitems/internal/core/middleware"
	"github.com/mohammed-shakir/geoitems/internal/core/router"
)

type Deps struct {
	Querier router.ItemQuerier
	Creator router.ItemCreator
	Store   health.Pinger
}

// NewRouter mounts the item API and operational endpoints.
func NewRouter(logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Store, 2*time.Second))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Get("/items", router.HandleGetItems(logger, d.Querier))
	r.Post("/items", router.HandleCreateItem(logger, d.Creator))
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, addr string, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(logger, d),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
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
