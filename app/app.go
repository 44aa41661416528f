package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/bun"

	"github.com/kingsroom/venue-engine/app/modules/reassignment"
	"github.com/kingsroom/venue-engine/app/shared/observability"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/kingsroom/venue-engine/config"
	"github.com/kingsroom/venue-engine/db/bundb"
)

// App holds the process-wide dependencies and modules.
type App struct {
	Config        *config.Config
	Observability observability.Observability
	DB            *bun.DB
	Router        chi.Router

	Reassignment *reassignment.Module

	server *http.Server
	wg     sync.WaitGroup
}

// NewApp connects to the database and builds every module.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	obs := observability.New(config.ToObsConfig(cfg))
	logger := obs.Logger

	sharedtypes.SetUnassignedSentinel(cfg.Reassignment.UnassignedVenueID)

	db, err := bundb.Open(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:        cfg,
		Observability: obs,
		DB:            db,
	}
	app.Router = app.newRouter()

	app.Reassignment, err = reassignment.NewModule(ctx, cfg, obs, db, app.Router)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize reassignment module: %w", err)
	}

	app.server = &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.InfoContext(ctx, "Application initialized",
		slog.String("http_addr", cfg.HTTP.Addr),
		slog.Bool("async_dispatch", cfg.Reassignment.QueueName != ""),
		slog.Bool("notifications", cfg.NATS.URL != ""),
	)
	return app, nil
}

func (app *App) newRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", app.handleHealth)
	if app.Observability.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(app.Observability.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (app *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := app.DB.PingContext(ctx); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	if app.Reassignment != nil {
		if err := app.Reassignment.HealthCheck(ctx); err != nil {
			http.Error(w, "queue unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Run starts the modules and the HTTP server. It returns when ctx is
// cancelled or the server fails.
func (app *App) Run(ctx context.Context) error {
	logger := app.Observability.Logger

	app.wg.Add(1)
	go app.Reassignment.Run(ctx, &app.wg)

	serverErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "HTTP server listening", slog.String("addr", app.server.Addr))
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		return nil
	case err, ok := <-serverErr:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Close shuts the server down, stops the modules and closes the database.
func (app *App) Close(ctx context.Context) error {
	logger := app.Observability.Logger
	var errs []error

	if err := app.server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := app.Reassignment.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	app.wg.Wait()

	if err := app.DB.Close(); err != nil {
		errs = append(errs, fmt.Errorf("database close: %w", err))
	}

	logger.Info("Application shut down")
	return errors.Join(errs...)
}
