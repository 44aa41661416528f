package reassignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"
	"golang.org/x/time/rate"

	authhandlers "github.com/kingsroom/venue-engine/app/modules/auth/infrastructure/handlers"
	authjwt "github.com/kingsroom/venue-engine/app/modules/auth/infrastructure/jwt"
	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenueservice "github.com/kingsroom/venue-engine/app/modules/playervenue/application"
	playervenuedb "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories"
	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	reassignmentevents "github.com/kingsroom/venue-engine/app/modules/reassignment/infrastructure/events"
	reassignmenthandlers "github.com/kingsroom/venue-engine/app/modules/reassignment/infrastructure/handlers"
	reassignmentqueue "github.com/kingsroom/venue-engine/app/modules/reassignment/infrastructure/queue"
	reassignmentrouter "github.com/kingsroom/venue-engine/app/modules/reassignment/infrastructure/router"
	taskservice "github.com/kingsroom/venue-engine/app/modules/task/application"
	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venueservice "github.com/kingsroom/venue-engine/app/modules/venue/application"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/observability"
	"github.com/kingsroom/venue-engine/config"
)

// ErrMissingJWTSecret is returned when the HTTP surface is enabled without a signing secret.
var ErrMissingJWTSecret = errors.New("jwt secret is required to serve the reassignment API")

// Module wires the venue reassignment engine.
type Module struct {
	service    *reassignmentservice.ReassignmentService
	dispatcher *reassignmenthandlers.Dispatcher
	queue      *reassignmentqueue.Service
	publisher  message.Publisher
	logger     *slog.Logger
	cancelFunc context.CancelFunc
}

// NewModule builds the reassignment module. The queue is only created when a
// queue name is configured, and notifications only when a NATS URL is set.
// Routes are registered on httpRouter when it is non-nil.
func NewModule(
	ctx context.Context,
	cfg *config.Config,
	obs observability.Observability,
	db *bun.DB,
	httpRouter chi.Router,
) (*Module, error) {
	logger := obs.Logger
	tracer := obs.Tracer
	metrics := obs.Metrics

	logger.InfoContext(ctx, "Initializing reassignment module")

	games := gamedb.NewRepository(db)
	venues := venueservice.NewVenueService(venuedb.NewRepository(db), logger, metrics, tracer, db)
	playerVenues := playervenueservice.NewPlayerVenueService(games, playervenuedb.NewRepository(db), logger, tracer)
	tasks := taskservice.NewTaskService(taskdb.NewRepository(db), logger, metrics, tracer)

	m := &Module{logger: logger}
	opts := reassignmentservice.Options{AsyncThreshold: cfg.Reassignment.AsyncThreshold}

	if cfg.Reassignment.QueueName != "" {
		queue, err := reassignmentqueue.NewService(ctx, cfg.Postgres.DSN, cfg.Reassignment.QueueName, cfg.Reassignment.QueueMaxWorkers, logger, metrics)
		if err != nil {
			return nil, fmt.Errorf("failed to create reassignment queue: %w", err)
		}
		m.queue = queue
		opts.Queue = queue
	} else {
		logger.WarnContext(ctx, "Reassignment queue not configured; large reassignments run inline and bulk requests are rejected")
	}

	if cfg.NATS.URL != "" {
		publisher, err := reassignmentevents.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			m.closeQueue(ctx)
			return nil, fmt.Errorf("failed to create reassignment publisher: %w", err)
		}
		m.publisher = publisher
		opts.Notifier = reassignmentevents.NewPublisher(publisher, logger)
	}

	m.service = reassignmentservice.NewReassignmentService(games, venues, playerVenues, tasks, logger, metrics, tracer, db, opts)
	if m.queue != nil {
		m.queue.RegisterConsumer(m.service)
	}

	dispatcher, err := reassignmenthandlers.NewDispatcher(m.service, logger, tracer)
	if err != nil {
		m.Close(ctx)
		return nil, fmt.Errorf("failed to build reassignment dispatcher: %w", err)
	}
	m.dispatcher = dispatcher

	if httpRouter != nil {
		if cfg.JWT.Secret == "" {
			m.Close(ctx)
			return nil, ErrMissingJWTSecret
		}
		provider := authjwt.NewProvider(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Audience)
		limiter := authhandlers.NewIPRateLimiter(rate.Limit(cfg.HTTP.RateLimit), cfg.HTTP.RateLimitBurst)
		handlers := reassignmenthandlers.NewReassignmentHandlers(dispatcher, m.service, logger)
		reassignmentrouter.NewRouter(handlers, provider, limiter, cfg.HTTP.TrustProxy, logger).Register(httpRouter)
	}

	return m, nil
}

// Run starts the queue workers and blocks until ctx is cancelled.
func (m *Module) Run(ctx context.Context, wg *sync.WaitGroup) {
	m.logger.InfoContext(ctx, "Starting reassignment module")

	ctx, cancel := context.WithCancel(ctx)
	m.cancelFunc = cancel
	defer cancel()

	if wg != nil {
		defer wg.Done()
	}

	if m.queue != nil {
		// Close drives the graceful stop; cancelling ctx must not hard-stop running jobs.
		if err := m.queue.Start(context.WithoutCancel(ctx)); err != nil {
			m.logger.ErrorContext(ctx, "Failed to start reassignment queue", slog.Any("error", err))
			return
		}
	}

	<-ctx.Done()
	m.logger.Info("Reassignment module goroutine stopped")
}

// Close stops the queue workers and the publisher.
func (m *Module) Close(ctx context.Context) error {
	m.logger.Info("Stopping reassignment module")

	if m.cancelFunc != nil {
		m.cancelFunc()
	}

	var errs []error
	if err := m.closeQueue(ctx); err != nil {
		errs = append(errs, err)
	}
	if m.publisher != nil {
		if err := m.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing publisher: %w", err))
		}
	}

	m.logger.Info("Reassignment module stopped")
	return errors.Join(errs...)
}

func (m *Module) closeQueue(ctx context.Context) error {
	if m.queue == nil {
		return nil
	}
	if err := m.queue.Stop(ctx); err != nil {
		m.logger.Error("Error stopping reassignment queue", slog.Any("error", err))
		return fmt.Errorf("error stopping queue: %w", err)
	}
	return nil
}

// HealthCheck reports whether the queue database is reachable.
func (m *Module) HealthCheck(ctx context.Context) error {
	if m.queue == nil {
		return nil
	}
	return m.queue.HealthCheck(ctx)
}

// Service returns the reassignment service for use by other modules.
func (m *Module) Service() reassignmentservice.Service {
	return m.service
}

// Dispatcher returns the operation dispatcher.
func (m *Module) Dispatcher() *reassignmenthandlers.Dispatcher {
	return m.dispatcher
}
