package reassignmentservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenueservice "github.com/kingsroom/venue-engine/app/modules/playervenue/application"
	taskservice "github.com/kingsroom/venue-engine/app/modules/task/application"
	venueservice "github.com/kingsroom/venue-engine/app/modules/venue/application"
	"github.com/kingsroom/venue-engine/app/shared/observability"
	"github.com/kingsroom/venue-engine/app/shared/results"
)

// DefaultAsyncThreshold is the player count at which reassignments are queued.
const DefaultAsyncThreshold = 50

const serviceName = "ReassignmentService"

// Options carries the optional collaborators of the service.
type Options struct {
	// Queue enables async dispatch. Nil means every reassignment runs inline
	// and bulk dispatch fails with ErrQueueNotConfigured.
	Queue          Enqueuer
	Notifier       Notifier
	AsyncThreshold int
	// BatchConcurrency bounds BatchAssignVenues fan-out.
	BatchConcurrency int
}

// ReassignmentService implements the Service interface.
type ReassignmentService struct {
	games        gamedb.Repository
	venues       venueservice.Service
	playerVenues playervenueservice.Service
	tasks        taskservice.Service
	queue        Enqueuer
	notifier     Notifier
	logger       *slog.Logger
	metrics      observability.Metrics
	tracer       trace.Tracer
	db           *bun.DB

	asyncThreshold   int
	batchConcurrency int
	now              func() time.Time
}

// NewReassignmentService creates a new ReassignmentService.
func NewReassignmentService(
	games gamedb.Repository,
	venues venueservice.Service,
	playerVenues playervenueservice.Service,
	tasks taskservice.Service,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
	opts Options,
) *ReassignmentService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	if opts.AsyncThreshold <= 0 {
		opts.AsyncThreshold = DefaultAsyncThreshold
	}
	if opts.BatchConcurrency <= 0 {
		opts.BatchConcurrency = 8
	}
	return &ReassignmentService{
		games:            games,
		venues:           venues,
		playerVenues:     playerVenues,
		tasks:            tasks,
		queue:            opts.Queue,
		notifier:         opts.Notifier,
		logger:           logger,
		metrics:          metrics,
		tracer:           tracer,
		db:               db,
		asyncThreshold:   opts.AsyncThreshold,
		batchConcurrency: opts.BatchConcurrency,
		now:              time.Now,
	}
}

// -----------------------------------------------------------------------------
// Generic Helpers (Defined as functions because methods cannot have type params)
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *ReassignmentService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
		defer span.End()
	}

	s.metrics.RecordOperationAttempt(ctx, operationName, serviceName)

	startTime := time.Now()
	defer func() {
		s.metrics.RecordOperationDuration(ctx, operationName, serviceName, time.Since(startTime))
	}()

	s.logger.InfoContext(ctx, "Operation triggered",
		slog.String("operation", operationName),
		slog.String("identifier", identifier),
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
			if span != nil {
				span.RecordError(err)
			}
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)

	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		s.metrics.RecordOperationFailure(ctx, operationName, serviceName)
		if span != nil {
			span.RecordError(wrappedErr)
		}
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if result.IsSuccess() {
		s.logger.InfoContext(ctx, "Operation completed successfully",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
		)
	}

	s.metrics.RecordOperationSuccess(ctx, operationName, serviceName)
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *ReassignmentService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}

// unwrap collapses an OperationResult whose success and failure share a type.
func unwrap[T any](r results.OperationResult[T, T]) T {
	if r.Success != nil {
		return *r.Success
	}
	if r.Failure != nil {
		return *r.Failure
	}
	var zero T
	return zero
}
