package reassignmentqueue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	"github.com/kingsroom/venue-engine/app/shared/observability"
)

// maxAttempts bounds redelivery of a failing reassignment.
const maxAttempts = 5

// inserter is the part of the river client used for enqueueing.
type inserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// Ensure Service implements the Enqueuer used by the reassignment service
var _ reassignmentservice.Enqueuer = (*Service)(nil)

// Service enqueues and works venue reassignments using River
type Service struct {
	client    *river.Client[pgx.Tx]
	inserter  inserter
	pool      *pgxpool.Pool
	worker    *ReassignmentWorker
	queueName string
	logger    *slog.Logger
	metrics   observability.Metrics
}

// NewService creates a River-backed queue for reassignments. Call
// RegisterConsumer before Start.
func NewService(ctx context.Context, dsn, queueName string, maxWorkers int, logger *slog.Logger, metrics observability.Metrics) (*Service, error) {
	ctxLogger := logger.With(
		slog.String("operation", "new_reassignment_queue_service"),
		slog.String("component", "river_queue"),
		slog.String("queue", queueName),
	)

	if queueName == "" {
		return nil, reassignmentservice.ErrQueueNotConfigured
	}

	start := time.Now()
	metrics.RecordOperationAttempt(ctx, "initialize_service", "river")

	ctxLogger.Info("Initializing reassignment queue service")

	// River requires pgx, not database/sql
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		ctxLogger.Error("Failed to parse DSN for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		ctxLogger.Error("Failed to create pgx pool for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		ctxLogger.Error("Failed to ping database for River", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	worker := NewReassignmentWorker(nil, NewAdvisoryLocker(pool, ctxLogger), ctxLogger, metrics)
	workers := river.NewWorkers()
	river.AddWorker(workers, worker)

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			queueName: {MaxWorkers: maxWorkers},
		},
		Workers: workers,
		Logger:  ctxLogger,
	})
	if err != nil {
		pool.Close()
		ctxLogger.Error("Failed to create River client", slog.Any("error", err))
		metrics.RecordOperationFailure(ctx, "initialize_service", "river")
		return nil, fmt.Errorf("failed to create River client: %w", err)
	}

	service := &Service{
		client:    riverClient,
		inserter:  riverClient,
		pool:      pool,
		worker:    worker,
		queueName: queueName,
		logger:    ctxLogger,
		metrics:   metrics,
	}

	metrics.RecordOperationSuccess(ctx, "initialize_service", "river")
	metrics.RecordOperationDuration(ctx, "initialize_service", "river", time.Since(start))

	ctxLogger.Info("Reassignment queue service initialized successfully")
	return service, nil
}

// RegisterConsumer attaches the service that processes delivered jobs.
func (s *Service) RegisterConsumer(c Consumer) {
	s.worker.SetConsumer(c)
}

// Start starts working the queue
func (s *Service) Start(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "start_service", "river")

	s.logger.Info("Starting reassignment queue service")

	if s.worker.consumer == nil {
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("no consumer registered for queue %s", s.queueName)
	}

	if err := s.client.Start(ctx); err != nil {
		s.logger.Error("Failed to start River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "start_service", "river")
		return fmt.Errorf("failed to start River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "start_service", "river")
	s.metrics.RecordOperationDuration(ctx, "start_service", "river", time.Since(start))

	s.logger.Info("Reassignment queue service started successfully")
	return nil
}

// Stop waits for running jobs and closes the pool
func (s *Service) Stop(ctx context.Context) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "stop_service", "river")

	s.logger.Info("Stopping reassignment queue service")

	defer s.pool.Close()
	if err := s.client.Stop(ctx); err != nil {
		s.logger.Error("Failed to stop River client", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "stop_service", "river")
		return fmt.Errorf("failed to stop River client: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "stop_service", "river")
	s.metrics.RecordOperationDuration(ctx, "stop_service", "river", time.Since(start))

	s.logger.Info("Reassignment queue service stopped successfully")
	return nil
}

// Enqueue inserts one reassignment job. A duplicate dedup key is accepted
// without inserting a second job.
func (s *Service) Enqueue(ctx context.Context, job reassignmentservice.QueueJob) error {
	start := time.Now()
	s.metrics.RecordOperationAttempt(ctx, "enqueue_reassignment", "river")

	ctxLogger := s.logger.With(
		slog.String("game_id", job.Message.GameID.String()),
		slog.String("task_id", job.Message.TaskID.String()),
		slog.String("operation", "enqueue_reassignment"),
	)

	res, err := s.inserter.Insert(ctx, jobFrom(job), &river.InsertOpts{
		Queue:       s.queueName,
		MaxAttempts: maxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
		},
	})
	if err != nil {
		ctxLogger.Error("Failed to enqueue reassignment job", slog.Any("error", err))
		s.metrics.RecordOperationFailure(ctx, "enqueue_reassignment", "river")
		return fmt.Errorf("failed to enqueue reassignment job: %w", err)
	}

	s.metrics.RecordOperationSuccess(ctx, "enqueue_reassignment", "river")
	s.metrics.RecordOperationDuration(ctx, "enqueue_reassignment", "river", time.Since(start))

	if res.UniqueSkippedAsDuplicate {
		ctxLogger.Info("Reassignment job already queued", slog.Int64("job_id", res.Job.ID))
		return nil
	}
	ctxLogger.Info("Reassignment job queued", slog.Int64("job_id", res.Job.ID))
	return nil
}

// HealthCheck verifies the queue's database is reachable
func (s *Service) HealthCheck(ctx context.Context) error {
	if s.pool == nil {
		return fmt.Errorf("river pool is nil")
	}
	if err := s.pool.Ping(ctx); err != nil {
		s.logger.Error("Queue service health check failed", slog.Any("error", err))
		return fmt.Errorf("queue service health check failed: %w", err)
	}
	return nil
}
