package taskservice

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/observability"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

const serviceName = "TaskService"

// TaskService persists background task metadata.
type TaskService struct {
	repo    taskdb.Repository
	logger  *slog.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
	now     func() time.Time
	newID   func() sharedtypes.TaskID
}

// NewTaskService creates a new TaskService.
func NewTaskService(repo taskdb.Repository, logger *slog.Logger, metrics observability.Metrics, tracer trace.Tracer) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewNoop()
	}
	return &TaskService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		now:     time.Now,
		newID:   func() sharedtypes.TaskID { return sharedtypes.TaskID(uuid.NewString()) },
	}
}

// CreateTask inserts a QUEUED task with zeroed counters.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (sharedtypes.TaskID, error) {
	ctx, done := s.observe(ctx, "CreateTask", input.TaskType)
	var err error
	defer func() { done(err) }()

	payload := ""
	if input.Payload != nil {
		raw, mErr := json.Marshal(input.Payload)
		if mErr != nil {
			err = fmt.Errorf("failed to serialize task payload: %w", mErr)
			return "", err
		}
		payload = string(raw)
	}

	now := s.now().UTC()
	task := &taskdb.BackgroundTask{
		ID:          s.newID(),
		EntityID:    input.EntityID,
		Status:      taskdb.StatusQueued,
		TaskType:    input.TaskType,
		TargetType:  input.TargetType,
		TargetID:    input.TargetID,
		TargetIDs:   input.TargetIDs,
		TargetCount: input.TargetCount,
		Payload:     payload,
		InitiatedBy: input.InitiatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = s.repo.Insert(ctx, nil, task); err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "Background task created",
		slog.String("task_id", task.ID.String()),
		slog.String("task_type", task.TaskType),
		slog.Int("target_count", task.TargetCount),
	)
	return task.ID, nil
}

// UpdateTask changes status and applies any set field of update.
func (s *TaskService) UpdateTask(ctx context.Context, id sharedtypes.TaskID, status taskdb.Status, update TaskUpdate) error {
	ctx, done := s.observe(ctx, "UpdateTask", id.String())
	var err error
	defer func() { done(err) }()

	fields := taskdb.Fields{
		ErrorMessage:    update.ErrorMessage,
		ProcessedCount:  update.ProcessedCount,
		ProgressPercent: update.ProgressPercent,
		StartedAt:       update.StartedAt,
		CompletedAt:     update.CompletedAt,
	}
	if update.Result != nil {
		raw, mErr := json.Marshal(update.Result)
		if mErr != nil {
			err = fmt.Errorf("failed to serialize task result: %w", mErr)
			return err
		}
		fields.Result = raw
	}

	err = s.repo.Update(ctx, nil, id, status, fields, s.now())
	return err
}

// GetTask returns taskdb.ErrNotFound for unknown ids.
func (s *TaskService) GetTask(ctx context.Context, id sharedtypes.TaskID) (*taskdb.BackgroundTask, error) {
	ctx, done := s.observe(ctx, "GetTask", id.String())
	task, err := s.repo.GetByID(ctx, nil, id)
	done(err)
	return task, err
}

// StartTask marks a queued task PROCESSING. Finished tasks are left alone.
func (s *TaskService) StartTask(ctx context.Context, id sharedtypes.TaskID) error {
	ctx, done := s.observe(ctx, "StartTask", id.String())
	err := s.repo.MarkProcessing(ctx, nil, id, s.now())
	done(err)
	return err
}

// RecordProgress stores the outcome of one target under its key. The task
// becomes COMPLETED, or FAILED if any target's latest outcome failed, once
// every target has reported.
func (s *TaskService) RecordProgress(ctx context.Context, id sharedtypes.TaskID, update ProgressUpdate) (*taskdb.BackgroundTask, error) {
	ctx, done := s.observe(ctx, "RecordProgress", id.String())
	var err error
	defer func() { done(err) }()

	progress := taskdb.Progress{
		Key:          update.Key,
		Failed:       update.Failed,
		ErrorMessage: update.ErrorMessage,
	}
	if update.Result != nil {
		raw, mErr := json.Marshal(update.Result)
		if mErr != nil {
			err = fmt.Errorf("failed to serialize progress result: %w", mErr)
			return nil, err
		}
		progress.Result = raw
	}

	task, err := s.repo.RecordProgress(ctx, nil, id, progress, s.now())
	if err != nil {
		return nil, err
	}
	if task.Status.IsTerminal() {
		s.logger.InfoContext(ctx, "Background task finished",
			slog.String("task_id", id.String()),
			slog.String("status", string(task.Status)),
			slog.Int("processed", task.ProcessedCount),
			slog.Int("failed", task.FailedCount),
		)
	}
	return task, nil
}

// observe starts a span and records attempt metrics. The returned func ends
// both and logs failures.
func (s *TaskService) observe(ctx context.Context, operation, identifier string) (context.Context, func(error)) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operation, trace.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("identifier", identifier),
		))
	}
	s.metrics.RecordOperationAttempt(ctx, operation, serviceName)
	start := time.Now()

	return ctx, func(err error) {
		s.metrics.RecordOperationDuration(ctx, operation, serviceName, time.Since(start))
		if err != nil {
			s.metrics.RecordOperationFailure(ctx, operation, serviceName)
			s.logger.ErrorContext(ctx, "Task operation failed",
				slog.String("operation", operation),
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			if span != nil {
				span.RecordError(err)
			}
		} else {
			s.metrics.RecordOperationSuccess(ctx, operation, serviceName)
		}
		if span != nil {
			span.End()
		}
	}
}
