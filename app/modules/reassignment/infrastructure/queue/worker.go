package reassignmentqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/riverqueue/river"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	"github.com/kingsroom/venue-engine/app/shared/observability"
)

// jobTimeout covers the largest games. The pipeline itself ignores
// cancellation once started.
const jobTimeout = 15 * time.Minute

// Consumer processes delivered reassignment records.
type Consumer interface {
	ConsumeMessages(ctx context.Context, records []reassignmentservice.QueueRecord) reassignmentservice.ConsumeResult
}

// ReassignmentWorker runs one queued reassignment under its game's lock.
type ReassignmentWorker struct {
	river.WorkerDefaults[ReassignmentJob]
	consumer Consumer
	locker   GameLocker
	logger   *slog.Logger
	metrics  observability.Metrics
}

// NewReassignmentWorker creates a worker. The consumer may be attached later
// with SetConsumer, before the client starts.
func NewReassignmentWorker(consumer Consumer, locker GameLocker, logger *slog.Logger, metrics observability.Metrics) *ReassignmentWorker {
	return &ReassignmentWorker{
		consumer: consumer,
		locker:   locker,
		logger:   logger,
		metrics:  metrics,
	}
}

// SetConsumer attaches the consumer.
func (w *ReassignmentWorker) SetConsumer(c Consumer) { w.consumer = c }

func (w *ReassignmentWorker) Timeout(*river.Job[ReassignmentJob]) time.Duration { return jobTimeout }

// Work hands the job to the consumer. A failed record returns an error so
// river retries it.
func (w *ReassignmentWorker) Work(ctx context.Context, job *river.Job[ReassignmentJob]) error {
	start := time.Now()
	w.metrics.RecordOperationAttempt(ctx, "work_reassignment", "river")
	defer func() {
		w.metrics.RecordOperationDuration(ctx, "work_reassignment", "river", time.Since(start))
	}()

	if w.consumer == nil {
		w.metrics.RecordOperationFailure(ctx, "work_reassignment", "river")
		return fmt.Errorf("reassignment worker has no consumer")
	}

	body, err := json.Marshal(job.Args.Message)
	if err != nil {
		w.metrics.RecordOperationFailure(ctx, "work_reassignment", "river")
		return river.JobCancel(fmt.Errorf("failed to encode message: %w", err))
	}
	record := reassignmentservice.QueueRecord{
		MessageID:        strconv.FormatInt(job.ID, 10),
		Body:             body,
		RetriesRemaining: job.Attempt < job.MaxAttempts,
	}

	groupKey := job.Args.GroupKey
	if groupKey == "" {
		groupKey = job.Args.Message.GroupKey()
	}

	ctxLogger := w.logger.With(
		slog.Int64("job_id", job.ID),
		slog.String("game_id", job.Args.Message.GameID.String()),
		slog.Int("attempt", job.Attempt),
	)
	ctxLogger.InfoContext(ctx, "Processing reassignment job")

	err = w.locker.WithGameLock(ctx, groupKey, func(ctx context.Context) error {
		res := w.consumer.ConsumeMessages(ctx, []reassignmentservice.QueueRecord{record})
		if len(res.FailedMessageIDs) > 0 {
			return fmt.Errorf("reassignment of game %s failed", job.Args.Message.GameID)
		}
		return nil
	})
	if err != nil {
		ctxLogger.ErrorContext(ctx, "Reassignment job failed", slog.Any("error", err))
		w.metrics.RecordOperationFailure(ctx, "work_reassignment", "river")
		return err
	}

	w.metrics.RecordOperationSuccess(ctx, "work_reassignment", "river")
	ctxLogger.InfoContext(ctx, "Reassignment job completed")
	return nil
}
