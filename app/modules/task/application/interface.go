package taskservice

import (
	"context"
	"time"

	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// CreateTaskInput describes a new background task. Payload is serialized to a
// JSON string on the stored row.
type CreateTaskInput struct {
	EntityID    sharedtypes.EntityID
	TaskType    string
	TargetType  string
	TargetID    string
	TargetIDs   []string
	TargetCount int
	Payload     any
	InitiatedBy string
}

// TaskUpdate is a partial update applied alongside a status change.
// Result is marshalled to JSON.
type TaskUpdate struct {
	Result          any
	ErrorMessage    *string
	ProcessedCount  *int
	ProgressPercent *int
	StartedAt       *time.Time
	CompletedAt     *time.Time
}

// ProgressUpdate reports one finished target of a task.
type ProgressUpdate struct {
	Key          string
	Failed       bool
	Result       any
	ErrorMessage string
}

// Service tracks long-running reassignment jobs.
type Service interface {
	CreateTask(ctx context.Context, input CreateTaskInput) (sharedtypes.TaskID, error)
	UpdateTask(ctx context.Context, id sharedtypes.TaskID, status taskdb.Status, update TaskUpdate) error
	GetTask(ctx context.Context, id sharedtypes.TaskID) (*taskdb.BackgroundTask, error)
	StartTask(ctx context.Context, id sharedtypes.TaskID) error
	RecordProgress(ctx context.Context, id sharedtypes.TaskID, update ProgressUpdate) (*taskdb.BackgroundTask, error)
}

var _ Service = (*TaskService)(nil)
