package taskdb

import (
	"context"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for background task persistence.
type Repository interface {
	Insert(ctx context.Context, db bun.IDB, task *BackgroundTask) error
	GetByID(ctx context.Context, db bun.IDB, id sharedtypes.TaskID) (*BackgroundTask, error)
	// Update sets status and any non-nil field, always refreshing updated_at.
	Update(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, status Status, fields Fields, at time.Time) error
	// MarkProcessing moves a non-terminal task to PROCESSING, keeping the first started_at.
	MarkProcessing(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, at time.Time) error
	// RecordProgress stores the outcome of one unit under its key and finishes
	// the task once every target has an outcome. Reporting a key again replaces
	// its earlier outcome. Returns the updated task.
	RecordProgress(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, progress Progress, at time.Time) (*BackgroundTask, error)
}
