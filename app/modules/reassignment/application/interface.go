package reassignmentservice

import (
	"context"

	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// Service is the venue reassignment engine.
type Service interface {
	// ProcessReassignment runs the cascade for one game. It never returns an
	// error; failures are reported on the result with partial stats.
	ProcessReassignment(ctx context.Context, req ReassignmentRequest) PipelineResult

	ReassignGameVenue(ctx context.Context, input ReassignGameVenueInput) (ReassignmentOutcome, error)
	BulkReassignGameVenues(ctx context.Context, input BulkReassignInput) (BulkReassignOutcome, error)
	AssignVenueToGame(ctx context.Context, input AssignVenueInput) (ReassignmentOutcome, error)
	BatchAssignVenues(ctx context.Context, inputs []AssignVenueInput) (BatchAssignOutcome, error)

	ListGamesNeedingVenue(ctx context.Context, input ListGamesNeedingVenueInput) (GamesPage, error)
	GetVenueAssignmentSummary(ctx context.Context, entityID sharedtypes.EntityID) (VenueAssignmentSummary, error)
	GetReassignmentStatus(ctx context.Context, taskID sharedtypes.TaskID) (*taskdb.BackgroundTask, error)
	GetVenueClones(ctx context.Context, canonicalVenueID sharedtypes.VenueID) (VenueClones, error)
	FindVenueForEntity(ctx context.Context, canonicalVenueID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error)

	ConsumeMessages(ctx context.Context, records []QueueRecord) ConsumeResult
}

// Enqueuer hands reassignment jobs to the work queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, job QueueJob) error
}

// Notifier announces finished pipelines.
type Notifier interface {
	ReassignmentFinished(ctx context.Context, req ReassignmentRequest, result PipelineResult) error
}

var _ Service = (*ReassignmentService)(nil)
