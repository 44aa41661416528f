package reassignmenthandlers

import (
	"context"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// FakeService is a programmable reassignmentservice.Service.
type FakeService struct {
	trace []string

	ProcessReassignmentFunc       func(ctx context.Context, req reassignmentservice.ReassignmentRequest) reassignmentservice.PipelineResult
	ReassignGameVenueFunc         func(ctx context.Context, input reassignmentservice.ReassignGameVenueInput) (reassignmentservice.ReassignmentOutcome, error)
	BulkReassignGameVenuesFunc    func(ctx context.Context, input reassignmentservice.BulkReassignInput) (reassignmentservice.BulkReassignOutcome, error)
	AssignVenueToGameFunc         func(ctx context.Context, input reassignmentservice.AssignVenueInput) (reassignmentservice.ReassignmentOutcome, error)
	BatchAssignVenuesFunc         func(ctx context.Context, inputs []reassignmentservice.AssignVenueInput) (reassignmentservice.BatchAssignOutcome, error)
	ListGamesNeedingVenueFunc     func(ctx context.Context, input reassignmentservice.ListGamesNeedingVenueInput) (reassignmentservice.GamesPage, error)
	GetVenueAssignmentSummaryFunc func(ctx context.Context, entityID sharedtypes.EntityID) (reassignmentservice.VenueAssignmentSummary, error)
	GetReassignmentStatusFunc     func(ctx context.Context, taskID sharedtypes.TaskID) (*taskdb.BackgroundTask, error)
	GetVenueClonesFunc            func(ctx context.Context, canonicalVenueID sharedtypes.VenueID) (reassignmentservice.VenueClones, error)
	FindVenueForEntityFunc        func(ctx context.Context, canonicalVenueID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error)
	ConsumeMessagesFunc           func(ctx context.Context, records []reassignmentservice.QueueRecord) reassignmentservice.ConsumeResult
}

func (f *FakeService) record(step string) { f.trace = append(f.trace, step) }

// Trace returns the methods called, in order.
func (f *FakeService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeService) ProcessReassignment(ctx context.Context, req reassignmentservice.ReassignmentRequest) reassignmentservice.PipelineResult {
	f.record("ProcessReassignment")
	if f.ProcessReassignmentFunc != nil {
		return f.ProcessReassignmentFunc(ctx, req)
	}
	return reassignmentservice.PipelineResult{Success: true}
}

func (f *FakeService) ReassignGameVenue(ctx context.Context, input reassignmentservice.ReassignGameVenueInput) (reassignmentservice.ReassignmentOutcome, error) {
	f.record("ReassignGameVenue")
	if f.ReassignGameVenueFunc != nil {
		return f.ReassignGameVenueFunc(ctx, input)
	}
	return reassignmentservice.ReassignmentOutcome{}, nil
}

func (f *FakeService) BulkReassignGameVenues(ctx context.Context, input reassignmentservice.BulkReassignInput) (reassignmentservice.BulkReassignOutcome, error) {
	f.record("BulkReassignGameVenues")
	if f.BulkReassignGameVenuesFunc != nil {
		return f.BulkReassignGameVenuesFunc(ctx, input)
	}
	return reassignmentservice.BulkReassignOutcome{}, nil
}

func (f *FakeService) AssignVenueToGame(ctx context.Context, input reassignmentservice.AssignVenueInput) (reassignmentservice.ReassignmentOutcome, error) {
	f.record("AssignVenueToGame")
	if f.AssignVenueToGameFunc != nil {
		return f.AssignVenueToGameFunc(ctx, input)
	}
	return reassignmentservice.ReassignmentOutcome{}, nil
}

func (f *FakeService) BatchAssignVenues(ctx context.Context, inputs []reassignmentservice.AssignVenueInput) (reassignmentservice.BatchAssignOutcome, error) {
	f.record("BatchAssignVenues")
	if f.BatchAssignVenuesFunc != nil {
		return f.BatchAssignVenuesFunc(ctx, inputs)
	}
	return reassignmentservice.BatchAssignOutcome{}, nil
}

func (f *FakeService) ListGamesNeedingVenue(ctx context.Context, input reassignmentservice.ListGamesNeedingVenueInput) (reassignmentservice.GamesPage, error) {
	f.record("ListGamesNeedingVenue")
	if f.ListGamesNeedingVenueFunc != nil {
		return f.ListGamesNeedingVenueFunc(ctx, input)
	}
	return reassignmentservice.GamesPage{}, nil
}

func (f *FakeService) GetVenueAssignmentSummary(ctx context.Context, entityID sharedtypes.EntityID) (reassignmentservice.VenueAssignmentSummary, error) {
	f.record("GetVenueAssignmentSummary")
	if f.GetVenueAssignmentSummaryFunc != nil {
		return f.GetVenueAssignmentSummaryFunc(ctx, entityID)
	}
	return reassignmentservice.VenueAssignmentSummary{}, nil
}

func (f *FakeService) GetReassignmentStatus(ctx context.Context, taskID sharedtypes.TaskID) (*taskdb.BackgroundTask, error) {
	f.record("GetReassignmentStatus")
	if f.GetReassignmentStatusFunc != nil {
		return f.GetReassignmentStatusFunc(ctx, taskID)
	}
	return &taskdb.BackgroundTask{ID: taskID}, nil
}

func (f *FakeService) GetVenueClones(ctx context.Context, canonicalVenueID sharedtypes.VenueID) (reassignmentservice.VenueClones, error) {
	f.record("GetVenueClones")
	if f.GetVenueClonesFunc != nil {
		return f.GetVenueClonesFunc(ctx, canonicalVenueID)
	}
	return reassignmentservice.VenueClones{CanonicalVenueID: canonicalVenueID}, nil
}

func (f *FakeService) FindVenueForEntity(ctx context.Context, canonicalVenueID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error) {
	f.record("FindVenueForEntity")
	if f.FindVenueForEntityFunc != nil {
		return f.FindVenueForEntityFunc(ctx, canonicalVenueID, entityID)
	}
	return &venuedb.Venue{ID: canonicalVenueID, EntityID: entityID}, nil
}

func (f *FakeService) ConsumeMessages(ctx context.Context, records []reassignmentservice.QueueRecord) reassignmentservice.ConsumeResult {
	f.record("ConsumeMessages")
	if f.ConsumeMessagesFunc != nil {
		return f.ConsumeMessagesFunc(ctx, records)
	}
	return reassignmentservice.ConsumeResult{Processed: len(records)}
}

var _ reassignmentservice.Service = (*FakeService)(nil)
