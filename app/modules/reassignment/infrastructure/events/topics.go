package reassignmentevents

import (
	"time"

	reassignmentservice "github.com/kingsroom/venue-engine/app/modules/reassignment/application"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

const (
	// ReassignmentCompletedV1 is published after a pipeline finishes every stage.
	ReassignmentCompletedV1 = "venue.reassignment.completed.v1"
	// ReassignmentFailedV1 is published after a pipeline stops at a stage.
	ReassignmentFailedV1 = "venue.reassignment.failed.v1"
)

// ReassignmentFinishedPayloadV1 is the body of both topics.
type ReassignmentFinishedPayloadV1 struct {
	GameID      sharedtypes.GameID                `json:"game_id"`
	OldVenueID  sharedtypes.VenueRef              `json:"old_venue_id"`
	NewVenueID  sharedtypes.VenueID               `json:"new_venue_id"`
	OldEntityID sharedtypes.EntityID              `json:"old_entity_id"`
	NewEntityID sharedtypes.EntityID              `json:"new_entity_id"`
	Success     bool                              `json:"success"`
	Message     string                            `json:"message"`
	FailedStage reassignmentservice.Stage         `json:"failed_stage,omitempty"`
	Stats       reassignmentservice.PipelineStats `json:"stats"`
	OccurredAt  time.Time                         `json:"occurred_at"`
}
