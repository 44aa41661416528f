package venueservice

import (
	"context"

	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// CloneResult identifies the entity-scoped venue resolved for a clone request.
type CloneResult struct {
	VenueID    sharedtypes.VenueID `json:"venueId"`
	WasCreated bool                `json:"wasCreated"`
}

// Service resolves entity-scoped venues.
type Service interface {
	GetVenue(ctx context.Context, id sharedtypes.VenueID) (*venuedb.Venue, error)
	// FindVenueForEntity returns nil, nil when the entity has no venue for the canonical venue.
	FindVenueForEntity(ctx context.Context, canonicalVenueID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error)
	FindOrCreateVenueClone(ctx context.Context, source *venuedb.Venue, targetEntityID sharedtypes.EntityID) (CloneResult, error)
	GetVenueClones(ctx context.Context, canonicalVenueID sharedtypes.VenueID) ([]venuedb.Venue, error)
}

var _ Service = (*VenueService)(nil)
