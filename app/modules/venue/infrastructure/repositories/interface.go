package venuedb

import (
	"context"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for venue persistence.
// A nil db argument uses the repository's default connection.
type Repository interface {
	// GetByID returns ErrNotFound if the venue does not exist.
	GetByID(ctx context.Context, db bun.IDB, id sharedtypes.VenueID) (*Venue, error)

	// FindClone returns the clone of canonicalID owned by entityID, or ErrNotFound.
	FindClone(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*Venue, error)

	// ListClones returns every clone of canonicalID ordered by venue number.
	ListClones(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID) ([]Venue, error)

	// MaxVenueNumber returns the highest venue number in use, 0 when there are no venues.
	MaxVenueNumber(ctx context.Context, db bun.IDB) (int, error)

	// Insert creates a venue. Returns ErrCloneExists when the
	// (canonical_venue_id, entity_id) pair is already taken.
	Insert(ctx context.Context, db bun.IDB, venue *Venue) error
}
