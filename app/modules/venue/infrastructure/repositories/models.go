package venuedb

import (
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Venue is a physical location owned by one entity. A venue with a nil
// CanonicalVenueID is canonical; otherwise it is an entity-scoped clone.
type Venue struct {
	bun.BaseModel    `bun:"table:venues,alias:v"`
	ID               sharedtypes.VenueID  `bun:"id,pk,type:uuid" json:"id"`
	EntityID         sharedtypes.EntityID `bun:"entity_id,notnull,type:uuid" json:"entityId"`
	CanonicalVenueID *sharedtypes.VenueID `bun:"canonical_venue_id,type:uuid" json:"canonicalVenueId,omitempty"`
	Name             string               `bun:"name,notnull" json:"name"`
	Aliases          []string             `bun:"aliases,array" json:"aliases,omitempty"`
	Address          string               `bun:"address" json:"address,omitempty"`
	City             string               `bun:"city" json:"city,omitempty"`
	Country          string               `bun:"country" json:"country,omitempty"`
	Fee              decimal.Decimal      `bun:"fee,type:numeric(14,2),notnull,default:0" json:"fee"`
	IsSpecial        bool                 `bun:"is_special,notnull,default:false" json:"isSpecial"`
	VenueNumber      int                  `bun:"venue_number,notnull,default:0" json:"venueNumber"`
	Version          int                  `bun:"version,notnull,default:1" json:"version"`
	CreatedAt        time.Time            `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"createdAt"`
	UpdatedAt        time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// CanonicalID returns the id of the venue this row was cloned from, or its own
// id when it is canonical.
func (v *Venue) CanonicalID() sharedtypes.VenueID {
	if v.CanonicalVenueID != nil && *v.CanonicalVenueID != "" {
		return *v.CanonicalVenueID
	}
	return v.ID
}

// IsCanonical reports whether the venue is an original rather than a clone.
func (v *Venue) IsCanonical() bool {
	return v.CanonicalVenueID == nil || *v.CanonicalVenueID == ""
}
