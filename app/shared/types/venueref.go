package sharedtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// UnassignedVenueSentinel is the all-zero id older rows use for "no venue yet".
// It is only recognised at the edges (scan, JSON); code works with VenueRef.
const UnassignedVenueSentinel VenueID = "00000000-0000-0000-0000-000000000000"

var configuredSentinel atomic.Pointer[VenueID]

// SetUnassignedSentinel overrides the id read as "no venue". Call it once at
// startup; an empty id restores the default.
func SetUnassignedSentinel(id VenueID) {
	if id == "" {
		id = UnassignedVenueSentinel
	}
	configuredSentinel.Store(&id)
}

func unassignedSentinel() VenueID {
	if id := configuredSentinel.Load(); id != nil {
		return *id
	}
	return UnassignedVenueSentinel
}

// VenueRef is an optional venue reference. The zero value is unassigned.
type VenueRef struct {
	id VenueID
}

// Unassigned returns a reference to no venue.
func Unassigned() VenueRef { return VenueRef{} }

// AssignedTo returns a reference to id. Empty ids and the legacy sentinel
// produce an unassigned reference.
func AssignedTo(id VenueID) VenueRef {
	if id == "" || id == unassignedSentinel() {
		return VenueRef{}
	}
	return VenueRef{id: id}
}

// Get returns the venue id and whether one is set.
func (r VenueRef) Get() (VenueID, bool) {
	return r.id, r.id != ""
}

// IsAssigned reports whether the reference points at a venue.
func (r VenueRef) IsAssigned() bool { return r.id != "" }

// Is reports whether the reference points at exactly id.
func (r VenueRef) Is(id VenueID) bool { return r.id != "" && r.id == id }

// Equal reports whether both references point at the same venue or are both unassigned.
func (r VenueRef) Equal(o VenueRef) bool { return r.id == o.id }

func (r VenueRef) String() string {
	if r.id == "" {
		return "unassigned"
	}
	return string(r.id)
}

// Value implements driver.Valuer. Unassigned is stored as NULL.
func (r VenueRef) Value() (driver.Value, error) {
	if r.id == "" {
		return nil, nil
	}
	return string(r.id), nil
}

// Scan implements sql.Scanner. NULL and the legacy sentinel scan as unassigned.
func (r *VenueRef) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*r = VenueRef{}
	case string:
		*r = AssignedTo(VenueID(v))
	case []byte:
		*r = AssignedTo(VenueID(v))
	default:
		return fmt.Errorf("sharedtypes.VenueRef: cannot scan %T", src)
	}
	return nil
}

func (r VenueRef) MarshalJSON() ([]byte, error) {
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(r.id))
}

func (r *VenueRef) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("sharedtypes.VenueRef: %w", err)
	}
	if s == nil {
		*r = VenueRef{}
		return nil
	}
	*r = AssignedTo(VenueID(*s))
	return nil
}
