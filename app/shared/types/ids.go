package sharedtypes

// EntityID identifies a tenant (a poker business owning venues and games).
type EntityID string

// VenueID identifies a venue row. Clones of a venue have their own VenueID.
type VenueID string

// GameID identifies a scheduled or played game.
type GameID string

// PlayerID identifies a player.
type PlayerID string

// TaskID identifies a background task.
type TaskID string

func (id EntityID) String() string { return string(id) }
func (id VenueID) String() string  { return string(id) }
func (id GameID) String() string   { return string(id) }
func (id PlayerID) String() string { return string(id) }
func (id TaskID) String() string   { return string(id) }

// VenueAssignmentStatus tracks how a game or player got its venue.
type VenueAssignmentStatus string

const (
	VenueAssignmentPending     VenueAssignmentStatus = "PENDING_ASSIGNMENT"
	VenueAssignmentAuto        VenueAssignmentStatus = "AUTO_ASSIGNED"
	VenueAssignmentManual      VenueAssignmentStatus = "MANUALLY_ASSIGNED"
	VenueAssignmentRetroactive VenueAssignmentStatus = "RETROACTIVE_ASSIGNED"
	VenueAssignmentUnassigned  VenueAssignmentStatus = "UNASSIGNED"
	VenueAssignmentNeedsReview VenueAssignmentStatus = "NEEDS_REVIEW"
)
