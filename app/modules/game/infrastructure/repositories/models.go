package gamedb

import (
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// TransactionTypeBuyIn marks a player transaction that paid into a game.
const TransactionTypeBuyIn = "BUY_IN"

// Game is a scheduled or played event. Flights of a multi-day event point at
// their parent through ParentGameID.
type Game struct {
	bun.BaseModel           `bun:"table:games,alias:g"`
	ID                      sharedtypes.GameID                `bun:"id,pk,type:uuid" json:"id"`
	Name                    string                            `bun:"name" json:"name"`
	VenueID                 sharedtypes.VenueRef              `bun:"venue_id,type:uuid" json:"venueId"`
	EntityID                sharedtypes.EntityID              `bun:"entity_id,notnull,type:uuid" json:"entityId"`
	ParentGameID            *sharedtypes.GameID               `bun:"parent_game_id,type:uuid" json:"parentGameId,omitempty"`
	VenueAssignmentStatus   sharedtypes.VenueAssignmentStatus `bun:"venue_assignment_status,notnull" json:"venueAssignmentStatus"`
	RequiresVenueAssignment bool                              `bun:"requires_venue_assignment,notnull,default:false" json:"requiresVenueAssignment"`
	TotalUniquePlayers      *int                              `bun:"total_unique_players" json:"totalUniquePlayers,omitempty"`
	TotalInitialEntries     *int                              `bun:"total_initial_entries" json:"totalInitialEntries,omitempty"`
	BuyIn                   decimal.Decimal                   `bun:"buy_in,type:numeric(14,2),notnull,default:0" json:"buyIn"`
	Rake                    decimal.Decimal                   `bun:"rake,type:numeric(14,2),notnull,default:0" json:"rake"`
	GameStartDateTime       time.Time                         `bun:"game_start_date_time,notnull" json:"gameStartDateTime"`
	Version                 int                               `bun:"version,notnull,default:1" json:"version"`
	UpdatedAt               time.Time                         `bun:"updated_at,nullzero,notnull,default:current_timestamp" json:"updatedAt"`
}

// PlayerCount is the cached blast-radius hint: unique players, else initial
// entries, else zero.
func (g *Game) PlayerCount() int {
	if g.TotalUniquePlayers != nil {
		return *g.TotalUniquePlayers
	}
	if g.TotalInitialEntries != nil {
		return *g.TotalInitialEntries
	}
	return 0
}

// PlayerEntry records a player's entry into a game.
type PlayerEntry struct {
	bun.BaseModel `bun:"table:player_entries,alias:pe"`
	ID            string               `bun:"id,pk,type:uuid"`
	GameID        sharedtypes.GameID   `bun:"game_id,notnull,type:uuid"`
	PlayerID      sharedtypes.PlayerID `bun:"player_id,notnull,type:uuid"`
	VenueID       sharedtypes.VenueRef `bun:"venue_id,type:uuid"`
	EntityID      sharedtypes.EntityID `bun:"entity_id,notnull,type:uuid"`
	EntryDate     time.Time            `bun:"entry_date,notnull"`
	UpdatedAt     time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// PlayerResult records where a player finished and what they won.
type PlayerResult struct {
	bun.BaseModel  `bun:"table:player_results,alias:pr"`
	ID             string               `bun:"id,pk,type:uuid"`
	GameID         sharedtypes.GameID   `bun:"game_id,notnull,type:uuid"`
	PlayerID       sharedtypes.PlayerID `bun:"player_id,notnull,type:uuid"`
	VenueID        sharedtypes.VenueRef `bun:"venue_id,type:uuid"`
	EntityID       sharedtypes.EntityID `bun:"entity_id,notnull,type:uuid"`
	FinishingPlace *int                 `bun:"finishing_place"`
	Winnings       decimal.Decimal      `bun:"winnings,type:numeric(14,2),notnull,default:0"`
	UpdatedAt      time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// PlayerTransaction is a money movement tied to a game.
type PlayerTransaction struct {
	bun.BaseModel `bun:"table:player_transactions,alias:pt"`
	ID            string               `bun:"id,pk,type:uuid"`
	GameID        sharedtypes.GameID   `bun:"game_id,notnull,type:uuid"`
	PlayerID      sharedtypes.PlayerID `bun:"player_id,notnull,type:uuid"`
	VenueID       sharedtypes.VenueRef `bun:"venue_id,type:uuid"`
	EntityID      sharedtypes.EntityID `bun:"entity_id,notnull,type:uuid"`
	Type          string               `bun:"type,notnull"`
	Amount        decimal.Decimal      `bun:"amount,type:numeric(14,2),notnull,default:0"`
	Rake          decimal.Decimal      `bun:"rake,type:numeric(14,2),notnull,default:0"`
	UpdatedAt     time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// Player holds the registration bookkeeping touched by retroactive assignment.
type Player struct {
	bun.BaseModel         `bun:"table:players,alias:p"`
	ID                    sharedtypes.PlayerID              `bun:"id,pk,type:uuid"`
	EntityID              sharedtypes.EntityID              `bun:"entity_id,notnull,type:uuid"`
	RegistrationVenueID   sharedtypes.VenueRef              `bun:"registration_venue_id,type:uuid"`
	RegistrationDate      time.Time                         `bun:"registration_date,nullzero"`
	FirstGamePlayed       *time.Time                        `bun:"first_game_played"`
	VenueAssignmentStatus sharedtypes.VenueAssignmentStatus `bun:"venue_assignment_status"`
	UpdatedAt             time.Time                         `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// PlayerSummary is the delta-maintained per-player rollup.
type PlayerSummary struct {
	bun.BaseModel `bun:"table:player_summaries,alias:ps"`
	PlayerID      sharedtypes.PlayerID `bun:"player_id,pk,type:uuid"`
	VenuesVisited int                  `bun:"venues_visited,notnull,default:0"`
	UpdatedAt     time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// GameCursor is the keyset position used to page games needing a venue.
type GameCursor struct {
	StartedAt time.Time          `json:"startedAt"`
	GameID    sharedtypes.GameID `json:"gameId"`
}

// GamesNeedingVenueFilter narrows ListGamesNeedingVenue.
type GamesNeedingVenueFilter struct {
	EntityID     sharedtypes.EntityID
	StartedAfter *time.Time
	Limit        int
	After        *GameCursor
}

// StatusCount is one row of the assignment status breakdown.
type StatusCount struct {
	Status sharedtypes.VenueAssignmentStatus `bun:"status" json:"status"`
	Count  int                               `bun:"count" json:"count"`
}

// VenueUpdate is the venue/entity pair written by a reassignment.
type VenueUpdate struct {
	VenueID  sharedtypes.VenueID
	EntityID sharedtypes.EntityID
}
