package gamedb

import (
	"context"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// Repository defines the contract for games and their player records.
// A nil db argument uses the repository's default connection.
type Repository interface {
	// --- Games ---

	GetGame(ctx context.Context, db bun.IDB, id sharedtypes.GameID) (*Game, error)
	GetGames(ctx context.Context, db bun.IDB, ids []sharedtypes.GameID) ([]Game, error)
	// UpdateGameVenue moves a game, marks it manually assigned and bumps its version.
	UpdateGameVenue(ctx context.Context, db bun.IDB, id sharedtypes.GameID, update VenueUpdate) error
	// UpdateParentGameVenue mirrors a child's venue/entity onto its parent.
	UpdateParentGameVenue(ctx context.Context, db bun.IDB, id sharedtypes.GameID, update VenueUpdate) error
	ListGamesNeedingVenue(ctx context.Context, db bun.IDB, filter GamesNeedingVenueFilter) ([]Game, *GameCursor, error)
	CountGamesByAssignmentStatus(ctx context.Context, db bun.IDB, entityID sharedtypes.EntityID) ([]StatusCount, error)

	// --- Player records ---

	ListEntriesByGame(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID) ([]PlayerEntry, error)
	CountEntriesByGame(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID) (int, error)
	ReassignEntries(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update VenueUpdate) (int, error)
	ReassignResults(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update VenueUpdate) (int, error)
	ReassignTransactions(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update VenueUpdate) (int, error)
	ListEntriesByPlayerVenue(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, venueID sharedtypes.VenueID) ([]PlayerEntry, error)
	ListResultsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]PlayerResult, error)
	ListBuyInsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]PlayerTransaction, error)

	// --- Players ---

	GetPlayer(ctx context.Context, db bun.IDB, id sharedtypes.PlayerID) (*Player, error)
	UpdatePlayerRegistrationVenue(ctx context.Context, db bun.IDB, id sharedtypes.PlayerID, venueID sharedtypes.VenueID, at time.Time) error
	// AdjustVenuesVisited applies +1 (creating the summary if absent) or -1
	// (guarded at zero, returning ErrSummaryGuard).
	AdjustVenuesVisited(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, delta int) error
}
