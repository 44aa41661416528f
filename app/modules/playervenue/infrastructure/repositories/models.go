package playervenuedb

import (
	"fmt"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// PlayerVenue is the per (player, entity, venue) aggregate recomputed from a
// player's entries, results and buy-ins at that venue.
type PlayerVenue struct {
	bun.BaseModel           `bun:"table:player_venues,alias:pv"`
	ID                      string               `bun:"id,pk,type:uuid"`
	VisitKey                string               `bun:"visit_key,notnull,unique"`
	PlayerID                sharedtypes.PlayerID `bun:"player_id,notnull,type:uuid"`
	EntityID                sharedtypes.EntityID `bun:"entity_id,notnull,type:uuid"`
	VenueID                 sharedtypes.VenueID  `bun:"venue_id,notnull,type:uuid"`
	CanonicalVenueID        sharedtypes.VenueID  `bun:"canonical_venue_id,type:uuid"`
	TotalGamesPlayed        int                  `bun:"total_games_played,notnull,default:0"`
	TotalBuyIns             decimal.Decimal      `bun:"total_buy_ins,type:numeric(14,2),notnull,default:0"`
	TotalRake               decimal.Decimal      `bun:"total_rake,type:numeric(14,2),notnull,default:0"`
	AverageBuyIn            decimal.Decimal      `bun:"average_buy_in,type:numeric(14,2),notnull,default:0"`
	TotalWinnings           decimal.Decimal      `bun:"total_winnings,type:numeric(14,2),notnull,default:0"`
	NetProfit               decimal.Decimal      `bun:"net_profit,type:numeric(14,2),notnull,default:0"`
	FirstPlayedDate         *time.Time           `bun:"first_played_date"`
	LastPlayedDate          *time.Time           `bun:"last_played_date"`
	TargetingClassification string               `bun:"targeting_classification"`
	CreatedAt               time.Time            `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt               time.Time            `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

// VisitKey builds the composite key playerId#entityId#venueId.
func VisitKey(playerID sharedtypes.PlayerID, entityID sharedtypes.EntityID, venueID sharedtypes.VenueID) string {
	return fmt.Sprintf("%s#%s#%s", playerID, entityID, venueID)
}
