package playervenueservice

import (
	"context"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Outcome describes what a recalculation did to the stored aggregate.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeUpdated  Outcome = "updated"
	OutcomeDeleted  Outcome = "deleted"
	OutcomeNoChange Outcome = "noChange"
)

// RecalculateRequest identifies the aggregate to rebuild.
type RecalculateRequest struct {
	PlayerID         sharedtypes.PlayerID
	VenueID          sharedtypes.VenueID
	EntityID         sharedtypes.EntityID
	CanonicalVenueID sharedtypes.VenueID
}

// Stats are the derived aggregate values.
type Stats struct {
	TotalGamesPlayed        int             `json:"totalGamesPlayed"`
	TotalBuyIns             decimal.Decimal `json:"totalBuyIns"`
	TotalRake               decimal.Decimal `json:"totalRake"`
	AverageBuyIn            decimal.Decimal `json:"averageBuyIn"`
	TotalWinnings           decimal.Decimal `json:"totalWinnings"`
	NetProfit               decimal.Decimal `json:"netProfit"`
	FirstPlayedDate         time.Time       `json:"firstPlayedDate"`
	LastPlayedDate          time.Time       `json:"lastPlayedDate"`
	TargetingClassification TargetingClass  `json:"targetingClassification"`
}

// RecalculationResult is returned by RecalculatePlayerVenue. Stats is nil
// when no entries remain.
type RecalculationResult struct {
	Outcome Outcome `json:"outcome"`
	Stats   *Stats  `json:"stats,omitempty"`
}

// Service maintains player venue aggregates.
type Service interface {
	RecalculatePlayerVenue(ctx context.Context, db bun.IDB, req RecalculateRequest) (RecalculationResult, error)
	IncrementPlayerVenueSimple(ctx context.Context, db bun.IDB, req RecalculateRequest, playedAt time.Time) error
}

var _ Service = (*PlayerVenueService)(nil)
