package playervenuedb

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Repository defines the contract for player venue aggregates.
type Repository interface {
	GetByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (*PlayerVenue, error)
	Insert(ctx context.Context, db bun.IDB, pv *PlayerVenue) error
	// Update overwrites every derived field of the row identified by pv.ID.
	Update(ctx context.Context, db bun.IDB, pv *PlayerVenue) error
	// DeleteByVisitKey reports whether a row was removed.
	DeleteByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (bool, error)
	// IncrementGamesPlayed adds one game to the aggregate, creating it when absent.
	IncrementGamesPlayed(ctx context.Context, db bun.IDB, pv *PlayerVenue, playedAt time.Time) error
}
