package gamedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

func (r *Impl) GetPlayer(ctx context.Context, db bun.IDB, id sharedtypes.PlayerID) (*Player, error) {
	db = r.resolveDB(db)
	player := new(Player)
	err := db.NewSelect().
		Model(player).
		Where("p.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gamedb.GetPlayer: %w", err)
	}
	return player, nil
}

func (r *Impl) UpdatePlayerRegistrationVenue(ctx context.Context, db bun.IDB, id sharedtypes.PlayerID, venueID sharedtypes.VenueID, at time.Time) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Player)(nil)).
		Set("registration_venue_id = ?", venueID).
		Set("venue_assignment_status = ?", sharedtypes.VenueAssignmentRetroactive).
		Set("updated_at = ?", at.UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamedb.UpdatePlayerRegistrationVenue: %w", err)
	}
	return requireRows(res, "gamedb.UpdatePlayerRegistrationVenue")
}

func (r *Impl) AdjustVenuesVisited(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, delta int) error {
	db = r.resolveDB(db)
	now := time.Now().UTC()

	switch {
	case delta > 0:
		summary := &PlayerSummary{PlayerID: playerID, VenuesVisited: delta, UpdatedAt: now}
		_, err := db.NewInsert().
			Model(summary).
			On("CONFLICT (player_id) DO UPDATE").
			Set("venues_visited = ps.venues_visited + EXCLUDED.venues_visited").
			Set("updated_at = EXCLUDED.updated_at").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("gamedb.AdjustVenuesVisited: %w", err)
		}
		return nil

	case delta < 0:
		res, err := db.NewUpdate().
			Model((*PlayerSummary)(nil)).
			Set("venues_visited = venues_visited + ?", delta).
			Set("updated_at = ?", now).
			Where("player_id = ?", playerID).
			Where("venues_visited + ? >= 0", delta).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("gamedb.AdjustVenuesVisited: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("gamedb.AdjustVenuesVisited: rows affected: %w", err)
		}
		if rows == 0 {
			return ErrSummaryGuard
		}
		return nil
	}
	return nil
}
