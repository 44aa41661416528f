package gamedb

import (
	"context"
	"fmt"
	"time"

	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

func (r *Impl) ListEntriesByGame(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID) ([]PlayerEntry, error) {
	db = r.resolveDB(db)
	var entries []PlayerEntry
	err := db.NewSelect().
		Model(&entries).
		Where("pe.game_id = ?", gameID).
		Order("pe.player_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.ListEntriesByGame: %w", err)
	}
	return entries, nil
}

func (r *Impl) CountEntriesByGame(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID) (int, error) {
	db = r.resolveDB(db)
	count, err := db.NewSelect().
		Model((*PlayerEntry)(nil)).
		Where("pe.game_id = ?", gameID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("gamedb.CountEntriesByGame: %w", err)
	}
	return count, nil
}

func (r *Impl) ReassignEntries(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update VenueUpdate) (int, error) {
	n, err := r.reassign(ctx, db, (*PlayerEntry)(nil), gameID, update)
	if err != nil {
		return 0, fmt.Errorf("gamedb.ReassignEntries: %w", err)
	}
	return n, nil
}

func (r *Impl) ReassignResults(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update VenueUpdate) (int, error) {
	n, err := r.reassign(ctx, db, (*PlayerResult)(nil), gameID, update)
	if err != nil {
		return 0, fmt.Errorf("gamedb.ReassignResults: %w", err)
	}
	return n, nil
}

func (r *Impl) ReassignTransactions(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update VenueUpdate) (int, error) {
	n, err := r.reassign(ctx, db, (*PlayerTransaction)(nil), gameID, update)
	if err != nil {
		return 0, fmt.Errorf("gamedb.ReassignTransactions: %w", err)
	}
	return n, nil
}

// reassign overwrites venue/entity on every row of model belonging to gameID.
// Replays write the same values, so the cascade is safe to retry.
func (r *Impl) reassign(ctx context.Context, db bun.IDB, model any, gameID sharedtypes.GameID, update VenueUpdate) (int, error) {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model(model).
		Set("venue_id = ?", update.VenueID).
		Set("entity_id = ?", update.EntityID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("game_id = ?", gameID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (r *Impl) ListEntriesByPlayerVenue(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, venueID sharedtypes.VenueID) ([]PlayerEntry, error) {
	db = r.resolveDB(db)
	var entries []PlayerEntry
	err := db.NewSelect().
		Model(&entries).
		Where("pe.player_id = ?", playerID).
		Where("pe.venue_id = ?", venueID).
		Order("pe.entry_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.ListEntriesByPlayerVenue: %w", err)
	}
	return entries, nil
}

func (r *Impl) ListResultsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]PlayerResult, error) {
	if len(gameIDs) == 0 {
		return []PlayerResult{}, nil
	}
	db = r.resolveDB(db)
	var rows []PlayerResult
	err := db.NewSelect().
		Model(&rows).
		Where("pr.player_id = ?", playerID).
		Where("pr.game_id IN (?)", bun.In(gameIDs)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.ListResultsByPlayerGames: %w", err)
	}
	return rows, nil
}

func (r *Impl) ListBuyInsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]PlayerTransaction, error) {
	if len(gameIDs) == 0 {
		return []PlayerTransaction{}, nil
	}
	db = r.resolveDB(db)
	var rows []PlayerTransaction
	err := db.NewSelect().
		Model(&rows).
		Where("pt.player_id = ?", playerID).
		Where("pt.game_id IN (?)", bun.In(gameIDs)).
		Where("pt.type = ?", TransactionTypeBuyIn).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.ListBuyInsByPlayerGames: %w", err)
	}
	return rows, nil
}
