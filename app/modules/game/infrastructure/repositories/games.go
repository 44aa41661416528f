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

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new game repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetGame(ctx context.Context, db bun.IDB, id sharedtypes.GameID) (*Game, error) {
	db = r.resolveDB(db)
	game := new(Game)
	err := db.NewSelect().
		Model(game).
		Where("g.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("gamedb.GetGame: %w", err)
	}
	return game, nil
}

func (r *Impl) GetGames(ctx context.Context, db bun.IDB, ids []sharedtypes.GameID) ([]Game, error) {
	if len(ids) == 0 {
		return []Game{}, nil
	}
	db = r.resolveDB(db)
	var games []Game
	err := db.NewSelect().
		Model(&games).
		Where("g.id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("gamedb.GetGames: %w", err)
	}
	return games, nil
}

func (r *Impl) UpdateGameVenue(ctx context.Context, db bun.IDB, id sharedtypes.GameID, update VenueUpdate) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Game)(nil)).
		Set("venue_id = ?", update.VenueID).
		Set("entity_id = ?", update.EntityID).
		Set("venue_assignment_status = ?", sharedtypes.VenueAssignmentManual).
		Set("requires_venue_assignment = FALSE").
		Set("version = version + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamedb.UpdateGameVenue: %w", err)
	}
	return requireRows(res, "gamedb.UpdateGameVenue")
}

func (r *Impl) UpdateParentGameVenue(ctx context.Context, db bun.IDB, id sharedtypes.GameID, update VenueUpdate) error {
	db = r.resolveDB(db)
	res, err := db.NewUpdate().
		Model((*Game)(nil)).
		Set("venue_id = ?", update.VenueID).
		Set("entity_id = ?", update.EntityID).
		Set("version = version + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("gamedb.UpdateParentGameVenue: %w", err)
	}
	return requireRows(res, "gamedb.UpdateParentGameVenue")
}

func (r *Impl) ListGamesNeedingVenue(ctx context.Context, db bun.IDB, filter GamesNeedingVenueFilter) ([]Game, *GameCursor, error) {
	db = r.resolveDB(db)
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var games []Game
	q := db.NewSelect().
		Model(&games).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("g.requires_venue_assignment = TRUE").
				WhereOr("g.venue_id IS NULL").
				WhereOr("g.venue_assignment_status = ?", sharedtypes.VenueAssignmentPending)
		})
	if filter.EntityID != "" {
		q = q.Where("g.entity_id = ?", filter.EntityID)
	}
	if filter.StartedAfter != nil {
		q = q.Where("g.game_start_date_time >= ?", *filter.StartedAfter)
	}
	if filter.After != nil {
		q = q.Where("(g.game_start_date_time, g.id) > (?, ?)", filter.After.StartedAt, filter.After.GameID)
	}
	err := q.Order("g.game_start_date_time ASC", "g.id ASC").
		Limit(limit + 1).
		Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("gamedb.ListGamesNeedingVenue: %w", err)
	}

	if len(games) <= limit {
		return games, nil, nil
	}
	games = games[:limit]
	last := games[len(games)-1]
	return games, &GameCursor{StartedAt: last.GameStartDateTime, GameID: last.ID}, nil
}

func (r *Impl) CountGamesByAssignmentStatus(ctx context.Context, db bun.IDB, entityID sharedtypes.EntityID) ([]StatusCount, error) {
	db = r.resolveDB(db)
	var counts []StatusCount
	q := db.NewSelect().
		Model((*Game)(nil)).
		ColumnExpr("COALESCE(g.venue_assignment_status, ?) AS status", sharedtypes.VenueAssignmentUnassigned).
		ColumnExpr("COUNT(*) AS count").
		GroupExpr("1").
		OrderExpr("1")
	if entityID != "" {
		q = q.Where("g.entity_id = ?", entityID)
	}
	if err := q.Scan(ctx, &counts); err != nil {
		return nil, fmt.Errorf("gamedb.CountGamesByAssignmentStatus: %w", err)
	}
	return counts, nil
}

func requireRows(res sql.Result, op string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if rows == 0 {
		return fmt.Errorf("%s: %w", op, ErrNoRowsAffected)
	}
	return nil
}
