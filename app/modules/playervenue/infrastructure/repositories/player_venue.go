package playervenuedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Impl implements the Repository interface using Bun ORM.
type Impl struct {
	db bun.IDB
}

// NewRepository creates a new player venue repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (*PlayerVenue, error) {
	db = r.resolveDB(db)
	pv := new(PlayerVenue)
	err := db.NewSelect().
		Model(pv).
		Where("pv.visit_key = ?", visitKey).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("playervenuedb.GetByVisitKey: %w", err)
	}
	return pv, nil
}

func (r *Impl) Insert(ctx context.Context, db bun.IDB, pv *PlayerVenue) error {
	db = r.resolveDB(db)
	if _, err := db.NewInsert().Model(pv).Exec(ctx); err != nil {
		return fmt.Errorf("playervenuedb.Insert: %w", err)
	}
	return nil
}

func (r *Impl) Update(ctx context.Context, db bun.IDB, pv *PlayerVenue) error {
	db = r.resolveDB(db)
	_, err := db.NewUpdate().
		Model(pv).
		Column(
			"canonical_venue_id",
			"total_games_played",
			"total_buy_ins",
			"total_rake",
			"average_buy_in",
			"total_winnings",
			"net_profit",
			"first_played_date",
			"last_played_date",
			"targeting_classification",
			"updated_at",
		).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("playervenuedb.Update: %w", err)
	}
	return nil
}

func (r *Impl) DeleteByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (bool, error) {
	db = r.resolveDB(db)
	res, err := db.NewDelete().
		Model((*PlayerVenue)(nil)).
		Where("visit_key = ?", visitKey).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("playervenuedb.DeleteByVisitKey: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("playervenuedb.DeleteByVisitKey: rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *Impl) IncrementGamesPlayed(ctx context.Context, db bun.IDB, pv *PlayerVenue, playedAt time.Time) error {
	db = r.resolveDB(db)
	playedAt = playedAt.UTC()
	pv.TotalGamesPlayed = 1
	pv.FirstPlayedDate = &playedAt
	pv.LastPlayedDate = &playedAt
	pv.UpdatedAt = time.Now().UTC()

	_, err := db.NewInsert().
		Model(pv).
		On("CONFLICT (visit_key) DO UPDATE").
		Set("total_games_played = pv.total_games_played + 1").
		Set("last_played_date = GREATEST(pv.last_played_date, EXCLUDED.last_played_date)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("playervenuedb.IncrementGamesPlayed: %w", err)
	}
	return nil
}
