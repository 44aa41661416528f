package venuedb

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

// NewRepository creates a new venue repository.
func NewRepository(db bun.IDB) Repository {
	return &Impl{db: db}
}

func (r *Impl) resolveDB(db bun.IDB) bun.IDB {
	if db == nil {
		return r.db
	}
	return db
}

func (r *Impl) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.VenueID) (*Venue, error) {
	db = r.resolveDB(db)
	venue := new(Venue)
	err := db.NewSelect().
		Model(venue).
		Where("v.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("venuedb.GetByID: %w", err)
	}
	return venue, nil
}

func (r *Impl) FindClone(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*Venue, error) {
	db = r.resolveDB(db)
	venue := new(Venue)
	err := db.NewSelect().
		Model(venue).
		Where("v.canonical_venue_id = ?", canonicalID).
		Where("v.entity_id = ?", entityID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("venuedb.FindClone: %w", err)
	}
	return venue, nil
}

func (r *Impl) ListClones(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID) ([]Venue, error) {
	db = r.resolveDB(db)
	var venues []Venue
	err := db.NewSelect().
		Model(&venues).
		Where("v.canonical_venue_id = ?", canonicalID).
		Order("v.venue_number ASC", "v.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("venuedb.ListClones: %w", err)
	}
	return venues, nil
}

func (r *Impl) MaxVenueNumber(ctx context.Context, db bun.IDB) (int, error) {
	db = r.resolveDB(db)
	var maxNumber int
	err := db.NewSelect().
		Model((*Venue)(nil)).
		ColumnExpr("COALESCE(MAX(v.venue_number), 0)").
		Scan(ctx, &maxNumber)
	if err != nil {
		return 0, fmt.Errorf("venuedb.MaxVenueNumber: %w", err)
	}
	return maxNumber, nil
}

func (r *Impl) Insert(ctx context.Context, db bun.IDB, venue *Venue) error {
	db = r.resolveDB(db)
	now := time.Now().UTC()
	venue.CreatedAt = now
	venue.UpdatedAt = now

	res, err := db.NewInsert().
		Model(venue).
		On("CONFLICT (canonical_venue_id, entity_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("venuedb.Insert: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("venuedb.Insert: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrCloneExists
	}
	return nil
}
