package venueservice

import (
	"context"
	"sort"

	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Venue Repo
// ------------------------

// FakeVenueRepo falls back to an in-memory table when a Func is not set.
type FakeVenueRepo struct {
	trace  []string
	venues map[sharedtypes.VenueID]venuedb.Venue

	GetByIDFunc        func(ctx context.Context, db bun.IDB, id sharedtypes.VenueID) (*venuedb.Venue, error)
	FindCloneFunc      func(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error)
	ListClonesFunc     func(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID) ([]venuedb.Venue, error)
	MaxVenueNumberFunc func(ctx context.Context, db bun.IDB) (int, error)
	InsertFunc         func(ctx context.Context, db bun.IDB, venue *venuedb.Venue) error
}

func NewFakeVenueRepo(seed ...venuedb.Venue) *FakeVenueRepo {
	f := &FakeVenueRepo{
		trace:  []string{},
		venues: map[sharedtypes.VenueID]venuedb.Venue{},
	}
	for _, v := range seed {
		f.venues[v.ID] = v
	}
	return f
}

func (f *FakeVenueRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeVenueRepo) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.VenueID) (*venuedb.Venue, error) {
	f.record("GetByID")
	if f.GetByIDFunc != nil {
		return f.GetByIDFunc(ctx, db, id)
	}
	v, ok := f.venues[id]
	if !ok {
		return nil, venuedb.ErrNotFound
	}
	return &v, nil
}

func (f *FakeVenueRepo) FindClone(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error) {
	f.record("FindClone")
	if f.FindCloneFunc != nil {
		return f.FindCloneFunc(ctx, db, canonicalID, entityID)
	}
	for _, v := range f.venues {
		if v.CanonicalVenueID != nil && *v.CanonicalVenueID == canonicalID && v.EntityID == entityID {
			return &v, nil
		}
	}
	return nil, venuedb.ErrNotFound
}

func (f *FakeVenueRepo) ListClones(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID) ([]venuedb.Venue, error) {
	f.record("ListClones")
	if f.ListClonesFunc != nil {
		return f.ListClonesFunc(ctx, db, canonicalID)
	}
	var out []venuedb.Venue
	for _, v := range f.venues {
		if v.CanonicalVenueID != nil && *v.CanonicalVenueID == canonicalID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VenueNumber < out[j].VenueNumber })
	return out, nil
}

func (f *FakeVenueRepo) MaxVenueNumber(ctx context.Context, db bun.IDB) (int, error) {
	f.record("MaxVenueNumber")
	if f.MaxVenueNumberFunc != nil {
		return f.MaxVenueNumberFunc(ctx, db)
	}
	maxNumber := 0
	for _, v := range f.venues {
		if v.VenueNumber > maxNumber {
			maxNumber = v.VenueNumber
		}
	}
	return maxNumber, nil
}

func (f *FakeVenueRepo) Insert(ctx context.Context, db bun.IDB, venue *venuedb.Venue) error {
	f.record("Insert")
	if f.InsertFunc != nil {
		return f.InsertFunc(ctx, db, venue)
	}
	f.venues[venue.ID] = *venue
	return nil
}

// --- Accessors for assertions ---

func (f *FakeVenueRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var _ venuedb.Repository = (*FakeVenueRepo)(nil)
