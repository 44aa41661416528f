package playervenueservice

import (
	"context"
	"time"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenuedb "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/uptrace/bun"
)

// ------------------------
// Fake Game Repo
// ------------------------

// FakeGameRepo serves source records. Methods the recalculator never calls
// fall through to the embedded nil interface and panic.
type FakeGameRepo struct {
	gamedb.Repository
	trace []string

	Entries      []gamedb.PlayerEntry
	Results      []gamedb.PlayerResult
	Transactions []gamedb.PlayerTransaction

	ListEntriesByPlayerVenueFunc func(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, venueID sharedtypes.VenueID) ([]gamedb.PlayerEntry, error)
}

func (f *FakeGameRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeGameRepo) ListEntriesByPlayerVenue(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, venueID sharedtypes.VenueID) ([]gamedb.PlayerEntry, error) {
	f.record("ListEntriesByPlayerVenue")
	if f.ListEntriesByPlayerVenueFunc != nil {
		return f.ListEntriesByPlayerVenueFunc(ctx, db, playerID, venueID)
	}
	var out []gamedb.PlayerEntry
	for _, e := range f.Entries {
		if e.PlayerID == playerID && e.VenueID.Is(venueID) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *FakeGameRepo) ListResultsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]gamedb.PlayerResult, error) {
	f.record("ListResultsByPlayerGames")
	var out []gamedb.PlayerResult
	for _, r := range f.Results {
		if r.PlayerID == playerID && containsGame(gameIDs, r.GameID) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *FakeGameRepo) ListBuyInsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]gamedb.PlayerTransaction, error) {
	f.record("ListBuyInsByPlayerGames")
	var out []gamedb.PlayerTransaction
	for _, t := range f.Transactions {
		if t.PlayerID == playerID && t.Type == gamedb.TransactionTypeBuyIn && containsGame(gameIDs, t.GameID) {
			out = append(out, t)
		}
	}
	return out, nil
}

func containsGame(ids []sharedtypes.GameID, id sharedtypes.GameID) bool {
	for _, g := range ids {
		if g == id {
			return true
		}
	}
	return false
}

// ------------------------
// Fake Player Venue Repo
// ------------------------

type FakePlayerVenueRepo struct {
	trace []string
	rows  map[string]playervenuedb.PlayerVenue

	UpdateFunc func(ctx context.Context, db bun.IDB, pv *playervenuedb.PlayerVenue) error
}

func NewFakePlayerVenueRepo() *FakePlayerVenueRepo {
	return &FakePlayerVenueRepo{trace: []string{}, rows: map[string]playervenuedb.PlayerVenue{}}
}

func (f *FakePlayerVenueRepo) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakePlayerVenueRepo) GetByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (*playervenuedb.PlayerVenue, error) {
	f.record("GetByVisitKey")
	pv, ok := f.rows[visitKey]
	if !ok {
		return nil, playervenuedb.ErrNotFound
	}
	return &pv, nil
}

func (f *FakePlayerVenueRepo) Insert(ctx context.Context, db bun.IDB, pv *playervenuedb.PlayerVenue) error {
	f.record("Insert")
	f.rows[pv.VisitKey] = *pv
	return nil
}

func (f *FakePlayerVenueRepo) Update(ctx context.Context, db bun.IDB, pv *playervenuedb.PlayerVenue) error {
	f.record("Update")
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, db, pv)
	}
	f.rows[pv.VisitKey] = *pv
	return nil
}

func (f *FakePlayerVenueRepo) DeleteByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (bool, error) {
	f.record("DeleteByVisitKey")
	if _, ok := f.rows[visitKey]; !ok {
		return false, nil
	}
	delete(f.rows, visitKey)
	return true, nil
}

func (f *FakePlayerVenueRepo) IncrementGamesPlayed(ctx context.Context, db bun.IDB, pv *playervenuedb.PlayerVenue, playedAt time.Time) error {
	f.record("IncrementGamesPlayed")
	existing, ok := f.rows[pv.VisitKey]
	if !ok {
		pv.TotalGamesPlayed = 1
		pv.FirstPlayedDate = &playedAt
		pv.LastPlayedDate = &playedAt
		f.rows[pv.VisitKey] = *pv
		return nil
	}
	existing.TotalGamesPlayed++
	if existing.LastPlayedDate == nil || playedAt.After(*existing.LastPlayedDate) {
		existing.LastPlayedDate = &playedAt
	}
	f.rows[pv.VisitKey] = existing
	return nil
}

func (f *FakePlayerVenueRepo) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

var (
	_ gamedb.Repository        = (*FakeGameRepo)(nil)
	_ playervenuedb.Repository = (*FakePlayerVenueRepo)(nil)
)
