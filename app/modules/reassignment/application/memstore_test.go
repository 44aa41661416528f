package reassignmentservice

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/uptrace/bun"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenuedb "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories"
	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// memStore is an in-memory stand-in for every table the engine touches.
// Each repository view records its calls and honours injected failures.
type memStore struct {
	mu sync.Mutex

	games        map[sharedtypes.GameID]*gamedb.Game
	entries      []*gamedb.PlayerEntry
	results      []*gamedb.PlayerResult
	transactions []*gamedb.PlayerTransaction
	players      map[sharedtypes.PlayerID]*gamedb.Player
	summaries    map[sharedtypes.PlayerID]int
	venues       map[sharedtypes.VenueID]venuedb.Venue
	playerVenues map[string]playervenuedb.PlayerVenue
	tasks        map[sharedtypes.TaskID]*taskdb.BackgroundTask

	writes   int
	trace    []string
	failures map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		games:        map[sharedtypes.GameID]*gamedb.Game{},
		players:      map[sharedtypes.PlayerID]*gamedb.Player{},
		summaries:    map[sharedtypes.PlayerID]int{},
		venues:       map[sharedtypes.VenueID]venuedb.Venue{},
		playerVenues: map[string]playervenuedb.PlayerVenue{},
		tasks:        map[sharedtypes.TaskID]*taskdb.BackgroundTask{},
		failures:     map[string]error{},
	}
}

// call records step and returns its injected failure. Callers hold mu.
func (m *memStore) call(step string, write bool) error {
	m.trace = append(m.trace, step)
	if err, ok := m.failures[step]; ok {
		return err
	}
	if write {
		m.writes++
	}
	return nil
}

func (m *memStore) failOn(step string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[step] = err
}

func (m *memStore) clearFailure(step string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, step)
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

func (m *memStore) calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.trace...)
}

// ------------------------
// games
// ------------------------

type memGames struct{ *memStore }

func (m memGames) GetGame(ctx context.Context, db bun.IDB, id sharedtypes.GameID) (*gamedb.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.GetGame", false); err != nil {
		return nil, err
	}
	g, ok := m.games[id]
	if !ok {
		return nil, gamedb.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (m memGames) GetGames(ctx context.Context, db bun.IDB, ids []sharedtypes.GameID) ([]gamedb.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.GetGames", false); err != nil {
		return nil, err
	}
	var out []gamedb.Game
	for _, id := range ids {
		if g, ok := m.games[id]; ok {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (m memGames) UpdateGameVenue(ctx context.Context, db bun.IDB, id sharedtypes.GameID, update gamedb.VenueUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.UpdateGameVenue", true); err != nil {
		return err
	}
	g, ok := m.games[id]
	if !ok {
		return gamedb.ErrNoRowsAffected
	}
	g.VenueID = sharedtypes.AssignedTo(update.VenueID)
	g.EntityID = update.EntityID
	g.VenueAssignmentStatus = sharedtypes.VenueAssignmentManual
	g.RequiresVenueAssignment = false
	g.Version++
	return nil
}

func (m memGames) UpdateParentGameVenue(ctx context.Context, db bun.IDB, id sharedtypes.GameID, update gamedb.VenueUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.UpdateParentGameVenue", true); err != nil {
		return err
	}
	g, ok := m.games[id]
	if !ok {
		return gamedb.ErrNoRowsAffected
	}
	g.VenueID = sharedtypes.AssignedTo(update.VenueID)
	g.EntityID = update.EntityID
	g.Version++
	return nil
}

func (m memGames) ListGamesNeedingVenue(ctx context.Context, db bun.IDB, filter gamedb.GamesNeedingVenueFilter) ([]gamedb.Game, *gamedb.GameCursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ListGamesNeedingVenue", false); err != nil {
		return nil, nil, err
	}
	var matched []gamedb.Game
	for _, g := range m.games {
		needs := g.RequiresVenueAssignment || !g.VenueID.IsAssigned() || g.VenueAssignmentStatus == sharedtypes.VenueAssignmentPending
		if !needs {
			continue
		}
		if filter.EntityID != "" && g.EntityID != filter.EntityID {
			continue
		}
		if filter.StartedAfter != nil && g.GameStartDateTime.Before(*filter.StartedAfter) {
			continue
		}
		if a := filter.After; a != nil {
			if g.GameStartDateTime.Before(a.StartedAt) || (g.GameStartDateTime.Equal(a.StartedAt) && g.ID <= a.GameID) {
				continue
			}
		}
		matched = append(matched, *g)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].GameStartDateTime.Equal(matched[j].GameStartDateTime) {
			return matched[i].GameStartDateTime.Before(matched[j].GameStartDateTime)
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) <= filter.Limit {
		return matched, nil, nil
	}
	matched = matched[:filter.Limit]
	last := matched[len(matched)-1]
	return matched, &gamedb.GameCursor{StartedAt: last.GameStartDateTime, GameID: last.ID}, nil
}

func (m memGames) CountGamesByAssignmentStatus(ctx context.Context, db bun.IDB, entityID sharedtypes.EntityID) ([]gamedb.StatusCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.CountGamesByAssignmentStatus", false); err != nil {
		return nil, err
	}
	counts := map[sharedtypes.VenueAssignmentStatus]int{}
	for _, g := range m.games {
		if entityID == "" || g.EntityID == entityID {
			counts[g.VenueAssignmentStatus]++
		}
	}
	var out []gamedb.StatusCount
	for status, n := range counts {
		out = append(out, gamedb.StatusCount{Status: status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (m memGames) ListEntriesByGame(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID) ([]gamedb.PlayerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ListEntriesByGame", false); err != nil {
		return nil, err
	}
	var out []gamedb.PlayerEntry
	for _, e := range m.entries {
		if e.GameID == gameID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m memGames) CountEntriesByGame(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.CountEntriesByGame", false); err != nil {
		return 0, err
	}
	n := 0
	for _, e := range m.entries {
		if e.GameID == gameID {
			n++
		}
	}
	return n, nil
}

func (m memGames) ReassignEntries(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update gamedb.VenueUpdate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ReassignEntries", true); err != nil {
		return 0, err
	}
	n := 0
	for _, e := range m.entries {
		if e.GameID == gameID {
			e.VenueID, e.EntityID = sharedtypes.AssignedTo(update.VenueID), update.EntityID
			n++
		}
	}
	return n, nil
}

func (m memGames) ReassignResults(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update gamedb.VenueUpdate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ReassignResults", true); err != nil {
		return 0, err
	}
	n := 0
	for _, r := range m.results {
		if r.GameID == gameID {
			r.VenueID, r.EntityID = sharedtypes.AssignedTo(update.VenueID), update.EntityID
			n++
		}
	}
	return n, nil
}

func (m memGames) ReassignTransactions(ctx context.Context, db bun.IDB, gameID sharedtypes.GameID, update gamedb.VenueUpdate) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ReassignTransactions", true); err != nil {
		return 0, err
	}
	n := 0
	for _, t := range m.transactions {
		if t.GameID == gameID {
			t.VenueID, t.EntityID = sharedtypes.AssignedTo(update.VenueID), update.EntityID
			n++
		}
	}
	return n, nil
}

func (m memGames) ListEntriesByPlayerVenue(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, venueID sharedtypes.VenueID) ([]gamedb.PlayerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ListEntriesByPlayerVenue", false); err != nil {
		return nil, err
	}
	var out []gamedb.PlayerEntry
	for _, e := range m.entries {
		if e.PlayerID == playerID && e.VenueID.Is(venueID) {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m memGames) ListResultsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]gamedb.PlayerResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ListResultsByPlayerGames", false); err != nil {
		return nil, err
	}
	var out []gamedb.PlayerResult
	for _, r := range m.results {
		if r.PlayerID == playerID && hasGame(gameIDs, r.GameID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m memGames) ListBuyInsByPlayerGames(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, gameIDs []sharedtypes.GameID) ([]gamedb.PlayerTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.ListBuyInsByPlayerGames", false); err != nil {
		return nil, err
	}
	var out []gamedb.PlayerTransaction
	for _, t := range m.transactions {
		if t.PlayerID == playerID && t.Type == gamedb.TransactionTypeBuyIn && hasGame(gameIDs, t.GameID) {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (m memGames) GetPlayer(ctx context.Context, db bun.IDB, id sharedtypes.PlayerID) (*gamedb.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.GetPlayer", false); err != nil {
		return nil, err
	}
	p, ok := m.players[id]
	if !ok {
		return nil, gamedb.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m memGames) UpdatePlayerRegistrationVenue(ctx context.Context, db bun.IDB, id sharedtypes.PlayerID, venueID sharedtypes.VenueID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.UpdatePlayerRegistrationVenue", true); err != nil {
		return err
	}
	p, ok := m.players[id]
	if !ok {
		return gamedb.ErrNoRowsAffected
	}
	p.RegistrationVenueID = sharedtypes.AssignedTo(venueID)
	p.VenueAssignmentStatus = sharedtypes.VenueAssignmentRetroactive
	return nil
}

func (m memGames) AdjustVenuesVisited(ctx context.Context, db bun.IDB, playerID sharedtypes.PlayerID, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("games.AdjustVenuesVisited", true); err != nil {
		return err
	}
	if delta < 0 && m.summaries[playerID]+delta < 0 {
		return gamedb.ErrSummaryGuard
	}
	m.summaries[playerID] += delta
	return nil
}

func hasGame(ids []sharedtypes.GameID, id sharedtypes.GameID) bool {
	for _, g := range ids {
		if g == id {
			return true
		}
	}
	return false
}

// ------------------------
// venues
// ------------------------

type memVenues struct{ *memStore }

func (m memVenues) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.VenueID) (*venuedb.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("venues.GetByID", false); err != nil {
		return nil, err
	}
	v, ok := m.venues[id]
	if !ok {
		return nil, venuedb.ErrNotFound
	}
	return &v, nil
}

func (m memVenues) FindClone(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("venues.FindClone", false); err != nil {
		return nil, err
	}
	for _, v := range m.venues {
		if v.CanonicalVenueID != nil && *v.CanonicalVenueID == canonicalID && v.EntityID == entityID {
			return &v, nil
		}
	}
	return nil, venuedb.ErrNotFound
}

func (m memVenues) ListClones(ctx context.Context, db bun.IDB, canonicalID sharedtypes.VenueID) ([]venuedb.Venue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("venues.ListClones", false); err != nil {
		return nil, err
	}
	var out []venuedb.Venue
	for _, v := range m.venues {
		if v.CanonicalVenueID != nil && *v.CanonicalVenueID == canonicalID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VenueNumber < out[j].VenueNumber })
	return out, nil
}

func (m memVenues) MaxVenueNumber(ctx context.Context, db bun.IDB) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("venues.MaxVenueNumber", false); err != nil {
		return 0, err
	}
	maxNumber := 0
	for _, v := range m.venues {
		maxNumber = max(maxNumber, v.VenueNumber)
	}
	return maxNumber, nil
}

func (m memVenues) Insert(ctx context.Context, db bun.IDB, venue *venuedb.Venue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("venues.Insert", true); err != nil {
		return err
	}
	m.venues[venue.ID] = *venue
	return nil
}

// ------------------------
// player venues
// ------------------------

type memPlayerVenues struct{ *memStore }

func (m memPlayerVenues) GetByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (*playervenuedb.PlayerVenue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("playerVenues.GetByVisitKey", false); err != nil {
		return nil, err
	}
	pv, ok := m.playerVenues[visitKey]
	if !ok {
		return nil, playervenuedb.ErrNotFound
	}
	return &pv, nil
}

func (m memPlayerVenues) Insert(ctx context.Context, db bun.IDB, pv *playervenuedb.PlayerVenue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("playerVenues.Insert", true); err != nil {
		return err
	}
	if _, exists := m.playerVenues[pv.VisitKey]; exists {
		return fmt.Errorf("duplicate visit key %s", pv.VisitKey)
	}
	m.playerVenues[pv.VisitKey] = *pv
	return nil
}

func (m memPlayerVenues) Update(ctx context.Context, db bun.IDB, pv *playervenuedb.PlayerVenue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("playerVenues.Update", true); err != nil {
		return err
	}
	m.playerVenues[pv.VisitKey] = *pv
	return nil
}

func (m memPlayerVenues) DeleteByVisitKey(ctx context.Context, db bun.IDB, visitKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("playerVenues.DeleteByVisitKey", false); err != nil {
		return false, err
	}
	if _, ok := m.playerVenues[visitKey]; !ok {
		return false, nil
	}
	m.writes++
	delete(m.playerVenues, visitKey)
	return true, nil
}

func (m memPlayerVenues) IncrementGamesPlayed(ctx context.Context, db bun.IDB, pv *playervenuedb.PlayerVenue, playedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.call("playerVenues.IncrementGamesPlayed", true)
}

// ------------------------
// tasks
// ------------------------

type memTasks struct{ *memStore }

func (m memTasks) Insert(ctx context.Context, db bun.IDB, task *taskdb.BackgroundTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("tasks.Insert", true); err != nil {
		return err
	}
	cp := *task
	m.tasks[task.ID] = &cp
	return nil
}

func (m memTasks) GetByID(ctx context.Context, db bun.IDB, id sharedtypes.TaskID) (*taskdb.BackgroundTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("tasks.GetByID", false); err != nil {
		return nil, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, taskdb.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (m memTasks) Update(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, status taskdb.Status, fields taskdb.Fields, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("tasks.Update", true); err != nil {
		return err
	}
	t, ok := m.tasks[id]
	if !ok {
		return taskdb.ErrNoRowsAffected
	}
	t.Status = status
	if fields.Result != nil {
		t.Result = fields.Result
	}
	if fields.ErrorMessage != nil {
		t.ErrorMessage = fields.ErrorMessage
	}
	if fields.CompletedAt != nil {
		t.CompletedAt = fields.CompletedAt
	}
	return nil
}

func (m memTasks) MarkProcessing(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("tasks.MarkProcessing", true); err != nil {
		return err
	}
	if t, ok := m.tasks[id]; ok && !t.Status.IsTerminal() {
		t.Status = taskdb.StatusProcessing
		if t.StartedAt == nil {
			t.StartedAt = &at
		}
	}
	return nil
}

func (m memTasks) RecordProgress(ctx context.Context, db bun.IDB, id sharedtypes.TaskID, progress taskdb.Progress, at time.Time) (*taskdb.BackgroundTask, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.call("tasks.RecordProgress", true); err != nil {
		return nil, err
	}
	t, ok := m.tasks[id]
	if !ok {
		return nil, taskdb.ErrNotFound
	}
	if err := t.ApplyProgress(progress, at); err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

var (
	_ gamedb.Repository        = memGames{}
	_ venuedb.Repository       = memVenues{}
	_ playervenuedb.Repository = memPlayerVenues{}
	_ taskdb.Repository        = memTasks{}
)
