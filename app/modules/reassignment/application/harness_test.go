package reassignmentservice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenueservice "github.com/kingsroom/venue-engine/app/modules/playervenue/application"
	playervenuedb "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories"
	taskservice "github.com/kingsroom/venue-engine/app/modules/task/application"
	venueservice "github.com/kingsroom/venue-engine/app/modules/venue/application"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/observability"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

const (
	entityOne sharedtypes.EntityID = "e1000000-0000-0000-0000-000000000001"
	entityTwo sharedtypes.EntityID = "e2000000-0000-0000-0000-000000000002"

	venueOne   sharedtypes.VenueID = "v1000000-0000-0000-0000-000000000001"
	venueTwo   sharedtypes.VenueID = "v2000000-0000-0000-0000-000000000002"
	venueOther sharedtypes.VenueID = "v3000000-0000-0000-0000-000000000003"

	gameMain   sharedtypes.GameID = "g1000000-0000-0000-0000-000000000001"
	gameEarly  sharedtypes.GameID = "g0000000-0000-0000-0000-000000000000"
	gameParent sharedtypes.GameID = "gp000000-0000-0000-0000-000000000000"

	playerOne   sharedtypes.PlayerID = "p1000000-0000-0000-0000-000000000001"
	playerTwo   sharedtypes.PlayerID = "p2000000-0000-0000-0000-000000000002"
	playerThree sharedtypes.PlayerID = "p3000000-0000-0000-0000-000000000003"
)

var (
	mainStart  = time.Date(2026, 3, 14, 19, 0, 0, 0, time.UTC)
	earlyStart = time.Date(2026, 2, 7, 19, 0, 0, 0, time.UTC)
)

// ------------------------
// queue and notifier fakes
// ------------------------

type fakeQueue struct {
	mu   sync.Mutex
	jobs []QueueJob
	err  error
}

func (q *fakeQueue) Enqueue(ctx context.Context, job QueueJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) records(t *testing.T) []QueueRecord {
	t.Helper()
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]QueueRecord, 0, len(q.jobs))
	for i, job := range q.jobs {
		body, err := json.Marshal(job.Message)
		require.NoError(t, err)
		out = append(out, QueueRecord{MessageID: fmt.Sprintf("msg-%d", i), Body: body})
	}
	return out
}

type fakeNotifier struct {
	mu      sync.Mutex
	results []PipelineResult
	err     error
}

func (n *fakeNotifier) ReassignmentFinished(ctx context.Context, req ReassignmentRequest, result PipelineResult) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, result)
	return n.err
}

var (
	_ Enqueuer = (*fakeQueue)(nil)
	_ Notifier = (*fakeNotifier)(nil)
)

// ------------------------
// harness
// ------------------------

type harness struct {
	store    *memStore
	queue    *fakeQueue
	notifier *fakeNotifier
	venues   *venueservice.VenueService
	pv       *playervenueservice.PlayerVenueService
	tasks    *taskservice.TaskService
	svc      *ReassignmentService
}

type harnessOption func(*Options)

func withoutQueue() harnessOption {
	return func(o *Options) { o.Queue = nil }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracer := noop.NewTracerProvider().Tracer("test")
	metrics := observability.NewNoop()

	h := &harness{
		store:    newMemStore(),
		queue:    &fakeQueue{},
		notifier: &fakeNotifier{},
	}
	h.venues = venueservice.NewVenueService(memVenues{h.store}, logger, metrics, tracer, nil)
	h.pv = playervenueservice.NewPlayerVenueService(memGames{h.store}, memPlayerVenues{h.store}, logger, tracer)
	h.tasks = taskservice.NewTaskService(memTasks{h.store}, logger, metrics, tracer)

	o := Options{Queue: h.queue, Notifier: h.notifier}
	for _, opt := range opts {
		opt(&o)
	}
	h.svc = NewReassignmentService(memGames{h.store}, h.venues, h.pv, h.tasks, logger, metrics, tracer, nil, o)
	h.svc.now = func() time.Time { return mainStart.Add(30 * 24 * time.Hour) }
	return h
}

func intPtr(n int) *int { return &n }

func (h *harness) addVenue(id sharedtypes.VenueID, entity sharedtypes.EntityID, number int) {
	h.store.venues[id] = venuedb.Venue{
		ID:          id,
		EntityID:    entity,
		Name:        "Venue " + id.String()[:2],
		Address:     "1 Card Room Way",
		City:        "Reno",
		Country:     "US",
		Fee:         decimal.RequireFromString("15.00"),
		VenueNumber: number,
		Version:     1,
	}
}

func (h *harness) addGame(id sharedtypes.GameID, venue sharedtypes.VenueID, entity sharedtypes.EntityID, start time.Time, players int) *gamedb.Game {
	g := &gamedb.Game{
		ID:                    id,
		Name:                  "Game " + id.String()[:2],
		VenueID:               sharedtypes.AssignedTo(venue),
		EntityID:              entity,
		VenueAssignmentStatus: sharedtypes.VenueAssignmentAuto,
		TotalUniquePlayers:    intPtr(players),
		BuyIn:                 decimal.RequireFromString("100.00"),
		Rake:                  decimal.RequireFromString("10.00"),
		GameStartDateTime:     start,
		Version:               1,
	}
	h.store.games[id] = g
	return g
}

// addPlay records an entry, a result and a buy-in for player in game.
func (h *harness) addPlay(game sharedtypes.GameID, player sharedtypes.PlayerID, buyIn, winnings string) {
	g := h.store.games[game]
	n := len(h.store.entries)
	h.store.entries = append(h.store.entries, &gamedb.PlayerEntry{
		ID: fmt.Sprintf("pe-%d", n), GameID: game, PlayerID: player,
		VenueID: g.VenueID, EntityID: g.EntityID, EntryDate: g.GameStartDateTime,
	})
	h.store.results = append(h.store.results, &gamedb.PlayerResult{
		ID: fmt.Sprintf("pr-%d", n), GameID: game, PlayerID: player,
		VenueID: g.VenueID, EntityID: g.EntityID, Winnings: decimal.RequireFromString(winnings),
	})
	h.store.transactions = append(h.store.transactions, &gamedb.PlayerTransaction{
		ID: fmt.Sprintf("pt-%d", n), GameID: game, PlayerID: player,
		VenueID: g.VenueID, EntityID: g.EntityID, Type: gamedb.TransactionTypeBuyIn,
		Amount: decimal.RequireFromString(buyIn), Rake: decimal.RequireFromString("10.00"),
	})
}

func (h *harness) addPlayer(id sharedtypes.PlayerID, registeredAt sharedtypes.VenueID, firstGame time.Time) {
	h.store.players[id] = &gamedb.Player{
		ID:                    id,
		EntityID:              entityOne,
		RegistrationVenueID:   sharedtypes.AssignedTo(registeredAt),
		RegistrationDate:      firstGame,
		FirstGamePlayed:       &firstGame,
		VenueAssignmentStatus: sharedtypes.VenueAssignmentAuto,
	}
}

// seedAggregates builds every player venue row and summary from the current
// entries, then clears the call log.
func (h *harness) seedAggregates(t *testing.T) {
	t.Helper()
	type key struct {
		player sharedtypes.PlayerID
		venue  sharedtypes.VenueID
		entity sharedtypes.EntityID
	}
	seen := map[key]bool{}
	for _, e := range h.store.entries {
		venue, ok := e.VenueID.Get()
		if !ok {
			continue
		}
		k := key{e.PlayerID, venue, e.EntityID}
		if seen[k] {
			continue
		}
		seen[k] = true
		_, err := h.pv.RecalculatePlayerVenue(context.Background(), nil, playervenueservice.RecalculateRequest{
			PlayerID: e.PlayerID, VenueID: venue, EntityID: e.EntityID, CanonicalVenueID: venue,
		})
		require.NoError(t, err)
		h.store.summaries[e.PlayerID]++
	}
	h.resetCalls()
}

func (h *harness) resetCalls() {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	h.store.writes = 0
	h.store.trace = nil
}

// mainScenario: game G1 at V1 with three players. Player one already played
// an earlier game at V2. Player two registered at V1 with G1 as first game.
func mainScenario(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	h := newHarness(t, opts...)
	h.addVenue(venueOne, entityOne, 1)
	h.addVenue(venueTwo, entityOne, 2)
	h.addVenue(venueOther, entityTwo, 3)

	h.addGame(gameEarly, venueTwo, entityOne, earlyStart, 1)
	h.addPlay(gameEarly, playerOne, "100.00", "0.00")

	h.addGame(gameMain, venueOne, entityOne, mainStart, 3)
	h.addPlay(gameMain, playerOne, "100.00", "250.00")
	h.addPlay(gameMain, playerTwo, "100.00", "50.00")
	h.addPlay(gameMain, playerThree, "120.00", "0.00")

	h.addPlayer(playerOne, venueTwo, earlyStart)
	h.addPlayer(playerTwo, venueOne, mainStart)
	h.addPlayer(playerThree, venueTwo, earlyStart)

	h.seedAggregates(t)
	return h
}

// ------------------------
// snapshots
// ------------------------

type snapshot struct {
	Games        map[sharedtypes.GameID]gamedb.Game
	Entries      []gamedb.PlayerEntry
	Results      []gamedb.PlayerResult
	Transactions []gamedb.PlayerTransaction
	Players      map[sharedtypes.PlayerID]gamedb.Player
	Summaries    map[sharedtypes.PlayerID]int
	PlayerVenues map[string]playervenuedb.PlayerVenue
	Venues       map[sharedtypes.VenueID]venuedb.Venue
}

func (h *harness) snapshot() snapshot {
	m := h.store
	m.mu.Lock()
	defer m.mu.Unlock()
	s := snapshot{
		Games:        map[sharedtypes.GameID]gamedb.Game{},
		Players:      map[sharedtypes.PlayerID]gamedb.Player{},
		Summaries:    map[sharedtypes.PlayerID]int{},
		PlayerVenues: map[string]playervenuedb.PlayerVenue{},
		Venues:       map[sharedtypes.VenueID]venuedb.Venue{},
	}
	for id, g := range m.games {
		s.Games[id] = *g
	}
	for _, e := range m.entries {
		s.Entries = append(s.Entries, *e)
	}
	for _, r := range m.results {
		s.Results = append(s.Results, *r)
	}
	for _, tx := range m.transactions {
		s.Transactions = append(s.Transactions, *tx)
	}
	for id, p := range m.players {
		s.Players[id] = *p
	}
	for id, n := range m.summaries {
		s.Summaries[id] = n
	}
	for k, pv := range m.playerVenues {
		s.PlayerVenues[k] = pv
	}
	for id, v := range m.venues {
		s.Venues[id] = v
	}
	return s
}

var snapshotOpts = cmp.Options{
	cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) }),
	cmpopts.IgnoreFields(gamedb.Game{}, "Version", "UpdatedAt"),
	cmpopts.IgnoreFields(gamedb.Player{}, "UpdatedAt"),
	cmpopts.IgnoreFields(playervenuedb.PlayerVenue{}, "UpdatedAt", "CreatedAt"),
}

func (h *harness) playerVenue(player sharedtypes.PlayerID, entity sharedtypes.EntityID, venue sharedtypes.VenueID) (playervenuedb.PlayerVenue, bool) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	pv, ok := h.store.playerVenues[playervenuedb.VisitKey(player, entity, venue)]
	return pv, ok
}

func (h *harness) game(id sharedtypes.GameID) gamedb.Game {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	return *h.store.games[id]
}

// requireAggregatesMatchEntries checks that every stored aggregate matches the
// entries it was derived from and that no aggregate outlives its entries.
func (h *harness) requireAggregatesMatchEntries(t *testing.T) {
	t.Helper()
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	games := map[string]map[sharedtypes.GameID]bool{}
	for _, e := range h.store.entries {
		venue, ok := e.VenueID.Get()
		if !ok {
			continue
		}
		k := playervenuedb.VisitKey(e.PlayerID, e.EntityID, venue)
		if games[k] == nil {
			games[k] = map[sharedtypes.GameID]bool{}
		}
		games[k][e.GameID] = true
	}
	for k, played := range games {
		pv, ok := h.store.playerVenues[k]
		require.True(t, ok, "missing aggregate %s", k)
		require.Equal(t, len(played), pv.TotalGamesPlayed, "games played for %s", k)
	}
	for k := range h.store.playerVenues {
		_, ok := games[k]
		require.True(t, ok, "aggregate %s has no entries", k)
	}
}

func requireNoDiff(t *testing.T, want, got snapshot) {
	t.Helper()
	if diff := cmp.Diff(want, got, snapshotOpts); diff != "" {
		t.Fatalf("state mismatch (-want +got):\n%s", diff)
	}
}

var errInjected = errors.New("injected failure")
