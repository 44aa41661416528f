package reassignment_integration_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenuedb "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/modules/reassignment"
	"github.com/kingsroom/venue-engine/app/shared/observability"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
	"github.com/kingsroom/venue-engine/config"
	"github.com/kingsroom/venue-engine/integration_tests/testutils"
)

// fixture is one entity with two venues and a game at the first of them.
type fixture struct {
	entity  sharedtypes.EntityID
	from    sharedtypes.VenueID
	to      sharedtypes.VenueID
	game    *gamedb.Game
	players []*gamedb.Player
}

func newModule(t *testing.T, mutate func(*config.Config)) *reassignment.Module {
	t.Helper()
	cfg := &config.Config{
		Postgres:     config.PostgresConfig{DSN: testEnv.DSN},
		Reassignment: config.ReassignmentConfig{AsyncThreshold: 50, QueueMaxWorkers: 2},
	}
	if mutate != nil {
		mutate(cfg)
	}
	obs := observability.Observability{
		Logger:  testEnv.Logger,
		Tracer:  testEnv.Tracer,
		Metrics: testEnv.Metrics,
	}
	m, err := reassignment.NewModule(testEnv.Ctx, cfg, obs, testEnv.DB, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = m.Close(ctx)
	})
	return m
}

// seedGame writes two venues of one entity and a played game at the first.
// Every player registered at the game, so it is their first game.
func seedGame(t *testing.T, gen *testutils.TestDataGenerator, players int) fixture {
	t.Helper()
	ctx := testEnv.Ctx

	entity := gen.EntityID()
	from := gen.Venue(entity)
	to := gen.Venue(entity)
	start := time.Date(2026, 2, 1, 19, 30, 0, 0, time.UTC)
	game := gen.Game(from, start, players)
	require.NoError(t, testutils.Insert(ctx, testEnv.DB, from, to, game))

	f := fixture{entity: entity, from: from.ID, to: to.ID, game: game}
	for i := 0; i < players; i++ {
		p := gen.Player(entity, sharedtypes.AssignedTo(from.ID), &start)
		entry, result, txn := gen.Play(game, p.ID, int64(i*100))
		require.NoError(t, testutils.Insert(ctx, testEnv.DB, p, &gamedb.PlayerSummary{PlayerID: p.ID, VenuesVisited: 1}, entry, result, txn))
		f.players = append(f.players, p)
	}
	return f
}

func loadGame(t *testing.T, id sharedtypes.GameID) *gamedb.Game {
	t.Helper()
	game := new(gamedb.Game)
	require.NoError(t, testEnv.DB.NewSelect().Model(game).Where("id = ?", id).Scan(testEnv.Ctx))
	return game
}

func loadPlayer(t *testing.T, id sharedtypes.PlayerID) *gamedb.Player {
	t.Helper()
	p := new(gamedb.Player)
	require.NoError(t, testEnv.DB.NewSelect().Model(p).Where("id = ?", id).Scan(testEnv.Ctx))
	return p
}

// playerVenueState is the comparable part of the player_venues table.
type playerVenueState struct {
	VisitKey    string
	GamesPlayed int
	BuyIns      string
	Winnings    string
}

func snapshotPlayerVenues(t *testing.T) []playerVenueState {
	t.Helper()
	var rows []playervenuedb.PlayerVenue
	require.NoError(t, testEnv.DB.NewSelect().Model(&rows).Scan(testEnv.Ctx))
	out := make([]playerVenueState, 0, len(rows))
	for _, r := range rows {
		out = append(out, playerVenueState{
			VisitKey:    r.VisitKey,
			GamesPlayed: r.TotalGamesPlayed,
			BuyIns:      r.TotalBuyIns.StringFixed(2),
			Winnings:    r.TotalWinnings.StringFixed(2),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VisitKey < out[j].VisitKey })
	return out
}

func snapshotSummaries(t *testing.T) map[sharedtypes.PlayerID]int {
	t.Helper()
	var rows []gamedb.PlayerSummary
	require.NoError(t, testEnv.DB.NewSelect().Model(&rows).Scan(testEnv.Ctx))
	out := make(map[sharedtypes.PlayerID]int, len(rows))
	for _, r := range rows {
		out[r.PlayerID] = r.VenuesVisited
	}
	return out
}

func countRowsAt(t *testing.T, model any, venue sharedtypes.VenueID) int {
	t.Helper()
	n, err := testEnv.DB.NewSelect().Model(model).Where("venue_id = ?", venue).Count(testEnv.Ctx)
	require.NoError(t, err)
	return n
}
