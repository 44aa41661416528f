package testutils

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// TestDataGenerator builds realistic fixture rows.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator. A fixed seed gives repeatable fixtures.
func NewTestDataGenerator(seed uint64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// EntityID returns a fresh entity id.
func (g *TestDataGenerator) EntityID() sharedtypes.EntityID {
	return sharedtypes.EntityID(uuid.NewString())
}

// Venue builds a canonical venue owned by entityID.
func (g *TestDataGenerator) Venue(entityID sharedtypes.EntityID) *venuedb.Venue {
	return &venuedb.Venue{
		ID:       sharedtypes.VenueID(uuid.NewString()),
		EntityID: entityID,
		Name:     g.faker.Company() + " Card Room",
		Aliases:  []string{g.faker.Company()},
		Address:  g.faker.Street(),
		City:     g.faker.City(),
		Country:  "AU",
		Fee:      decimal.NewFromInt(int64(g.faker.Number(0, 20))),
	}
}

// Game builds a game at venue starting at start.
func (g *TestDataGenerator) Game(venue *venuedb.Venue, start time.Time, players int) *gamedb.Game {
	buyIn := decimal.NewFromInt(int64(g.faker.RandomInt([]int{55, 110, 220, 330})))
	return &gamedb.Game{
		ID:                    sharedtypes.GameID(uuid.NewString()),
		Name:                  g.faker.AdjectiveDescriptive() + " Deepstack",
		VenueID:               sharedtypes.AssignedTo(venue.ID),
		EntityID:              venue.EntityID,
		VenueAssignmentStatus: sharedtypes.VenueAssignmentAuto,
		TotalUniquePlayers:    &players,
		BuyIn:                 buyIn,
		Rake:                  buyIn.Div(decimal.NewFromInt(10)).Round(2),
		GameStartDateTime:     start.UTC(),
	}
}

// Player builds a player of entityID registered at venue.
func (g *TestDataGenerator) Player(entityID sharedtypes.EntityID, venue sharedtypes.VenueRef, firstGame *time.Time) *gamedb.Player {
	return &gamedb.Player{
		ID:                  sharedtypes.PlayerID(uuid.NewString()),
		EntityID:            entityID,
		RegistrationVenueID: venue,
		RegistrationDate:    g.faker.DateRange(time.Now().AddDate(-2, 0, 0), time.Now()).UTC(),
		FirstGamePlayed:     firstGame,
	}
}

// Play builds the entry, result and buy-in rows of player in game.
func (g *TestDataGenerator) Play(game *gamedb.Game, player sharedtypes.PlayerID, winnings int64) (*gamedb.PlayerEntry, *gamedb.PlayerResult, *gamedb.PlayerTransaction) {
	place := g.faker.Number(1, 200)
	entry := &gamedb.PlayerEntry{
		ID:        uuid.NewString(),
		GameID:    game.ID,
		PlayerID:  player,
		VenueID:   game.VenueID,
		EntityID:  game.EntityID,
		EntryDate: game.GameStartDateTime,
	}
	result := &gamedb.PlayerResult{
		ID:             uuid.NewString(),
		GameID:         game.ID,
		PlayerID:       player,
		VenueID:        game.VenueID,
		EntityID:       game.EntityID,
		FinishingPlace: &place,
		Winnings:       decimal.NewFromInt(winnings),
	}
	txn := &gamedb.PlayerTransaction{
		ID:       uuid.NewString(),
		GameID:   game.ID,
		PlayerID: player,
		VenueID:  game.VenueID,
		EntityID: game.EntityID,
		Type:     gamedb.TransactionTypeBuyIn,
		Amount:   game.BuyIn,
		Rake:     game.Rake,
	}
	return entry, result, txn
}

// Insert writes each model with its own INSERT.
func Insert(ctx context.Context, db bun.IDB, models ...any) error {
	for _, m := range models {
		if _, err := db.NewInsert().Model(m).Exec(ctx); err != nil {
			return err
		}
	}
	return nil
}
