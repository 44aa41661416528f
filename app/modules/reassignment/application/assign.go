package reassignmentservice

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/results"
)

// AssignVenueToGame assigns a venue owned by the game's entity. The async
// threshold is checked against a live entry count instead of the cached one.
func (s *ReassignmentService) AssignVenueToGame(ctx context.Context, input AssignVenueInput) (ReassignmentOutcome, error) {
	if input.GameID == "" || input.VenueID == "" {
		return ReassignmentOutcome{}, fmt.Errorf("%w: gameId and venueId are required", ErrInvalidInput)
	}

	result, err := withTelemetry(s, ctx, "AssignVenueToGame", input.GameID.String(), func(ctx context.Context) (results.OperationResult[ReassignmentOutcome, ReassignmentOutcome], error) {
		outcome, err := s.assignVenueLogic(ctx, input)
		if err != nil {
			return results.OperationResult[ReassignmentOutcome, ReassignmentOutcome]{}, err
		}
		if outcome.Status == StatusFailed {
			return results.FailureResult[ReassignmentOutcome, ReassignmentOutcome](outcome), nil
		}
		return results.SuccessResult[ReassignmentOutcome, ReassignmentOutcome](outcome), nil
	})
	if err != nil {
		return ReassignmentOutcome{}, err
	}
	return unwrap(result), nil
}

func (s *ReassignmentService) assignVenueLogic(ctx context.Context, input AssignVenueInput) (ReassignmentOutcome, error) {
	game, err := s.games.GetGame(ctx, nil, input.GameID)
	if err != nil {
		if errors.Is(err, gamedb.ErrNotFound) {
			return failed(input.GameID, "Game not found"), nil
		}
		return ReassignmentOutcome{}, fmt.Errorf("failed to load game: %w", err)
	}

	venue, err := s.venues.GetVenue(ctx, input.VenueID)
	if err != nil {
		if errors.Is(err, venuedb.ErrNotFound) {
			return failed(input.GameID, "Venue not found"), nil
		}
		return ReassignmentOutcome{}, fmt.Errorf("failed to load venue: %w", err)
	}

	if venue.EntityID != game.EntityID {
		return failed(input.GameID, "Venue belongs to a different entity"), nil
	}

	t := target{venueID: venue.ID, entityID: game.EntityID}
	if t.matches(game) {
		return s.dispatch(ctx, game, t, 0, TaskTypeAssignment, input.InitiatedBy)
	}

	count, err := s.games.CountEntriesByGame(ctx, nil, game.ID)
	if err != nil {
		return ReassignmentOutcome{}, fmt.Errorf("failed to count entries: %w", err)
	}
	return s.dispatch(ctx, game, t, count, TaskTypeAssignment, input.InitiatedBy)
}

// BatchAssignVenues runs every assignment concurrently and partitions the
// outcomes. Input order is preserved within each partition.
func (s *ReassignmentService) BatchAssignVenues(ctx context.Context, inputs []AssignVenueInput) (BatchAssignOutcome, error) {
	outcomes := make([]ReassignmentOutcome, len(inputs))
	errs := make([]error, len(inputs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, input := range inputs {
		g.Go(func() error {
			outcomes[i], errs[i] = s.AssignVenueToGame(gctx, input)
			return nil
		})
	}
	_ = g.Wait()

	batch := BatchAssignOutcome{
		Successful: []ReassignmentOutcome{},
		Failed:     []BatchAssignFailure{},
	}
	for i, input := range inputs {
		switch {
		case errs[i] != nil:
			batch.Failed = append(batch.Failed, BatchAssignFailure{GameID: input.GameID, Error: errs[i].Error()})
		case outcomes[i].Status == StatusFailed:
			o := outcomes[i]
			batch.Failed = append(batch.Failed, BatchAssignFailure{GameID: input.GameID, Error: o.Message, Outcome: &o})
		default:
			batch.Successful = append(batch.Successful, outcomes[i])
		}
	}
	return batch, nil
}
