package reassignmentservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	taskservice "github.com/kingsroom/venue-engine/app/modules/task/application"
	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/results"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// target is the venue/entity a game resolves to for a requested venue.
type target struct {
	venueID  sharedtypes.VenueID
	entityID sharedtypes.EntityID
	cloned   bool
}

// resolveTarget applies the entity isolation rules. A venue of another entity
// is cloned into the game's entity unless reassignEntity moves the game itself.
func (s *ReassignmentService) resolveTarget(ctx context.Context, game *gamedb.Game, venue *venuedb.Venue, reassignEntity bool) (target, error) {
	crossEntity := venue.EntityID != game.EntityID
	switch {
	case crossEntity && !reassignEntity:
		clone, err := s.venues.FindOrCreateVenueClone(ctx, venue, game.EntityID)
		if err != nil {
			return target{}, fmt.Errorf("failed to resolve venue clone: %w", err)
		}
		return target{venueID: clone.VenueID, entityID: game.EntityID, cloned: clone.WasCreated}, nil
	case crossEntity:
		return target{venueID: venue.ID, entityID: venue.EntityID}, nil
	default:
		return target{venueID: venue.ID, entityID: game.EntityID}, nil
	}
}

func (t target) matches(game *gamedb.Game) bool {
	return game.VenueID.Is(t.venueID) && game.EntityID == t.entityID
}

func requestFor(game *gamedb.Game, t target) ReassignmentRequest {
	return ReassignmentRequest{
		GameID:      game.ID,
		OldVenueID:  game.VenueID,
		NewVenueID:  t.venueID,
		OldEntityID: game.EntityID,
		NewEntityID: t.entityID,
		GameData: GameData{
			GameStartDateTime: game.GameStartDateTime,
			BuyIn:             game.BuyIn,
			Rake:              game.Rake,
			ParentGameID:      game.ParentGameID,
		},
	}
}

func failed(gameID sharedtypes.GameID, msg string) ReassignmentOutcome {
	return ReassignmentOutcome{Status: StatusFailed, Message: msg, GameID: gameID}
}

// ReassignGameVenue moves one game to newVenueID, inline or through the queue
// depending on its cached player count.
func (s *ReassignmentService) ReassignGameVenue(ctx context.Context, input ReassignGameVenueInput) (ReassignmentOutcome, error) {
	if input.GameID == "" || input.NewVenueID == "" {
		return ReassignmentOutcome{}, fmt.Errorf("%w: gameId and newVenueId are required", ErrInvalidInput)
	}

	result, err := withTelemetry(s, ctx, "ReassignGameVenue", input.GameID.String(), func(ctx context.Context) (results.OperationResult[ReassignmentOutcome, ReassignmentOutcome], error) {
		outcome, err := s.reassignGameVenueLogic(ctx, input)
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

func (s *ReassignmentService) reassignGameVenueLogic(ctx context.Context, input ReassignGameVenueInput) (ReassignmentOutcome, error) {
	game, err := s.games.GetGame(ctx, nil, input.GameID)
	if err != nil {
		if errors.Is(err, gamedb.ErrNotFound) {
			return failed(input.GameID, "Game not found"), nil
		}
		return ReassignmentOutcome{}, fmt.Errorf("failed to load game: %w", err)
	}

	venue, err := s.venues.GetVenue(ctx, input.NewVenueID)
	if err != nil {
		if errors.Is(err, venuedb.ErrNotFound) {
			return failed(input.GameID, "Venue not found"), nil
		}
		return ReassignmentOutcome{}, fmt.Errorf("failed to load venue: %w", err)
	}

	t, err := s.resolveTarget(ctx, game, venue, input.ReassignEntity)
	if err != nil {
		return ReassignmentOutcome{}, err
	}

	return s.dispatch(ctx, game, t, game.PlayerCount(), TaskTypeReassignment, input.InitiatedBy)
}

// dispatch short-circuits no-ops, then queues or runs the reassignment.
func (s *ReassignmentService) dispatch(ctx context.Context, game *gamedb.Game, t target, playerCount int, taskType, initiatedBy string) (ReassignmentOutcome, error) {
	req := requestFor(game, t)
	outcome := ReassignmentOutcome{
		GameID:      game.ID,
		OldVenueID:  req.OldVenueID,
		NewVenueID:  req.NewVenueID,
		OldEntityID: req.OldEntityID,
		NewEntityID: req.NewEntityID,
		VenueCloned: t.cloned,
	}

	if t.matches(game) {
		s.metrics.RecordDispatch(ctx, "no_change")
		outcome.Status = StatusNoChange
		outcome.Message = "Game is already assigned to this venue"
		return outcome, nil
	}

	if playerCount >= s.asyncThreshold && s.queue != nil {
		taskID, err := s.tasks.CreateTask(ctx, taskservice.CreateTaskInput{
			EntityID:    req.NewEntityID,
			TaskType:    taskType,
			TargetType:  TargetTypeGame,
			TargetID:    game.ID.String(),
			TargetIDs:   []string{game.ID.String()},
			TargetCount: 1,
			Payload:     req,
			InitiatedBy: initiatedBy,
		})
		if err != nil {
			return ReassignmentOutcome{}, fmt.Errorf("failed to create task: %w", err)
		}
		if err := s.enqueue(ctx, taskID, req); err != nil {
			s.abandonTask(ctx, taskID, err)
			return ReassignmentOutcome{}, err
		}
		s.metrics.RecordDispatch(ctx, "queued")
		outcome.Status = StatusQueued
		outcome.TaskID = taskID
		outcome.Message = fmt.Sprintf("Reassignment queued for %d players", playerCount)
		return outcome, nil
	}

	res := s.ProcessReassignment(ctx, req)
	outcome.Result = &res
	outcome.Message = res.Message
	if res.Success {
		s.metrics.RecordDispatch(ctx, "sync")
		outcome.Status = StatusCompleted
	} else {
		s.metrics.RecordDispatch(ctx, "failed")
		outcome.Status = StatusFailed
	}
	return outcome, nil
}

func (s *ReassignmentService) enqueue(ctx context.Context, taskID sharedtypes.TaskID, req ReassignmentRequest) error {
	if s.queue == nil {
		return ErrQueueNotConfigured
	}
	msg := QueueMessage{ReassignmentRequest: req, TaskID: taskID}
	job := QueueJob{
		GroupKey: msg.GroupKey(),
		DedupKey: msg.DedupKey(s.now()),
		Message:  msg,
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue game %s: %w", req.GameID, err)
	}
	return nil
}

func (s *ReassignmentService) abandonTask(ctx context.Context, taskID sharedtypes.TaskID, cause error) {
	msg := cause.Error()
	now := s.now()
	if err := s.tasks.UpdateTask(context.WithoutCancel(ctx), taskID, taskdb.StatusFailed, taskservice.TaskUpdate{
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to mark task failed",
			slog.String("task_id", taskID.String()),
			slog.Any("error", err),
		)
	}
}

// BulkReassignGameVenues queues one message per game that needs to move under
// a single task. Games already at the target are skipped.
func (s *ReassignmentService) BulkReassignGameVenues(ctx context.Context, input BulkReassignInput) (BulkReassignOutcome, error) {
	if s.queue == nil {
		return BulkReassignOutcome{}, ErrQueueNotConfigured
	}
	if len(input.GameIDs) == 0 || input.NewVenueID == "" {
		return BulkReassignOutcome{}, fmt.Errorf("%w: gameIds and newVenueId are required", ErrInvalidInput)
	}

	result, err := withTelemetry(s, ctx, "BulkReassignGameVenues", input.NewVenueID.String(), func(ctx context.Context) (results.OperationResult[BulkReassignOutcome, BulkReassignOutcome], error) {
		outcome, err := s.bulkReassignLogic(ctx, input)
		if err != nil {
			return results.OperationResult[BulkReassignOutcome, BulkReassignOutcome]{}, err
		}
		if outcome.Status == StatusFailed {
			return results.FailureResult[BulkReassignOutcome, BulkReassignOutcome](outcome), nil
		}
		return results.SuccessResult[BulkReassignOutcome, BulkReassignOutcome](outcome), nil
	})
	if err != nil {
		return BulkReassignOutcome{}, err
	}
	return unwrap(result), nil
}

func (s *ReassignmentService) bulkReassignLogic(ctx context.Context, input BulkReassignInput) (BulkReassignOutcome, error) {
	outcome := BulkReassignOutcome{
		QueuedGameIDs: []sharedtypes.GameID{},
		Skipped:       []SkippedGame{},
		NotFound:      []sharedtypes.GameID{},
	}

	venue, err := s.venues.GetVenue(ctx, input.NewVenueID)
	if err != nil {
		if errors.Is(err, venuedb.ErrNotFound) {
			outcome.Status = StatusFailed
			outcome.Message = "Venue not found"
			return outcome, nil
		}
		return BulkReassignOutcome{}, fmt.Errorf("failed to load venue: %w", err)
	}

	games, err := s.games.GetGames(ctx, nil, uniqueGameIDs(input.GameIDs))
	if err != nil {
		return BulkReassignOutcome{}, fmt.Errorf("failed to load games: %w", err)
	}
	byID := make(map[sharedtypes.GameID]*gamedb.Game, len(games))
	for i := range games {
		byID[games[i].ID] = &games[i]
	}

	type plannedMove struct {
		game *gamedb.Game
		req  ReassignmentRequest
	}
	var planned []plannedMove
	targets := map[sharedtypes.EntityID]target{}

	for _, id := range uniqueGameIDs(input.GameIDs) {
		game, ok := byID[id]
		if !ok {
			outcome.NotFound = append(outcome.NotFound, id)
			continue
		}
		if input.EntityID != "" && game.EntityID != input.EntityID {
			outcome.Skipped = append(outcome.Skipped, SkippedGame{GameID: id, Reason: "game belongs to another entity"})
			continue
		}
		t, ok := targets[game.EntityID]
		if !ok {
			if t, err = s.resolveTarget(ctx, game, venue, input.ReassignEntity); err != nil {
				return BulkReassignOutcome{}, err
			}
			targets[game.EntityID] = t
		}
		if t.matches(game) {
			outcome.Skipped = append(outcome.Skipped, SkippedGame{GameID: id, Reason: "already at target venue"})
			continue
		}
		planned = append(planned, plannedMove{game: game, req: requestFor(game, t)})
	}

	if len(planned) == 0 {
		s.metrics.RecordDispatch(ctx, "no_change")
		outcome.Status = StatusNoChange
		outcome.Message = "No games need reassignment"
		return outcome, nil
	}

	targetIDs := make([]string, 0, len(planned))
	for _, m := range planned {
		targetIDs = append(targetIDs, m.game.ID.String())
	}
	taskID, err := s.tasks.CreateTask(ctx, taskservice.CreateTaskInput{
		EntityID:    planned[0].req.NewEntityID,
		TaskType:    TaskTypeBulkReassignment,
		TargetType:  TargetTypeGame,
		TargetIDs:   targetIDs,
		TargetCount: len(planned),
		Payload:     input,
		InitiatedBy: input.InitiatedBy,
	})
	if err != nil {
		return BulkReassignOutcome{}, fmt.Errorf("failed to create task: %w", err)
	}
	outcome.TaskID = taskID

	for i, m := range planned {
		// A cancelled caller stops new games from being queued.
		if ctx.Err() != nil {
			for _, rest := range planned[i:] {
				s.recordNotQueued(ctx, taskID, rest.game.ID, ctx.Err())
				outcome.FailedToEnqueue = append(outcome.FailedToEnqueue, rest.game.ID)
			}
			break
		}
		if err := s.enqueue(ctx, taskID, m.req); err != nil {
			s.recordNotQueued(ctx, taskID, m.game.ID, err)
			outcome.FailedToEnqueue = append(outcome.FailedToEnqueue, m.game.ID)
			continue
		}
		outcome.QueuedGameIDs = append(outcome.QueuedGameIDs, m.game.ID)
	}

	s.metrics.RecordDispatch(ctx, "queued")
	outcome.Status = StatusQueued
	outcome.Message = fmt.Sprintf("Queued %d of %d games", len(outcome.QueuedGameIDs), len(input.GameIDs))
	return outcome, nil
}

// recordNotQueued counts a game that never reached the queue as a failed
// target so the task can still finish.
func (s *ReassignmentService) recordNotQueued(ctx context.Context, taskID sharedtypes.TaskID, gameID sharedtypes.GameID, cause error) {
	if _, err := s.tasks.RecordProgress(context.WithoutCancel(ctx), taskID, taskservice.ProgressUpdate{
		Key:          gameID.String(),
		Failed:       true,
		ErrorMessage: "not queued: " + cause.Error(),
	}); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record unqueued game",
			slog.String("task_id", taskID.String()),
			slog.String("game_id", gameID.String()),
			slog.Any("error", err),
		)
	}
}

func uniqueGameIDs(ids []sharedtypes.GameID) []sharedtypes.GameID {
	seen := make(map[sharedtypes.GameID]struct{}, len(ids))
	out := make([]sharedtypes.GameID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == "" {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
