package reassignmentservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/uptrace/bun"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenueservice "github.com/kingsroom/venue-engine/app/modules/playervenue/application"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/results"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// ProcessReassignment moves the game, then cascades through entries, results,
// transactions, player venue aggregates, summaries and registrations. Only the
// game/parent update is transactional. Later stages overwrite or recompute, so
// replaying a request converges to the same state.
func (s *ReassignmentService) ProcessReassignment(ctx context.Context, req ReassignmentRequest) PipelineResult {
	// A started pipeline runs to completion or failure.
	ctx = context.WithoutCancel(ctx)

	result, err := withTelemetry(s, ctx, "ProcessReassignment", req.GameID.String(), func(ctx context.Context) (results.OperationResult[PipelineResult, PipelineResult], error) {
		res := s.runPipeline(ctx, req)
		if res.Success {
			return results.SuccessResult[PipelineResult, PipelineResult](res), nil
		}
		return results.FailureResult[PipelineResult, PipelineResult](res), nil
	})

	var res PipelineResult
	if err != nil {
		res = PipelineResult{Success: false, Message: err.Error()}
	} else {
		res = unwrap(result)
	}

	if s.notifier != nil {
		if nErr := s.notifier.ReassignmentFinished(ctx, req, res); nErr != nil {
			s.logger.WarnContext(ctx, "Failed to publish reassignment outcome",
				slog.String("game_id", req.GameID.String()),
				slog.Any("error", nErr),
			)
		}
	}
	return res
}

type pipeline struct {
	s     *ReassignmentService
	req   ReassignmentRequest
	stats PipelineStats
}

func (p *pipeline) fail(ctx context.Context, stage Stage, err error) PipelineResult {
	p.s.metrics.RecordPipelineStage(ctx, string(stage), "failed")
	p.s.logger.ErrorContext(ctx, "Reassignment stage failed",
		slog.String("game_id", p.req.GameID.String()),
		slog.String("stage", string(stage)),
		slog.Any("error", err),
	)
	return PipelineResult{
		Success:     false,
		Message:     fmt.Sprintf("%s failed: %v", stage, err),
		FailedStage: stage,
		Stats:       p.stats,
	}
}

func (p *pipeline) done(ctx context.Context, stage Stage) {
	p.s.metrics.RecordPipelineStage(ctx, string(stage), "ok")
}

func (s *ReassignmentService) runPipeline(ctx context.Context, req ReassignmentRequest) PipelineResult {
	p := &pipeline{s: s, req: req}
	update := gamedb.VenueUpdate{VenueID: req.NewVenueID, EntityID: req.NewEntityID}

	// 1. Game and parent, both or neither.
	_, err := runInTx(s, ctx, func(ctx context.Context, db bun.IDB) (results.OperationResult[struct{}, error], error) {
		if err := s.games.UpdateGameVenue(ctx, db, req.GameID, update); err != nil {
			return results.OperationResult[struct{}, error]{}, err
		}
		if parent := req.GameData.ParentGameID; parent != nil && *parent != "" && *parent != req.GameID {
			if err := s.games.UpdateParentGameVenue(ctx, db, *parent, update); err != nil {
				return results.OperationResult[struct{}, error]{}, fmt.Errorf("parent game %s: %w", *parent, err)
			}
		}
		return results.SuccessResult[struct{}, error](struct{}{}), nil
	})
	if err != nil {
		return p.fail(ctx, StageGameUpdate, err)
	}
	p.stats.GameUpdated = true
	p.stats.ParentGameUpdated = req.GameData.ParentGameID != nil && *req.GameData.ParentGameID != "" && *req.GameData.ParentGameID != req.GameID
	p.done(ctx, StageGameUpdate)

	// 2. Entries.
	entries, err := s.games.ListEntriesByGame(ctx, nil, req.GameID)
	if err != nil {
		return p.fail(ctx, StageEntries, err)
	}
	if len(entries) == 0 {
		p.done(ctx, StageEntries)
		return PipelineResult{Success: true, Message: "No players", Stats: p.stats}
	}
	if p.stats.EntriesUpdated, err = s.games.ReassignEntries(ctx, nil, req.GameID, update); err != nil {
		return p.fail(ctx, StageEntries, err)
	}
	p.done(ctx, StageEntries)

	// 3. Results.
	if p.stats.ResultsUpdated, err = s.games.ReassignResults(ctx, nil, req.GameID, update); err != nil {
		return p.fail(ctx, StageResults, err)
	}
	p.done(ctx, StageResults)

	// 4. Transactions.
	if p.stats.TransactionsUpdated, err = s.games.ReassignTransactions(ctx, nil, req.GameID, update); err != nil {
		return p.fail(ctx, StageTransactions, err)
	}
	p.done(ctx, StageTransactions)

	// 5. Player venue aggregates.
	players := distinctPlayers(entries)
	p.stats.PlayersAffected = len(players)
	lost, gained, err := p.recalculateAggregates(ctx, players)
	if err != nil {
		return p.fail(ctx, StagePlayerVenues, err)
	}
	p.done(ctx, StagePlayerVenues)

	// 6. Summary deltas never abort the pipeline.
	p.applySummaryDeltas(ctx, lost, gained)
	p.done(ctx, StageSummaries)

	// 7. Registration retroactivity.
	if err := p.correctRegistrations(ctx, players); err != nil {
		return p.fail(ctx, StageRegistrations, err)
	}
	p.done(ctx, StageRegistrations)

	return PipelineResult{
		Success: true,
		Message: fmt.Sprintf("Reassigned game %s to venue %s", req.GameID, req.NewVenueID),
		Stats:   p.stats,
	}
}

func (p *pipeline) recalculateAggregates(ctx context.Context, players []sharedtypes.PlayerID) (lost, gained []sharedtypes.PlayerID, err error) {
	oldVenue, hasOld := p.req.OldVenueID.Get()
	var oldCanonical sharedtypes.VenueID
	if hasOld {
		if oldCanonical, err = p.canonicalOf(ctx, oldVenue); err != nil {
			return nil, nil, err
		}
	}
	newCanonical, err := p.canonicalOf(ctx, p.req.NewVenueID)
	if err != nil {
		return nil, nil, err
	}

	sameTarget := hasOld && oldVenue == p.req.NewVenueID && p.req.OldEntityID == p.req.NewEntityID

	for _, player := range players {
		if hasOld && !sameTarget {
			res, err := p.s.playerVenues.RecalculatePlayerVenue(ctx, nil, playervenueservice.RecalculateRequest{
				PlayerID:         player,
				VenueID:          oldVenue,
				EntityID:         p.req.OldEntityID,
				CanonicalVenueID: oldCanonical,
			})
			if err != nil {
				return nil, nil, fmt.Errorf("player %s old venue: %w", player, err)
			}
			p.countOutcome(res.Outcome)
			if res.Outcome == playervenueservice.OutcomeDeleted {
				lost = append(lost, player)
			}
		}

		res, err := p.s.playerVenues.RecalculatePlayerVenue(ctx, nil, playervenueservice.RecalculateRequest{
			PlayerID:         player,
			VenueID:          p.req.NewVenueID,
			EntityID:         p.req.NewEntityID,
			CanonicalVenueID: newCanonical,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("player %s new venue: %w", player, err)
		}
		p.countOutcome(res.Outcome)
		if res.Outcome == playervenueservice.OutcomeCreated {
			gained = append(gained, player)
		}
	}
	return lost, gained, nil
}

func (p *pipeline) countOutcome(o playervenueservice.Outcome) {
	switch o {
	case playervenueservice.OutcomeCreated:
		p.stats.PlayerVenuesCreated++
	case playervenueservice.OutcomeUpdated:
		p.stats.PlayerVenuesUpdated++
	case playervenueservice.OutcomeDeleted:
		p.stats.PlayerVenuesDeleted++
	}
}

// canonicalOf falls back to the venue's own id when it cannot be loaded.
func (p *pipeline) canonicalOf(ctx context.Context, id sharedtypes.VenueID) (sharedtypes.VenueID, error) {
	venue, err := p.s.venues.GetVenue(ctx, id)
	if err != nil {
		if errors.Is(err, venuedb.ErrNotFound) {
			return id, nil
		}
		return "", fmt.Errorf("resolve canonical venue %s: %w", id, err)
	}
	return venue.CanonicalID(), nil
}

func (p *pipeline) applySummaryDeltas(ctx context.Context, lost, gained []sharedtypes.PlayerID) {
	for _, player := range lost {
		err := p.s.games.AdjustVenuesVisited(ctx, nil, player, -1)
		switch {
		case err == nil:
			p.stats.SummariesDecremented++
		case errors.Is(err, gamedb.ErrSummaryGuard):
			p.stats.SummaryWarnings++
			p.s.logger.WarnContext(ctx, "Venues visited already at zero, skipping decrement",
				slog.String("player_id", player.String()),
			)
		default:
			p.stats.SummaryWarnings++
			p.s.logger.WarnContext(ctx, "Failed to decrement venues visited",
				slog.String("player_id", player.String()),
				slog.Any("error", err),
			)
		}
	}
	for _, player := range gained {
		if err := p.s.games.AdjustVenuesVisited(ctx, nil, player, 1); err != nil {
			p.stats.SummaryWarnings++
			p.s.logger.WarnContext(ctx, "Failed to increment venues visited",
				slog.String("player_id", player.String()),
				slog.Any("error", err),
			)
			continue
		}
		p.stats.SummariesIncremented++
	}
}

func (p *pipeline) correctRegistrations(ctx context.Context, players []sharedtypes.PlayerID) error {
	if p.req.OldVenueID.Is(p.req.NewVenueID) {
		return nil
	}
	start := p.req.GameData.GameStartDateTime

	for _, id := range players {
		player, err := p.s.games.GetPlayer(ctx, nil, id)
		if err != nil {
			if errors.Is(err, gamedb.ErrNotFound) {
				continue
			}
			return fmt.Errorf("player %s: %w", id, err)
		}
		if !player.RegistrationVenueID.Equal(p.req.OldVenueID) || player.FirstGamePlayed == nil || !player.FirstGamePlayed.Equal(start) {
			continue
		}
		if err := p.s.games.UpdatePlayerRegistrationVenue(ctx, nil, id, p.req.NewVenueID, p.s.now()); err != nil {
			return fmt.Errorf("player %s: %w", id, err)
		}
		p.stats.RegistrationsUpdated++
	}
	return nil
}

func distinctPlayers(entries []gamedb.PlayerEntry) []sharedtypes.PlayerID {
	seen := make(map[sharedtypes.PlayerID]struct{}, len(entries))
	out := make([]sharedtypes.PlayerID, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.PlayerID]; ok {
			continue
		}
		seen[e.PlayerID] = struct{}{}
		out = append(out, e.PlayerID)
	}
	return out
}
