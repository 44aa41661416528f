package reassignmentservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	taskdb "github.com/kingsroom/venue-engine/app/modules/task/infrastructure/repositories"
	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/pagination"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

const maxPageSize = 200

// ListGamesNeedingVenue pages games that have no venue or are flagged for review.
func (s *ReassignmentService) ListGamesNeedingVenue(ctx context.Context, input ListGamesNeedingVenueInput) (GamesPage, error) {
	filter := gamedb.GamesNeedingVenueFilter{
		EntityID: input.EntityID,
		Limit:    input.Limit,
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = 50
	}

	var cursor gamedb.GameCursor
	ok, err := pagination.Decode(input.NextToken, &cursor)
	if err != nil {
		return GamesPage{}, err
	}
	if ok {
		filter.After = &cursor
	}

	if input.StartedAfter != "" {
		startedAfter, err := parseStartedAfter(input.StartedAfter, s.now())
		if err != nil {
			return GamesPage{}, err
		}
		filter.StartedAfter = &startedAfter
	}

	games, next, err := s.games.ListGamesNeedingVenue(ctx, nil, filter)
	if err != nil {
		return GamesPage{}, fmt.Errorf("failed to list games needing venue: %w", err)
	}

	page := GamesPage{Items: games}
	if page.Items == nil {
		page.Items = []gamedb.Game{}
	}
	if next != nil {
		if page.NextToken, err = pagination.Encode(next); err != nil {
			return GamesPage{}, err
		}
	}
	return page, nil
}

// parseStartedAfter accepts RFC3339 or an English phrase relative to now.
func parseStartedAfter(input string, now time.Time) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, input); err == nil {
		return ts, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(strings.ToLower(input), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: startedAfter %q: %v", ErrInvalidInput, input, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: startedAfter %q not recognised", ErrInvalidInput, input)
	}
	return r.Time, nil
}

// GetVenueAssignmentSummary counts games by assignment status for an entity,
// or across all entities when entityID is empty.
func (s *ReassignmentService) GetVenueAssignmentSummary(ctx context.Context, entityID sharedtypes.EntityID) (VenueAssignmentSummary, error) {
	counts, err := s.games.CountGamesByAssignmentStatus(ctx, nil, entityID)
	if err != nil {
		return VenueAssignmentSummary{}, fmt.Errorf("failed to count games: %w", err)
	}

	summary := VenueAssignmentSummary{EntityID: entityID, ByStatus: counts}
	if summary.ByStatus == nil {
		summary.ByStatus = []gamedb.StatusCount{}
	}
	assigned := 0
	for _, c := range counts {
		summary.TotalGames += c.Count
		switch c.Status {
		case sharedtypes.VenueAssignmentPending, sharedtypes.VenueAssignmentUnassigned, sharedtypes.VenueAssignmentNeedsReview:
			summary.NeedingVenue += c.Count
		default:
			assigned += c.Count
		}
	}
	if summary.TotalGames > 0 {
		summary.AssignedRatio = float64(assigned) / float64(summary.TotalGames)
	}
	return summary, nil
}

// GetReassignmentStatus returns the background task tracking a queued reassignment.
func (s *ReassignmentService) GetReassignmentStatus(ctx context.Context, taskID sharedtypes.TaskID) (*taskdb.BackgroundTask, error) {
	return s.tasks.GetTask(ctx, taskID)
}

// GetVenueClones lists a canonical venue and its clones.
func (s *ReassignmentService) GetVenueClones(ctx context.Context, canonicalVenueID sharedtypes.VenueID) (VenueClones, error) {
	venues, err := s.venues.GetVenueClones(ctx, canonicalVenueID)
	if err != nil {
		return VenueClones{}, err
	}
	return VenueClones{CanonicalVenueID: canonicalVenueID, Venues: venues}, nil
}

// FindVenueForEntity resolves the entity's venue for a canonical venue.
func (s *ReassignmentService) FindVenueForEntity(ctx context.Context, canonicalVenueID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error) {
	return s.venues.FindVenueForEntity(ctx, canonicalVenueID, entityID)
}
