package playervenueservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gamedb "github.com/kingsroom/venue-engine/app/modules/game/infrastructure/repositories"
	playervenuedb "github.com/kingsroom/venue-engine/app/modules/playervenue/infrastructure/repositories"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// PlayerVenueService recomputes aggregates from source records.
type PlayerVenueService struct {
	games  gamedb.Repository
	repo   playervenuedb.Repository
	logger *slog.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// NewPlayerVenueService creates a new PlayerVenueService.
func NewPlayerVenueService(
	games gamedb.Repository,
	repo playervenuedb.Repository,
	logger *slog.Logger,
	tracer trace.Tracer,
) *PlayerVenueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayerVenueService{
		games:  games,
		repo:   repo,
		logger: logger,
		tracer: tracer,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// RecalculatePlayerVenue rebuilds the (player, entity, venue) aggregate from
// the player's current entries at the venue. The row is deleted when no
// entries remain. Running it twice yields the same row.
func (s *PlayerVenueService) RecalculatePlayerVenue(ctx context.Context, db bun.IDB, req RecalculateRequest) (result RecalculationResult, err error) {
	if s.tracer != nil {
		var span trace.Span
		ctx, span = s.tracer.Start(ctx, "RecalculatePlayerVenue", trace.WithAttributes(
			attribute.String("player_id", req.PlayerID.String()),
			attribute.String("venue_id", req.VenueID.String()),
		))
		defer func() {
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
			}
			span.End()
		}()
	}

	visitKey := playervenuedb.VisitKey(req.PlayerID, req.EntityID, req.VenueID)

	entries, err := s.games.ListEntriesByPlayerVenue(ctx, db, req.PlayerID, req.VenueID)
	if err != nil {
		return RecalculationResult{}, fmt.Errorf("failed to list entries: %w", err)
	}

	if len(entries) == 0 {
		deleted, err := s.repo.DeleteByVisitKey(ctx, db, visitKey)
		if err != nil {
			return RecalculationResult{}, fmt.Errorf("failed to delete player venue: %w", err)
		}
		if deleted {
			return RecalculationResult{Outcome: OutcomeDeleted}, nil
		}
		return RecalculationResult{Outcome: OutcomeNoChange}, nil
	}

	gameIDs := distinctGameIDs(entries)

	playerResults, err := s.games.ListResultsByPlayerGames(ctx, db, req.PlayerID, gameIDs)
	if err != nil {
		return RecalculationResult{}, fmt.Errorf("failed to list results: %w", err)
	}
	buyIns, err := s.games.ListBuyInsByPlayerGames(ctx, db, req.PlayerID, gameIDs)
	if err != nil {
		return RecalculationResult{}, fmt.Errorf("failed to list buy-ins: %w", err)
	}

	stats := computeStats(entries, playerResults, buyIns, s.now())

	canonicalID := req.CanonicalVenueID
	if canonicalID == "" {
		canonicalID = req.VenueID
	}

	existing, err := s.repo.GetByVisitKey(ctx, db, visitKey)
	if err != nil && !errors.Is(err, playervenuedb.ErrNotFound) {
		return RecalculationResult{}, fmt.Errorf("failed to load player venue: %w", err)
	}

	if existing != nil {
		applyStats(existing, stats)
		existing.CanonicalVenueID = canonicalID
		existing.UpdatedAt = s.now().UTC()
		if err := s.repo.Update(ctx, db, existing); err != nil {
			return RecalculationResult{}, fmt.Errorf("failed to update player venue: %w", err)
		}
		return RecalculationResult{Outcome: OutcomeUpdated, Stats: &stats}, nil
	}

	now := s.now().UTC()
	pv := &playervenuedb.PlayerVenue{
		ID:               s.newID(),
		VisitKey:         visitKey,
		PlayerID:         req.PlayerID,
		EntityID:         req.EntityID,
		VenueID:          req.VenueID,
		CanonicalVenueID: canonicalID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	applyStats(pv, stats)
	if err := s.repo.Insert(ctx, db, pv); err != nil {
		return RecalculationResult{}, fmt.Errorf("failed to insert player venue: %w", err)
	}
	return RecalculationResult{Outcome: OutcomeCreated, Stats: &stats}, nil
}

// IncrementPlayerVenueSimple bumps games played by one without reading source
// records. It drifts under retries and is not used by reassignment.
func (s *PlayerVenueService) IncrementPlayerVenueSimple(ctx context.Context, db bun.IDB, req RecalculateRequest, playedAt time.Time) error {
	canonicalID := req.CanonicalVenueID
	if canonicalID == "" {
		canonicalID = req.VenueID
	}
	pv := &playervenuedb.PlayerVenue{
		ID:                      s.newID(),
		VisitKey:                playervenuedb.VisitKey(req.PlayerID, req.EntityID, req.VenueID),
		PlayerID:                req.PlayerID,
		EntityID:                req.EntityID,
		VenueID:                 req.VenueID,
		CanonicalVenueID:        canonicalID,
		TargetingClassification: string(CalcTargetingClass(&playedAt, playedAt, s.now())),
	}
	if err := s.repo.IncrementGamesPlayed(ctx, db, pv, playedAt); err != nil {
		s.logger.WarnContext(ctx, "Legacy player venue increment failed",
			slog.String("visit_key", pv.VisitKey),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

func distinctGameIDs(entries []gamedb.PlayerEntry) []sharedtypes.GameID {
	seen := make(map[sharedtypes.GameID]struct{}, len(entries))
	ids := make([]sharedtypes.GameID, 0, len(entries))
	for _, e := range entries {
		if _, ok := seen[e.GameID]; ok {
			continue
		}
		seen[e.GameID] = struct{}{}
		ids = append(ids, e.GameID)
	}
	return ids
}

func computeStats(entries []gamedb.PlayerEntry, playerResults []gamedb.PlayerResult, buyIns []gamedb.PlayerTransaction, now time.Time) Stats {
	dates := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		dates = append(dates, e.EntryDate)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	winnings := decimal.Zero
	for _, r := range playerResults {
		winnings = winnings.Add(r.Winnings)
	}

	totalBuyIns := decimal.Zero
	totalRake := decimal.Zero
	for _, t := range buyIns {
		totalBuyIns = totalBuyIns.Add(t.Amount)
		totalRake = totalRake.Add(t.Rake)
	}

	games := len(entries)
	first, last := dates[0], dates[len(dates)-1]
	return Stats{
		TotalGamesPlayed:        games,
		TotalBuyIns:             totalBuyIns,
		TotalRake:               totalRake,
		AverageBuyIn:            roundCents(totalBuyIns.Div(decimal.NewFromInt(int64(games)))),
		TotalWinnings:           winnings,
		NetProfit:               winnings.Sub(totalBuyIns),
		FirstPlayedDate:         first,
		LastPlayedDate:          last,
		TargetingClassification: CalcTargetingClass(&last, first, now),
	}
}

func applyStats(pv *playervenuedb.PlayerVenue, stats Stats) {
	first, last := stats.FirstPlayedDate, stats.LastPlayedDate
	pv.TotalGamesPlayed = stats.TotalGamesPlayed
	pv.TotalBuyIns = stats.TotalBuyIns
	pv.TotalRake = stats.TotalRake
	pv.AverageBuyIn = stats.AverageBuyIn
	pv.TotalWinnings = stats.TotalWinnings
	pv.NetProfit = stats.NetProfit
	pv.FirstPlayedDate = &first
	pv.LastPlayedDate = &last
	pv.TargetingClassification = string(stats.TargetingClassification)
}

var halfCent = decimal.New(5, -3)

// roundCents rounds to two places with midpoints going toward positive
// infinity, so -2.005 becomes -2.00.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Add(halfCent).RoundFloor(2)
}
