package venueservice

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	venuedb "github.com/kingsroom/venue-engine/app/modules/venue/infrastructure/repositories"
	"github.com/kingsroom/venue-engine/app/shared/observability"
	"github.com/kingsroom/venue-engine/app/shared/results"
	sharedtypes "github.com/kingsroom/venue-engine/app/shared/types"
)

// VenueService implements the Service interface.
type VenueService struct {
	repo    venuedb.Repository
	logger  *slog.Logger
	metrics observability.Metrics
	tracer  trace.Tracer
	db      *bun.DB
	newID   func() sharedtypes.VenueID
}

// NewVenueService creates a new VenueService.
func NewVenueService(
	repo venuedb.Repository,
	logger *slog.Logger,
	metrics observability.Metrics,
	tracer trace.Tracer,
	db *bun.DB,
) *VenueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &VenueService{
		repo:    repo,
		logger:  logger,
		metrics: metrics,
		tracer:  tracer,
		db:      db,
		newID:   func() sharedtypes.VenueID { return sharedtypes.VenueID(uuid.NewString()) },
	}
}

// GetVenue loads a venue by id. Returns venuedb.ErrNotFound when absent.
func (s *VenueService) GetVenue(ctx context.Context, id sharedtypes.VenueID) (*venuedb.Venue, error) {
	result, err := withTelemetry(s, ctx, "GetVenue", id.String(), func(ctx context.Context) (results.OperationResult[*venuedb.Venue, error], error) {
		venue, err := s.repo.GetByID(ctx, nil, id)
		if err != nil {
			if errors.Is(err, venuedb.ErrNotFound) {
				return results.FailureResult[*venuedb.Venue, error](err), nil
			}
			return results.OperationResult[*venuedb.Venue, error]{}, err
		}
		return results.SuccessResult[*venuedb.Venue, error](venue), nil
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// FindVenueForEntity returns the canonical venue when entityID owns it, otherwise
// the entity's clone of it.
func (s *VenueService) FindVenueForEntity(ctx context.Context, canonicalVenueID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error) {
	result, err := withTelemetry(s, ctx, "FindVenueForEntity", canonicalVenueID.String(), func(ctx context.Context) (results.OperationResult[*venuedb.Venue, error], error) {
		venue, err := s.findVenueForEntity(ctx, nil, canonicalVenueID, entityID)
		if err != nil {
			return results.OperationResult[*venuedb.Venue, error]{}, err
		}
		return results.SuccessResult[*venuedb.Venue, error](venue), nil
	})
	if err != nil {
		return nil, err
	}
	return *result.Success, nil
}

func (s *VenueService) findVenueForEntity(ctx context.Context, db bun.IDB, canonicalVenueID sharedtypes.VenueID, entityID sharedtypes.EntityID) (*venuedb.Venue, error) {
	canonical, err := s.repo.GetByID(ctx, db, canonicalVenueID)
	switch {
	case err == nil && canonical.EntityID == entityID:
		return canonical, nil
	case err != nil && !errors.Is(err, venuedb.ErrNotFound):
		return nil, fmt.Errorf("failed to load canonical venue: %w", err)
	}

	clone, err := s.repo.FindClone(ctx, db, canonicalVenueID, entityID)
	if err != nil {
		if errors.Is(err, venuedb.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find venue clone: %w", err)
	}
	return clone, nil
}

// FindOrCreateVenueClone returns targetEntityID's copy of source's canonical
// venue, creating it when missing.
func (s *VenueService) FindOrCreateVenueClone(ctx context.Context, source *venuedb.Venue, targetEntityID sharedtypes.EntityID) (CloneResult, error) {
	if source == nil {
		return CloneResult{}, errors.New("source venue is required")
	}

	cloneTx := func(ctx context.Context, db bun.IDB) (results.OperationResult[CloneResult, error], error) {
		return s.findOrCreateVenueCloneLogic(ctx, db, source, targetEntityID)
	}

	result, err := withTelemetry(s, ctx, "FindOrCreateVenueClone", source.ID.String(), func(ctx context.Context) (results.OperationResult[CloneResult, error], error) {
		return runInTx(s, ctx, cloneTx)
	})
	if err != nil {
		return CloneResult{}, err
	}
	return *result.Success, nil
}

func (s *VenueService) findOrCreateVenueCloneLogic(ctx context.Context, db bun.IDB, source *venuedb.Venue, targetEntityID sharedtypes.EntityID) (results.OperationResult[CloneResult, error], error) {
	canonicalID := source.CanonicalID()

	existing, err := s.findVenueForEntity(ctx, db, canonicalID, targetEntityID)
	if err != nil {
		return results.OperationResult[CloneResult, error]{}, err
	}
	if existing != nil {
		return results.SuccessResult[CloneResult, error](CloneResult{VenueID: existing.ID}), nil
	}

	// Two creators may read the same maximum; venue numbers are display only.
	maxNumber, err := s.repo.MaxVenueNumber(ctx, db)
	if err != nil {
		return results.OperationResult[CloneResult, error]{}, fmt.Errorf("failed to allocate venue number: %w", err)
	}

	clone := &venuedb.Venue{
		ID:               s.newID(),
		EntityID:         targetEntityID,
		CanonicalVenueID: &canonicalID,
		Name:             source.Name,
		Aliases:          append([]string(nil), source.Aliases...),
		Address:          source.Address,
		City:             source.City,
		Country:          source.Country,
		Fee:              source.Fee,
		IsSpecial:        source.IsSpecial,
		VenueNumber:      maxNumber + 1,
		Version:          1,
	}

	if err := s.repo.Insert(ctx, db, clone); err != nil {
		if !errors.Is(err, venuedb.ErrCloneExists) {
			return results.OperationResult[CloneResult, error]{}, fmt.Errorf("failed to create venue clone: %w", err)
		}
		winner, findErr := s.repo.FindClone(ctx, db, canonicalID, targetEntityID)
		if findErr != nil {
			return results.OperationResult[CloneResult, error]{}, fmt.Errorf("failed to read concurrent venue clone: %w", findErr)
		}
		s.logger.InfoContext(ctx, "Venue clone created concurrently, reusing",
			slog.String("canonical_venue_id", canonicalID.String()),
			slog.String("venue_id", winner.ID.String()),
		)
		return results.SuccessResult[CloneResult, error](CloneResult{VenueID: winner.ID}), nil
	}

	s.logger.InfoContext(ctx, "Venue clone created",
		slog.String("canonical_venue_id", canonicalID.String()),
		slog.String("entity_id", targetEntityID.String()),
		slog.String("venue_id", clone.ID.String()),
		slog.Int("venue_number", clone.VenueNumber),
	)
	return results.SuccessResult[CloneResult, error](CloneResult{VenueID: clone.ID, WasCreated: true}), nil
}

// GetVenueClones returns the canonical venue followed by its clones in venue number order.
func (s *VenueService) GetVenueClones(ctx context.Context, canonicalVenueID sharedtypes.VenueID) ([]venuedb.Venue, error) {
	result, err := withTelemetry(s, ctx, "GetVenueClones", canonicalVenueID.String(), func(ctx context.Context) (results.OperationResult[[]venuedb.Venue, error], error) {
		canonical, err := s.repo.GetByID(ctx, nil, canonicalVenueID)
		if err != nil {
			if errors.Is(err, venuedb.ErrNotFound) {
				return results.FailureResult[[]venuedb.Venue, error](err), nil
			}
			return results.OperationResult[[]venuedb.Venue, error]{}, err
		}
		clones, err := s.repo.ListClones(ctx, nil, canonical.CanonicalID())
		if err != nil {
			return results.OperationResult[[]venuedb.Venue, error]{}, err
		}
		out := make([]venuedb.Venue, 0, len(clones)+1)
		if canonical.IsCanonical() {
			out = append(out, *canonical)
		}
		out = append(out, clones...)
		return results.SuccessResult[[]venuedb.Venue, error](out), nil
	})
	if err != nil {
		return nil, err
	}
	if result.IsFailure() {
		return nil, *result.Failure
	}
	return *result.Success, nil
}

// -----------------------------------------------------------------------------
// Generic Helpers
// -----------------------------------------------------------------------------

type operationFunc[S any, F any] func(ctx context.Context) (results.OperationResult[S, F], error)

// withTelemetry wraps a service operation with tracing, metrics, and panic recovery.
func withTelemetry[S any, F any](
	s *VenueService,
	ctx context.Context,
	operationName string,
	identifier string,
	op operationFunc[S, F],
) (result results.OperationResult[S, F], err error) {
	var span trace.Span
	if s.tracer != nil {
		ctx, span = s.tracer.Start(ctx, operationName, trace.WithAttributes(
			attribute.String("operation", operationName),
			attribute.String("identifier", identifier),
		))
	} else {
		span = trace.SpanFromContext(ctx)
	}
	defer span.End()

	if s.metrics != nil {
		s.metrics.RecordOperationAttempt(ctx, operationName, "VenueService")
	}

	startTime := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.RecordOperationDuration(ctx, operationName, "VenueService", time.Since(startTime))
		}
	}()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v", operationName, r)
			s.logger.ErrorContext(ctx, "Critical panic recovered",
				slog.String("identifier", identifier),
				slog.Any("error", err),
			)
			if s.metrics != nil {
				s.metrics.RecordOperationFailure(ctx, operationName, "VenueService")
			}
			span.RecordError(err)
			result = results.OperationResult[S, F]{}
		}
	}()

	result, err = op(ctx)
	if err != nil {
		wrappedErr := fmt.Errorf("%s: %w", operationName, err)
		s.logger.ErrorContext(ctx, "Operation failed with error",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("error", wrappedErr),
		)
		if s.metrics != nil {
			s.metrics.RecordOperationFailure(ctx, operationName, "VenueService")
		}
		span.RecordError(wrappedErr)
		return result, wrappedErr
	}

	if result.IsFailure() {
		s.logger.WarnContext(ctx, "Operation returned failure result",
			slog.String("operation", operationName),
			slog.String("identifier", identifier),
			slog.Any("failure_payload", *result.Failure),
		)
	}

	if s.metrics != nil {
		s.metrics.RecordOperationSuccess(ctx, operationName, "VenueService")
	}
	return result, nil
}

// runInTx ensures the operation runs within a transaction.
func runInTx[S any, F any](
	s *VenueService,
	ctx context.Context,
	fn func(ctx context.Context, db bun.IDB) (results.OperationResult[S, F], error),
) (results.OperationResult[S, F], error) {
	if s.db == nil {
		return fn(ctx, nil)
	}

	var result results.OperationResult[S, F]
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var txErr error
		result, txErr = fn(ctx, tx)
		return txErr
	})
	return result, err
}
