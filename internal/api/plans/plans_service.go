package plans

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// maxConflictRetries bounds how often a save is replayed after losing a version race.
const maxConflictRetries = 3

var _ Service = (*ServiceImpl)(nil)

// Service is the versioned plan store.
type Service interface {
	Save(ctx context.Context, itineraryID uuid.UUID, content types.PlanContent) (*types.StoredPlan, error)
	GetActive(ctx context.Context, itineraryID uuid.UUID) (*types.StoredPlan, error)
	GetHistory(ctx context.Context, itineraryID uuid.UUID) ([]types.StoredPlan, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	locks  *keyedMutex
	cache  *cache.Cache
}

// NewServiceImpl caches active plans for activeTTL. A zero TTL disables the cache.
// The cache is per process, so it must stay off when several instances write
// plans for the same database.
func NewServiceImpl(repo Repository, activeTTL time.Duration, logger *slog.Logger) *ServiceImpl {
	s := &ServiceImpl{
		logger: logger.With(slog.String("component", "PlanVersionStore")),
		repo:   repo,
		locks:  newKeyedMutex(),
	}
	if activeTTL > 0 {
		s.cache = cache.New(activeTTL, 2*activeTTL)
	}
	return s
}

// Save stores content as a new active version. Writers for the same itinerary are
// serialized in process and by a row lock in the database; a lost version race is
// replayed and never returned to the caller.
func (s *ServiceImpl) Save(ctx context.Context, itineraryID uuid.UUID, content types.PlanContent) (*types.StoredPlan, error) {
	ctx, span := otel.Tracer("PlanVersionStore").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.Int("plan.days", len(content.Days)),
	))
	defer span.End()

	unlock := s.locks.Lock(itineraryID)
	defer unlock()

	var (
		plan *types.StoredPlan
		err  error
	)
	for try := 1; try <= maxConflictRetries; try++ {
		plan, err = s.repo.Save(ctx, itineraryID, content)
		if err == nil || !errors.Is(err, types.ErrPersistenceConflict) {
			break
		}
		s.logger.WarnContext(ctx, "Plan version conflict, retrying",
			slog.String("itinerary_id", itineraryID.String()),
			slog.Int("try", try))
	}
	if err != nil {
		if errors.Is(err, types.ErrPersistenceConflict) {
			err = fmt.Errorf("could not store plan after %d conflicting writes: %w", maxConflictRetries, err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, err
	}

	if s.cache != nil {
		s.cache.Set(itineraryID.String(), *plan, cache.DefaultExpiration)
	}
	metrics.Get().PlanVersionsSavedTotal.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Plan version saved",
		slog.String("itinerary_id", itineraryID.String()),
		slog.Int("version", plan.Version),
		slog.Int("stops", plan.Content.StopCount()))
	span.SetAttributes(attribute.Int("plan.version", plan.Version))
	span.SetStatus(codes.Ok, "")
	return plan, nil
}

// GetActive returns nil, nil when no plan has been stored for the itinerary.
func (s *ServiceImpl) GetActive(ctx context.Context, itineraryID uuid.UUID) (*types.StoredPlan, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(itineraryID.String()); ok {
			plan := cached.(types.StoredPlan)
			return &plan, nil
		}
	}
	plan, err := s.repo.GetActive(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if plan == nil || s.cache == nil {
		return plan, nil
	}
	return s.remember(itineraryID, *plan), nil
}

// remember caches plan unless a newer version got there first, and returns
// whichever of the two is newer. It takes the itinerary lock so a slow read
// can never overwrite what a concurrent Save just stored.
func (s *ServiceImpl) remember(itineraryID uuid.UUID, plan types.StoredPlan) *types.StoredPlan {
	unlock := s.locks.Lock(itineraryID)
	defer unlock()

	key := itineraryID.String()
	if cached, ok := s.cache.Get(key); ok {
		if newer := cached.(types.StoredPlan); newer.Version >= plan.Version {
			return &newer
		}
	}
	s.cache.Set(key, plan, cache.DefaultExpiration)
	return &plan
}

// GetHistory lists every version, newest first.
func (s *ServiceImpl) GetHistory(ctx context.Context, itineraryID uuid.UUID) ([]types.StoredPlan, error) {
	return s.repo.GetHistory(ctx, itineraryID)
}
