package planning

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/api/plans"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the caller-facing planning API. Every method checks ownership first.
type Service interface {
	Plan(ctx context.Context, userID, itineraryID uuid.UUID, req types.SynthesizePlanRequest) (*types.StoredPlan, error)
	GetActivePlan(ctx context.Context, userID, itineraryID uuid.UUID) (*types.StoredPlan, error)
	GetPlanHistory(ctx context.Context, userID, itineraryID uuid.UUID) ([]types.StoredPlan, error)
}

type ServiceImpl struct {
	logger      *slog.Logger
	owners      places.OwnershipChecker
	synthesizer Synthesizer
	store       plans.Service
}

func NewServiceImpl(owners places.OwnershipChecker, synthesizer Synthesizer, store plans.Service, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, owners: owners, synthesizer: synthesizer, store: store}
}

func (s *ServiceImpl) authorize(ctx context.Context, userID, itineraryID uuid.UUID) error {
	owner, err := s.owners.IsOwner(ctx, itineraryID, userID)
	if err != nil {
		return err
	}
	if !owner {
		return fmt.Errorf("itinerary %s: %w", itineraryID, types.ErrForbidden)
	}
	return nil
}

// Plan synthesizes a schedule and stores it as the new active version.
func (s *ServiceImpl) Plan(ctx context.Context, userID, itineraryID uuid.UUID, req types.SynthesizePlanRequest) (*types.StoredPlan, error) {
	ctx, span := otel.Tracer("PlanningService").Start(ctx, "Plan", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := api.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, itineraryID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	content, err := s.synthesizer.Synthesize(ctx, itineraryID, req)
	if err != nil {
		s.logger.WarnContext(ctx, "Plan synthesis failed", slog.String("itinerary_id", itineraryID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "synthesis failed")
		return nil, err
	}

	stored, err := s.store.Save(ctx, itineraryID, content)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to store plan", slog.String("itinerary_id", itineraryID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "save failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return stored, nil
}

func (s *ServiceImpl) GetActivePlan(ctx context.Context, userID, itineraryID uuid.UUID) (*types.StoredPlan, error) {
	if err := s.authorize(ctx, userID, itineraryID); err != nil {
		return nil, err
	}
	plan, err := s.store.GetActive(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, fmt.Errorf("no plan for itinerary %s: %w", itineraryID, types.ErrNotFound)
	}
	return plan, nil
}

func (s *ServiceImpl) GetPlanHistory(ctx context.Context, userID, itineraryID uuid.UUID) ([]types.StoredPlan, error) {
	if err := s.authorize(ctx, userID, itineraryID); err != nil {
		return nil, err
	}
	return s.store.GetHistory(ctx, itineraryID)
}
