package places

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
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// OwnershipChecker answers whether userID owns the itinerary. A missing itinerary is types.ErrNotFound.
type OwnershipChecker interface {
	IsOwner(ctx context.Context, itineraryID, userID uuid.UUID) (bool, error)
}

// Service is the user-facing interest curation API.
type Service interface {
	ListPlaces(ctx context.Context, userID, itineraryID uuid.UUID, pinnedOnly bool) ([]types.ItineraryPlace, error)
	SetInterest(ctx context.Context, userID, itineraryID, placeID uuid.UUID, req types.SetInterestRequest) (*types.ItineraryPlace, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	owners OwnershipChecker
}

func NewServiceImpl(repo Repository, owners OwnershipChecker, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{logger: logger, repo: repo, owners: owners}
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

func (s *ServiceImpl) ListPlaces(ctx context.Context, userID, itineraryID uuid.UUID, pinnedOnly bool) ([]types.ItineraryPlace, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "ListPlaces", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.Bool("pinned_only", pinnedOnly),
	))
	defer span.End()

	if err := s.authorize(ctx, userID, itineraryID); err != nil {
		span.RecordError(err)
		return nil, err
	}
	places, err := s.repo.ListAssociations(ctx, itineraryID, pinnedOnly)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to list itinerary places", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "")
	return places, nil
}

// SetInterest pins, unpins or annotates one place of the itinerary.
func (s *ServiceImpl) SetInterest(ctx context.Context, userID, itineraryID, placeID uuid.UUID, req types.SetInterestRequest) (*types.ItineraryPlace, error) {
	ctx, span := otel.Tracer("PlacesService").Start(ctx, "SetInterest", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.String("place.id", placeID.String()),
	))
	defer span.End()

	if req.Pinned == nil && req.Note == nil {
		return nil, types.NewValidationError("", "pinned or note must be provided")
	}
	if err := api.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, userID, itineraryID); err != nil {
		span.RecordError(err)
		return nil, err
	}

	ip, err := s.repo.UpdateInterest(ctx, itineraryID, placeID, req.Pinned, req.Note)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to update interest", slog.String("place_id", placeID.String()), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return nil, err
	}
	s.logger.InfoContext(ctx, "Interest updated",
		slog.String("itinerary_id", itineraryID.String()),
		slog.String("place_id", placeID.String()),
		slog.Bool("pinned", ip.Pinned))
	span.SetStatus(codes.Ok, "")
	return ip, nil
}
