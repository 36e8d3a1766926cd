package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// scheduleFailure is recorded when the post-commit handoff to the workers fails.
const scheduleFailure = "failed to schedule generation"

var _ Service = (*ServiceImpl)(nil)

// TaskEnqueuer accepts generation tasks for background execution.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, task types.GenerationTask) error
}

type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req types.CreateItineraryRequest) (*types.Itinerary, error)
	Get(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	queue  TaskEnqueuer
	cfg    config.GenerationConfig
	now    func() time.Time
}

func NewServiceImpl(repo Repository, queue TaskEnqueuer, cfg config.GenerationConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger.With(slog.String("component", "ItineraryOrchestrator")),
		repo:   repo,
		queue:  queue,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Budget derives how many days are generated for and how many places are requested.
func Budget(cfg config.GenerationConfig, start, end time.Time, pace types.Pace) (stayingDays, poiCount int) {
	stayingDays = types.DateSpanDays(start, end)
	if cfg.MaxStayingDays > 0 && stayingDays > cfg.MaxStayingDays {
		stayingDays = cfg.MaxStayingDays
	}
	perDay, ok := cfg.POIsPerDay[string(pace)]
	if !ok || perDay < 1 {
		perDay = cfg.POIsPerDay[string(types.PaceModerate)]
	}
	if perDay < 1 {
		perDay = 1
	}
	poiCount = stayingDays * perDay
	if cfg.MaxPOICount > 0 && poiCount > cfg.MaxPOICount {
		poiCount = cfg.MaxPOICount
	}
	return stayingDays, poiCount
}

func validateCreate(req types.CreateItineraryRequest) error {
	if err := api.ValidateStruct(req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Destination) == "" {
		return types.NewValidationError("destination", "must not be blank")
	}
	if req.StartDate == nil || req.EndDate == nil {
		return types.NewValidationError("start_date", "start and end dates are required")
	}
	if req.StartDate.After(*req.EndDate) {
		return types.NewValidationError("start_date", "must not be after end_date")
	}
	if req.Budget != nil && *req.Budget < 0 {
		return types.NewValidationError("budget", "must not be negative")
	}
	if req.DailyStart != "" || req.DailyEnd != "" {
		if req.DailyStart == "" || req.DailyEnd == "" {
			return types.NewValidationError("daily_start", "daily_start and daily_end must be given together")
		}
		if err := types.ValidateDailyWindow(req.DailyStart, req.DailyEnd); err != nil {
			return err
		}
	}
	return nil
}

func preferencesFrom(req types.CreateItineraryRequest) types.TravelerPreferences {
	prefs := types.TravelerPreferences{
		Pace:                     req.Pace,
		ActivityIntensity:        req.ActivityIntensity,
		NumberOfTravelers:        1, // solo traveller unless told otherwise
		HasChildren:              req.HasChildren,
		HasElderly:               req.HasElderly,
		PreferPopularAttractions: true,
		PreferredCategories:      req.PreferredCategories,
		AdditionalPreferences:    strings.TrimSpace(req.AdditionalPreferences),
		DailyStart:               req.DailyStart,
		DailyEnd:                 req.DailyEnd,
	}
	if prefs.Pace == "" {
		prefs.Pace = types.PaceModerate
	}
	if prefs.ActivityIntensity == "" {
		prefs.ActivityIntensity = types.IntensityModerate
	}
	if req.NumberOfTravelers != nil {
		prefs.NumberOfTravelers = *req.NumberOfTravelers
	}
	if req.PreferPopularAttractions != nil {
		prefs.PreferPopularAttractions = *req.PreferPopularAttractions
	}
	// Stored as [] so the JSONB column never holds null.
	if prefs.PreferredCategories == nil {
		prefs.PreferredCategories = []string{}
	}
	return prefs
}

// Create validates the request, stores the itinerary as pending and only then
// schedules generation. A scheduling failure does not fail the call; it is
// recorded on the itinerary instead.
func (s *ServiceImpl) Create(ctx context.Context, userID uuid.UUID, req types.CreateItineraryRequest) (*types.Itinerary, error) {
	ctx, span := otel.Tracer("ItineraryOrchestrator").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("itinerary.destination", req.Destination),
	))
	defer span.End()

	if err := validateCreate(req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, err
	}

	prefs := preferencesFrom(req)
	stayingDays, poiCount := Budget(s.cfg, *req.StartDate, *req.EndDate, prefs.Pace)
	mode := req.TravelMode
	if mode == "" {
		mode = types.TravelModeWalking
	}

	created, err := s.repo.Create(ctx, &types.Itinerary{
		UserID:      userID,
		Destination: strings.TrimSpace(req.Destination),
		StartDate:   *req.StartDate,
		EndDate:     *req.EndDate,
		TravelMode:  mode,
		Budget:      req.Budget,
		Preferences: prefs,
		Generation: types.GenerationMetadata{
			StayingDays:         stayingDays,
			RecommendedPOICount: poiCount,
			Status:              types.GenerationPending,
		},
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("itinerary.id", created.ID.String()), attribute.Int("poi_count", poiCount))

	// Enqueue only after the row exists so the worker can always load it.
	task := types.GenerationTask{ItineraryID: created.ID, POICount: poiCount, EnqueuedAt: s.now().UTC()}
	if err := s.queue.Enqueue(ctx, task); err != nil {
		s.logger.ErrorContext(ctx, "Failed to schedule generation",
			slog.String("itinerary_id", created.ID.String()),
			slog.Any("error", err))
		span.RecordError(err)
		meta, uerr := s.repo.UpdateGenerationMetadata(ctx, created.ID, func(m types.GenerationMetadata) types.GenerationMetadata {
			return m.Failed(scheduleFailure, s.now().UTC())
		})
		if uerr != nil {
			s.logger.ErrorContext(ctx, "Failed to record scheduling failure",
				slog.String("itinerary_id", created.ID.String()),
				slog.Any("error", uerr))
		} else {
			created.Generation = meta // return the failed status to the caller
		}
	}

	s.logger.InfoContext(ctx, "Itinerary created",
		slog.String("itinerary_id", created.ID.String()),
		slog.Int("staying_days", stayingDays),
		slog.Int("poi_count", poiCount))
	span.SetStatus(codes.Ok, "")
	return created, nil
}

func (s *ServiceImpl) Get(ctx context.Context, userID, itineraryID uuid.UUID) (*types.Itinerary, error) {
	it, err := s.repo.Get(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	if it.UserID != userID {
		return nil, fmt.Errorf("itinerary %s: %w", itineraryID, types.ErrForbidden)
	}
	return it, nil
}
