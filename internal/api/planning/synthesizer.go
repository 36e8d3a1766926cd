package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/config"
	"github.com/FACorreiaa/go-trip-planner/internal/retry"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const (
	MaxAttempts       = 3
	DefaultDailyStart = "09:00"
	DefaultDailyEnd   = "20:00"
)

var errEmptyPlan = errors.New("plan gateway returned no days")

// ItineraryReader loads an itinerary by id, failing with types.ErrNotFound.
type ItineraryReader interface {
	Get(ctx context.Context, itineraryID uuid.UUID) (*types.Itinerary, error)
}

// PlaceSource reads the itinerary's place associations.
type PlaceSource interface {
	ListAssociations(ctx context.Context, itineraryID uuid.UUID, pinnedOnly bool) ([]types.ItineraryPlace, error)
	GetAssociations(ctx context.Context, itineraryID uuid.UUID, placeIDs []uuid.UUID) ([]types.ItineraryPlace, error)
}

var _ Synthesizer = (*SynthesizerImpl)(nil)

type Synthesizer interface {
	Synthesize(ctx context.Context, itineraryID uuid.UUID, req types.SynthesizePlanRequest) (types.PlanContent, error)
}

type SynthesizerImpl struct {
	itineraries ItineraryReader
	places      PlaceSource
	gateway     PlanGateway
	policy      retry.Policy
	dailyStart  string
	dailyEnd    string
	logger      *slog.Logger
}

// DefaultPolicy doubles the wait from base after each failed gateway call.
func DefaultPolicy(cfg config.PlanningConfig) retry.Policy {
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = MaxAttempts
	}
	base := cfg.BackoffBase
	if base <= 0 {
		base = time.Second
	}
	return retry.Policy{MaxAttempts: attempts, Backoff: retry.Exponential(base), AttemptTimeout: cfg.AttemptTimeout}
}

func NewSynthesizer(itineraries ItineraryReader, places PlaceSource, gateway PlanGateway, policy retry.Policy,
	cfg config.PlanningConfig, logger *slog.Logger) *SynthesizerImpl {
	s := &SynthesizerImpl{
		itineraries: itineraries,
		places:      places,
		gateway:     gateway,
		policy:      policy,
		dailyStart:  cfg.DailyStart,
		dailyEnd:    cfg.DailyEnd,
		logger:      logger.With(slog.String("component", "PlanSynthesizer")),
	}
	if s.dailyStart == "" {
		s.dailyStart = DefaultDailyStart
	}
	if s.dailyEnd == "" {
		s.dailyEnd = DefaultDailyEnd
	}
	return s
}

func (s *SynthesizerImpl) Synthesize(ctx context.Context, itineraryID uuid.UUID, req types.SynthesizePlanRequest) (types.PlanContent, error) {
	ctx, span := otel.Tracer("PlanSynthesizer").Start(ctx, "Synthesize", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.Int("explicit_places", len(req.PlaceIDs)),
	))
	defer span.End()
	m := metrics.Get()
	fail := func(err error, reason string) (types.PlanContent, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		m.PlanSynthesisTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", reason)))
		return types.PlanContent{}, err
	}

	itinerary, err := s.itineraries.Get(ctx, itineraryID)
	if err != nil {
		return fail(err, "itinerary lookup failed")
	}

	selected, err := s.selectPlaces(ctx, itineraryID, req.PlaceIDs)
	if err != nil {
		return fail(err, "place selection failed")
	}
	if len(selected) == 0 {
		return fail(types.NewValidationError("interest_place_ids", "no places to plan: pin places or pass their ids"), "no places")
	}

	planReq, err := s.buildRequest(itinerary, selected, req)
	if err != nil {
		return fail(err, "invalid request")
	}

	var raw *types.RawPlan
	err = s.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		plan, err := s.gateway.Plan(ctx, planReq)
		if err == nil && (plan == nil || len(plan.Days) == 0) {
			err = errEmptyPlan
		}
		if err != nil {
			s.logger.WarnContext(ctx, "Plan gateway attempt failed",
				slog.String("itinerary_id", itineraryID.String()),
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return err
		}
		raw = plan
		return nil
	})
	if err != nil {
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			err = fmt.Errorf("%w: plan synthesis failed after %d attempts: %w", types.ErrGenerationExhausted, exhausted.Attempts, exhausted.Last())
		}
		return fail(err, "gateway exhausted")
	}

	snapshots := make(map[uuid.UUID]types.PlaceSnapshot, len(selected))
	for _, ip := range selected {
		snapshots[ip.PlaceID] = snapshotOf(ip)
	}
	content, dropped, malformed := normalizePlan(raw, snapshots)
	for _, d := range dropped {
		s.logger.WarnContext(ctx, "Dropped duplicate stop",
			slog.String("itinerary_id", itineraryID.String()),
			slog.String("place_id", d.PlaceID.String()),
			slog.String("day", d.Date))
	}
	if len(dropped) > 0 {
		m.PlanStopsDroppedTotal.Add(ctx, int64(len(dropped)))
	}
	if len(malformed) > 0 {
		s.logger.WarnContext(ctx, "Stops with unreadable place ids kept as non-place entries",
			slog.String("itinerary_id", itineraryID.String()),
			slog.Any("place_ids", malformed))
	}

	m.PlanSynthesisTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "succeeded")))
	span.SetAttributes(attribute.Int("plan.days", len(content.Days)), attribute.Int("plan.stops", content.StopCount()),
		attribute.Int("plan.dropped", len(dropped)))
	span.SetStatus(codes.Ok, "")
	return content, nil
}

// selectPlaces uses the explicit ids when given, otherwise the pinned places.
func (s *SynthesizerImpl) selectPlaces(ctx context.Context, itineraryID uuid.UUID, explicit []uuid.UUID) ([]types.ItineraryPlace, error) {
	if len(explicit) == 0 {
		return s.places.ListAssociations(ctx, itineraryID, true)
	}
	selected, err := s.places.GetAssociations(ctx, itineraryID, explicit)
	if err != nil {
		return nil, err
	}
	if len(selected) < len(explicit) {
		s.logger.WarnContext(ctx, "Some requested places are not part of the itinerary",
			slog.String("itinerary_id", itineraryID.String()),
			slog.Int("requested", len(explicit)),
			slog.Int("found", len(selected)))
	}
	return selected, nil
}

func (s *SynthesizerImpl) buildRequest(it *types.Itinerary, selected []types.ItineraryPlace, req types.SynthesizePlanRequest) (types.PlanRequest, error) {
	start, end := req.DailyStart, req.DailyEnd
	if start == "" {
		start = firstNonEmpty(it.Preferences.DailyStart, s.dailyStart)
	}
	if end == "" {
		end = firstNonEmpty(it.Preferences.DailyEnd, s.dailyEnd)
	}
	if err := types.ValidateDailyWindow(start, end); err != nil {
		return types.PlanRequest{}, err
	}

	tc := types.TripContextFromItinerary(it)
	mode := tc.TravelMode
	if req.TravelMode != "" {
		mode = req.TravelMode
	}

	out := types.PlanRequest{
		ItineraryID:           it.ID.String(),
		Destination:           it.Destination,
		StartDate:             it.StartDate.Format(time.DateOnly),
		EndDate:               it.EndDate.Format(time.DateOnly),
		TravelMode:            mode,
		Budget:                tc.Budget,
		DailyStart:            start,
		DailyEnd:              end,
		Pace:                  tc.Pace,
		NumberOfTravelers:     tc.NumberOfTravelers,
		AdditionalPreferences: tc.AdditionalPreferences,
		Places:                make([]types.PlanPlace, 0, len(selected)),
	}
	for _, ip := range selected {
		snap := snapshotOf(ip)
		pp := types.PlanPlace{
			PlaceID:     ip.PlaceID.String(),
			Name:        snap.Name,
			Address:     snap.Address,
			Description: snap.Description,
			Pinned:      snap.Pinned,
			Note:        snap.Note,
		}
		if snap.Location != nil {
			pp.Latitude, pp.Longitude = snap.Location.Latitude, snap.Location.Longitude
		}
		out.Places = append(out.Places, pp)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
