package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/api/places"
	"github.com/FACorreiaa/go-trip-planner/internal/api/recommendation"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// GenerationHandler runs recommendation generation for a freshly committed itinerary.
type GenerationHandler struct {
	repo         Repository
	generator    recommendation.Generator
	materializer places.Materializer
	logger       *slog.Logger
	now          func() time.Time
}

func NewGenerationHandler(repo Repository, generator recommendation.Generator, materializer places.Materializer, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		repo:         repo,
		generator:    generator,
		materializer: materializer,
		logger:       logger.With(slog.String("component", "GenerationHandler")),
		now:          time.Now,
	}
}

// Handle re-reads the itinerary, generates and stores places, then records the
// outcome on the itinerary. A failed generation is recorded rather than returned;
// only a failure to record it is returned to the worker.
func (h *GenerationHandler) Handle(ctx context.Context, task types.GenerationTask) error {
	ctx, span := otel.Tracer("GenerationHandler").Start(ctx, "Handle", trace.WithAttributes(
		attribute.String("itinerary.id", task.ItineraryID.String()),
		attribute.Int("poi_count", task.POICount),
	))
	defer span.End()
	l := h.logger.With(slog.String("itinerary_id", task.ItineraryID.String()))
	m := metrics.Get()

	it, err := h.repo.Get(ctx, task.ItineraryID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Itinerary vanished before generation ran")
			m.GenerationRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "skipped")))
			return nil
		}
		span.RecordError(err)
		return h.record(ctx, l, task, 0, fmt.Errorf("load itinerary: %w", err))
	}
	if !it.Generation.Pending() {
		l.InfoContext(ctx, "Generation already finished, skipping", slog.String("status", string(it.Generation.Status)))
		m.GenerationRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "skipped")))
		return nil
	}

	maxCount := task.POICount
	if maxCount < 1 {
		maxCount = it.Generation.RecommendedPOICount
	}

	candidates, outcome, err := h.generator.Generate(ctx, types.TripContextFromItinerary(it), maxCount)
	if err != nil {
		span.RecordError(err)
		return h.record(ctx, l, task, 0, err)
	}
	l.InfoContext(ctx, "Recommendations generated",
		slog.Int("candidates", len(candidates)),
		slog.Int("attempts", outcome.Attempts),
		slog.Int("rejected", outcome.Rejected))

	saved, err := h.materializer.Materialize(ctx, it.ID, candidates)
	if err != nil {
		span.RecordError(err)
		return h.record(ctx, l, task, 0, err)
	}
	return h.record(ctx, l, task, len(saved), nil)
}

// record writes the terminal metadata. Its own failure is logged and returned but
// never affects the already answered creation request.
func (h *GenerationHandler) record(ctx context.Context, l *slog.Logger, task types.GenerationTask, count int, runErr error) error {
	outcome := "succeeded"
	if runErr != nil {
		outcome = "failed"
		l.ErrorContext(ctx, "Generation failed", slog.Any("error", runErr))
	}
	metrics.Get().GenerationRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	// Record under a fresh context so a timed-out run can still store its error.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	_, err := h.repo.UpdateGenerationMetadata(writeCtx, task.ItineraryID, func(m types.GenerationMetadata) types.GenerationMetadata {
		if runErr != nil {
			return m.Failed(runErr.Error(), h.now().UTC())
		}
		return m.Complete(count, h.now().UTC())
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to update generation metadata", slog.Any("error", err))
		trace.SpanFromContext(ctx).SetStatus(codes.Error, "metadata update failed")
		return fmt.Errorf("update generation metadata: %w", err)
	}
	if runErr == nil {
		l.InfoContext(ctx, "Generation complete", slog.Int("places", count))
	}
	return nil
}
