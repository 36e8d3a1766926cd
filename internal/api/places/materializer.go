package places

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Materializer = (*MaterializerImpl)(nil)

// Materializer persists generated candidates as places linked to an itinerary.
type Materializer interface {
	Materialize(ctx context.Context, itineraryID uuid.UUID, candidates []types.CandidatePOI) ([]types.ItineraryPlace, error)
}

type MaterializerImpl struct {
	repo   Repository
	logger *slog.Logger
}

func NewMaterializer(repo Repository, logger *slog.Logger) *MaterializerImpl {
	return &MaterializerImpl{repo: repo, logger: logger.With(slog.String("component", "POIMaterializer"))}
}

// Materialize stores each candidate in its own transaction. A failing candidate is
// logged and skipped; the call only fails when nothing could be stored.
// Duplicate names are stored as distinct places.
func (m *MaterializerImpl) Materialize(ctx context.Context, itineraryID uuid.UUID, candidates []types.CandidatePOI) ([]types.ItineraryPlace, error) {
	ctx, span := otel.Tracer("POIMaterializer").Start(ctx, "Materialize", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
		attribute.Int("candidates", len(candidates)),
	))
	defer span.End()

	saved := make([]types.ItineraryPlace, 0, len(candidates))
	var lastErr error
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		assoc, err := m.repo.InsertPlaceWithAssociation(ctx, itineraryID, c.ToPlace())
		if err != nil {
			lastErr = err
			m.logger.WarnContext(ctx, "Failed to persist generated place",
				slog.String("itinerary_id", itineraryID.String()),
				slog.String("place_name", c.Name),
				slog.Any("error", err))
			continue
		}
		saved = append(saved, *assoc)
	}
	metrics.Get().PlacesMaterializedTotal.Add(ctx, int64(len(saved)))
	span.SetAttributes(attribute.Int("saved", len(saved)))

	if len(saved) == 0 && lastErr != nil {
		span.RecordError(lastErr)
		return nil, fmt.Errorf("no generated places could be stored: %w", lastErr)
	}
	return saved, nil
}
