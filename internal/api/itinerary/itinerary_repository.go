package itinerary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-trip-planner/app/db"
	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

var _ Repository = (*RepositoryImpl)(nil)

type Repository interface {
	// Create inserts the itinerary and returns once the row is committed.
	Create(ctx context.Context, it *types.Itinerary) (*types.Itinerary, error)
	Get(ctx context.Context, itineraryID uuid.UUID) (*types.Itinerary, error)
	IsOwner(ctx context.Context, itineraryID, userID uuid.UUID) (bool, error)
	// UpdateGenerationMetadata re-reads the metadata under a row lock, applies fn and writes the result.
	UpdateGenerationMetadata(ctx context.Context, itineraryID uuid.UUID, fn func(types.GenerationMetadata) types.GenerationMetadata) (types.GenerationMetadata, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool database.DB
}

func NewRepository(pgpool database.DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const (
	insertItinerarySQL = `
		INSERT INTO itineraries (user_id, destination, start_date, end_date, travel_mode, budget, preferences, generation_metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	selectItinerarySQL = `
		SELECT id, user_id, destination, start_date, end_date, travel_mode, budget, preferences, generation_metadata, created_at, updated_at
		FROM itineraries
		WHERE id = $1`
	selectOwnerSQL    = `SELECT user_id FROM itineraries WHERE id = $1`
	lockMetadataSQL   = `SELECT generation_metadata FROM itineraries WHERE id = $1 FOR UPDATE`
	updateMetadataSQL = `UPDATE itineraries SET generation_metadata = $2, updated_at = now() WHERE id = $1`
)

func (r *RepositoryImpl) Create(ctx context.Context, it *types.Itinerary) (_ *types.Itinerary, err error) {
	ctx, span := otel.Tracer("ItineraryRepository").Start(ctx, "Create", trace.WithAttributes(
		attribute.String("user.id", it.UserID.String()),
		attribute.String("itinerary.destination", it.Destination),
	))
	defer span.End()
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "create_itinerary", start, err) }()

	prefs, err := json.Marshal(it.Preferences)
	if err != nil {
		return nil, fmt.Errorf("failed to encode preferences: %w", err)
	}
	meta, err := types.EncodeGenerationMetadata(it.Generation)
	if err != nil {
		return nil, err
	}

	out := *it
	err = r.pgpool.QueryRow(ctx, insertItinerarySQL,
		it.UserID, it.Destination, it.StartDate, it.EndDate, string(it.TravelMode), it.Budget, prefs, meta,
	).Scan(&out.ID, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
		return nil, fmt.Errorf("failed to insert itinerary: %w", err)
	}
	span.SetAttributes(attribute.String("itinerary.id", out.ID.String()))
	span.SetStatus(codes.Ok, "")
	return &out, nil
}

func (r *RepositoryImpl) Get(ctx context.Context, itineraryID uuid.UUID) (_ *types.Itinerary, err error) {
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "get_itinerary", start, err) }()

	var (
		it          types.Itinerary
		mode        string
		prefs, meta []byte
	)
	err = r.pgpool.QueryRow(ctx, selectItinerarySQL, itineraryID).Scan(
		&it.ID, &it.UserID, &it.Destination, &it.StartDate, &it.EndDate, &mode, &it.Budget, &prefs, &meta, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("itinerary %s: %w", itineraryID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load itinerary: %w", err)
	}
	it.TravelMode = types.TravelMode(mode)
	if len(prefs) > 0 {
		if err = json.Unmarshal(prefs, &it.Preferences); err != nil {
			return nil, fmt.Errorf("corrupt preferences on itinerary %s: %w", itineraryID, err)
		}
	}
	if it.Generation, err = types.DecodeGenerationMetadata(meta); err != nil {
		return nil, fmt.Errorf("itinerary %s: %w", itineraryID, err)
	}
	return &it, nil
}

func (r *RepositoryImpl) IsOwner(ctx context.Context, itineraryID, userID uuid.UUID) (_ bool, err error) {
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "itinerary_owner", start, err) }()

	var owner uuid.UUID
	if err = r.pgpool.QueryRow(ctx, selectOwnerSQL, itineraryID).Scan(&owner); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("itinerary %s: %w", itineraryID, types.ErrNotFound)
		}
		return false, fmt.Errorf("failed to check itinerary owner: %w", err)
	}
	return owner == userID, nil
}

func (r *RepositoryImpl) UpdateGenerationMetadata(ctx context.Context, itineraryID uuid.UUID, fn func(types.GenerationMetadata) types.GenerationMetadata) (_ types.GenerationMetadata, err error) {
	ctx, span := otel.Tracer("ItineraryRepository").Start(ctx, "UpdateGenerationMetadata", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
	))
	defer span.End()
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "update_generation_metadata", start, err) }()

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return types.GenerationMetadata{}, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	if err = tx.QueryRow(ctx, lockMetadataSQL, itineraryID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return types.GenerationMetadata{}, fmt.Errorf("itinerary %s: %w", itineraryID, types.ErrNotFound)
		}
		span.RecordError(err)
		return types.GenerationMetadata{}, fmt.Errorf("failed to lock generation metadata: %w", err)
	}
	current, err := types.DecodeGenerationMetadata(raw)
	if err != nil {
		return types.GenerationMetadata{}, err
	}

	next := fn(current)
	encoded, err := types.EncodeGenerationMetadata(next)
	if err != nil {
		return types.GenerationMetadata{}, err
	}
	if _, err = tx.Exec(ctx, updateMetadataSQL, itineraryID, encoded); err != nil {
		span.RecordError(err)
		return types.GenerationMetadata{}, fmt.Errorf("failed to write generation metadata: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return types.GenerationMetadata{}, fmt.Errorf("failed to commit generation metadata: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return next, nil
}
