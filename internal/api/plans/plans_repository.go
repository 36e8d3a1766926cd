package plans

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
	// Save stores content as the next version and makes it the only active one.
	Save(ctx context.Context, itineraryID uuid.UUID, content types.PlanContent) (*types.StoredPlan, error)
	// GetActive returns nil, nil when the itinerary has no plan yet.
	GetActive(ctx context.Context, itineraryID uuid.UUID) (*types.StoredPlan, error)
	GetHistory(ctx context.Context, itineraryID uuid.UUID) ([]types.StoredPlan, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool database.DB
}

func NewRepository(pgpool database.DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const (
	lockItinerarySQL   = `SELECT id FROM itineraries WHERE id = $1 FOR UPDATE`
	maxVersionSQL      = `SELECT COALESCE(MAX(version), 0) FROM itinerary_plans WHERE itinerary_id = $1`
	deactivatePlansSQL = `UPDATE itinerary_plans SET active = FALSE WHERE itinerary_id = $1 AND active`
	insertPlanSQL      = `
		INSERT INTO itinerary_plans (itinerary_id, version, active, content)
		VALUES ($1, $2, TRUE, $3)
		RETURNING id, created_at`
	selectActivePlanSQL = `
		SELECT id, itinerary_id, version, active, content, created_at
		FROM itinerary_plans
		WHERE itinerary_id = $1 AND active`
	selectPlanHistorySQL = `
		SELECT id, itinerary_id, version, active, content, created_at
		FROM itinerary_plans
		WHERE itinerary_id = $1
		ORDER BY version DESC, created_at DESC`
)

func (r *RepositoryImpl) Save(ctx context.Context, itineraryID uuid.UUID, content types.PlanContent) (_ *types.StoredPlan, err error) {
	ctx, span := otel.Tracer("PlansRepository").Start(ctx, "Save", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
	))
	defer span.End()
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "save_plan", start, err) }()

	payload, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan content: %w", err)
	}

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after Commit

	// The row lock serializes writers of the same itinerary.
	var locked uuid.UUID
	if err = tx.QueryRow(ctx, lockItinerarySQL, itineraryID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("itinerary %s: %w", itineraryID, types.ErrNotFound)
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to lock itinerary: %w", err)
	}

	var current int // 0 when the itinerary has no plans yet
	if err = tx.QueryRow(ctx, maxVersionSQL, itineraryID).Scan(&current); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to read latest plan version: %w", err)
	}

	// Deactivate before insert so the partial unique index on active rows never sees two.
	if _, err = tx.Exec(ctx, deactivatePlansSQL, itineraryID); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to deactivate previous plan: %w", err)
	}

	plan := &types.StoredPlan{
		ItineraryID: itineraryID,
		Version:     current + 1,
		Active:      true,
		Content:     content,
	}
	if err = tx.QueryRow(ctx, insertPlanSQL, itineraryID, plan.Version, payload).Scan(&plan.ID, &plan.CreatedAt); err != nil {
		// Another writer won the version; the service retries.
		if database.IsUniqueViolation(err) {
			err = fmt.Errorf("plan version %d for itinerary %s: %w", plan.Version, itineraryID, types.ErrPersistenceConflict)
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert plan failed")
		return nil, fmt.Errorf("failed to insert plan: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		if database.IsUniqueViolation(err) {
			err = fmt.Errorf("commit plan for itinerary %s: %w", itineraryID, types.ErrPersistenceConflict)
			return nil, err
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to commit plan: %w", err)
	}

	span.SetAttributes(attribute.Int("plan.version", plan.Version))
	span.SetStatus(codes.Ok, "")
	return plan, nil
}

func (r *RepositoryImpl) GetActive(ctx context.Context, itineraryID uuid.UUID) (_ *types.StoredPlan, err error) {
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "get_active_plan", start, err) }()

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, selectActivePlanSQL, itineraryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // no plan yet is not an error
		}
		return nil, fmt.Errorf("failed to load active plan: %w", err)
	}
	return plan, nil
}

func (r *RepositoryImpl) GetHistory(ctx context.Context, itineraryID uuid.UUID) (_ []types.StoredPlan, err error) {
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "get_plan_history", start, err) }()

	rows, err := r.pgpool.Query(ctx, selectPlanHistorySQL, itineraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to load plan history: %w", err)
	}
	defer rows.Close()

	history := []types.StoredPlan{} // encodes as [] rather than null
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan plan: %w", err)
		}
		history = append(history, *plan)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate plans: %w", err)
	}
	return history, nil
}

func scanPlan(row pgx.Row) (*types.StoredPlan, error) {
	var (
		plan types.StoredPlan
		raw  []byte
	)
	if err := row.Scan(&plan.ID, &plan.ItineraryID, &plan.Version, &plan.Active, &raw, &plan.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &plan.Content); err != nil {
		return nil, fmt.Errorf("corrupt plan content for version %d: %w", plan.Version, err)
	}
	return &plan, nil
}
