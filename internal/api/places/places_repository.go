package places

import (
	"context"
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
	// InsertPlaceWithAssociation stores a new place and links it to the itinerary in one transaction.
	InsertPlaceWithAssociation(ctx context.Context, itineraryID uuid.UUID, place types.Place) (*types.ItineraryPlace, error)
	ListAssociations(ctx context.Context, itineraryID uuid.UUID, pinnedOnly bool) ([]types.ItineraryPlace, error)
	GetAssociations(ctx context.Context, itineraryID uuid.UUID, placeIDs []uuid.UUID) ([]types.ItineraryPlace, error)
	UpdateInterest(ctx context.Context, itineraryID, placeID uuid.UUID, pinned *bool, note *string) (*types.ItineraryPlace, error)
}

type RepositoryImpl struct {
	logger *slog.Logger
	pgpool database.DB
}

func NewRepository(pgpool database.DB, logger *slog.Logger) *RepositoryImpl {
	return &RepositoryImpl{logger: logger, pgpool: pgpool}
}

const insertPlaceSQL = `
	INSERT INTO places (name, address, latitude, longitude, website, phone, description, opening_hours, source)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING id, created_at`

const insertAssociationSQL = `
	INSERT INTO itinerary_places (itinerary_id, place_id, name, description)
	VALUES ($1, $2, $3, $4)
	RETURNING pinned, added_at`

const selectAssociationsSQL = `
	SELECT ip.itinerary_id, ip.place_id, ip.name, COALESCE(ip.description, ''), ip.pinned, ip.note, ip.added_at,
	       p.name, p.address, p.latitude, p.longitude, COALESCE(p.website, ''), COALESCE(p.phone, ''),
	       COALESCE(p.description, ''), COALESCE(p.opening_hours, ''), p.source, p.created_at
	FROM itinerary_places ip
	JOIN places p ON p.id = ip.place_id
	WHERE ip.itinerary_id = $1`

const updateInterestSQL = `
	UPDATE itinerary_places
	SET pinned = COALESCE($3::boolean, pinned),
	    note   = CASE WHEN $4::boolean THEN NULLIF($5::text, '') ELSE note END
	WHERE itinerary_id = $1 AND place_id = $2
	RETURNING itinerary_id, place_id, name, COALESCE(description, ''), pinned, note, added_at`

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *RepositoryImpl) InsertPlaceWithAssociation(ctx context.Context, itineraryID uuid.UUID, place types.Place) (_ *types.ItineraryPlace, err error) {
	ctx, span := otel.Tracer("PlacesRepository").Start(ctx, "InsertPlaceWithAssociation", trace.WithAttributes(
		attribute.String("itinerary.id", itineraryID.String()),
	))
	defer span.End()
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "insert_place", start, err) }()

	tx, err := r.pgpool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var lat, lng *float64
	if place.Location != nil {
		lat, lng = &place.Location.Latitude, &place.Location.Longitude
	}
	source := place.Source
	if source == "" {
		source = types.PlaceSourceModelGenerated
	}

	err = tx.QueryRow(ctx, insertPlaceSQL,
		place.Name, place.Address, lat, lng,
		nullIfEmpty(place.Website), nullIfEmpty(place.Phone), nullIfEmpty(place.Description), nullIfEmpty(place.OpeningHours),
		source,
	).Scan(&place.ID, &place.CreatedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert place failed")
		return nil, fmt.Errorf("failed to insert place: %w", err)
	}
	place.Source = source

	assoc := &types.ItineraryPlace{
		ItineraryID: itineraryID,
		PlaceID:     place.ID,
		Name:        place.Name,
		Description: place.Description,
		Place:       &place,
	}
	err = tx.QueryRow(ctx, insertAssociationSQL, itineraryID, place.ID, place.Name, nullIfEmpty(place.Description)).
		Scan(&assoc.Pinned, &assoc.AddedAt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert association failed")
		return nil, fmt.Errorf("failed to link place to itinerary: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to commit place: %w", err)
	}
	span.SetStatus(codes.Ok, "")
	return assoc, nil
}

func (r *RepositoryImpl) ListAssociations(ctx context.Context, itineraryID uuid.UUID, pinnedOnly bool) (_ []types.ItineraryPlace, err error) {
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "list_associations", start, err) }()
	query := selectAssociationsSQL
	if pinnedOnly {
		query += " AND ip.pinned"
	}
	query += " ORDER BY ip.added_at, ip.place_id"
	rows, err := r.pgpool.Query(ctx, query, itineraryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list itinerary places: %w", err)
	}
	return scanAssociations(rows)
}

func (r *RepositoryImpl) GetAssociations(ctx context.Context, itineraryID uuid.UUID, placeIDs []uuid.UUID) (_ []types.ItineraryPlace, err error) {
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "get_associations", start, err) }()
	if len(placeIDs) == 0 {
		return []types.ItineraryPlace{}, nil
	}
	rows, err := r.pgpool.Query(ctx, selectAssociationsSQL+" AND ip.place_id = ANY($2) ORDER BY ip.added_at, ip.place_id", itineraryID, placeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load itinerary places: %w", err)
	}
	return scanAssociations(rows)
}

func scanAssociations(rows pgx.Rows) ([]types.ItineraryPlace, error) {
	defer rows.Close()
	out := []types.ItineraryPlace{}
	for rows.Next() {
		var (
			ip       types.ItineraryPlace
			p        types.Place
			lat, lng *float64
		)
		if err := rows.Scan(
			&ip.ItineraryID, &ip.PlaceID, &ip.Name, &ip.Description, &ip.Pinned, &ip.Note, &ip.AddedAt,
			&p.Name, &p.Address, &lat, &lng, &p.Website, &p.Phone, &p.Description, &p.OpeningHours, &p.Source, &p.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan itinerary place: %w", err)
		}
		p.ID = ip.PlaceID
		if lat != nil && lng != nil {
			p.Location = &types.Coordinate{Latitude: *lat, Longitude: *lng}
		}
		ip.Place = &p
		out = append(out, ip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate itinerary places: %w", err)
	}
	return out, nil
}

func (r *RepositoryImpl) UpdateInterest(ctx context.Context, itineraryID, placeID uuid.UUID, pinned *bool, note *string) (_ *types.ItineraryPlace, err error) {
	start := time.Now()
	defer func() { metrics.Get().ObserveQuery(ctx, "update_interest", start, err) }()
	noteValue := ""
	if note != nil {
		noteValue = *note
	}
	var ip types.ItineraryPlace
	err = r.pgpool.QueryRow(ctx, updateInterestSQL, itineraryID, placeID, pinned, note != nil, noteValue).
		Scan(&ip.ItineraryID, &ip.PlaceID, &ip.Name, &ip.Description, &ip.Pinned, &ip.Note, &ip.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("place %s is not part of itinerary %s: %w", placeID, itineraryID, types.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update interest: %w", err)
	}
	return &ip, nil
}
