package places

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/internal/api"
	"github.com/FACorreiaa/go-trip-planner/internal/api/auth"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

type HandlerImpl struct {
	service Service
	logger  *slog.Logger
}

func NewHandlerImpl(service Service, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{service: service, logger: logger}
}

// ListPlaces godoc
// @Summary      List itinerary places
// @Description  Lists the places linked to an itinerary, optionally only the pinned ones.
// @Tags         places
// @Produce      json
// @Param        itineraryID path  string true  "Itinerary ID"
// @Param        pinned      query bool   false "Only pinned places"
// @Success      200 {array}  types.ItineraryPlace
// @Failure      400 {object} api.Response
// @Failure      403 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /itineraries/{itineraryID}/places [get]
func (h *HandlerImpl) ListPlaces(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlacesHandler").Start(r.Context(), "ListPlaces", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itineraries/{itineraryID}/places"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "ListPlaces"))

	userID, ok := auth.UserUUIDFromRequest(w, r, l)
	if !ok {
		return
	}
	itineraryID, err := uuid.Parse(chi.URLParam(r, "itineraryID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID format")
		return
	}
	pinnedOnly := false
	if raw := r.URL.Query().Get("pinned"); raw != "" {
		if pinnedOnly, err = strconv.ParseBool(raw); err != nil {
			api.ErrorResponse(w, r, http.StatusBadRequest, "pinned must be a boolean")
			return
		}
	}

	places, err := h.service.ListPlaces(ctx, userID, itineraryID, pinnedOnly)
	if err != nil {
		l.WarnContext(ctx, "Failed to list places", slog.Any("error", err))
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, places)
}

// SetInterest godoc
// @Summary      Pin, unpin or annotate a place
// @Tags         places
// @Accept       json
// @Produce      json
// @Param        itineraryID path string                   true "Itinerary ID"
// @Param        placeID     path string                   true "Place ID"
// @Param        body        body types.SetInterestRequest true "Interest update"
// @Success      200 {object} types.ItineraryPlace
// @Failure      400 {object} api.Response
// @Failure      403 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /itineraries/{itineraryID}/places/{placeID}/interest [put]
func (h *HandlerImpl) SetInterest(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlacesHandler").Start(r.Context(), "SetInterest", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itineraries/{itineraryID}/places/{placeID}/interest"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "SetInterest"))

	userID, ok := auth.UserUUIDFromRequest(w, r, l)
	if !ok {
		return
	}
	itineraryID, err := uuid.Parse(chi.URLParam(r, "itineraryID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID format")
		return
	}
	placeID, err := uuid.Parse(chi.URLParam(r, "placeID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid place ID format")
		return
	}

	var req types.SetInterestRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ip, err := h.service.SetInterest(ctx, userID, itineraryID, placeID, req)
	if err != nil {
		l.WarnContext(ctx, "Failed to set interest", slog.Any("error", err))
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, ip)
}
