package itinerary

import (
	"log/slog"
	"net/http"

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

// CreateItinerary godoc
// @Summary      Create an itinerary
// @Description  Stores the trip and schedules place generation in the background. The response shows generation as pending.
// @Tags         itineraries
// @Accept       json
// @Produce      json
// @Param        body body     types.CreateItineraryRequest true "Trip parameters"
// @Success      201  {object} types.Itinerary
// @Failure      400  {object} api.Response
// @Failure      401  {object} api.Response
// @Security     BearerAuth
// @Router       /itineraries [post]
func (h *HandlerImpl) CreateItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "CreateItinerary", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itineraries"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "CreateItinerary"))

	userID, ok := auth.UserUUIDFromRequest(w, r, l)
	if !ok {
		return
	}

	var req types.CreateItineraryRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	it, err := h.service.Create(ctx, userID, req)
	if err != nil {
		l.WarnContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		api.ServiceErrorResponse(w, r, err)
		return
	}
	l.InfoContext(ctx, "Itinerary accepted", slog.String("itinerary_id", it.ID.String()))
	api.WriteJSONResponse(w, r, http.StatusCreated, it)
}

// GetItinerary godoc
// @Summary      Get an itinerary with its generation status
// @Tags         itineraries
// @Produce      json
// @Param        itineraryID path     string true "Itinerary ID"
// @Success      200         {object} types.Itinerary
// @Failure      400         {object} api.Response
// @Failure      403         {object} api.Response
// @Failure      404         {object} api.Response
// @Security     BearerAuth
// @Router       /itineraries/{itineraryID} [get]
func (h *HandlerImpl) GetItinerary(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("ItineraryHandler").Start(r.Context(), "GetItinerary")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetItinerary"))

	userID, ok := auth.UserUUIDFromRequest(w, r, l)
	if !ok {
		return
	}
	itineraryID, err := uuid.Parse(chi.URLParam(r, "itineraryID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID format")
		return
	}

	it, err := h.service.Get(ctx, userID, itineraryID)
	if err != nil {
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, it)
}
