package planning

import (
	"errors"
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

func (h *HandlerImpl) itineraryID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "itineraryID"))
	if err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid itinerary ID format")
		return uuid.Nil, false
	}
	return id, true
}

// SynthesizePlan godoc
// @Summary      Build a new plan version
// @Description  Schedules the pinned places, or the listed ones, into days and stores the result as the active plan.
// @Tags         plans
// @Accept       json
// @Produce      json
// @Param        itineraryID path string                      true  "Itinerary ID"
// @Param        body        body types.SynthesizePlanRequest false "Planning overrides"
// @Success      201 {object} types.StoredPlan
// @Failure      400 {object} api.Response
// @Failure      403 {object} api.Response
// @Failure      404 {object} api.Response
// @Failure      502 {object} api.Response
// @Security     BearerAuth
// @Router       /itineraries/{itineraryID}/plan [post]
func (h *HandlerImpl) SynthesizePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanningHandler").Start(r.Context(), "SynthesizePlan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/api/v1/itineraries/{itineraryID}/plan"),
	))
	defer span.End()
	l := h.logger.With(slog.String("handler", "SynthesizePlan"))

	userID, ok := auth.UserUUIDFromRequest(w, r, l)
	if !ok {
		return
	}
	itineraryID, ok := h.itineraryID(w, r)
	if !ok {
		return
	}

	// The body is optional; an empty POST plans the pinned places.
	// ContentLength is -1 for chunked uploads, so always decode.
	var req types.SynthesizePlanRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil && !errors.Is(err, api.ErrEmptyBody) {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := h.service.Plan(ctx, userID, itineraryID, req)
	if err != nil {
		l.WarnContext(ctx, "Plan request failed", slog.Any("error", err))
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, plan)
}

// GetActivePlan godoc
// @Summary      Get the active plan
// @Tags         plans
// @Produce      json
// @Param        itineraryID path string true "Itinerary ID"
// @Success      200 {object} types.StoredPlan
// @Failure      403 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /itineraries/{itineraryID}/plan [get]
func (h *HandlerImpl) GetActivePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanningHandler").Start(r.Context(), "GetActivePlan")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetActivePlan"))

	userID, ok := auth.UserUUIDFromRequest(w, r, l)
	if !ok {
		return
	}
	itineraryID, ok := h.itineraryID(w, r)
	if !ok {
		return
	}
	plan, err := h.service.GetActivePlan(ctx, userID, itineraryID)
	if err != nil {
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}

// GetPlanHistory godoc
// @Summary      List plan versions, newest first
// @Tags         plans
// @Produce      json
// @Param        itineraryID path string true "Itinerary ID"
// @Success      200 {array}  types.StoredPlan
// @Failure      403 {object} api.Response
// @Failure      404 {object} api.Response
// @Security     BearerAuth
// @Router       /itineraries/{itineraryID}/plans [get]
func (h *HandlerImpl) GetPlanHistory(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanningHandler").Start(r.Context(), "GetPlanHistory")
	defer span.End()
	l := h.logger.With(slog.String("handler", "GetPlanHistory"))

	userID, ok := auth.UserUUIDFromRequest(w, r, l)
	if !ok {
		return
	}
	itineraryID, ok := h.itineraryID(w, r)
	if !ok {
		return
	}
	history, err := h.service.GetPlanHistory(ctx, userID, itineraryID)
	if err != nil {
		api.ServiceErrorResponse(w, r, err)
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, history)
}
