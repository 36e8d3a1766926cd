package planning

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/config"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// PlanGateway produces a raw day-by-day schedule. Its output is untrusted.
type PlanGateway interface {
	Plan(ctx context.Context, req types.PlanRequest) (*types.RawPlan, error)
}

var (
	_ PlanGateway = (*LLMPlanGateway)(nil)
	_ PlanGateway = (*HTTPPlanGateway)(nil)
)

// NewPlanGateway picks the configured backend. The llm backend reuses the model gateway.
func NewPlanGateway(cfg config.PlanningConfig, model generativeAI.Gateway, logger *slog.Logger) (PlanGateway, error) {
	switch strings.ToLower(cfg.Gateway) {
	case "", "llm":
		if model == nil {
			return nil, errors.New("llm plan gateway requires a model gateway")
		}
		return NewLLMPlanGateway(model, logger), nil
	case "http":
		if cfg.HTTPURL == "" {
			return nil, errors.New("http plan gateway requires planning.httpURL")
		}
		return NewHTTPPlanGateway(cfg.HTTPURL, &http.Client{Timeout: cfg.AttemptTimeout}, logger), nil
	default:
		return nil, fmt.Errorf("unsupported plan gateway: %s", cfg.Gateway)
	}
}

type LLMPlanGateway struct {
	model  generativeAI.Gateway
	logger *slog.Logger
}

func NewLLMPlanGateway(model generativeAI.Gateway, logger *slog.Logger) *LLMPlanGateway {
	return &LLMPlanGateway{model: model, logger: logger}
}

const planSystemPrompt = `You are an itinerary planner. Build a realistic day-by-day schedule.
Respond with ONE JSON object and nothing else, using exactly this shape:
{
  "summary": "string",
  "days": [
    {
      "date": "YYYY-MM-DD",
      "summary": "string",
      "stops": [
        {
          "place_id": "id from the list, or null for breaks and free time",
          "place_name": "string",
          "arrival_time": "HH:MM",
          "departure_time": "HH:MM",
          "duration_minutes": number,
          "activity": "string",
          "transport_mode": "string",
          "transport_duration_minutes": number
        }
      ]
    }
  ]
}
Never schedule the same place_id twice in the whole plan. Stay inside the daily time window.`

func planUserPrompt(req types.PlanRequest) (string, error) {
	places, err := json.MarshalIndent(req.Places, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode places: %w", err)
	}
	budget := "not specified"
	if req.Budget != nil {
		budget = fmt.Sprintf("%d (minor units)", *req.Budget)
	}
	return fmt.Sprintf(`Destination: %s
Dates: %s to %s
Travel mode: %s
Budget: %s
Daily window: %s to %s
Pace: %s
Travelers: %d
Additional preferences: %s

Pinned places must be scheduled before any others. Honour each place's note.
Places to schedule (use their place_id verbatim):
%s`,
		req.Destination, req.StartDate, req.EndDate, req.TravelMode, budget,
		req.DailyStart, req.DailyEnd, req.Pace, req.NumberOfTravelers,
		req.AdditionalPreferences, places), nil
}

func (g *LLMPlanGateway) Plan(ctx context.Context, req types.PlanRequest) (*types.RawPlan, error) {
	user, err := planUserPrompt(req)
	if err != nil {
		return nil, err
	}
	raw, err := g.model.Generate(ctx, generativeAI.Prompt{Name: "day_plan", System: planSystemPrompt, User: user})
	if err != nil {
		return nil, err
	}
	var plan types.RawPlan
	if err := generativeAI.DecodeJSON(raw, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}

// HTTPPlanGateway posts the request to an external planning service.
type HTTPPlanGateway struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

func NewHTTPPlanGateway(url string, client *http.Client, logger *slog.Logger) *HTTPPlanGateway {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPPlanGateway{url: url, client: client, logger: logger}
}

func (g *HTTPPlanGateway) Plan(ctx context.Context, req types.PlanRequest) (*types.RawPlan, error) {
	ctx, span := otel.Tracer("HTTPPlanGateway").Start(ctx, "Plan", trace.WithAttributes(
		attribute.String("plan.gateway.url", g.url),
		attribute.Int("plan.places", len(req.Places)),
	))
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode plan request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("plan gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read plan gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("plan gateway returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var plan types.RawPlan
	if err := generativeAI.DecodeJSON(string(payload), &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
