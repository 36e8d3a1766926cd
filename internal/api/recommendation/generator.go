package recommendation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-trip-planner/app/observability/metrics"
	generativeAI "github.com/FACorreiaa/go-trip-planner/internal/api/generative_ai"
	"github.com/FACorreiaa/go-trip-planner/internal/retry"
	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

const MaxAttempts = 3

var _ Generator = (*GeneratorImpl)(nil)

// Generator turns trip parameters into validated candidate places.
type Generator interface {
	Generate(ctx context.Context, tc types.TripContext, maxCount int) ([]types.CandidatePOI, types.GenerationOutcome, error)
}

type GeneratorImpl struct {
	gateway generativeAI.Gateway
	policy  retry.Policy
	logger  *slog.Logger
}

// DefaultPolicy retries immediately; the error-feedback prompt is what changes between attempts.
func DefaultPolicy(attempts int, attemptTimeout time.Duration) retry.Policy {
	if attempts <= 0 {
		attempts = MaxAttempts
	}
	return retry.Policy{MaxAttempts: attempts, Backoff: retry.NoBackoff, AttemptTimeout: attemptTimeout}
}

func NewGenerator(gateway generativeAI.Gateway, policy retry.Policy, logger *slog.Logger) *GeneratorImpl {
	return &GeneratorImpl{
		gateway: gateway,
		policy:  policy,
		logger:  logger.With(slog.String("component", "RecommendationGenerator")),
	}
}

// Generate runs the bounded attempt loop. The first attempt that yields at least
// one valid place wins, even if some of its items were dropped.
func (g *GeneratorImpl) Generate(ctx context.Context, tc types.TripContext, maxCount int) ([]types.CandidatePOI, types.GenerationOutcome, error) {
	ctx, span := otel.Tracer("RecommendationGenerator").Start(ctx, "Generate", trace.WithAttributes(
		attribute.String("trip.destination", tc.Destination),
		attribute.Int("max_count", maxCount),
	))
	defer span.End()

	var outcome types.GenerationOutcome
	if strings.TrimSpace(tc.Destination) == "" {
		return nil, outcome, types.NewValidationError("destination", "must not be blank")
	}
	if maxCount < 1 {
		return nil, outcome, types.NewValidationError("max_count", "must be at least 1")
	}
	tc = tc.WithDefaults()

	start := time.Now()
	m := metrics.Get()
	var result []types.CandidatePOI

	err := g.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		outcome.Attempts = attempt
		prompt := initialPrompt(tc, maxCount)
		if attempt > 1 {
			prompt = errorFeedbackPrompt(tc, maxCount, outcome.Errors)
		}

		valid, rejections, err := g.attempt(ctx, prompt)
		outcome.Rejected += len(rejections)
		if err != nil {
			entry := fmt.Sprintf("attempt %d failed: %v", attempt, err)
			if len(rejections) > 0 {
				entry += " (" + strings.Join(rejections, "; ") + ")"
			}
			outcome.Errors = append(outcome.Errors, entry)
			m.GenerationAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "failed")))
			g.logger.WarnContext(ctx, "Recommendation attempt failed",
				slog.Int("attempt", attempt),
				slog.String("destination", tc.Destination),
				slog.Any("error", err))
			return err
		}
		if len(rejections) > 0 {
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("attempt %d dropped %d items: %s", attempt, len(rejections), strings.Join(rejections, "; ")))
			g.logger.InfoContext(ctx, "Dropped invalid recommendations", slog.Int("attempt", attempt), slog.Int("dropped", len(rejections)))
		}
		if len(valid) > maxCount {
			valid = valid[:maxCount]
		}
		result = valid
		m.GenerationAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", "succeeded")))
		return nil
	})
	m.GenerationDurationSeconds.Record(ctx, time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generation exhausted")
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, retry.ErrExhausted) {
			return nil, outcome, fmt.Errorf("recommendation generation interrupted: %w", ctxErr)
		}
		g.logger.ErrorContext(ctx, "Recommendation generation failed permanently",
			slog.Int("attempts", outcome.Attempts),
			slog.String("errors", strings.Join(outcome.Errors, "; ")))
		return nil, outcome, fmt.Errorf("%w after %d attempts: %s", types.ErrGenerationExhausted, outcome.Attempts, strings.Join(outcome.Errors, "; "))
	}

	span.SetAttributes(attribute.Int("places.count", len(result)), attribute.Int("attempts", outcome.Attempts))
	span.SetStatus(codes.Ok, "")
	g.logger.InfoContext(ctx, "Generated recommendations",
		slog.Int("count", len(result)),
		slog.Int("attempts", outcome.Attempts))
	return result, outcome, nil
}

func (g *GeneratorImpl) attempt(ctx context.Context, prompt generativeAI.Prompt) ([]types.CandidatePOI, []string, error) {
	raw, err := g.gateway.Generate(ctx, prompt)
	if err != nil {
		return nil, nil, err
	}
	var resp rawPOIResponse
	if err := generativeAI.DecodeJSON(raw, &resp); err != nil {
		return nil, nil, err
	}
	valid, rejections := validateCandidates(resp.Places)
	if len(valid) == 0 {
		return nil, rejections, errors.New("no valid places were returned")
	}
	return valid, rejections, nil
}
