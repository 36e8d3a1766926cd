package generativeAI

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/FACorreiaa/go-trip-planner/config"
)

var ErrEmptyResponse = errors.New("model returned an empty response")

// Prompt is one request to a text model. The model is asked for a single JSON object.
type Prompt struct {
	Name   string // used for tracing and logs
	System string
	User   string
}

// Gateway sends a prompt to a generative backend and returns its raw text.
// Implementations make no promise about the shape of what comes back.
type Gateway interface {
	Generate(ctx context.Context, prompt Prompt) (string, error)
}

// NewGateway builds the configured provider, throttled by the configured rate.
func NewGateway(ctx context.Context, cfg config.LLMConfig, logger *slog.Logger) (Gateway, error) {
	var (
		gw  Gateway
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "gemini":
		gw, err = NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Temperature, logger)
	case "openai":
		gw, err = NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, cfg.Temperature, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerSec > 0 {
		gw = NewRateLimited(gw, cfg.RequestsPerSec, cfg.Burst)
	}
	logger.Info("Model gateway ready", slog.String("provider", cfg.Provider), slog.String("model", cfg.Model))
	return gw, nil
}
