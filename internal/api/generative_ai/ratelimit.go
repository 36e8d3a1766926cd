package generativeAI

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

var _ Gateway = (*RateLimited)(nil)

// RateLimited throttles calls to the wrapped gateway. Waiting honours ctx, so a
// per-attempt timeout also covers time spent queued here.
type RateLimited struct {
	next    Gateway
	limiter *rate.Limiter
}

func NewRateLimited(next Gateway, perSecond float64, burst int) *RateLimited {
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Generate(ctx context.Context, prompt Prompt) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	return r.next.Generate(ctx, prompt)
}
