package llm

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// RateLimitedClient throttles every call of the wrapped client through a
// token bucket. Waiting honours ctx, so a cancelled run never blocks here.
type RateLimitedClient struct {
	next    domain.LLMClient
	limiter *rate.Limiter
}

func NewRateLimitedClient(next domain.LLMClient, rps float64, burst int) *RateLimitedClient {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (c *RateLimitedClient) Name() string {
	return c.next.Name()
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}
	return nil
}

func (c *RateLimitedClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.next.Generate(ctx, req)
}

func (c *RateLimitedClient) GenerateObject(ctx context.Context, req domain.GenerateRequest, shape domain.ObjectShape) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.next.GenerateObject(ctx, req, shape)
}

func (c *RateLimitedClient) Stream(ctx context.Context, req domain.GenerateRequest) (<-chan string, <-chan error) {
	if err := c.wait(ctx); err != nil {
		return failedStream(err)
	}
	return c.next.Stream(ctx, req)
}
