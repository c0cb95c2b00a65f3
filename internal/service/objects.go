package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// callWithTimeout races call against d. A call that has not settled when the
// bound expires is reported as domain.ErrCallTimeout; cancellation of the
// parent context is reported as the context error.
func callWithTimeout[T any](ctx context.Context, d time.Duration, call func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return call(ctx)
	}

	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := call(cctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && ctx.Err() == nil && cctx.Err() != nil {
			return r.v, fmt.Errorf("%w after %s", domain.ErrCallTimeout, d)
		}
		return r.v, r.err
	case <-cctx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", domain.ErrCallTimeout, d)
	}
}

// generateObject requests shape from client, then decodes and validates it.
// Decoding and validation failures wrap domain.ErrMalformedObject.
func generateObject[T domain.Validator](ctx context.Context, client domain.LLMClient, req domain.GenerateRequest, shape domain.ObjectShape, timeout time.Duration) (T, error) {
	var out T

	raw, err := callWithTimeout(ctx, timeout, func(ctx context.Context) (string, error) {
		return client.GenerateObject(ctx, req, shape)
	})
	if err != nil {
		return out, fmt.Errorf("generate %s: %w", shape, err)
	}

	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, fmt.Errorf("%w: decode %s: %v", domain.ErrMalformedObject, shape, err)
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}
