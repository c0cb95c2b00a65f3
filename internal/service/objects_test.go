package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/Harshitk-cp/pfc/internal/domain"
	"github.com/Harshitk-cp/pfc/internal/llm"
)

type scoredObject struct {
	Score float64 `json:"score"`
}

func (o scoredObject) Validate() error {
	if o.Score < 0 || o.Score > 1 {
		return fmt.Errorf("%w: score %v", domain.ErrMalformedObject, o.Score)
	}
	return nil
}

func TestCallWithTimeout(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	t.Run("settles in time", func(t *testing.T) {
		v, err := callWithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("call error passes through", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := callWithTimeout(context.Background(), time.Second, func(context.Context) (int, error) {
			return 0, boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, domain.ErrCallTimeout)
	})

	t.Run("slow call times out", func(t *testing.T) {
		_, err := callWithTimeout(context.Background(), 20*time.Millisecond, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, domain.ErrCallTimeout)
	})

	t.Run("parent cancellation is not a timeout", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := callWithTimeout(ctx, time.Second, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotErrorIs(t, err, domain.ErrCallTimeout)
	})

	t.Run("zero bound calls directly", func(t *testing.T) {
		v, err := callWithTimeout(context.Background(), 0, func(context.Context) (string, error) {
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", v)
	})
}

func TestGenerateObject(t *testing.T) {
	tests := []struct {
		name      string
		response  string
		callErr   error
		wantScore float64
		wantErr   error
	}{
		{name: "valid", response: `{"score":0.7}`, wantScore: 0.7},
		{name: "undecodable", response: `{"score":`, wantErr: domain.ErrMalformedObject},
		{name: "out of range", response: `{"score":3}`, wantErr: domain.ErrMalformedObject},
		{name: "provider error", callErr: errors.New("rate limited")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := llm.NewMockClient()
			client.ObjectResponses[domain.ShapeReflection] = tt.response
			if tt.callErr != nil {
				client.ObjectErrors[domain.ShapeReflection] = tt.callErr
			}

			got, err := generateObject[scoredObject](context.Background(), client, domain.GenerateRequest{Prompt: "p"}, domain.ShapeReflection, time.Second)

			switch {
			case tt.callErr != nil:
				assert.ErrorIs(t, err, tt.callErr)
				assert.NotErrorIs(t, err, domain.ErrMalformedObject)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantScore, got.Score)
			}
			require.Len(t, client.ObjectCalls, 1)
			assert.Equal(t, "p", client.ObjectCalls[0].Request.Prompt)
		})
	}
}

func TestGenerateObject_Timeout(t *testing.T) {
	client := llm.NewMockClient()
	client.ObjectDelays[domain.ShapeReflection] = time.Second

	_, err := generateObject[scoredObject](context.Background(), client, domain.GenerateRequest{}, domain.ShapeReflection, 20*time.Millisecond)
	assert.ErrorIs(t, err, domain.ErrCallTimeout)
}
