package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

func TestNewClient_Providers(t *testing.T) {
	tests := []struct {
		name     string
		cfg      domain.InferenceConfig
		wantName string
		wantErr  bool
	}{
		{"openai", domain.InferenceConfig{Provider: "openai", APIKey: "k"}, "openai/gpt-4o-mini", false},
		{"anthropic custom model", domain.InferenceConfig{Provider: "Anthropic", APIKey: "k", Model: "claude-x"}, "anthropic/claude-x", false},
		{"gemini", domain.InferenceConfig{Provider: "gemini", APIKey: "k"}, "gemini/gemini-2.0-flash", false},
		{"cerebras", domain.InferenceConfig{Provider: "cerebras", APIKey: "k"}, "cerebras/llama-3.3-70b", false},
		{"mock needs no key", domain.InferenceConfig{Provider: "mock"}, "mock/mock", false},
		{"local defaults", domain.InferenceConfig{Mode: domain.InferenceLocal}, "ollama/llama3.1", false},
		{"missing key", domain.InferenceConfig{Provider: "openai"}, "", true},
		{"unknown provider", domain.InferenceConfig{Provider: "acme", APIKey: "k"}, "", true},
		{"no provider", domain.InferenceConfig{Mode: domain.InferenceAPI, APIKey: "k"}, "", true},
		{"bad mode", domain.InferenceConfig{Mode: "quantum", Provider: "openai", APIKey: "k"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				var resErr *ResolutionError
				assert.True(t, errors.As(err, &resErr), "expected *ResolutionError, got %T", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, client.Name())
		})
	}
}

func TestNewClient_MissingKeyWrapsSentinel(t *testing.T) {
	_, err := NewClient(domain.InferenceConfig{Provider: "anthropic"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestResolver_EmptyConfig(t *testing.T) {
	r := NewResolver(domain.InferenceConfig{}, 0, 0, zap.NewNop())
	_, err := r.Resolve(context.Background(), domain.InferenceConfig{})
	assert.ErrorIs(t, err, domain.ErrNoInferenceConfig)
}

func TestResolver_FallsBackToDefaults(t *testing.T) {
	r := NewResolver(domain.InferenceConfig{Provider: "mock"}, 0, 0, zap.NewNop())
	client, err := r.Resolve(context.Background(), domain.InferenceConfig{})
	require.NoError(t, err)
	assert.Equal(t, "mock/mock", client.Name())
}

func TestResolver_MergesDefaultKeyForSameProvider(t *testing.T) {
	r := NewResolver(domain.InferenceConfig{Provider: "openai", APIKey: "server-key"}, 0, 0, zap.NewNop())

	client, err := r.Resolve(context.Background(), domain.InferenceConfig{Model: "gpt-4o"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", client.Name())

	// A different provider must bring its own key.
	_, err = r.Resolve(context.Background(), domain.InferenceConfig{Provider: "gemini"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestResolver_WrapsWithRateLimit(t *testing.T) {
	r := NewResolver(domain.InferenceConfig{Provider: "mock"}, 5, 2, zap.NewNop())
	client, err := r.Resolve(context.Background(), domain.InferenceConfig{})
	require.NoError(t, err)
	_, ok := client.(*RateLimitedClient)
	assert.True(t, ok)
}

func sseServer(t *testing.T, lines []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"stream":true`) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = fmt.Fprint(w, `{"choices":[{"message":{"content":"  full answer  "}}]}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			_, _ = fmt.Fprintf(w, "data: %s\n\n", l)
		}
	}))
}

func TestOpenAIClient_Stream(t *testing.T) {
	srv := sseServer(t, []string{
		`{"choices":[{"delta":{"content":"Hel"}}]}`,
		`{"choices":[{"delta":{"content":"lo"}}]}`,
		`not json`,
		`[DONE]`,
		`{"choices":[{"delta":{"content":"ignored"}}]}`,
	})
	defer srv.Close()

	c := NewOpenAICompatibleClient(ProviderOllama, srv.URL, "", "test")
	content, errs := c.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"})

	var sb strings.Builder
	for chunk := range content {
		sb.WriteString(chunk)
	}
	for err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, "Hello", sb.String())
}

func TestOpenAIClient_StreamProviderError(t *testing.T) {
	srv := sseServer(t, []string{`{"error":{"message":"overloaded"}}`})
	defer srv.Close()

	c := NewOpenAICompatibleClient(ProviderOllama, srv.URL, "", "test")
	content, errs := c.Stream(context.Background(), domain.GenerateRequest{Prompt: "hi"})
	for range content {
	}
	err := <-errs
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
}

func TestOpenAIClient_Generate(t *testing.T) {
	srv := sseServer(t, nil)
	defer srv.Close()

	c := NewOpenAIClient("key", "", srv.URL)
	out, err := c.Generate(context.Background(), domain.GenerateRequest{System: "s", Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "full answer", out)
}

func TestOpenAIClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer srv.Close()

	c := NewOpenAIClient("key", "", srv.URL)
	_, err := c.GenerateObject(context.Background(), domain.GenerateRequest{Prompt: "p"}, domain.ShapeReflection)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("  {\"a\":1} "))
}

func TestObjectSystemPrompt(t *testing.T) {
	p := objectSystemPrompt("Be careful.", domain.ShapeTruthAssessment)
	assert.True(t, strings.HasPrefix(p, "Be careful."))
	assert.Contains(t, p, "overall_truth_likelihood")
}

func TestRateLimitedClient_HonoursContext(t *testing.T) {
	mock := NewMockClient()
	c := NewRateLimitedClient(mock, 0.001, 1)

	_, err := c.Generate(context.Background(), domain.GenerateRequest{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = c.Generate(ctx, domain.GenerateRequest{})
	require.Error(t, err)
	assert.Len(t, mock.GenerateCalls, 1)
}

func TestMockClient_StreamHangStopsOnCancel(t *testing.T) {
	mock := NewMockClient()
	mock.StreamChunks = []string{"a"}
	mock.StreamHang = true

	ctx, cancel := context.WithCancel(context.Background())
	content, errs := mock.Stream(ctx, domain.GenerateRequest{})
	assert.Equal(t, "a", <-content)
	cancel()
	for range content {
	}
	assert.ErrorIs(t, <-errs, context.Canceled)
}
