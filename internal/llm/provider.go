package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

// Provider constants
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderCerebras  = "cerebras"
	ProviderOllama    = "ollama"
	ProviderMock      = "mock"
)

const (
	defaultLocalBaseURL = "http://localhost:11434/v1"
	defaultLocalModel   = "llama3.1"
)

var ErrMissingCredentials = errors.New("missing credentials")

// ResolutionError reports an inference configuration the provider layer
// cannot turn into a client.
type ResolutionError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Provider, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// NewClient creates an LLM client for cfg.
// Returns a *ResolutionError if the provider is unknown or a hosted provider has no API key.
func NewClient(cfg domain.InferenceConfig) (domain.LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))

	switch cfg.Mode {
	case domain.InferenceLocal:
		if provider == "" {
			provider = ProviderOllama
		}
		if provider == ProviderMock {
			return NewMockClient(), nil
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = defaultLocalBaseURL
		}
		model := cfg.Model
		if model == "" {
			model = defaultLocalModel
		}
		return NewOpenAICompatibleClient(provider, baseURL, cfg.APIKey, model), nil
	case domain.InferenceAPI, "":
	default:
		return nil, &ResolutionError{Provider: provider, Reason: fmt.Sprintf("unknown inference mode %q", cfg.Mode)}
	}

	needKey := func() error {
		if cfg.APIKey == "" {
			return &ResolutionError{Provider: provider, Reason: "API key is required", Err: ErrMissingCredentials}
		}
		return nil
	}

	switch provider {
	case ProviderOpenAI:
		if err := needKey(); err != nil {
			return nil, err
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL), nil

	case ProviderAnthropic:
		if err := needKey(); err != nil {
			return nil, err
		}
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil

	case ProviderGemini:
		if err := needKey(); err != nil {
			return nil, err
		}
		return NewGeminiClient(cfg.APIKey, cfg.Model), nil

	case ProviderCerebras:
		if err := needKey(); err != nil {
			return nil, err
		}
		return NewCerebrasClient(cfg.APIKey, cfg.Model), nil

	case ProviderMock:
		return NewMockClient(), nil

	case "":
		return nil, &ResolutionError{Provider: provider, Reason: "provider is required in api mode"}

	default:
		return nil, &ResolutionError{
			Provider: provider,
			Reason:   "unknown LLM provider (valid options: openai, anthropic, gemini, cerebras, ollama, mock)",
		}
	}
}

// Resolver implements domain.ModelResolver. Per-request configuration wins;
// the server defaults fill in whatever the request leaves out.
type Resolver struct {
	defaults domain.InferenceConfig
	rps      float64
	burst    int
	logger   *zap.Logger
}

// NewResolver creates a resolver. A positive rps wraps every client in a
// RateLimitedClient.
func NewResolver(defaults domain.InferenceConfig, rps float64, burst int, logger *zap.Logger) *Resolver {
	return &Resolver{
		defaults: defaults,
		rps:      rps,
		burst:    burst,
		logger:   logger,
	}
}

var _ domain.ModelResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, cfg domain.InferenceConfig) (domain.LLMClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg = r.merge(cfg)
	if cfg.IsZero() {
		return nil, domain.ErrNoInferenceConfig
	}

	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("resolved model", zap.String("client", client.Name()), zap.String("mode", string(cfg.Mode)))

	if r.rps > 0 {
		return NewRateLimitedClient(client, r.rps, r.burst), nil
	}
	return client, nil
}

func (r *Resolver) merge(cfg domain.InferenceConfig) domain.InferenceConfig {
	if cfg.IsZero() {
		return r.defaults
	}
	sameProvider := cfg.Provider == "" || strings.EqualFold(cfg.Provider, r.defaults.Provider)
	if cfg.Provider == "" {
		cfg.Provider = r.defaults.Provider
	}
	if cfg.Mode == "" {
		cfg.Mode = r.defaults.Mode
	}
	if sameProvider {
		if cfg.APIKey == "" {
			cfg.APIKey = r.defaults.APIKey
		}
		if cfg.Model == "" {
			cfg.Model = r.defaults.Model
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = r.defaults.BaseURL
		}
	}
	return cfg
}
