package domain

import "context"

// GenerateRequest is a system/user prompt pair with sampling parameters.
type GenerateRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Images      []ImageAttachment
}

// LLMClient is the model handle the core calls into. Implementations live in
// internal/llm; the core only depends on this contract.
type LLMClient interface {
	// Generate returns the full completion text.
	Generate(ctx context.Context, req GenerateRequest) (string, error)
	// Stream yields incremental text chunks. The content channel is closed when
	// the stream ends; at most one error is sent on the error channel, which
	// is closed afterwards.
	Stream(ctx context.Context, req GenerateRequest) (<-chan string, <-chan error)
	// GenerateObject returns raw JSON for the requested shape.
	GenerateObject(ctx context.Context, req GenerateRequest, shape ObjectShape) (string, error)
	// Name identifies the provider and model, e.g. "openai/gpt-4o-mini".
	Name() string
}

// ModelResolver turns an inference configuration into a model handle.
type ModelResolver interface {
	Resolve(ctx context.Context, cfg InferenceConfig) (LLMClient, error)
}

// SignalGenerator seeds the Signals of a run.
type SignalGenerator interface {
	Generate(analysis QueryAnalysis, controls *PipelineControls, bias *SteeringBias) Signals
}

// EmbeddingClient embeds text for similarity lookup.
type EmbeddingClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
