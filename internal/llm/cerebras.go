package llm

const (
	cerebrasBaseURL = "https://api.cerebras.ai/v1"
	cerebrasModel   = "llama-3.3-70b"
)

// NewCerebrasClient returns a chat-completions client pointed at Cerebras,
// which uses the OpenAI-compatible request/response format.
func NewCerebrasClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = cerebrasModel
	}
	return NewOpenAICompatibleClient(ProviderCerebras, cerebrasBaseURL, apiKey, model)
}
