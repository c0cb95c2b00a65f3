package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Harshitk-cp/pfc/internal/domain"
)

const (
	openAIBaseURL   = "https://api.openai.com/v1"
	openAIChatModel = "gpt-4o-mini"
)

// OpenAIClient speaks the OpenAI chat-completions protocol. It also serves
// Cerebras and local OpenAI-compatible servers such as Ollama.
type OpenAIClient struct {
	provider   string
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIClient(apiKey, model, baseURL string) *OpenAIClient {
	if model == "" {
		model = openAIChatModel
	}
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return NewOpenAICompatibleClient(ProviderOpenAI, baseURL, apiKey, model)
}

// NewOpenAICompatibleClient creates a client for any chat-completions endpoint.
func NewOpenAICompatibleClient(provider, baseURL, apiKey, model string) *OpenAIClient {
	return &OpenAIClient{
		provider:   provider,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type chatContentPart struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *chatImageURL `json:"image_url,omitempty"`
}

type chatImageURL struct {
	URL string `json:"url"`
}

// chatMessage content is either a string or a []chatContentPart.
type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string              `json:"model"`
	Messages       []chatMessage       `json:"messages"`
	Temperature    float64             `json:"temperature"`
	MaxTokens      int                 `json:"max_tokens,omitempty"`
	Stream         bool                `json:"stream,omitempty"`
	ResponseFormat *chatResponseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta *struct {
			Content string `json:"content"`
		} `json:"delta,omitempty"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *OpenAIClient) Name() string {
	return c.provider + "/" + c.model
}

func (c *OpenAIClient) buildRequest(req domain.GenerateRequest, stream, jsonMode bool) chatRequest {
	var messages []chatMessage
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}

	var user any = req.Prompt
	if len(req.Images) > 0 {
		parts := []chatContentPart{{Type: "text", Text: req.Prompt}}
		for _, img := range req.Images {
			parts = append(parts, chatContentPart{
				Type:     "image_url",
				ImageURL: &chatImageURL{URL: fmt.Sprintf("data:%s;base64,%s", img.MediaType, img.Data)},
			})
		}
		user = parts
	}
	messages = append(messages, chatMessage{Role: "user", Content: user})

	cr := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
	}
	if jsonMode {
		cr.ResponseFormat = &chatResponseFormat{Type: "json_object"}
	}
	return cr
}

func (c *OpenAIClient) newHTTPRequest(ctx context.Context, body chatRequest) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *OpenAIClient) complete(ctx context.Context, body chatRequest) (string, error) {
	req, err := c.newHTTPRequest(ctx, body)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s API returned status %d: %s", c.provider, resp.StatusCode, string(respBody))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal chat response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.provider, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("%s API returned no choices", c.provider)
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func (c *OpenAIClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	out, err := c.complete(ctx, c.buildRequest(req, false, false))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

func (c *OpenAIClient) GenerateObject(ctx context.Context, req domain.GenerateRequest, shape domain.ObjectShape) (string, error) {
	req.System = objectSystemPrompt(req.System, shape)
	// Local servers often reject response_format, so only hosted providers get JSON mode.
	jsonMode := c.provider == ProviderOpenAI
	out, err := c.complete(ctx, c.buildRequest(req, false, jsonMode))
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", shape, err)
	}
	return stripFences(out), nil
}

func (c *OpenAIClient) Stream(ctx context.Context, req domain.GenerateRequest) (<-chan string, <-chan error) {
	httpReq, err := c.newHTTPRequest(ctx, c.buildRequest(req, true, false))
	if err != nil {
		return failedStream(err)
	}
	return streamSSE(ctx, c.httpClient, httpReq, c.provider, func(data string) (string, bool, error) {
		var chunk chatResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", false, nil
		}
		if chunk.Error != nil {
			return "", false, fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta == nil {
			return "", false, nil
		}
		return chunk.Choices[0].Delta.Content, false, nil
	})
}

// failedStream returns a closed content channel and a single error.
func failedStream(err error) (<-chan string, <-chan error) {
	contentCh := make(chan string)
	errCh := make(chan error, 1)
	errCh <- err
	close(contentCh)
	close(errCh)
	return contentCh, errCh
}
