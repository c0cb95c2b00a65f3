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
	anthropicMessagesURL = "https://api.anthropic.com/v1/messages"
	anthropicModel       = "claude-3-5-haiku-20241022"
	anthropicVersion     = "2023-06-01"
	anthropicMaxTokens   = 4096
)

type AnthropicClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = anthropicModel
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type anthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicBlock struct {
	Type   string                `json:"type"`
	Text   string                `json:"text,omitempty"`
	Source *anthropicImageSource `json:"source,omitempty"`
}

type anthropicMessage struct {
	Role    string           `json:"role"`
	Content []anthropicBlock `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type anthropicStreamEvent struct {
	Type  string `json:"type"`
	Delta *struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *AnthropicClient) Name() string {
	return ProviderAnthropic + "/" + c.model
}

func (c *AnthropicClient) newHTTPRequest(ctx context.Context, in domain.GenerateRequest, stream bool) (*http.Request, error) {
	blocks := []anthropicBlock{}
	for _, img := range in.Images {
		blocks = append(blocks, anthropicBlock{
			Type:   "image",
			Source: &anthropicImageSource{Type: "base64", MediaType: img.MediaType, Data: img.Data},
		})
	}
	blocks = append(blocks, anthropicBlock{Type: "text", Text: in.Prompt})

	maxTokens := in.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicMaxTokens
	}

	body, err := json.Marshal(anthropicRequest{
		Model:       c.model,
		MaxTokens:   maxTokens,
		System:      in.System,
		Messages:    []anthropicMessage{{Role: "user", Content: blocks}},
		Temperature: in.Temperature,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicMessagesURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create anthropic request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

func (c *AnthropicClient) complete(ctx context.Context, in domain.GenerateRequest) (string, error) {
	req, err := c.newHTTPRequest(ctx, in, false)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read anthropic response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal anthropic response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("anthropic API error: %s", result.Error.Message)
	}

	var sb strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic API returned no content")
	}

	return strings.TrimSpace(sb.String()), nil
}

func (c *AnthropicClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	out, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

func (c *AnthropicClient) GenerateObject(ctx context.Context, req domain.GenerateRequest, shape domain.ObjectShape) (string, error) {
	req.System = objectSystemPrompt(req.System, shape)
	out, err := c.complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", shape, err)
	}
	return stripFences(out), nil
}

func (c *AnthropicClient) Stream(ctx context.Context, req domain.GenerateRequest) (<-chan string, <-chan error) {
	httpReq, err := c.newHTTPRequest(ctx, req, true)
	if err != nil {
		return failedStream(err)
	}
	return streamSSE(ctx, c.httpClient, httpReq, ProviderAnthropic, func(data string) (string, bool, error) {
		var evt anthropicStreamEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			return "", false, nil
		}
		switch evt.Type {
		case "content_block_delta":
			if evt.Delta != nil {
				return evt.Delta.Text, false, nil
			}
		case "message_stop":
			return "", true, nil
		case "error":
			msg := "unknown error"
			if evt.Error != nil {
				msg = evt.Error.Message
			}
			return "", false, fmt.Errorf("API error: %s", msg)
		}
		return "", false, nil
	})
}
