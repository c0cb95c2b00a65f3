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
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"
	geminiModel   = "gemini-2.0-flash"
)

type GeminiClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewGeminiClient(apiKey, model string) *GeminiClient {
	if model == "" {
		model = geminiModel
	}
	return &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature      float64 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func (r geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

func (c *GeminiClient) Name() string {
	return ProviderGemini + "/" + c.model
}

func (c *GeminiClient) newHTTPRequest(ctx context.Context, in domain.GenerateRequest, method string, jsonMode bool) (*http.Request, error) {
	parts := []geminiPart{{Text: in.Prompt}}
	for _, img := range in.Images {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: img.MediaType, Data: img.Data}})
	}

	gr := geminiRequest{
		Contents: []geminiContent{{Parts: parts, Role: "user"}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     in.Temperature,
			MaxOutputTokens: in.MaxTokens,
		},
	}
	if in.System != "" {
		gr.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: in.System}}}
	}
	if jsonMode {
		gr.GenerationConfig.ResponseMimeType = "application/json"
	}

	body, err := json.Marshal(gr)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/%s:%s", geminiBaseURL, c.model, method)
	if strings.Contains(method, "?") {
		url += "&key=" + c.apiKey
	} else {
		url += "?key=" + c.apiKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func (c *GeminiClient) complete(ctx context.Context, in domain.GenerateRequest, jsonMode bool) (string, error) {
	req, err := c.newHTTPRequest(ctx, in, "generateContent", jsonMode)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read gemini response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("gemini API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var result geminiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal gemini response: %w", err)
	}

	if result.Error != nil {
		return "", fmt.Errorf("gemini API error: %s", result.Error.Message)
	}

	text := result.text()
	if text == "" {
		return "", fmt.Errorf("gemini API returned no content")
	}

	return strings.TrimSpace(text), nil
}

func (c *GeminiClient) Generate(ctx context.Context, req domain.GenerateRequest) (string, error) {
	out, err := c.complete(ctx, req, false)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return out, nil
}

func (c *GeminiClient) GenerateObject(ctx context.Context, req domain.GenerateRequest, shape domain.ObjectShape) (string, error) {
	req.System = objectSystemPrompt(req.System, shape)
	out, err := c.complete(ctx, req, true)
	if err != nil {
		return "", fmt.Errorf("generate %s: %w", shape, err)
	}
	return stripFences(out), nil
}

func (c *GeminiClient) Stream(ctx context.Context, req domain.GenerateRequest) (<-chan string, <-chan error) {
	httpReq, err := c.newHTTPRequest(ctx, req, "streamGenerateContent?alt=sse", false)
	if err != nil {
		return failedStream(err)
	}
	return streamSSE(ctx, c.httpClient, httpReq, ProviderGemini, func(data string) (string, bool, error) {
		var chunk geminiResponse
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			return "", false, nil
		}
		if chunk.Error != nil {
			return "", false, fmt.Errorf("API error: %s", chunk.Error.Message)
		}
		return chunk.text(), false, nil
	})
}
