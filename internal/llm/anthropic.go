package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion = "2023-06-01"
)

// AnthropicClient calls the Anthropic Messages API.
type AnthropicClient struct {
	apiKey  string
	baseURL string
	models  map[string]string
	client  *http.Client
}

// NewAnthropicClient creates a client. models maps catalog ids to upstream
// model names; unmapped ids are sent as-is.
func NewAnthropicClient(apiKey, baseURL string, models map[string]string) *AnthropicClient {
	if baseURL == "" {
		baseURL = anthropicBaseURL
	}
	return &AnthropicClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		models:  models,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// Name returns the provider name.
func (c *AnthropicClient) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature *float64           `json:"temperature,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends a non-streaming request to the Messages API.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	body := anthropicRequest{
		Model:       upstreamModel(c.models, req.Model),
		System:      req.System,
		MaxTokens:   maxTokens(req),
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	respBody, status, err := doHTTP(c.client, httpReq)
	if err != nil {
		return nil, AsProviderError(c.Name(), req.Model, err)
	}
	if status != http.StatusOK {
		var apiErr anthropicError
		msg := strings.TrimSpace(string(respBody))
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, &ProviderError{Provider: c.Name(), Model: req.Model, Code: status, Message: msg}
	}

	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: req.Model, Message: "malformed response", Err: err}
	}
	var text strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return &CompletionResponse{
		Content:    text.String(),
		StopReason: result.StopReason,
		Model:      result.Model,
		Usage:      Usage{InputTokens: result.Usage.InputTokens, OutputTokens: result.Usage.OutputTokens},
		Duration:   time.Since(start),
	}, nil
}

// doHTTP performs the request and reads the whole body.
func doHTTP(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func upstreamModel(models map[string]string, id string) string {
	if m, ok := models[id]; ok && m != "" {
		return m
	}
	return id
}
