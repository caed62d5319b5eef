package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const openAIBaseURL = "https://api.openai.com/v1"

// OpenAIClient calls the OpenAI chat completions API.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	models  map[string]string
	client  *http.Client
}

// NewOpenAIClient creates a client. baseURL includes the API version path.
func NewOpenAIClient(apiKey, baseURL string, models map[string]string) *OpenAIClient {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		models:  models,
		client:  &http.Client{Timeout: 5 * time.Minute},
	}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string { return "openai" }

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()
	body := openAIRequest{
		Model:       upstreamModel(c.models, req.Model),
		MaxTokens:   maxTokens(req),
		Temperature: req.Temperature,
	}
	if req.System != "" {
		body.Messages = append(body.Messages, openAIMessage{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, openAIMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	respBody, status, err := doHTTP(c.client, httpReq)
	if err != nil {
		return nil, AsProviderError(c.Name(), req.Model, err)
	}

	var result openAIResponse
	parseErr := json.Unmarshal(respBody, &result)
	if status != http.StatusOK {
		msg := strings.TrimSpace(string(respBody))
		if parseErr == nil && result.Error != nil && result.Error.Message != "" {
			msg = result.Error.Message
		}
		return nil, &ProviderError{Provider: c.Name(), Model: req.Model, Code: status, Message: msg}
	}
	if parseErr != nil {
		return nil, &ProviderError{Provider: c.Name(), Model: req.Model, Message: "malformed response", Err: parseErr}
	}
	if len(result.Choices) == 0 {
		return nil, &ProviderError{Provider: c.Name(), Model: req.Model, Message: "response has no choices"}
	}

	choice := result.Choices[0]
	return &CompletionResponse{
		Content:    choice.Message.Content,
		StopReason: choice.FinishReason,
		Model:      result.Model,
		Usage:      Usage{InputTokens: result.Usage.PromptTokens, OutputTokens: result.Usage.CompletionTokens},
		Duration:   time.Since(start),
	}, nil
}
