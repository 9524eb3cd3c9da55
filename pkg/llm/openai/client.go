// Package openai implements llm.Provider for any OpenAI-compatible
// Chat Completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"walkumentary/pkg/config"
	"walkumentary/pkg/llm"
	"walkumentary/pkg/request"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Client implements llm.Provider for any OpenAI-compatible API.
type Client struct {
	rc      *request.Client
	apiKey  string
	baseURL string
	model   string
	label   string
}

// Request follows the standard OpenAI Chat Completions format.
type Request struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Temperature    float32         `json:"temperature,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// Response follows the standard Chat Completions response format.
type Response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int64 `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewClient creates a new OpenAI client.
func NewClient(cfg config.ProviderConfig, rc *request.Client) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	return &Client{
		rc:      rc,
		apiKey:  cfg.Key,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   cfg.Model,
		label:   cfg.Type,
	}, nil
}

func (c *Client) Name() string {
	if c.label != "" {
		return c.label
	}
	return "openai"
}

// GenerateTour implements llm.Provider.
func (c *Client) GenerateTour(ctx context.Context, prompt string) (*llm.Draft, *llm.Usage, error) {
	// json_object mode requires "json" to appear in the prompt.
	if !strings.Contains(strings.ToLower(prompt), "json") {
		prompt += " Respond in JSON."
	}

	req := Request{
		Model: c.model,
		Messages: []Message{
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &ResponseFormat{Type: "json_object"},
		Temperature:    0.7,
	}

	text, usage, err := c.execute(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	draft, err := llm.ParseDraft(text)
	if err != nil {
		return nil, usage, err
	}
	return draft, usage, nil
}

// HealthCheck verifies the key against the /models endpoint.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("api key is missing")
	}

	u := c.baseURL + "/models"
	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}

	respBody, err := c.rc.GetWithHeaders(ctx, u, headers, "", "")
	if err != nil {
		return fmt.Errorf("failed to fetch models from %s: %w", u, err)
	}

	var mresp struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBody, &mresp); err != nil {
		return fmt.Errorf("failed to parse models response: %w", err)
	}

	for _, m := range mresp.Data {
		if m.ID == c.model {
			return nil
		}
	}
	return fmt.Errorf("configured model %q not available", c.model)
}

func (c *Client) execute(ctx context.Context, oreq Request) (string, *llm.Usage, error) {
	if c.apiKey == "" {
		return "", nil, fmt.Errorf("api key is missing")
	}

	body, err := json.Marshal(oreq)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	headers := map[string]string{
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}

	u := c.baseURL + "/chat/completions"
	respBody, err := c.rc.PostWithHeaders(ctx, u, body, headers)
	if err != nil {
		return "", nil, err
	}

	var oresp Response
	if err := json.Unmarshal(respBody, &oresp); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if oresp.Error != nil {
		return "", nil, fmt.Errorf("openai api error: %s (%s)", oresp.Error.Message, oresp.Error.Type)
	}
	if len(oresp.Choices) == 0 {
		return "", nil, fmt.Errorf("api returned no choices")
	}

	usage := &llm.Usage{Model: oreq.Model, TotalTokens: oresp.Usage.TotalTokens}
	if usage.TotalTokens == 0 {
		usage.TotalTokens = llm.EstimateTokens(oresp.Choices[0].Message.Content)
	}
	return oresp.Choices[0].Message.Content, usage, nil
}
