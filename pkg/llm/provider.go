// Package llm defines the provider interface for tour content
// generation and the shared parsing/validation of structured output.
package llm

import (
	"context"
)

// StopDraft is one stop as proposed by the model, before geocoding.
type StopDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Highlights  []string `json:"highlights,omitempty"`
}

// Draft is the structured tour content a provider must return.
type Draft struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Content     string      `json:"content"`
	Stops       []StopDraft `json:"walkable_stops"`
}

// Usage reports what one generation call consumed.
type Usage struct {
	Provider    string
	Model       string
	TotalTokens int64
}

// Provider defines the interface for interacting with LLM services.
type Provider interface {
	// Name identifies the provider for tracking and logging.
	Name() string

	// GenerateTour sends the rendered prompt and returns the parsed,
	// schema-validated draft.
	GenerateTour(ctx context.Context, prompt string) (*Draft, *Usage, error)

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error
}
