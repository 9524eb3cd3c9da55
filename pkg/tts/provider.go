// Package tts defines the Text-To-Speech provider interface and the
// text preparation shared by all engines.
package tts

import (
	"context"
)

const (
	// MinAudioSize is the minimum size of a synthesized audio blob (1KB).
	// Blobs smaller than this are likely failed synthesis attempts.
	MinAudioSize = 1024

	// MaxSynthesisChars bounds a single synthesis request. Longer
	// narrations are truncated at a sentence boundary.
	MaxSynthesisChars = 4000
)

// Result is a finished synthesis.
type Result struct {
	Audio  []byte
	Format string // "mp3", "ogg"
}

// Provider defines the interface for Text-To-Speech engines.
type Provider interface {
	// Name identifies the engine for tracking and logging.
	Name() string

	// Synthesize generates audio for the given text and voice.
	Synthesize(ctx context.Context, text, voice string) (*Result, error)

	// Voices returns a list of available voices for the provider.
	Voices(ctx context.Context) ([]Voice, error)
}

// Voice represents an available TTS voice.
type Voice struct {
	ID       string
	Name     string
	Language string
	IsNeural bool
}

// FatalError represents a TTS error that should trigger fallback to another provider.
// Examples: rate limits (429), server errors (5xx), auth failures (401/403).
type FatalError struct {
	StatusCode int
	Message    string
}

func (e *FatalError) Error() string {
	return e.Message
}

// NewFatalError creates a new FatalError with the given status code and message.
func NewFatalError(statusCode int, message string) *FatalError {
	return &FatalError{StatusCode: statusCode, Message: message}
}

// IsFatalError checks if an error is a TTS fatal error that should trigger fallback.
func IsFatalError(err error) bool {
	_, ok := err.(*FatalError)
	return ok
}
