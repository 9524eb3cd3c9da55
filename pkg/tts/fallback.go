package tts

import (
	"context"
	"fmt"
	"log/slog"
)

// Fallback chains TTS providers. A FatalError from one engine moves on
// to the next; any other error is returned as-is because retrying a
// different engine would not help (bad input stays bad input).
type Fallback struct {
	providers []Provider
}

// NewFallback creates a provider chain. Providers are tried in order.
func NewFallback(providers ...Provider) (*Fallback, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one TTS provider required")
	}
	return &Fallback{providers: providers}, nil
}

func (f *Fallback) Name() string { return "tts-fallback" }

// Synthesize implements Provider.
func (f *Fallback) Synthesize(ctx context.Context, text, voice string) (*Result, error) {
	var lastErr error
	for i, p := range f.providers {
		res, err := p.Synthesize(ctx, text, voice)
		if err == nil {
			if len(res.Audio) < MinAudioSize {
				lastErr = fmt.Errorf("%s returned suspiciously small audio (%d bytes)", p.Name(), len(res.Audio))
				slog.Warn("TTS output too small, trying next engine", "provider", p.Name(), "bytes", len(res.Audio))
				continue
			}
			return res, nil
		}

		lastErr = err
		if !IsFatalError(err) || ctx.Err() != nil {
			return nil, err
		}
		if i < len(f.providers)-1 {
			slog.Warn("TTS engine failed, falling back", "provider", p.Name(), "error", err)
		}
	}
	return nil, fmt.Errorf("all TTS engines failed: %w", lastErr)
}

// Voices returns the first provider's voices.
func (f *Fallback) Voices(ctx context.Context) ([]Voice, error) {
	return f.providers[0].Voices(ctx)
}
