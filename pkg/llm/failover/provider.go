// Package failover chains LLM providers: primary first, fallback when
// the primary fails, session-level circuit breaking on auth errors.
package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"walkumentary/pkg/llm"
)

// Provider wraps multiple LLM providers and handles fallbacks.
type Provider struct {
	providers  []llm.Provider
	disabled   map[int]bool
	backoffs   map[string]*backoffState
	retryDelay time.Duration
	mu         sync.RWMutex
}

type backoffState struct {
	subsequentFailures int
	skippedRequests    int
}

// New creates a failover chain. Providers are tried in order.
func New(providers ...llm.Provider) (*Provider, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("at least one provider required for failover")
	}
	return &Provider{
		providers:  providers,
		disabled:   make(map[int]bool),
		backoffs:   make(map[string]*backoffState),
		retryDelay: 1 * time.Second,
	}, nil
}

func (f *Provider) Name() string { return "failover" }

// GenerateTour implements llm.Provider. Each provider gets one
// same-provider retry on a transient error before the chain advances:
// primary, primary retry, fallback, fallback retry. Providers that are
// circuit-broken or in backoff are skipped.
func (f *Provider) GenerateTour(ctx context.Context, prompt string) (*llm.Draft, *llm.Usage, error) {
	type candidate struct {
		index int
		p     llm.Provider
	}
	var candidates []candidate

	f.mu.RLock()
	for i, p := range f.providers {
		if f.disabled[i] {
			continue
		}
		candidates = append(candidates, candidate{i, p})
	}
	f.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, nil, fmt.Errorf("no active providers in failover chain")
	}

	var lastErr error
	for idx, c := range candidates {
		name := c.p.Name()

		// Smart backoff: skip as many requests as the provider has
		// recently failed, then let one through to probe recovery.
		f.mu.Lock()
		bs, exists := f.backoffs[name]
		if exists && bs.skippedRequests < bs.subsequentFailures {
			bs.skippedRequests++
			slog.Debug("LLM provider in backoff, skipping", "provider", name, "skipped", bs.skippedRequests, "target", bs.subsequentFailures)
			f.mu.Unlock()
			continue
		}
		f.mu.Unlock()

		draft, usage, err := f.attempt(ctx, c.p, prompt)
		if err == nil {
			f.mu.Lock()
			delete(f.backoffs, name)
			f.mu.Unlock()
			if usage != nil && usage.Provider == "" {
				usage.Provider = name
			}
			return draft, usage, nil
		}
		lastErr = err

		isLast := idx == len(candidates)-1

		if isUnrecoverable(err) {
			if ctx.Err() != nil {
				return nil, nil, err
			}
			if !isLast {
				slog.Warn("LLM provider fatal error, disabling for the session", "provider", name, "cause", attemptCause(err), "error", err)
				f.mu.Lock()
				f.disabled[c.index] = true
				f.mu.Unlock()
				continue
			}
			return nil, nil, err
		}

		// Still failing after its retry: apply backoff increment and
		// move down the chain.
		f.mu.Lock()
		bs, exists = f.backoffs[name]
		if !exists {
			bs = &backoffState{}
			f.backoffs[name] = bs
		}
		bs.subsequentFailures++
		bs.skippedRequests = 0
		f.mu.Unlock()

		if !isLast {
			slog.Info("LLM provider failed after retry, falling back", "provider", name, "cause", attemptCause(err), "error", err)
		}
	}

	if lastErr != nil {
		return nil, nil, fmt.Errorf("all LLM providers exhausted: %w", lastErr)
	}
	return nil, nil, fmt.Errorf("all LLM providers in backoff")
}

// attempt calls one provider with a single same-provider retry, so a
// transient blip does not trigger failover on its own.
func (f *Provider) attempt(ctx context.Context, p llm.Provider, prompt string) (*llm.Draft, *llm.Usage, error) {
	draft, usage, err := p.GenerateTour(ctx, prompt)
	if err == nil || isUnrecoverable(err) {
		return draft, usage, err
	}

	slog.Warn("LLM provider failed, retrying same provider", "provider", p.Name(), "cause", attemptCause(err), "retry_in", f.retryDelay, "error", err)
	select {
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	case <-time.After(f.retryDelay):
	}

	return p.GenerateTour(ctx, prompt)
}

// HealthCheck verifies that at least one provider is healthy.
func (f *Provider) HealthCheck(ctx context.Context) error {
	f.mu.RLock()
	providers := f.providers
	disabled := make(map[int]bool)
	for k, v := range f.disabled {
		disabled[k] = v
	}
	f.mu.RUnlock()

	var errs []string
	for i, p := range providers {
		if disabled[i] {
			continue
		}
		if err := p.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		return nil // At least one is healthy
	}

	if len(errs) == 0 {
		return fmt.Errorf("no providers available in failover chain")
	}
	return fmt.Errorf("all LLM providers failed health check: %s", strings.Join(errs, "; "))
}

// attemptCause labels why an attempt failed, for the per-attempt logs.
func attemptCause(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrInvalidResponse):
		return "invalid_response"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case isUnrecoverable(err):
		return "auth"
	default:
		return "provider_unavailable"
	}
}

// isUnrecoverable identifies errors that should trigger a circuit break (unless it's the last provider).
func isUnrecoverable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// 401: Unauthorized (Invalid Key)
	// 403: Forbidden (Disabled Key / Restricted Access)
	// Note: 429 (Too Many Requests) and 400 (Bad Request) are NOT fatal.
	return strings.Contains(msg, "401") || strings.Contains(msg, "403") ||
		strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "invalid_api_key") ||
		strings.Contains(msg, "context canceled") || strings.Contains(msg, "context deadline exceeded")
}
