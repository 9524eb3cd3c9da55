package model

// Status represents the lifecycle state of a Tour.
type Status string

const (
	StatusQueued       Status = "queued"
	StatusGenerating   Status = "generating"
	StatusContentReady Status = "content_ready"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
)

// Rank returns the position of the status in the pipeline order.
// Error is terminal but reachable from every non-terminal state, so it
// ranks above everything.
func (s Status) Rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusGenerating:
		return 1
	case StatusContentReady:
		return 2
	case StatusReady:
		return 3
	case StatusError:
		return 4
	default:
		return -1
	}
}

// Terminal reports whether the status can never change again.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusError
}

// CanTransition reports whether moving from s to next is a legal
// forward transition. Transitions never move backward and terminal
// states are absorbing.
func (s Status) CanTransition(next Status) bool {
	if s.Terminal() {
		return false
	}
	switch next {
	case StatusGenerating:
		return s == StatusQueued
	case StatusContentReady:
		return s == StatusGenerating
	case StatusReady:
		return s == StatusContentReady
	case StatusError:
		return true // reachable from any non-terminal state
	default:
		return false
	}
}
