// Package tour owns the tour lifecycle: submission with fingerprint
// deduplication, the background generation pipeline and the polled
// status contract.
package tour

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"walkumentary/pkg/llm"
)

// Cause is the closed set of pipeline failure classifications exposed
// to clients. Anything more specific goes into the detail string.
type Cause string

const (
	CauseValidation          Cause = "validation_error"
	CauseProviderUnavailable Cause = "provider_unavailable"
	CauseInvalidResponse     Cause = "invalid_response"
	CauseTimeout             Cause = "timeout"
	CauseGeocodingDegraded   Cause = "geocoding_degraded"
)

// Error is a classified pipeline failure.
type Error struct {
	Cause  Cause
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Cause, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Cause, e.Detail)
	}
	return string(e.Cause)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a classified cause.
func NewError(cause Cause, detail string, err error) *Error {
	return &Error{Cause: cause, Detail: detail, Err: err}
}

// Classify maps an arbitrary pipeline error onto a Cause. Errors that
// already carry one keep it.
func Classify(err error) Cause {
	var te *Error
	if errors.As(err, &te) {
		return te.Cause
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	if errors.Is(err, llm.ErrInvalidResponse) {
		return CauseInvalidResponse
	}
	if strings.Contains(strings.ToLower(err.Error()), "timeout") {
		return CauseTimeout
	}
	return CauseProviderUnavailable
}

// Detail extracts a human-readable detail line from an error.
func Detail(err error) string {
	var te *Error
	if errors.As(err, &te) && te.Detail != "" {
		return te.Detail
	}
	return err.Error()
}
