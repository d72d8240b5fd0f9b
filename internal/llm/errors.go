package llm

import (
	"context"
	"errors"
	"fmt"

	"platewise/internal/shared"
)

// Error is a provider-level failure: the API call itself failed, as
// opposed to the model returning an unusable object.
type Error struct {
	Provider string
	Status   int
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: request failed", e.Provider)
}

func (e *Error) Unwrap() error { return e.Cause }

// NoObjectError means generation finished but no valid object could be
// produced from the output. RawText carries the accumulated model output
// and Usage the tokens already spent, so callers can log and bill them.
type NoObjectError struct {
	Cause   error
	RawText string
	Usage   shared.TokenUsage
}

func (e *NoObjectError) Error() string {
	return fmt.Sprintf("no valid object generated: %v", e.Cause)
}

func (e *NoObjectError) Unwrap() error { return e.Cause }

// IsRateLimited reports whether err is a provider rate-limit response.
func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == 429
}

// IsAuth reports whether err is an authentication or authorization failure.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == 401 || e.Status == 403)
}

// IsCanceled reports whether err stems from context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
