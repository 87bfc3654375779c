package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedFormat  = errors.New("unsupported format")
	ErrForbidden          = errors.New("forbidden")
	ErrConnection         = errors.New("connection failure")
	ErrConversionInFlight = errors.New("conversion already in progress")
	ErrRateLimited        = errors.New("rate limited")
	ErrTemporary          = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// ServerError is a failure reported by the conversion endpoint, either through a
// non-2xx status or through a JSON envelope with success=false.
type ServerError struct {
	StatusCode int
	Status     string
	Message    string
	Details    map[string]any

	// RetryAfterHint is the server's Retry-After, zero when absent.
	RetryAfterHint time.Duration
}

func (e *ServerError) Error() string {
	if e == nil {
		return "server error"
	}
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("server status: %s", e.Status)
	}
	return fmt.Sprintf("server status: %s: %s", e.Status, strings.TrimSpace(e.Message))
}

// Reason returns the server-provided message, falling back to the status text.
func (e *ServerError) Reason() string {
	if msg := strings.TrimSpace(e.Message); msg != "" {
		return msg
	}
	if e.Status != "" {
		return e.Status
	}
	return "unknown error"
}

func (e *ServerError) RetryAfter() time.Duration {
	return e.RetryAfterHint
}
