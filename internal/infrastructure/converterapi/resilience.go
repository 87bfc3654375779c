package converterapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/kirillkom/document-converter/internal/core/domain"
	"github.com/kirillkom/document-converter/internal/infrastructure/resilience"
)

func classifyConverterError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var serverErr *domain.ServerError
	if errors.As(err, &serverErr) {
		return resilience.ErrorClassification{
			Retryable:     isRetryableHTTPStatus(serverErr.StatusCode),
			RecordFailure: serverErr.StatusCode >= http.StatusInternalServerError,
		}
	}

	if domain.IsKind(err, domain.ErrConnection) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{
		Retryable:     false,
		RecordFailure: true,
	}
}

// classifyConvertError never retries: the conversion POST is not idempotent.
func classifyConvertError(err error) resilience.ErrorClassification {
	class := classifyConverterError(err)
	class.Retryable = false
	return class
}

// wrapCircuitOpen reports an open breaker as a connection failure so callers
// treat it like an unreachable server.
func wrapCircuitOpen(operation string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsCircuitOpen(err) && !domain.IsKind(err, domain.ErrConnection) {
		return domain.WrapError(domain.ErrConnection, operation, err)
	}
	return err
}

// A 500 from the converter is almost always a document it cannot handle, so
// it is not retried.
func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
