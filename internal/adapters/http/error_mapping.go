package httpadapter

import (
	"errors"
	"net/http"

	"github.com/kirillkom/document-converter/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrForbidden):
		return http.StatusForbidden
	case domain.IsKind(err, domain.ErrInvalidInput), domain.IsKind(err, domain.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func errorCode(err error) string {
	var (
		validationErr *domain.ValidationError
		tooLarge      *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return "FILE_TOO_LARGE"
	case errors.As(err, &validationErr) && validationErr.Result.Blocking():
		return "SECURITY_VIOLATION"
	case domain.IsKind(err, domain.ErrUnsupportedFormat):
		return "UNSUPPORTED_FORMAT"
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "VALIDATION_ERROR"
	case domain.IsKind(err, domain.ErrForbidden):
		return "SECURITY_VIOLATION"
	case domain.IsKind(err, domain.ErrRateLimited):
		return "RATE_LIMIT_EXCEEDED"
	case domain.IsKind(err, domain.ErrTemporary):
		return "SERVICE_UNAVAILABLE"
	default:
		return "CONVERSION_ERROR"
	}
}

// errorMessage keeps internal failures out of responses.
func errorMessage(err error, status int) string {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return validationErr.Result.Message
	case status == http.StatusRequestEntityTooLarge:
		return "File too large"
	case status >= 500:
		return "Conversion failed"
	default:
		return err.Error()
	}
}

func errorDetails(err error) map[string]any {
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		return nil
	}
	details := map[string]any{"risk_level": validationErr.Result.RiskLevel}
	for k, v := range validationErr.Result.Details {
		details[k] = v
	}
	return details
}
