package ollama

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/duuta/ocr-flavors/internal/core/domain"
	"github.com/duuta/ocr-flavors/internal/infrastructure/resilience"
)

// ClassifyError decides retry and breaker accounting for model-call failures.
// Request timeouts count as transient; caller cancellation does not.
func ClassifyError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{
			Retryable:     false,
			RecordFailure: false,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
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

// WrapProtectedError translates executor failures into the domain taxonomy:
// breaker rejections become ErrCircuitOpen, retryable failures ErrTemporary.
func WrapProtectedError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrCircuitOpen, operation, err)
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if class := ClassifyError(err); class.Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
