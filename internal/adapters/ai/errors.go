package ai

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"bizplanner/pkg/errors"
)

// APIError is a non-2xx answer from a model provider.
type APIError struct {
	Provider   ProviderName
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("%s API error (%d): %s - %s", e.Provider, e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap lets every provider error match ErrExternal until it is classified.
func (e *APIError) Unwrap() error { return errors.ErrExternal }

// HTTPStatus exposes the response code to retry classification.
func (e *APIError) HTTPStatus() int { return e.StatusCode }

var quotaMarkers = []string{"quota", "rate limit", "rate_limit", "resource_exhausted", "overloaded", "insufficient"}

// ClassifyError maps a provider failure onto the inference taxonomy.
// Errors that already carry an inference sentinel are returned unchanged.
func ClassifyError(provider ProviderName, err error) error {
	if err == nil || errors.IsInferenceError(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errors.ErrTimeout) {
		return errors.Wrapf(errors.ErrInferenceTimeout, "%s: %v", provider, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrapf(errors.ErrInferenceTimeout, "%s: %v", provider, err)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden:
			return errors.Wrapf(errors.ErrInferenceAuth, "%s: %s", provider, apiErr.Message)
		case apiErr.StatusCode == http.StatusTooManyRequests || hasQuotaMarker(apiErr.Message) || hasQuotaMarker(apiErr.Type):
			return errors.Wrapf(errors.ErrInferenceQuotaExceeded, "%s: %s", provider, apiErr.Message)
		case apiErr.StatusCode == http.StatusRequestTimeout || apiErr.StatusCode == http.StatusGatewayTimeout:
			return errors.Wrapf(errors.ErrInferenceTimeout, "%s: %s", provider, apiErr.Message)
		}
	}

	if hasQuotaMarker(err.Error()) {
		return errors.Wrapf(errors.ErrInferenceQuotaExceeded, "%s: %v", provider, err)
	}

	return err
}

// IsTransient reports whether a classified inference error is worth retrying.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, errors.ErrInferenceAuth) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, errors.ErrInferenceQuotaExceeded) || errors.Is(err, errors.ErrInferenceTimeout) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	return false
}

func hasQuotaMarker(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range quotaMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
