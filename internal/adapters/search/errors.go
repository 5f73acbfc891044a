package search

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"bizplanner/pkg/errors"
	"bizplanner/pkg/templates"
)

// HTTPError is a non-success response from a search backend.
type HTTPError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s search http %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s search http %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Unwrap places every backend HTTP failure under ErrToolUnavailable.
func (e *HTTPError) Unwrap() error { return errors.ErrToolUnavailable }

// HTTPStatus exposes the response code to retry classification.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

func authError(provider string, status int) error {
	return errors.Wrapf(errors.ErrToolUnavailable, "%s rejected credentials (http %d)", provider, status)
}

func statusError(provider string, status int, body []byte) error {
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return authError(provider, status)
	}
	msg := templates.Truncate(string(body), 200)
	return &HTTPError{Provider: provider, StatusCode: status, Message: msg}
}

// classify maps a backend failure onto the tool taxonomy. callCtx is the
// per-call context whose deadline bounds the wait.
func classify(provider Provider, callCtx context.Context, err error) error {
	if err == nil || errors.IsToolError(err) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", provider, errors.ErrToolTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w: %w", provider, errors.ErrToolTimeout, err)
	}

	return fmt.Errorf("%s: %w: %w", provider, errors.ErrToolUnavailable, err)
}
