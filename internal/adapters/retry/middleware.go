package retry

import (
	"context"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"bizplanner/pkg/errors"
)

// Strategy defines the retry strategy
type Strategy string

const (
	// StrategyExponential uses exponential backoff
	StrategyExponential Strategy = "exponential"
	// StrategyLinear uses linear backoff
	StrategyLinear Strategy = "linear"
	// StrategyFixed uses fixed delay
	StrategyFixed Strategy = "fixed"
)

// Config contains retry configuration.
// MaxRetries counts attempts after the first one; zero disables retries.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // For exponential backoff

	// Retryable decides whether an error is transient. Defaults to IsRetryable.
	Retryable func(error) bool
}

// DefaultConfig returns the backoff used around tool and inference calls.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   2,
		InitialDelay: time.Second,
		MaxDelay:     10 * time.Second,
		Strategy:     StrategyExponential,
		Multiplier:   2.0,
	}
}

// Middleware runs a call with bounded retries and backoff.
type Middleware struct {
	config Config
}

// New creates a new retry middleware
func New(config Config) *Middleware {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 100 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyExponential
	}
	if config.Retryable == nil {
		config.Retryable = IsRetryable
	}

	return &Middleware{config: config}
}

// Do executes fn, retrying transient failures. The last error is returned
// unwrapped so callers keep matching on its sentinel.
func (m *Middleware) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := DoWithResult(ctx, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// DoWithResult executes fn with retry logic and returns its result.
func DoWithResult[T any](ctx context.Context, m *Middleware, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !m.config.Retryable(err) || ctx.Err() != nil {
			return zero, err
		}

		// Don't sleep after last attempt
		if attempt == m.config.MaxRetries {
			break
		}

		timer := time.NewTimer(m.calculateDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}

	return zero, lastErr
}

// calculateDelay calculates the backoff delay based on the strategy
func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))
	case StrategyLinear:
		delay = m.config.InitialDelay * time.Duration(1+attempt)
	case StrategyFixed:
		delay = m.config.InitialDelay
	default:
		delay = m.config.InitialDelay
	}

	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}

	return delay
}

// IsRetryable reports whether err looks transient: timeouts, throttling,
// 5xx responses and dropped connections. Cancellation never retries.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, errors.ErrToolTimeout) ||
		errors.Is(err, errors.ErrInferenceTimeout) ||
		errors.Is(err, errors.ErrInferenceQuotaExceeded) {
		return true
	}
	if errors.Is(err, errors.ErrInferenceAuth) || errors.Is(err, errors.ErrToolForbidden) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var httpErr interface{ HTTPStatus() int }
	if errors.As(err, &httpErr) {
		code := httpErr.HTTPStatus()
		return code == http.StatusTooManyRequests ||
			code == http.StatusRequestTimeout ||
			code >= 500
	}

	errStr := strings.ToLower(err.Error())
	for _, msg := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"temporary failure",
		"too many requests",
		"rate limit",
	} {
		if strings.Contains(errStr, msg) {
			return true
		}
	}

	return false
}
