package ai

import (
	"strings"
	"time"

	"bizplanner/internal/adapters/config"
	"bizplanner/pkg/errors"
)

const defaultMaxTokens = 4096

// BuildRegistry initializes a ProviderRegistry with every provider that has a key configured.
func BuildRegistry(cfg config.AIConfig) (*ProviderRegistry, error) {
	registry := NewProviderRegistry()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout()
	}

	if cfg.ClaudeKey != "" {
		if err := registry.Register(NewClaudeProvider(cfg.ClaudeKey, timeout)); err != nil {
			return nil, err
		}
	}

	if cfg.OpenAIKey != "" {
		if err := registry.Register(NewOpenAIProvider(cfg.OpenAIKey, timeout, "")); err != nil {
			return nil, err
		}
	}

	if cfg.DeepSeekKey != "" {
		if err := registry.Register(NewDeepSeekProvider(cfg.DeepSeekKey, timeout, "")); err != nil {
			return nil, err
		}
	}

	if cfg.GeminiKey != "" {
		if err := registry.Register(NewGeminiProvider(cfg.GeminiKey, timeout, "")); err != nil {
			return nil, err
		}
	}

	if len(registry.List()) == 0 {
		return nil, errors.Wrap(errors.ErrUnavailable, "no AI provider keys configured")
	}

	return registry, nil
}

// RateLimitFor returns the limiter settings for a provider, letting the
// configured per-minute limit override the provider default.
func RateLimitFor(cfg config.AIConfig, provider ProviderName) RateLimitConfig {
	limit, ok := DefaultRateLimits()[provider]
	if !ok {
		limit = RateLimitConfig{}
	}
	if cfg.RateLimitPerMin > 0 {
		limit.Enabled = true
		limit.ReqPerMinute = float64(cfg.RateLimitPerMin)
		if limit.Burst <= 0 {
			limit.Burst = 1
		}
	}
	return limit
}

func defaultTimeout() time.Duration {
	return 60 * time.Second
}

// NormalizeProviderName makes provider lookup more forgiving.
func NormalizeProviderName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	switch normalized {
	case "anthropic":
		return ProviderNameAnthropic.String()
	case "google":
		return ProviderNameGoogle.String()
	}
	return normalized
}
