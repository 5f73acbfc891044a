package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"

	"bizplanner/pkg/errors"
)

type Config struct {
	App           AppConfig
	AI            AIConfig
	Search        SearchConfig
	Redis         RedisConfig
	Pipeline      PipelineConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"bizplanner"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type AIConfig struct {
	ClaudeKey       string        `envconfig:"ANTHROPIC_API_KEY"`
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	DeepSeekKey     string        `envconfig:"DEEPSEEK_API_KEY"`
	GeminiKey       string        `envconfig:"GEMINI_API_KEY"`
	Provider        string        `envconfig:"AI_PROVIDER" default:"claude"`
	Model           string        `envconfig:"AI_MODEL"`
	MaxTokens       int           `envconfig:"AI_MAX_TOKENS" default:"4096"`
	Timeout         time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`
	RateLimitPerMin int           `envconfig:"AI_RATE_LIMIT_PER_MINUTE" default:"50"`
	Temperature     float64       `envconfig:"AI_TEMPERATURE" default:"0.7"`
}

// KeyFor returns the API key configured for the named provider.
func (c AIConfig) KeyFor(provider string) string {
	switch strings.ToLower(provider) {
	case "claude":
		return c.ClaudeKey
	case "openai":
		return c.OpenAIKey
	case "deepseek":
		return c.DeepSeekKey
	case "gemini":
		return c.GeminiKey
	default:
		return ""
	}
}

type SearchConfig struct {
	ExaKey        string        `envconfig:"EXA_API_KEY"`
	Timeout       time.Duration `envconfig:"SEARCH_TIMEOUT" default:"15s"`
	MaxResults    int           `envconfig:"SEARCH_MAX_RESULTS" default:"5"`
	CacheTTL      time.Duration `envconfig:"SEARCH_CACHE_TTL" default:"1h"`
	RatePerSecond float64       `envconfig:"SEARCH_RATE_PER_SECOND" default:"1"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Enabled reports whether a Redis host is configured.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type PipelineConfig struct {
	Timeout       time.Duration `envconfig:"PIPELINE_TIMEOUT" default:"10m"`
	MaxRetries    int           `envconfig:"PIPELINE_MAX_RETRIES" default:"2"`
	RetryDelay    time.Duration `envconfig:"PIPELINE_RETRY_DELAY" default:"1s"`
	ContextBudget int           `envconfig:"PIPELINE_CONTEXT_BUDGET" default:"6000"` // tokens reserved for prior sections
	Synthesize    bool          `envconfig:"PIPELINE_SYNTHESIZE" default:"false"`

	// Zero disables the per-run spend ceiling.
	MaxCostUSD decimal.Decimal `envconfig:"PIPELINE_MAX_COST_USD" default:"0"`
}

type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that both required secrets are present and numeric
// settings are usable. It never echoes secret values.
func (c *Config) Validate() error {
	var errs errors.MultiError

	provider := strings.ToLower(c.AI.Provider)
	switch provider {
	case "claude", "openai", "deepseek", "gemini":
		if c.AI.KeyFor(provider) == "" {
			errs.Add(errors.NewValidationError("AI_PROVIDER", "API key for the selected provider is not set", provider))
		}
	default:
		errs.Add(errors.NewValidationError("AI_PROVIDER", "unsupported provider", c.AI.Provider))
	}

	if c.Search.ExaKey == "" {
		errs.Add(errors.NewValidationError("EXA_API_KEY", "search API key is not set", "unset"))
	}
	if c.AI.MaxTokens <= 0 {
		errs.Add(errors.NewValidationError("AI_MAX_TOKENS", "must be positive", c.AI.MaxTokens))
	}
	if c.Search.MaxResults <= 0 {
		errs.Add(errors.NewValidationError("SEARCH_MAX_RESULTS", "must be positive", c.Search.MaxResults))
	}
	if c.Pipeline.MaxRetries < 0 {
		errs.Add(errors.NewValidationError("PIPELINE_MAX_RETRIES", "must not be negative", c.Pipeline.MaxRetries))
	}
	if c.Pipeline.MaxCostUSD.IsNegative() {
		errs.Add(errors.NewValidationError("PIPELINE_MAX_COST_USD", "must not be negative", c.Pipeline.MaxCostUSD.String()))
	}
	if c.Pipeline.ContextBudget < 0 {
		errs.Add(errors.NewValidationError("PIPELINE_CONTEXT_BUDGET", "must not be negative", c.Pipeline.ContextBudget))
	}

	return errs.ToError()
}

// Redacted returns loggable key/value pairs with every secret reduced to set/unset.
func (c *Config) Redacted() []interface{} {
	return []interface{}{
		"app", c.App.Name,
		"env", c.App.Env,
		"ai_provider", c.AI.Provider,
		"ai_model", c.AI.Model,
		"ai_key", presence(c.AI.KeyFor(c.AI.Provider)),
		"exa_key", presence(c.Search.ExaKey),
		"redis_enabled", c.Redis.Enabled(),
		"pipeline_timeout", c.Pipeline.Timeout.String(),
		"max_retries", c.Pipeline.MaxRetries,
		"max_cost_usd", c.Pipeline.MaxCostUSD.String(),
		"synthesize", c.Pipeline.Synthesize,
		"metrics_addr", c.Metrics.Addr,
		"error_tracking", c.ErrorTracking.Enabled,
	}
}

func presence(secret string) string {
	if secret == "" {
		return "unset"
	}
	return "set"
}
