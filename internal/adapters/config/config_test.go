package config

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizplanner/pkg/errors"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test-secret")
	t.Setenv("EXA_API_KEY", "exa-test-secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bizplanner", cfg.App.Name)
	assert.Equal(t, "claude", cfg.AI.Provider)
	assert.Equal(t, 4096, cfg.AI.MaxTokens)
	assert.Equal(t, 90*time.Second, cfg.AI.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Search.Timeout)
	assert.Equal(t, 5, cfg.Search.MaxResults)
	assert.Equal(t, 10*time.Minute, cfg.Pipeline.Timeout)
	assert.Equal(t, 2, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 6000, cfg.Pipeline.ContextBudget)
	assert.False(t, cfg.Pipeline.Synthesize)
	assert.False(t, cfg.Redis.Enabled())
}

func TestLoadRequiresBothSecrets(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("EXA_API_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	var multi *errors.MultiError
	require.True(t, errors.As(err, &multi))
	assert.Len(t, multi.Errors, 2)
}

func TestValidateSelectedProviderKey(t *testing.T) {
	cfg := &Config{
		AI:     AIConfig{Provider: "openai", ClaudeKey: "x", MaxTokens: 100},
		Search: SearchConfig{ExaKey: "y", MaxResults: 3},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AI_PROVIDER")

	cfg.AI.OpenAIKey = "z"
	assert.NoError(t, cfg.Validate())

	cfg.AI.Provider = "mistral"
	assert.Error(t, cfg.Validate())
}

func TestRedactedNeverContainsSecrets(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("REDIS_PASSWORD", "redis-secret")

	cfg, err := Load()
	require.NoError(t, err)

	dump := fmt.Sprint(cfg.Redacted()...)
	assert.NotContains(t, dump, "sk-ant-test-secret")
	assert.NotContains(t, dump, "exa-test-secret")
	assert.NotContains(t, dump, "redis-secret")
	assert.Contains(t, dump, "set")
}

func TestRedisAddr(t *testing.T) {
	cfg := RedisConfig{Host: "localhost", Port: 6380}
	assert.True(t, cfg.Enabled())
	assert.Equal(t, "localhost:6380", cfg.Addr())
}
