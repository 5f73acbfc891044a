package ai

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bizplanner/pkg/errors"
)

// ClaudeProvider implements the Anthropic Claude Messages API over plain HTTP.
type ClaudeProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
	models   []ModelInfo
}

// ClaudeOption customizes a ClaudeProvider.
type ClaudeOption func(*ClaudeProvider)

// WithClaudeEndpoint overrides the Messages API URL.
func WithClaudeEndpoint(endpoint string) ClaudeOption {
	return func(p *ClaudeProvider) { p.endpoint = endpoint }
}

// NewClaudeProvider creates a new Claude provider.
func NewClaudeProvider(apiKey string, timeout time.Duration, opts ...ClaudeOption) *ClaudeProvider {
	p := &ClaudeProvider{
		apiKey:   apiKey,
		endpoint: claudeAPIURL,
		client:   &http.Client{Timeout: timeout},
		models:   claudeModels(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns provider name.
func (p *ClaudeProvider) Name() string {
	return ProviderNameAnthropic.String()
}

// GetModel returns model info by name.
func (p *ClaudeProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	return findModel(p.models, ProviderNameAnthropic, model)
}

// ListModels lists available models.
func (p *ClaudeProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

func claudeModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:        ProviderNameAnthropic,
			Name:            ModelClaude37Sonnet.String(),
			Family:          "claude-3.7",
			MaxTokens:       200000,
			InputCostPer1K:  decimal.RequireFromString("0.003"),
			OutputCostPer1K: decimal.RequireFromString("0.015"),
		},
		{
			Provider:        ProviderNameAnthropic,
			Name:            ModelClaude45Sonnet.String(),
			Family:          "claude-4.5",
			MaxTokens:       200000,
			InputCostPer1K:  decimal.RequireFromString("0.003"),
			OutputCostPer1K: decimal.RequireFromString("0.015"),
		},
		{
			Provider:        ProviderNameAnthropic,
			Name:            ModelClaude35Haiku.String(),
			Family:          "claude-3.5",
			MaxTokens:       200000,
			InputCostPer1K:  decimal.RequireFromString("0.0008"),
			OutputCostPer1K: decimal.RequireFromString("0.004"),
		},
	}
}

func findModel(models []ModelInfo, provider ProviderName, name string) (ModelInfo, error) {
	for _, m := range models {
		if strings.EqualFold(m.Name, name) {
			return m, nil
		}
	}
	return ModelInfo{}, errors.Wrapf(errors.ErrNotFound, "%s model %s not found", provider, name)
}
