package ai

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OpenAIProvider implements OpenAI chat completions.
type OpenAIProvider struct {
	chat   openAICompatChat
	models []ModelInfo
}

// NewOpenAIProvider creates a new OpenAI provider instance. An empty baseURL
// uses the SDK default.
func NewOpenAIProvider(apiKey string, timeout time.Duration, baseURL string) *OpenAIProvider {
	return &OpenAIProvider{
		chat:   newOpenAICompatChat(ProviderNameOpenAI, apiKey, baseURL, timeout),
		models: openAIModels(),
	}
}

// Name returns provider name.
func (p *OpenAIProvider) Name() string { return ProviderNameOpenAI.String() }

// GetModel returns model info by name.
func (p *OpenAIProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	return findModel(p.models, ProviderNameOpenAI, model)
}

// ListModels lists available models.
func (p *OpenAIProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// Chat sends a chat completion request to OpenAI.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.chat.chat(ctx, req)
}

func openAIModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:        ProviderNameOpenAI,
			Name:            ModelGPT4o.String(),
			Family:          "gpt-4o",
			MaxTokens:       128000,
			InputCostPer1K:  decimal.RequireFromString("0.0025"),
			OutputCostPer1K: decimal.RequireFromString("0.01"),
		},
		{
			Provider:        ProviderNameOpenAI,
			Name:            ModelGPT4oMini.String(),
			Family:          "gpt-4o",
			MaxTokens:       128000,
			InputCostPer1K:  decimal.RequireFromString("0.00015"),
			OutputCostPer1K: decimal.RequireFromString("0.0006"),
		},
	}
}
