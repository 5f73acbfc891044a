package ai

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements DeepSeek, which speaks the OpenAI protocol.
type DeepSeekProvider struct {
	chat   openAICompatChat
	models []ModelInfo
}

// NewDeepSeekProvider creates a new DeepSeek provider. An empty baseURL
// uses the public DeepSeek endpoint.
func NewDeepSeekProvider(apiKey string, timeout time.Duration, baseURL string) *DeepSeekProvider {
	if baseURL == "" {
		baseURL = deepseekBaseURL
	}
	return &DeepSeekProvider{
		chat:   newOpenAICompatChat(ProviderNameDeepSeek, apiKey, baseURL, timeout),
		models: deepSeekModels(),
	}
}

// Name returns provider name.
func (p *DeepSeekProvider) Name() string { return ProviderNameDeepSeek.String() }

// GetModel returns model info by name.
func (p *DeepSeekProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	return findModel(p.models, ProviderNameDeepSeek, model)
}

// ListModels lists available models.
func (p *DeepSeekProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// Chat sends a chat completion request to DeepSeek.
func (p *DeepSeekProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.chat.chat(ctx, req)
}

func deepSeekModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:        ProviderNameDeepSeek,
			Name:            ModelDeepSeekChat.String(),
			Family:          "deepseek",
			MaxTokens:       64000,
			InputCostPer1K:  decimal.RequireFromString("0.00027"),
			OutputCostPer1K: decimal.RequireFromString("0.0011"),
		},
		{
			Provider:        ProviderNameDeepSeek,
			Name:            ModelDeepSeekReasoner.String(),
			Family:          "deepseek",
			MaxTokens:       64000,
			InputCostPer1K:  decimal.RequireFromString("0.00055"),
			OutputCostPer1K: decimal.RequireFromString("0.00219"),
		},
	}
}
