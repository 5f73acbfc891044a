package ai

import (
	"context"

	"github.com/shopspring/decimal"
)

// Provider defines the contract each AI provider implementation must satisfy.
type Provider interface {
	Name() string

	// GetModel returns metadata for a specific model.
	GetModel(ctx context.Context, model string) (ModelInfo, error)

	// ListModels returns the list of available models for the provider.
	// The first entry is the provider default.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelInfo describes the context window and pricing of a model.
type ModelInfo struct {
	Provider        ProviderName
	Name            string          // Provider-specific model identifier
	Family          string          // Family/category name (e.g., "claude-3.7")
	MaxTokens       int             // Maximum context length
	InputCostPer1K  decimal.Decimal // USD per 1K input tokens
	OutputCostPer1K decimal.Decimal // USD per 1K output tokens
}

// InferenceClient generates text for a single prompt.
type InferenceClient interface {
	Generate(ctx context.Context, req GenerateRequest) (*Completion, error)
	Model() ModelInfo
}

// GenerateRequest is one text-in/text-out inference call.
type GenerateRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// Completion is the generated text plus accounting data.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}
