package ai

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"bizplanner/pkg/errors"
)

// Ensure GeminiProvider implements ChatProvider
var _ ChatProvider = (*GeminiProvider)(nil)

// GeminiProvider implements Google Gemini through the genai SDK.
type GeminiProvider struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	models  []ModelInfo

	once      sync.Once
	client    *genai.Client
	clientErr error
}

// NewGeminiProvider creates a new Gemini provider. The SDK client is built on
// first use. An empty baseURL uses the SDK default.
func NewGeminiProvider(apiKey string, timeout time.Duration, baseURL string) *GeminiProvider {
	return &GeminiProvider{apiKey: apiKey, baseURL: baseURL, timeout: timeout, models: geminiModels()}
}

// Name returns provider name.
func (p *GeminiProvider) Name() string { return ProviderNameGoogle.String() }

// GetModel returns model info by name.
func (p *GeminiProvider) GetModel(_ context.Context, model string) (ModelInfo, error) {
	return findModel(p.models, ProviderNameGoogle, model)
}

// ListModels lists available models.
func (p *GeminiProvider) ListModels(_ context.Context) ([]ModelInfo, error) {
	return p.models, nil
}

// Chat sends a GenerateContent request to Gemini.
func (p *GeminiProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if p.apiKey == "" {
		return nil, errors.Wrap(errors.ErrInferenceAuth, "gemini API key not configured")
	}

	client, err := p.getClient(ctx)
	if err != nil {
		return nil, err
	}

	system, turns := splitSystem(req.Messages)

	var contents []*genai.Content
	for _, msg := range turns {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: msg.Content}}})
	}

	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: system}}}
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}

	result, err := client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, p.convertError(err)
	}

	resp := &ChatResponse{
		Model: req.Model,
		Choices: []Choice{{
			Message:      Message{Role: RoleAssistant, Content: result.Text()},
			FinishReason: FinishReasonStop,
		}},
	}
	if result.ResponseID != "" {
		resp.ID = result.ResponseID
	}
	if result.ModelVersion != "" {
		resp.Model = result.ModelVersion
	}
	if len(result.Candidates) > 0 && result.Candidates[0] != nil {
		resp.Choices[0].FinishReason = mapFinishReason(string(result.Candidates[0].FinishReason))
	}
	if meta := result.UsageMetadata; meta != nil {
		resp.Usage = Usage{
			PromptTokens:     int(meta.PromptTokenCount),
			CompletionTokens: int(meta.CandidatesTokenCount),
			TotalTokens:      int(meta.TotalTokenCount),
		}
	}

	return resp, nil
}

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		cfg := &genai.ClientConfig{
			APIKey:     p.apiKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: &http.Client{Timeout: p.timeout},
		}
		if p.baseURL != "" {
			cfg.HTTPOptions = genai.HTTPOptions{BaseURL: p.baseURL}
		}
		p.client, p.clientErr = genai.NewClient(ctx, cfg)
		if p.clientErr != nil {
			p.clientErr = errors.Wrap(p.clientErr, "create gemini client")
		}
	})
	return p.client, p.clientErr
}

func (p *GeminiProvider) convertError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderNameGoogle, StatusCode: apiErr.Code, Type: apiErr.Status, Message: apiErr.Message}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &APIError{Provider: ProviderNameGoogle, StatusCode: apiErrPtr.Code, Type: apiErrPtr.Status, Message: apiErrPtr.Message}
	}
	return errors.Wrap(err, "send gemini request")
}

func geminiModels() []ModelInfo {
	return []ModelInfo{
		{
			Provider:        ProviderNameGoogle,
			Name:            ModelGemini25Flash.String(),
			Family:          "gemini-2.5",
			MaxTokens:       1000000,
			InputCostPer1K:  decimal.RequireFromString("0.0003"),
			OutputCostPer1K: decimal.RequireFromString("0.0025"),
		},
		{
			Provider:        ProviderNameGoogle,
			Name:            ModelGemini25Pro.String(),
			Family:          "gemini-2.5",
			MaxTokens:       1000000,
			InputCostPer1K:  decimal.RequireFromString("0.00125"),
			OutputCostPer1K: decimal.RequireFromString("0.01"),
		},
	}
}
