package ai

import (
	"context"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"bizplanner/pkg/errors"
)

// Ensure OpenAI-compatible providers implement ChatProvider
var (
	_ ChatProvider = (*OpenAIProvider)(nil)
	_ ChatProvider = (*DeepSeekProvider)(nil)
)

// openAICompatChat talks to any endpoint that speaks the OpenAI chat
// completions protocol through the official SDK.
type openAICompatChat struct {
	provider ProviderName
	apiKey   string
	client   openai.Client // NewClient returns Client (not *Client)
}

func newOpenAICompatChat(provider ProviderName, apiKey, baseURL string, timeout time.Duration) openAICompatChat {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return openAICompatChat{
		provider: provider,
		apiKey:   apiKey,
		client:   openai.NewClient(opts...),
	}
}

func (c *openAICompatChat) chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if c.apiKey == "" {
		return nil, errors.Wrapf(errors.ErrInferenceAuth, "%s API key not configured", c.provider)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(req.Model),
		Messages: toOpenAIMessages(req.Messages),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, &APIError{
				Provider:   c.provider,
				StatusCode: apiErr.StatusCode,
				Type:       apiErr.Type,
				Message:    apiErr.Message,
			}
		}
		return nil, errors.Wrapf(err, "send %s request", c.provider)
	}

	resp := &ChatResponse{
		ID:    completion.ID,
		Model: completion.Model,
		Usage: Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}
	for _, choice := range completion.Choices {
		resp.Choices = append(resp.Choices, Choice{
			Index:        int(choice.Index),
			Message:      Message{Role: RoleAssistant, Content: choice.Message.Content},
			FinishReason: mapFinishReason(choice.FinishReason),
		})
	}

	return resp, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
