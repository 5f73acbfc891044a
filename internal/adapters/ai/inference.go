package ai

import (
	"context"
	"strings"
	"time"

	"bizplanner/internal/metrics"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
)

// Ensure ChatInference implements InferenceClient
var _ InferenceClient = (*ChatInference)(nil)

// ChatInference adapts a ChatProvider and one model into an InferenceClient.
// It paces calls through a RateLimiter, bounds each call with a timeout and
// maps provider failures onto the inference error taxonomy.
type ChatInference struct {
	provider    ChatProvider
	model       ModelInfo
	limiter     RateLimiter
	timeout     time.Duration
	temperature float64
	maxTokens   int
	usage       *UsageTracker
	log         *logger.Logger
}

// InferenceOption customizes a ChatInference.
type InferenceOption func(*ChatInference)

// WithRateLimiter paces calls through limiter.
func WithRateLimiter(limiter RateLimiter) InferenceOption {
	return func(c *ChatInference) {
		if limiter != nil {
			c.limiter = limiter
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(temperature float64) InferenceOption {
	return func(c *ChatInference) { c.temperature = temperature }
}

// WithDefaultMaxTokens sets the output cap used when a request leaves MaxTokens at zero.
func WithDefaultMaxTokens(maxTokens int) InferenceOption {
	return func(c *ChatInference) {
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// WithUsageTracker records token usage and cost of every successful call.
func WithUsageTracker(tracker *UsageTracker) InferenceOption {
	return func(c *ChatInference) { c.usage = tracker }
}

// NewInferenceClient creates an inference client bound to a single model.
func NewInferenceClient(provider ChatProvider, model ModelInfo, timeout time.Duration, opts ...InferenceOption) *ChatInference {
	c := &ChatInference{
		provider:  provider,
		model:     model,
		limiter:   NewNoOpLimiter(),
		timeout:   timeout,
		maxTokens: defaultMaxTokens,
		log:       logger.Get().With("component", "inference", "provider", provider.Name(), "model", model.Name),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns metadata of the bound model.
func (c *ChatInference) Model() ModelInfo {
	return c.model
}

// Generate runs a single completion. Empty output is reported as ErrExternal.
func (c *ChatInference) Generate(ctx context.Context, req GenerateRequest) (*Completion, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "prompt is empty")
	}

	providerName := ProviderName(c.provider.Name())
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	if err := c.limiter.Wait(ctx); err != nil {
		rlErr := &RateLimitError{Provider: providerName, Limit: c.limiter.Limit(), Err: err}
		if errors.Is(err, context.Canceled) {
			return nil, rlErr
		}
		return nil, errors.Wrapf(errors.ErrInferenceTimeout, "%v", rlErr)
	}

	callCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := make([]Message, 0, 2)
	if req.System != "" {
		messages = append(messages, Message{Role: RoleSystem, Content: req.System})
	}
	messages = append(messages, Message{Role: RoleUser, Content: req.Prompt})

	start := time.Now()
	resp, err := c.provider.Chat(callCtx, ChatRequest{
		Model:       c.model.Name,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   maxTokens,
	})
	latency := time.Since(start)

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && !errors.Is(err, context.DeadlineExceeded) {
			err = errors.Wrap(context.DeadlineExceeded, err.Error())
		}
		err = ClassifyError(providerName, err)
		metrics.RecordInferenceCall(providerName.String(), c.model.Name, latency, 0, 0, 0, err)
		c.log.Warnw("Inference call failed", "latency", latency, "error", err)
		return nil, err
	}

	text := strings.TrimSpace(resp.Text())
	cost, _ := CalculateCost(c.model, int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens)).Float64()
	if text == "" {
		err := errors.Wrapf(errors.ErrExternal, "%s returned an empty completion", providerName)
		metrics.RecordInferenceCall(providerName.String(), c.model.Name, latency, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, cost, err)
		return nil, err
	}

	if c.usage != nil {
		c.usage.Record(c.model, providerName.String(), int64(resp.Usage.PromptTokens), int64(resp.Usage.CompletionTokens))
	}
	metrics.RecordInferenceCall(providerName.String(), c.model.Name, latency, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, cost, nil)

	c.log.Debugw("Inference call completed",
		"latency", latency,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	model := resp.Model
	if model == "" {
		model = c.model.Name
	}

	return &Completion{Text: text, Model: model, Usage: resp.Usage}, nil
}

// EstimateTokens approximates token count from text length (1 token ≈ 4 chars).
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
