package ai

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizplanner/pkg/errors"
)

type stubChat struct {
	text  string
	err   error
	delay time.Duration
	last  ChatRequest
	calls int
}

func (s *stubChat) Name() string { return "stub" }
func (s *stubChat) GetModel(_ context.Context, model string) (ModelInfo, error) {
	return ModelInfo{Name: model}, nil
}
func (s *stubChat) ListModels(_ context.Context) ([]ModelInfo, error) { return nil, nil }
func (s *stubChat) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	s.calls++
	s.last = req
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ChatResponse{
		Model:   req.Model,
		Choices: []Choice{{Message: Message{Role: RoleAssistant, Content: s.text}}},
		Usage:   Usage{PromptTokens: 1000, CompletionTokens: 500, TotalTokens: 1500},
	}, nil
}

var stubModel = ModelInfo{
	Name:            "stub-model",
	MaxTokens:       8000,
	InputCostPer1K:  decimal.RequireFromString("0.003"),
	OutputCostPer1K: decimal.RequireFromString("0.015"),
}

func TestGenerateBuildsSystemAndUserMessages(t *testing.T) {
	chat := &stubChat{text: "  Section body  "}
	usage := NewUsageTracker()
	client := NewInferenceClient(chat, stubModel, time.Second, WithUsageTracker(usage), WithTemperature(0.7), WithDefaultMaxTokens(900))

	completion, err := client.Generate(context.Background(), GenerateRequest{System: "role", Prompt: "idea"})
	require.NoError(t, err)

	assert.Equal(t, "Section body", completion.Text)
	assert.Equal(t, "stub-model", completion.Model)
	require.Len(t, chat.last.Messages, 2)
	assert.Equal(t, RoleSystem, chat.last.Messages[0].Role)
	assert.Equal(t, RoleUser, chat.last.Messages[1].Role)
	assert.Equal(t, 900, chat.last.MaxTokens)
	assert.Equal(t, 0.7, chat.last.Temperature)

	totals := usage.Totals()
	assert.Equal(t, int64(1000), totals.InputTokens)
	assert.True(t, totals.CostUSD.Equal(decimal.RequireFromString("0.0105")), "cost %s", totals.CostUSD)
}

func TestGenerateRejectsEmptyPrompt(t *testing.T) {
	chat := &stubChat{text: "x"}
	_, err := NewInferenceClient(chat, stubModel, time.Second).Generate(context.Background(), GenerateRequest{Prompt: "   "})
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	assert.Zero(t, chat.calls)
}

func TestGenerateEmptyCompletionFails(t *testing.T) {
	_, err := NewInferenceClient(&stubChat{text: "  "}, stubModel, time.Second).Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.True(t, errors.Is(err, errors.ErrExternal))
}

func TestGenerateClassifiesProviderErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "unauthorized", err: &APIError{StatusCode: http.StatusUnauthorized, Message: "bad key"}, want: errors.ErrInferenceAuth},
		{name: "forbidden", err: &APIError{StatusCode: http.StatusForbidden, Message: "no access"}, want: errors.ErrInferenceAuth},
		{name: "too many requests", err: &APIError{StatusCode: http.StatusTooManyRequests, Message: "slow down"}, want: errors.ErrInferenceQuotaExceeded},
		{name: "quota message", err: &APIError{StatusCode: http.StatusBadRequest, Message: "Your credit balance is too low: quota"}, want: errors.ErrInferenceQuotaExceeded},
		{name: "deadline", err: context.DeadlineExceeded, want: errors.ErrInferenceTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewInferenceClient(&stubChat{err: tt.err}, stubModel, time.Second)
			_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestGenerateTimesOut(t *testing.T) {
	client := NewInferenceClient(&stubChat{text: "late", delay: time.Second}, stubModel, 20*time.Millisecond)

	_, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	assert.True(t, errors.Is(err, errors.ErrInferenceTimeout), "got %v", err)
}

func TestGenerateCancelledWhileRateLimited(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameAnthropic, 1, 1)
	require.True(t, limiter.Allow())

	chat := &stubChat{text: "never"}
	client := NewInferenceClient(chat, stubModel, time.Second, WithRateLimiter(limiter))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Generate(ctx, GenerateRequest{Prompt: "p"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	assert.False(t, errors.Is(err, errors.ErrInferenceTimeout))
	assert.False(t, IsTransient(err))
	assert.Zero(t, chat.calls)
}

func TestGenerateRateLimitDeadlineIsTimeout(t *testing.T) {
	limiter := NewTokenBucketLimiter(ProviderNameAnthropic, 1, 1)
	require.True(t, limiter.Allow())

	client := NewInferenceClient(&stubChat{text: "never"}, stubModel, time.Second, WithRateLimiter(limiter))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Generate(ctx, GenerateRequest{Prompt: "p"})
	assert.True(t, errors.Is(err, errors.ErrInferenceTimeout), "got %v", err)
	assert.True(t, IsTransient(err))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.Wrap(errors.ErrInferenceQuotaExceeded, "x")))
	assert.True(t, IsTransient(errors.ErrInferenceTimeout))
	assert.True(t, IsTransient(&APIError{StatusCode: http.StatusBadGateway}))
	assert.False(t, IsTransient(errors.ErrInferenceAuth))
	assert.False(t, IsTransient(&APIError{StatusCode: http.StatusBadRequest}))
	assert.False(t, IsTransient(nil))
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 3, EstimateTokens("abcdefghij"))
}
