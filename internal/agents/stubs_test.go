package agents

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"bizplanner/internal/adapters/ai"
	"bizplanner/internal/adapters/search"
	"bizplanner/pkg/logger"
)

var (
	fixedNow  = time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	stubModel = ai.ModelInfo{
		Provider:        ai.ProviderNameAnthropic,
		Name:            "stub-model",
		MaxTokens:       200000,
		InputCostPer1K:  decimal.RequireFromString("0.003"),
		OutputCostPer1K: decimal.RequireFromString("0.015"),
	}
)

// stubInference returns canned text, or fails with err.
type stubInference struct {
	mu       sync.Mutex
	text     string
	err      error
	block    bool
	model    ai.ModelInfo
	requests []ai.GenerateRequest
}

func (s *stubInference) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.Completion, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Completion{
		Text:  s.text,
		Model: s.Model().Name,
		Usage: ai.Usage{PromptTokens: 1000, CompletionTokens: 200, TotalTokens: 1200},
	}, nil
}

func (s *stubInference) Model() ai.ModelInfo {
	if s.model.Name == "" {
		return stubModel
	}
	return s.model
}

func (s *stubInference) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubInference) lastRequest() ai.GenerateRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

// stubTool answers every query with one hit, or fails with err.
type stubTool struct {
	mu      sync.Mutex
	err     error
	queries []string
}

func (s *stubTool) Search(_ context.Context, query string, provider search.Provider) (search.ToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queries = append(s.queries, string(provider)+":"+query)
	if s.err != nil {
		return search.ToolResult{}, s.err
	}
	return search.ToolResult{
		Provider: provider,
		Query:    query,
		Hits:     []search.Hit{{Title: "Hit for " + query, URL: "https://example.com", Snippet: "canned snippet"}},
	}, nil
}

func testOptions() []Option {
	return []Option{WithClock(func() time.Time { return fixedNow }), WithLogger(logger.NewNop())}
}

func specFor(t *testing.T, agentType AgentType) AgentSpec {
	t.Helper()
	for _, spec := range DefaultAgentSpecs() {
		if spec.Type == agentType {
			return spec
		}
	}
	t.Fatalf("no spec for %s", agentType)
	return AgentSpec{}
}

// newPipeline builds the five default agents, each answering
// "<AgentName> output" unless overridden in inference.
func newPipeline(t *testing.T, tool search.Tool, inference map[AgentType]*stubInference) ([]*Agent, map[AgentType]*stubInference) {
	t.Helper()
	if inference == nil {
		inference = map[AgentType]*stubInference{}
	}

	agents := make([]*Agent, 0, len(PipelineOrder))
	for _, spec := range DefaultAgentSpecs() {
		stub, ok := inference[spec.Type]
		if !ok {
			stub = &stubInference{text: spec.Name + " output"}
			inference[spec.Type] = stub
		}
		ag, err := NewAgent(spec, stub, tool, testOptions()...)
		require.NoError(t, err)
		agents = append(agents, ag)
	}
	return agents, inference
}

func newTestOrchestrator(t *testing.T, agents []*Agent, opts ...OrchestratorOption) *Orchestrator {
	t.Helper()
	base := []OrchestratorOption{WithOrchestratorClock(func() time.Time { return fixedNow })}
	o, err := NewOrchestrator(agents, append(base, opts...)...)
	require.NoError(t, err)
	o.log = logger.NewNop()
	return o
}
