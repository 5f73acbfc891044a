package agents

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizplanner/internal/adapters/ai"
	"bizplanner/internal/adapters/retry"
	"bizplanner/internal/adapters/search"
	"bizplanner/pkg/errors"
)

func TestAgentRunRendersInstructionsAndResearch(t *testing.T) {
	tool := &stubTool{}
	inference := &stubInference{text: "Market is large."}
	ag, err := NewAgent(specFor(t, AgentMarketResearch), inference, tool, testOptions()...)
	require.NoError(t, err)

	section, err := ag.Run(context.Background(), BusinessIdea(coffeeIdea), nil)
	require.NoError(t, err)

	assert.Equal(t, AgentMarketResearch, section.Agent)
	assert.Equal(t, "Market Research", section.Name)
	assert.Equal(t, "Market is large.", section.Text)
	assert.Equal(t, 2, section.ToolCalls)
	assert.Zero(t, section.ToolErrors)
	assert.Equal(t, 1200, section.Usage.TotalTokens)
	assert.True(t, section.CostUSD.Equal(decimal.RequireFromString("0.006")), "cost %s", section.CostUSD)

	assert.Equal(t, []string{
		"web_search:" + coffeeIdea + " market size growth trends",
		"web_search:" + coffeeIdea + " target customers demographics",
	}, tool.queries)

	req := inference.lastRequest()
	assert.True(t, strings.HasPrefix(req.System, "You are a Market Research Specialist."))
	assert.True(t, strings.HasSuffix(req.System, "The current date is 2026-10-19."))
	assert.Contains(t, req.Prompt, "Business idea:\n"+coffeeIdea)
	assert.Contains(t, req.Prompt, "### web_search: "+coffeeIdea+" market size growth trends")
	assert.Contains(t, req.Prompt, "Hit for "+coffeeIdea)
	assert.True(t, strings.HasSuffix(req.Prompt, "Write the Market Research section of the startup plan for this idea. Use markdown."))
}

func TestAgentRunAbsorbsToolFailures(t *testing.T) {
	tool := &stubTool{err: errors.Wrap(errors.ErrToolUnavailable, "duckduckgo http 503")}
	inference := &stubInference{text: "Still useful."}
	ag, err := NewAgent(specFor(t, AgentFinancialAnalysis), inference, tool, testOptions()...)
	require.NoError(t, err)

	section, err := ag.Run(context.Background(), BusinessIdea(coffeeIdea), nil)
	require.NoError(t, err)

	assert.Equal(t, "Still useful.", section.Text)
	assert.Equal(t, 2, section.ToolErrors)
	assert.NotContains(t, inference.lastRequest().Prompt, "Research notes")
}

func TestAgentWithoutToolClientSkipsResearch(t *testing.T) {
	inference := &stubInference{text: "ok"}
	ag, err := NewAgent(specFor(t, AgentLegalCompliance), inference, nil, testOptions()...)
	require.NoError(t, err)

	section, err := ag.Run(context.Background(), BusinessIdea(coffeeIdea), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, section.ToolErrors)
}

func TestAgentScopesToolToCapabilities(t *testing.T) {
	tool := &stubTool{}
	ag, err := NewAgent(specFor(t, AgentCompetitorAnalysis), &stubInference{text: "ok"}, tool, testOptions()...)
	require.NoError(t, err)

	_, err = ag.tools.Search(context.Background(), "anything", search.WebSearch)
	assert.True(t, errors.Is(err, errors.ErrToolForbidden))
	assert.Empty(t, tool.queries)
}

func TestAgentRunInferenceFailure(t *testing.T) {
	ag, err := NewAgent(specFor(t, AgentBusinessModel), &stubInference{err: errors.ErrInferenceAuth}, &stubTool{}, testOptions()...)
	require.NoError(t, err)

	_, err = ag.Run(context.Background(), BusinessIdea(coffeeIdea), nil)

	var runErr *errors.AgentRunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, "Business Model", runErr.Agent)
	assert.True(t, errors.Is(err, errors.ErrAgentRunFailed))
	assert.True(t, errors.Is(err, errors.ErrInferenceAuth))
}

type flakyInference struct {
	stubInference
	failures int
}

func (f *flakyInference) Generate(ctx context.Context, req ai.GenerateRequest) (*ai.Completion, error) {
	if f.failures > 0 {
		f.failures--
		return nil, errors.Wrap(errors.ErrInferenceQuotaExceeded, "429")
	}
	return f.stubInference.Generate(ctx, req)
}

func TestAgentRetriesTransientInferenceErrors(t *testing.T) {
	inference := &flakyInference{stubInference: stubInference{text: "recovered"}, failures: 2}
	opts := append(testOptions(), WithRetry(retry.New(retry.Config{
		MaxRetries:   2,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Retryable:    ai.IsTransient,
	})))

	ag, err := NewAgent(specFor(t, AgentBusinessModel), inference, &stubTool{}, opts...)
	require.NoError(t, err)

	section, err := ag.Run(context.Background(), BusinessIdea(coffeeIdea), nil)
	require.NoError(t, err)
	assert.Equal(t, "recovered", section.Text)
}

func TestAgentCondensesPriorSectionsToBudget(t *testing.T) {
	inference := &stubInference{text: "ok"}
	opts := append(testOptions(), WithContextBudget(100))
	ag, err := NewAgent(specFor(t, AgentLegalCompliance), inference, &stubTool{}, opts...)
	require.NoError(t, err)

	long := strings.Repeat("revenue ", 1000)
	prior := []Section{
		{Agent: AgentMarketResearch, Name: "Market Research", Text: long},
		{Agent: AgentCompetitorAnalysis, Name: "Competitor Analysis", Text: long},
	}
	_, err = ag.Run(context.Background(), BusinessIdea(coffeeIdea), prior)
	require.NoError(t, err)

	prompt := inference.lastRequest().Prompt
	assert.Contains(t, prompt, "## Market Research")
	assert.Contains(t, prompt, "## Competitor Analysis")
	assert.Contains(t, prompt, "[...]")
	assert.Less(t, len(prompt), 2000)
}

func TestAgentFitsModelContextWindow(t *testing.T) {
	small := stubModel
	small.MaxTokens = 4096 + promptOverheadTokens + 300
	inference := &stubInference{text: "ok", model: small}
	ag, err := NewAgent(specFor(t, AgentBusinessModel), inference, nil, testOptions()...)
	require.NoError(t, err)

	prior := []Section{{Agent: AgentMarketResearch, Name: "Market Research", Text: strings.Repeat("x ", 20000)}}
	_, err = ag.Run(context.Background(), BusinessIdea(coffeeIdea), prior)
	require.NoError(t, err)

	req := inference.lastRequest()
	assert.LessOrEqual(t, ai.EstimateTokens(req.System)+ai.EstimateTokens(req.Prompt)+4096, small.MaxTokens+promptOverheadTokens)
}

func TestAgentReservesConfiguredOutputTokens(t *testing.T) {
	window := stubModel
	window.MaxTokens = 1024 + promptOverheadTokens + 3000
	prior := []Section{{Agent: AgentMarketResearch, Name: "Market Research", Text: strings.Repeat("x ", 20000)}}

	inference := &stubInference{text: "ok", model: window}
	opts := append(testOptions(), WithDefaultMaxTokens(1024))
	ag, err := NewAgent(specFor(t, AgentBusinessModel), inference, nil, opts...)
	require.NoError(t, err)

	_, err = ag.Run(context.Background(), BusinessIdea(coffeeIdea), prior)
	require.NoError(t, err)

	req := inference.lastRequest()
	assert.Zero(t, req.MaxTokens)
	assert.Contains(t, req.Prompt, "## Market Research")
	assert.LessOrEqual(t, ai.EstimateTokens(req.System)+ai.EstimateTokens(req.Prompt)+1024, window.MaxTokens+promptOverheadTokens)

	// The 4096 fallback leaves no room for prior sections in this window.
	fallback := &stubInference{text: "ok", model: window}
	ag, err = NewAgent(specFor(t, AgentBusinessModel), fallback, nil, testOptions()...)
	require.NoError(t, err)
	_, err = ag.Run(context.Background(), BusinessIdea(coffeeIdea), prior)
	require.NoError(t, err)
	assert.NotContains(t, fallback.lastRequest().Prompt, "## Market Research")
}

func TestNewAgentRequiresInference(t *testing.T) {
	_, err := NewAgent(specFor(t, AgentMarketResearch), nil, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestNewAgentRejectsInvalidSpec(t *testing.T) {
	spec := specFor(t, AgentMarketResearch)
	spec.Role = ""
	_, err := NewAgent(spec, &stubInference{}, nil)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}
