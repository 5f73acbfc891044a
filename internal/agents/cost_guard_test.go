package agents

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizplanner/pkg/errors"
)

func TestCostGuardDisabledByZero(t *testing.T) {
	guard := NewCostGuard(decimal.Zero)

	assert.False(t, guard.Enabled())
	assert.NoError(t, guard.Check(decimal.RequireFromString("1000")))

	var nilGuard *CostGuard
	assert.NoError(t, nilGuard.Check(decimal.RequireFromString("1")))
}

func TestCostGuardCheck(t *testing.T) {
	guard := NewCostGuard(decimal.RequireFromString("0.50"))

	assert.NoError(t, guard.Check(decimal.RequireFromString("0.10")))
	assert.NoError(t, guard.Check(decimal.RequireFromString("0.45")))

	err := guard.Check(decimal.RequireFromString("0.50"))
	assert.True(t, errors.Is(err, errors.ErrInferenceQuotaExceeded))
	assert.Contains(t, err.Error(), "$0.5000 / $0.5000")

	assert.True(t, guard.Remaining(decimal.RequireFromString("0.20")).Equal(decimal.RequireFromString("0.30")))
	assert.True(t, guard.Remaining(decimal.RequireFromString("0.70")).IsZero())
}

func TestRunPipelineStopsAtCostLimit(t *testing.T) {
	agents, inference := newPipeline(t, &stubTool{}, nil)
	// Each stub call costs $0.006.
	o := newTestOrchestrator(t, agents, WithCostGuard(NewCostGuard(decimal.RequireFromString("0.012"))))

	report, err := o.RunPipeline(context.Background(), coffeeIdea)
	require.Error(t, err)
	assert.Nil(t, report)

	var pipelineErr *errors.PipelineError
	require.True(t, errors.As(err, &pipelineErr))
	assert.Equal(t, "Business Model", pipelineErr.Agent)
	assert.True(t, errors.Is(err, errors.ErrInferenceQuotaExceeded))

	assert.Equal(t, 1, inference[AgentCompetitorAnalysis].calls())
	assert.Zero(t, inference[AgentBusinessModel].calls())
}
