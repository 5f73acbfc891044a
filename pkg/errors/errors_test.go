package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgentRunErrorMatchesSentinelAndCause(t *testing.T) {
	err := &AgentRunError{Agent: "Business Model", Err: Wrap(ErrInferenceQuotaExceeded, "claude")}

	assert.True(t, Is(err, ErrAgentRunFailed))
	assert.True(t, Is(err, ErrInferenceQuotaExceeded))
	assert.False(t, Is(err, ErrPipelineFailed))
	assert.Contains(t, err.Error(), "Business Model")
}

func TestPipelineErrorWrapsAgentError(t *testing.T) {
	cause := &AgentRunError{Agent: "Financial Analysis", Err: ErrInferenceTimeout}
	err := fmt.Errorf("run: %w", &PipelineError{Agent: "Financial Analysis", Index: 3, Err: cause})

	var pe *PipelineError
	if assert.True(t, As(err, &pe)) {
		assert.Equal(t, "Financial Analysis", pe.Agent)
		assert.Equal(t, 3, pe.Index)
	}
	assert.True(t, Is(err, ErrPipelineFailed))
	assert.True(t, Is(err, ErrAgentRunFailed))
	assert.True(t, Is(err, ErrInferenceTimeout))
	assert.Contains(t, err.Error(), "stage 4")
}

func TestTaxonomyHelpers(t *testing.T) {
	assert.True(t, IsToolError(Wrap(ErrToolTimeout, "exa")))
	assert.True(t, IsToolError(ErrToolForbidden))
	assert.False(t, IsToolError(ErrInferenceAuth))

	assert.True(t, IsInferenceError(Wrap(ErrInferenceAuth, "openai")))
	assert.False(t, IsInferenceError(ErrToolUnavailable))
}

func TestMultiError(t *testing.T) {
	var m MultiError
	assert.Nil(t, m.ToError())

	m.Add(nil)
	m.Add(NewValidationError("Name", "required", ""))
	m.Add(ErrNotFound)

	err := m.ToError()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "multiple errors (2)")
	assert.True(t, Is(err, ErrNotFound))
	assert.True(t, Is(err, ErrInvalidInput))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "ignored"))
	assert.Nil(t, Wrapf(nil, "ignored %d", 1))
}
