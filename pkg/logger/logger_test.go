package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bizplanner/pkg/errors"
)

type capturingTracker struct {
	errs []error
	tags []map[string]string
}

func (c *capturingTracker) CaptureError(_ context.Context, err error, tags map[string]string) error {
	c.errs = append(c.errs, err)
	c.tags = append(c.tags, tags)
	return nil
}

func (c *capturingTracker) CaptureMessage(context.Context, string, errors.Level, map[string]string) error {
	return nil
}

func (c *capturingTracker) AddBreadcrumb(context.Context, string, string, errors.Level, map[string]interface{}) {
}

func (c *capturingTracker) Flush(context.Context) error { return nil }

func TestErrorForwardsComponentTag(t *testing.T) {
	tracker := &capturingTracker{}
	base := &Logger{SugaredLogger: zap.NewNop().Sugar(), errorTracker: tracker}

	log := base.With("component", "pipeline", "run_id", "abc")
	log.Errorf("stage %s failed", "Market Research")

	require.Len(t, tracker.errs, 1)
	assert.Equal(t, "stage Market Research failed", tracker.errs[0].Error())
	assert.Equal(t, "pipeline", tracker.tags[0]["component"])
}

func TestErrorWithContextMergesTags(t *testing.T) {
	tracker := &capturingTracker{}
	log := (&Logger{SugaredLogger: zap.NewNop().Sugar(), errorTracker: tracker}).With("component", "cli")

	log.ErrorWithContext(context.Background(), errors.ErrPipelineFailed, map[string]string{"agent": "Legal & Compliance"})

	require.Len(t, tracker.tags, 1)
	assert.Equal(t, "cli", tracker.tags[0]["component"])
	assert.Equal(t, "Legal & Compliance", tracker.tags[0]["agent"])
}

func TestNopLoggerHasNoTracker(t *testing.T) {
	log := NewNop()
	assert.NotPanics(t, func() { log.Error("nothing tracked") })
}
