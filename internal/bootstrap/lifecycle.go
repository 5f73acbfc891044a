package bootstrap

import (
	"context"
	"sync"
	"time"

	"bizplanner/internal/adapters/ai"
	redisclient "bizplanner/internal/adapters/redis"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
)

// Lifecycle manages graceful shutdown of components
type Lifecycle struct {
	shutdownTimeout time.Duration
	goroutineWait   time.Duration
}

// NewLifecycle creates a new lifecycle manager
func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		shutdownTimeout: 10 * time.Second,
		goroutineWait:   3 * time.Second,
	}
}

// Shutdown performs coordinated cleanup in order:
// 1. Background goroutines (metrics endpoint) finish
// 2. Usage totals are logged
// 3. Pending error events are flushed
// 4. Logs are synced
// 5. Redis closes last
func (l *Lifecycle) Shutdown(
	wg *sync.WaitGroup,
	usage *ai.UsageTracker,
	redisClient *redisclient.Client,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), l.shutdownTimeout)
	defer shutdownCancel()

	log.Debug("[1/5] Waiting for background goroutines...")
	l.waitForGoroutines(wg, l.goroutineWait, log)

	log.Debug("[2/5] Reporting model usage...")
	l.logUsage(usage, log)

	log.Debug("[3/5] Flushing error tracker...")
	l.flushErrorTracker(shutdownCtx, errorTracker, log)

	log.Debug("[4/5] Syncing logs...")
	// Syncing stderr returns EINVAL on some platforms.
	_ = logger.Sync()

	log.Debug("[5/5] Closing Redis...")
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Errorw("Redis close failed", "error", err)
		}
	}

	log.Debug("✓ Shutdown complete")
}

// waitForGoroutines waits for all goroutines with a timeout
func (l *Lifecycle) waitForGoroutines(wg *sync.WaitGroup, timeout time.Duration, log *logger.Logger) {
	if wg == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Warnw("⚠ Some goroutines did not finish within timeout", "timeout", timeout)
	}
}

func (l *Lifecycle) logUsage(usage *ai.UsageTracker, log *logger.Logger) {
	if usage == nil {
		return
	}

	for key, u := range usage.Snapshot() {
		log.Infow("Model usage",
			"model", key,
			"provider", u.Provider,
			"calls", u.Calls,
			"input_tokens", u.InputTokens,
			"output_tokens", u.OutputTokens,
			"cost_usd", u.CostUSD.StringFixed(4),
		)
	}
}

// flushErrorTracker flushes the error tracker (Sentry, etc.)
func (l *Lifecycle) flushErrorTracker(ctx context.Context, tracker errors.Tracker, log *logger.Logger) {
	if tracker == nil {
		return
	}

	if err := tracker.Flush(ctx); err != nil {
		log.Warnw("Error tracker flush failed", "error", err)
	}
}
