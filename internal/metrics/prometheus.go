package metrics

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
)

var (
	// Pipeline metrics
	PipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizplanner_pipeline_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // status: completed|failed
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizplanner_pipeline_duration_seconds",
			Help:    "Pipeline run duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	// Agent metrics
	AgentRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizplanner_agent_runs_total",
			Help: "Total number of agent runs",
		},
		[]string{"agent", "status"}, // status: success|error
	)

	AgentLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizplanner_agent_latency_seconds",
			Help:    "Agent run latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"agent"},
	)

	// Inference metrics
	InferenceCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizplanner_inference_calls_total",
			Help: "Total number of model inference calls",
		},
		[]string{"provider", "model", "status"}, // status: success|error|quota|timeout|auth
	)

	InferenceTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizplanner_inference_tokens_total",
			Help: "Total tokens used by inference calls",
		},
		[]string{"provider", "model", "type"}, // type: input|output
	)

	InferenceCost = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizplanner_inference_cost_usd",
			Help: "Total inference cost in USD",
		},
		[]string{"provider", "model"},
	)

	InferenceLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizplanner_inference_latency_seconds",
			Help:    "Inference call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 90},
		},
		[]string{"provider", "model"},
	)

	// Tool metrics
	ToolCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bizplanner_tool_calls_total",
			Help: "Total number of search tool calls",
		},
		[]string{"provider", "status"}, // status: success|error|timeout|forbidden|cache_hit
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bizplanner_tool_latency_seconds",
			Help:    "Search tool latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"provider"},
	)

	registerOnce sync.Once
)

// Init registers all metrics with Prometheus. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		// Pipeline metrics
		prometheus.MustRegister(PipelineRuns)
		prometheus.MustRegister(PipelineDuration)

		// Agent metrics
		prometheus.MustRegister(AgentRuns)
		prometheus.MustRegister(AgentLatency)

		// Inference metrics
		prometheus.MustRegister(InferenceCalls)
		prometheus.MustRegister(InferenceTokens)
		prometheus.MustRegister(InferenceCost)
		prometheus.MustRegister(InferenceLatency)

		// Tool metrics
		prometheus.MustRegister(ToolCalls)
		prometheus.MustRegister(ToolLatency)
	})
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics and any extra routes on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, routes map[string]http.Handler) error {
	log := logger.Get().With("component", "metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	for pattern, h := range routes {
		mux.Handle(pattern, h)
	}
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return errors.Wrap(err, "metrics listener")
	}
}

// RecordPipelineRun records a finished pipeline run
func RecordPipelineRun(duration time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	}

	PipelineRuns.WithLabelValues(status).Inc()
	PipelineDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordAgentRun records one agent producing (or failing to produce) its section
func RecordAgentRun(agent string, latency time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AgentRuns.WithLabelValues(agent, status).Inc()
	AgentLatency.WithLabelValues(agent).Observe(latency.Seconds())
}

// RecordInferenceCall records a model call
func RecordInferenceCall(provider, model string, latency time.Duration, inputTokens, outputTokens int, costUSD float64, err error) {
	InferenceCalls.WithLabelValues(provider, model, InferenceStatus(err)).Inc()
	InferenceLatency.WithLabelValues(provider, model).Observe(latency.Seconds())

	if inputTokens > 0 {
		InferenceTokens.WithLabelValues(provider, model, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		InferenceTokens.WithLabelValues(provider, model, "output").Add(float64(outputTokens))
	}
	if costUSD > 0 {
		InferenceCost.WithLabelValues(provider, model).Add(costUSD)
	}
}

// RecordToolCall records a search call
func RecordToolCall(provider string, latency time.Duration, err error) {
	ToolCalls.WithLabelValues(provider, ToolStatus(err)).Inc()
	ToolLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordToolCacheHit records a search answered from the cache
func RecordToolCacheHit(provider string) {
	ToolCalls.WithLabelValues(provider, "cache_hit").Inc()
}

// InferenceStatus maps an inference error to a metric label.
func InferenceStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errors.ErrInferenceQuotaExceeded):
		return "quota"
	case errors.Is(err, errors.ErrInferenceTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrInferenceAuth):
		return "auth"
	default:
		return "error"
	}
}

// ToolStatus maps a tool error to a metric label.
func ToolStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, errors.ErrToolTimeout):
		return "timeout"
	case errors.Is(err, errors.ErrToolForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
