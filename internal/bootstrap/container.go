package bootstrap

import (
	"context"
	"sync"

	"bizplanner/internal/adapters/ai"
	"bizplanner/internal/adapters/config"
	redisclient "bizplanner/internal/adapters/redis"
	"bizplanner/internal/adapters/search"
	"bizplanner/internal/agents"
	"bizplanner/internal/api/health"
	"bizplanner/internal/metrics"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
)

// Container holds every component of a planning run
type Container struct {
	Config       *config.Config
	Log          *logger.Logger
	ErrorTracker errors.Tracker

	// Infrastructure (optional)
	Redis *redisclient.Client

	Adapters *Adapters
	Business *Business

	// Observer receives pipeline state transitions. Set before Init.
	Observer agents.Observer

	Lifecycle *Lifecycle
	WG        *sync.WaitGroup
	Context   context.Context
	Cancel    context.CancelFunc
}

// Adapters groups external service clients
type Adapters struct {
	AIRegistry      *ai.ProviderRegistry
	ModelSelector   *ai.ModelSelector
	Usage           *ai.UsageTracker
	DefaultProvider string
	Search          *search.Client
}

// Business groups the planning pipeline
type Business struct {
	Specs         []agents.AgentSpec
	AgentRegistry *agents.Registry
	Orchestrator  *agents.Orchestrator
}

// NewContainer creates a new dependency container for cfg
func NewContainer(cfg *config.Config) *Container {
	ctx, cancel := context.WithCancel(context.Background())

	return &Container{
		Config:    cfg,
		Log:       logger.Get(),
		Adapters:  &Adapters{},
		Business:  &Business{Specs: agents.DefaultAgentSpecs()},
		Lifecycle: NewLifecycle(),
		WG:        &sync.WaitGroup{},
		Context:   ctx,
		Cancel:    cancel,
	}
}

// Init initializes all components in dependency order.
// Unlike a long-running service, a CLI run reports init failures instead of panicking.
func (c *Container) Init(ctx context.Context) error {
	if c.Config == nil {
		return errors.Wrap(errors.ErrInvalidInput, "config is required")
	}

	if err := c.InitLogging(); err != nil {
		return err
	}
	c.InitInfrastructure(ctx)

	if err := c.InitAdapters(); err != nil {
		return err
	}
	if err := c.InitBusiness(ctx); err != nil {
		return err
	}

	c.Log.Infow("✓ Pipeline ready",
		"provider", c.Adapters.DefaultProvider,
		"agents", len(c.Business.Specs),
		"search_providers", c.Adapters.Search.Providers(),
		"synthesis", c.Config.Pipeline.Synthesize,
	)
	return nil
}

// Start launches background components
func (c *Container) Start() {
	if c.Config.Metrics.Addr == "" {
		return
	}

	var redis health.Pinger
	if c.Redis != nil {
		redis = c.Redis
	}
	var pipeline health.StateSource
	if c.Business.Orchestrator != nil {
		pipeline = c.Business.Orchestrator
	}
	routes := health.New(c.Log, redis, pipeline, c.Config.App.Name).Routes()

	c.WG.Add(1)
	go func() {
		defer c.WG.Done()
		if err := metrics.Serve(c.Context, c.Config.Metrics.Addr, routes); err != nil && c.Context.Err() == nil {
			c.Log.Errorw("Metrics server failed", "addr", c.Config.Metrics.Addr, "error", err)
		}
	}()
	c.Log.Infow("✓ Metrics endpoint started", "addr", c.Config.Metrics.Addr, "routes", []string{"/metrics", "/healthz", "/readyz"})
}

// Run executes one pipeline run for idea
func (c *Container) Run(ctx context.Context, idea string) (*agents.Report, error) {
	if c.Business.Orchestrator == nil {
		return nil, errors.Wrap(errors.ErrUnavailable, "container not initialized")
	}
	return c.Business.Orchestrator.RunPipeline(ctx, idea)
}

// Shutdown performs graceful shutdown in the correct order
func (c *Container) Shutdown() {
	c.Cancel()
	c.Lifecycle.Shutdown(c.WG, c.Adapters.Usage, c.Redis, c.ErrorTracker, c.Log)
}

// GetMetrics returns run totals for observability
func (c *Container) GetMetrics() map[string]interface{} {
	out := map[string]interface{}{
		"agents": len(c.Business.Specs),
	}
	if c.Adapters.Usage != nil {
		totals := c.Adapters.Usage.Totals()
		out["inference_calls"] = totals.Calls
		out["tokens"] = totals.TotalTokens()
		out["cost_usd"] = totals.CostUSD.StringFixed(4)
	}
	return out
}
