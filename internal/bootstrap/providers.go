package bootstrap

import (
	"context"
	"time"

	"bizplanner/internal/adapters/ai"
	"bizplanner/internal/adapters/config"
	errnoop "bizplanner/internal/adapters/errors/noop"
	"bizplanner/internal/adapters/errors/sentry"
	redisclient "bizplanner/internal/adapters/redis"
	"bizplanner/internal/adapters/retry"
	"bizplanner/internal/adapters/search"
	"bizplanner/internal/agents"
	"bizplanner/internal/metrics"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
	"bizplanner/pkg/templates"
)

// synthesisAgent keys the summary call in the model selector.
const synthesisAgent = "synthesis"

// ========================================
// Phase 1: Logging & Error Tracking
// ========================================

// InitLogging initializes the logger, error tracker and metrics registry
func (c *Container) InitLogging() error {
	cfg := c.Config
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		return errors.Wrap(err, "init logger")
	}

	c.Log = logger.Get()
	c.Log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)
	c.Log.Debugw("Configuration loaded", cfg.Redacted()...)

	c.ErrorTracker = provideErrorTracker(cfg, c.Log)
	logger.SetErrorTracker(c.ErrorTracker)

	metrics.Init()
	return nil
}

// ========================================
// Phase 2: Infrastructure
// ========================================

// InitInfrastructure connects the optional Redis search cache.
// An unreachable Redis degrades to the in-process cache.
func (c *Container) InitInfrastructure(ctx context.Context) {
	c.Redis = provideRedis(ctx, c.Config.Redis, c.Log)
}

// ========================================
// Phase 3: Adapters
// ========================================

// InitAdapters builds the model provider registry and the search tool client
func (c *Container) InitAdapters() error {
	cfg := c.Config

	registry, err := ai.BuildRegistry(cfg.AI)
	if err != nil {
		return errors.Wrap(err, "build AI registry")
	}

	defaultProvider := resolveProvider(registry, cfg.AI.Provider)
	if defaultProvider == "" {
		return errors.Wrap(errors.ErrUnavailable, "no AI provider available")
	}

	c.Adapters.AIRegistry = registry
	c.Adapters.DefaultProvider = defaultProvider
	c.Adapters.ModelSelector = ai.NewModelSelector(registry, provideModelConfigs(cfg.AI, defaultProvider, c.Business.Specs))
	c.Adapters.Usage = ai.NewUsageTracker()
	c.Adapters.Search = provideSearchClient(cfg.Search, cfg.Pipeline, c.Redis, c.Log)

	c.Log.Infof("✓ AI providers registered: %d (default %s)", len(registry.List()), defaultProvider)
	return nil
}

// ========================================
// Phase 4: Business Logic
// ========================================

// InitBusiness builds one agent per spec and the orchestrator that runs them
func (c *Container) InitBusiness(ctx context.Context) error {
	cfg := c.Config
	reg := templates.Get()

	if err := agents.ValidateSpecs(c.Business.Specs, reg); err != nil {
		return errors.Wrap(err, "invalid agent configuration")
	}

	factory := newInferenceFactory(cfg.AI, c.Adapters.AIRegistry, c.Adapters.ModelSelector, c.Adapters.Usage, c.Adapters.DefaultProvider)
	inferenceRetry := provideInferenceRetry(cfg.Pipeline)

	registry := agents.NewRegistry()
	for _, spec := range c.Business.Specs {
		client, err := factory.For(ctx, string(spec.Type))
		if err != nil {
			return errors.Wrapf(err, "inference for %s", spec.Name)
		}

		ag, err := agents.NewAgent(spec, client, c.Adapters.Search,
			agents.WithTemplates(reg),
			agents.WithRetry(inferenceRetry),
			agents.WithContextBudget(cfg.Pipeline.ContextBudget),
			agents.WithDefaultMaxTokens(cfg.AI.MaxTokens),
		)
		if err != nil {
			return errors.Wrapf(err, "create agent %s", spec.Name)
		}
		registry.Register(ag)

		c.Log.Debugw("Agent ready",
			"agent", spec.Name,
			"model", client.Model().Name,
			"capabilities", spec.Capabilities,
		)
	}
	c.Business.AgentRegistry = registry

	pipeline, err := registry.Pipeline()
	if err != nil {
		return errors.Wrap(err, "assemble pipeline")
	}

	opts := []agents.OrchestratorOption{
		agents.WithPipelineTimeout(cfg.Pipeline.Timeout),
		agents.WithTracker(c.ErrorTracker),
		agents.WithOrchestratorTemplates(reg),
		agents.WithCostGuard(agents.NewCostGuard(cfg.Pipeline.MaxCostUSD)),
	}
	if c.Observer != nil {
		opts = append(opts, agents.WithObserver(c.Observer))
	}
	if cfg.Pipeline.Synthesize {
		synth, err := factory.For(ctx, synthesisAgent)
		if err != nil {
			return errors.Wrap(err, "inference for synthesis")
		}
		opts = append(opts, agents.WithSynthesis(synth))
	}

	orchestrator, err := agents.NewOrchestrator(pipeline, opts...)
	if err != nil {
		return errors.Wrap(err, "create orchestrator")
	}
	c.Business.Orchestrator = orchestrator

	c.Log.Infof("✓ Agents initialized: %d", len(pipeline))
	return nil
}

// ========================================
// Helper Provider Functions
// ========================================

func provideErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Debug("Error tracking disabled")
		return errnoop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking, cfg.App.Name)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return errnoop.New()
	}

	log.Info("✓ Error tracking initialized (Sentry)")
	return tracker
}

func provideRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redisclient.Client {
	if !cfg.Enabled() {
		log.Debug("Redis not configured, search results cached in memory")
		return nil
	}

	log.Infow("Connecting to Redis...", "addr", cfg.Addr())
	client, err := redisclient.NewClient(ctx, cfg)
	if err != nil {
		log.Warnw("Redis unavailable, falling back to in-memory search cache", "error", err)
		return nil
	}
	log.Info("✓ Redis connected")
	return client
}

// provideSearchCache prefers Redis and falls back to a process-local cache.
func provideSearchCache(redis *redisclient.Client) search.Cache {
	if redis == nil {
		return search.NewMemoryCache()
	}
	return search.NewRedisCache(redis)
}

func provideSearchClient(cfg config.SearchConfig, pipeline config.PipelineConfig, redis *redisclient.Client, log *logger.Logger) *search.Client {
	searchers := map[search.Provider]search.Searcher{
		search.WebSearch:        search.NewDuckDuckGo(cfg.RatePerSecond, cfg.MaxResults),
		search.CompetitorSearch: search.NewExa(cfg.ExaKey, cfg.MaxResults),
	}

	return search.NewClient(searchers,
		search.WithCache(provideSearchCache(redis), cfg.CacheTTL),
		search.WithTimeout(cfg.Timeout),
		search.WithMaxResults(cfg.MaxResults),
		search.WithRetry(retry.New(retry.Config{
			MaxRetries:   pipeline.MaxRetries,
			InitialDelay: pipeline.RetryDelay,
			MaxDelay:     10 * pipeline.RetryDelay,
			Strategy:     retry.StrategyExponential,
			Multiplier:   2,
		})),
		search.WithLogger(log.With("component", "search")),
	)
}

func provideInferenceRetry(cfg config.PipelineConfig) *retry.Middleware {
	return retry.New(retry.Config{
		MaxRetries:   cfg.MaxRetries,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     10 * cfg.RetryDelay,
		Strategy:     retry.StrategyExponential,
		Multiplier:   2,
		Retryable:    ai.IsTransient,
	})
}

// provideModelConfigs pins every agent and the synthesis call to the
// configured model. Without AI_MODEL each falls back to the provider default.
func provideModelConfigs(cfg config.AIConfig, provider string, specs []agents.AgentSpec) []ai.AgentModelConfig {
	if cfg.Model == "" {
		return nil
	}

	names := make([]string, 0, len(specs)+1)
	for _, spec := range specs {
		names = append(names, string(spec.Type))
	}
	names = append(names, synthesisAgent)

	out := make([]ai.AgentModelConfig, 0, len(names))
	for _, name := range names {
		out = append(out, ai.AgentModelConfig{
			Agent:    name,
			Provider: provider,
			Model:    cfg.Model,
			Timeout:  cfg.Timeout,
		})
	}
	return out
}

func resolveProvider(registry *ai.ProviderRegistry, desired string) string {
	desired = ai.NormalizeProviderName(desired)
	if desired != "" {
		if _, err := registry.Get(desired); err == nil {
			return desired
		}
	}

	providers := registry.List()
	if len(providers) == 0 {
		return ""
	}

	return ai.NormalizeProviderName(providers[0].Name())
}

// inferenceFactory hands out one InferenceClient per agent. Clients on the
// same provider share a rate limiter.
type inferenceFactory struct {
	cfg             config.AIConfig
	registry        *ai.ProviderRegistry
	selector        *ai.ModelSelector
	usage           *ai.UsageTracker
	defaultProvider string
	limiters        map[string]ai.RateLimiter
}

func newInferenceFactory(cfg config.AIConfig, registry *ai.ProviderRegistry, selector *ai.ModelSelector, usage *ai.UsageTracker, defaultProvider string) *inferenceFactory {
	return &inferenceFactory{
		cfg:             cfg,
		registry:        registry,
		selector:        selector,
		usage:           usage,
		defaultProvider: defaultProvider,
		limiters:        make(map[string]ai.RateLimiter),
	}
}

// For resolves the model for agent and wraps it in an InferenceClient.
func (f *inferenceFactory) For(ctx context.Context, agent string) (ai.InferenceClient, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	modelCfg, info, err := f.selector.Get(resolveCtx, agent, f.defaultProvider)
	if err != nil {
		return nil, err
	}

	chat, err := f.registry.GetChat(modelCfg.Provider)
	if err != nil {
		return nil, err
	}

	limiter, ok := f.limiters[modelCfg.Provider]
	if !ok {
		name := ai.ProviderName(modelCfg.Provider)
		limiter = ai.NewRateLimiter(name, ai.RateLimitFor(f.cfg, name))
		f.limiters[modelCfg.Provider] = limiter
	}

	timeout := f.cfg.Timeout
	if timeout <= 0 {
		timeout = modelCfg.Timeout
	}

	return ai.NewInferenceClient(chat, info, timeout,
		ai.WithRateLimiter(limiter),
		ai.WithTemperature(f.cfg.Temperature),
		ai.WithDefaultMaxTokens(f.cfg.MaxTokens),
		ai.WithUsageTracker(f.usage),
	), nil
}
