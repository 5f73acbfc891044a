package bootstrap

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bizplanner/internal/adapters/ai"
	"bizplanner/internal/adapters/config"
	errnoop "bizplanner/internal/adapters/errors/noop"
	redisclient "bizplanner/internal/adapters/redis"
	"bizplanner/internal/adapters/search"
	"bizplanner/internal/agents"
	"bizplanner/internal/testsupport"
	"bizplanner/pkg/logger"
)

type mockChat struct {
	name  string
	calls int
}

func (m *mockChat) Name() string { return m.name }
func (m *mockChat) GetModel(_ context.Context, model string) (ai.ModelInfo, error) {
	return ai.ModelInfo{Name: model, MaxTokens: 200000}, nil
}
func (m *mockChat) ListModels(_ context.Context) ([]ai.ModelInfo, error) {
	return []ai.ModelInfo{{Name: "mock-large", MaxTokens: 200000}}, nil
}
func (m *mockChat) Chat(_ context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	m.calls++
	return &ai.ChatResponse{
		Model:   req.Model,
		Choices: []ai.Choice{{Message: ai.Message{Role: ai.RoleAssistant, Content: "analysis"}}},
		Usage:   ai.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Name: "bizplanner", Env: "test", LogLevel: "error"},
		AI: config.AIConfig{
			Provider:  "mock",
			MaxTokens: 512,
			Timeout:   time.Second,
		},
		Search: config.SearchConfig{
			ExaKey:        "exa-key",
			Timeout:       time.Second,
			MaxResults:    3,
			CacheTTL:      time.Minute,
			RatePerSecond: 1,
		},
		Pipeline: config.PipelineConfig{
			Timeout:       time.Minute,
			ContextBudget: 2000,
		},
	}
}

func newTestContainer(t *testing.T, chat *mockChat) *Container {
	t.Helper()

	registry := ai.NewProviderRegistry()
	require.NoError(t, registry.Register(chat))

	c := NewContainer(testConfig())
	c.Log = logger.NewNop()
	c.ErrorTracker = errnoop.New()
	c.Adapters.AIRegistry = registry
	c.Adapters.DefaultProvider = chat.name
	c.Adapters.ModelSelector = ai.NewModelSelector(registry, nil)
	c.Adapters.Usage = ai.NewUsageTracker()
	c.Adapters.Search = provideSearchClient(c.Config.Search, c.Config.Pipeline, nil, c.Log)
	t.Cleanup(c.Cancel)
	return c
}

func TestInitBusinessBuildsOrderedPipeline(t *testing.T) {
	c := newTestContainer(t, &mockChat{name: "mock"})

	require.NoError(t, c.InitBusiness(context.Background()))
	require.NotNil(t, c.Business.Orchestrator)

	pipeline := c.Business.Orchestrator.Agents()
	require.Len(t, pipeline, len(agents.PipelineOrder))
	for i, ag := range pipeline {
		assert.Equal(t, agents.PipelineOrder[i], ag.Type())
	}

	_, ok := c.Business.AgentRegistry.Get(agents.AgentLegalCompliance)
	assert.True(t, ok)
}

func TestInitBusinessRejectsInvalidSpecs(t *testing.T) {
	c := newTestContainer(t, &mockChat{name: "mock"})
	c.Business.Specs = c.Business.Specs[:3]

	err := c.InitBusiness(context.Background())
	assert.Error(t, err)
	assert.Nil(t, c.Business.Orchestrator)
}

func TestRunWithoutInit(t *testing.T) {
	c := NewContainer(testConfig())
	defer c.Cancel()

	_, err := c.Run(context.Background(), "coffee subscriptions")
	assert.Error(t, err)
}

func TestInferenceFactorySharesLimiterPerProvider(t *testing.T) {
	chat := &mockChat{name: "mock"}
	registry := ai.NewProviderRegistry()
	require.NoError(t, registry.Register(chat))

	cfg := config.AIConfig{Timeout: time.Second, MaxTokens: 256, RateLimitPerMin: 60}
	factory := newInferenceFactory(cfg, registry, ai.NewModelSelector(registry, nil), ai.NewUsageTracker(), "mock")

	first, err := factory.For(context.Background(), string(agents.AgentMarketResearch))
	require.NoError(t, err)
	_, err = factory.For(context.Background(), synthesisAgent)
	require.NoError(t, err)

	assert.Equal(t, "mock-large", first.Model().Name)
	assert.Len(t, factory.limiters, 1)
}

func TestProvideModelConfigs(t *testing.T) {
	specs := agents.DefaultAgentSpecs()

	assert.Nil(t, provideModelConfigs(config.AIConfig{}, "claude", specs))

	configs := provideModelConfigs(config.AIConfig{Model: "claude-3-7-sonnet-20250219", Timeout: time.Minute}, "claude", specs)
	require.Len(t, configs, len(specs)+1)
	for _, c := range configs {
		assert.Equal(t, "claude", c.Provider)
		assert.Equal(t, "claude-3-7-sonnet-20250219", c.Model)
		assert.Equal(t, time.Minute, c.Timeout)
	}
	assert.Equal(t, synthesisAgent, configs[len(configs)-1].Agent)
}

func TestResolveProvider(t *testing.T) {
	registry := ai.NewProviderRegistry()
	require.NoError(t, registry.Register(&mockChat{name: "mock"}))

	assert.Equal(t, "mock", resolveProvider(registry, "MOCK"))
	assert.Equal(t, "mock", resolveProvider(registry, "openai"))
	assert.Equal(t, "", resolveProvider(ai.NewProviderRegistry(), "claude"))
}

func TestProvideErrorTrackerDisabled(t *testing.T) {
	tracker := provideErrorTracker(testConfig(), logger.NewNop())
	_, ok := tracker.(*errnoop.Tracker)
	assert.True(t, ok)
}

func TestProvideRedisDisabled(t *testing.T) {
	assert.Nil(t, provideRedis(context.Background(), config.RedisConfig{}, logger.NewNop()))
}

func TestProvideSearchClientRoutesBothProviders(t *testing.T) {
	cfg := testConfig()
	client := provideSearchClient(cfg.Search, cfg.Pipeline, nil, logger.NewNop())

	assert.ElementsMatch(t, search.AllProviders(), client.Providers())
}

func TestProvideSearchCache(t *testing.T) {
	_, ok := provideSearchCache(nil).(*search.MemoryCache)
	assert.True(t, ok)

	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	defer rdb.Close()
	_, ok = provideSearchCache(redisclient.NewFromClient(rdb)).(*search.RedisCache)
	assert.True(t, ok)
}

func TestProvideSearchClientWithRedis(t *testing.T) {
	rdb := testsupport.NewRedisClient(t, testsupport.LoadRedisConfigFromEnv(t))
	redis := redisclient.NewFromClient(rdb)

	cfg := testConfig()
	client := provideSearchClient(cfg.Search, cfg.Pipeline, redis, logger.NewNop())
	assert.ElementsMatch(t, search.AllProviders(), client.Providers())

	ctx := context.Background()
	hits := []search.Hit{{Title: "Coffee market", URL: "https://example.com/coffee"}}
	key := search.CacheKey(search.WebSearch, "coffee subscription market size")
	require.NoError(t, provideSearchCache(redis).Set(ctx, key, hits, time.Minute))

	result, err := client.Search(ctx, "coffee subscription market size", search.WebSearch)
	require.NoError(t, err)
	assert.True(t, result.Cached)
	assert.Equal(t, hits, result.Hits)
}

func TestShutdownIsSafeWithoutInfrastructure(t *testing.T) {
	c := newTestContainer(t, &mockChat{name: "mock"})
	c.Adapters.Usage.Record(ai.ModelInfo{Name: "mock-large"}, "mock", 10, 5)

	assert.NotPanics(t, c.Shutdown)
	assert.Error(t, c.Context.Err())
	assert.Equal(t, int64(1), c.GetMetrics()["inference_calls"])
}
