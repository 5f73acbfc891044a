package ai

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bizplanner/pkg/errors"
)

// AgentModelConfig represents model selection for a specific agent.
type AgentModelConfig struct {
	Agent    string
	Provider string
	Model    string
	Timeout  time.Duration
}

// ModelSelector handles model resolution per agent with graceful fallbacks.
type ModelSelector struct {
	registry *ProviderRegistry
	configs  map[string]AgentModelConfig
	mu       sync.RWMutex
}

// NewModelSelector constructs a selector with optional defaults.
func NewModelSelector(registry *ProviderRegistry, defaults []AgentModelConfig) *ModelSelector {
	configMap := make(map[string]AgentModelConfig)
	for _, cfg := range defaults {
		configMap[cfg.Agent] = cfg
	}

	return &ModelSelector{
		registry: registry,
		configs:  configMap,
	}
}

// Set assigns model configuration for an agent.
func (s *ModelSelector) Set(agent string, cfg AgentModelConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[agent] = cfg
}

// Get returns model metadata for agent or default provider model if missing.
func (s *ModelSelector) Get(ctx context.Context, agent string, defaultProvider string) (AgentModelConfig, ModelInfo, error) {
	s.mu.RLock()
	cfg, ok := s.configs[agent]
	s.mu.RUnlock()

	if !ok {
		cfg = AgentModelConfig{Agent: agent, Provider: defaultProvider}
	}

	providerName := cfg.Provider
	if providerName == "" {
		providerName = defaultProvider
	}
	providerName = NormalizeProviderName(providerName)

	provider, err := s.registry.Get(providerName)
	if err != nil {
		return AgentModelConfig{}, ModelInfo{}, err
	}

	modelName := cfg.Model
	if modelName == "" {
		models, err := provider.ListModels(ctx)
		if err != nil {
			return AgentModelConfig{}, ModelInfo{}, errors.Wrapf(err, "failed to list models for provider %s", providerName)
		}
		if len(models) == 0 {
			return AgentModelConfig{}, ModelInfo{}, errors.Wrapf(errors.ErrUnavailable, "provider %s has no available models", providerName)
		}
		modelName = models[0].Name
	}

	info, err := provider.GetModel(ctx, modelName)
	if err != nil {
		return AgentModelConfig{}, ModelInfo{}, err
	}

	cfg.Provider = providerName
	cfg.Model = modelName
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout()
	}

	return cfg, info, nil
}

// ProviderUsage captures usage metrics for a provider/model pair.
type ProviderUsage struct {
	Model        string
	Provider     string
	Calls        int64
	InputTokens  int64
	OutputTokens int64
	CostUSD      decimal.Decimal
}

// TotalTokens returns input plus output tokens.
func (u ProviderUsage) TotalTokens() int64 {
	return u.InputTokens + u.OutputTokens
}

// UsageTracker tracks token and cost usage per provider/model.
type UsageTracker struct {
	mu    sync.Mutex
	usage map[string]*ProviderUsage
}

// NewUsageTracker creates a new tracker instance.
func NewUsageTracker() *UsageTracker {
	return &UsageTracker{usage: make(map[string]*ProviderUsage)}
}

// Record calculates cost based on model pricing and records the usage.
func (t *UsageTracker) Record(model ModelInfo, provider string, inputTokens int64, outputTokens int64) ProviderUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := fmt.Sprintf("%s:%s", provider, model.Name)
	entry, ok := t.usage[key]
	if !ok {
		entry = &ProviderUsage{Model: model.Name, Provider: provider}
		t.usage[key] = entry
	}

	entry.Calls++
	entry.InputTokens += inputTokens
	entry.OutputTokens += outputTokens
	entry.CostUSD = entry.CostUSD.Add(CalculateCost(model, inputTokens, outputTokens))

	return *entry
}

// Snapshot returns a copy of the current usage map.
func (t *UsageTracker) Snapshot() map[string]ProviderUsage {
	t.mu.Lock()
	defer t.mu.Unlock()

	copyMap := make(map[string]ProviderUsage, len(t.usage))
	for k, v := range t.usage {
		copyMap[k] = *v
	}

	return copyMap
}

// Totals sums every entry into a single usage row, entries in key order.
func (t *UsageTracker) Totals() ProviderUsage {
	snapshot := t.Snapshot()
	keys := make([]string, 0, len(snapshot))
	for k := range snapshot {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var total ProviderUsage
	for _, k := range keys {
		u := snapshot[k]
		total.Calls += u.Calls
		total.InputTokens += u.InputTokens
		total.OutputTokens += u.OutputTokens
		total.CostUSD = total.CostUSD.Add(u.CostUSD)
	}
	return total
}

// CalculateCost prices a call against the model's per-1K token rates.
func CalculateCost(model ModelInfo, inputTokens int64, outputTokens int64) decimal.Decimal {
	thousand := decimal.NewFromInt(1000)
	in := decimal.NewFromInt(inputTokens).Div(thousand).Mul(model.InputCostPer1K)
	out := decimal.NewFromInt(outputTokens).Div(thousand).Mul(model.OutputCostPer1K)
	return in.Add(out)
}
