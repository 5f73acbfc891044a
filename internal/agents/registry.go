package agents

import (
	"sync"

	"bizplanner/pkg/errors"
)

// Registry stores agents by their type for quick lookup.
type Registry struct {
	agents map[AgentType]*Agent
	mu     sync.RWMutex
}

// NewRegistry constructs an empty agent registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[AgentType]*Agent)}
}

// Register adds or replaces an agent entry.
func (r *Registry) Register(ag *Agent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agents[ag.Type()] = ag
}

// Get retrieves an agent by type.
func (r *Registry) Get(agentType AgentType) (*Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ag, ok := r.agents[agentType]
	return ag, ok
}

// Pipeline returns the registered agents in PipelineOrder. Every stage must
// be registered.
func (r *Registry) Pipeline() ([]*Agent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var missing errors.MultiError
	out := make([]*Agent, 0, len(PipelineOrder))
	for _, t := range PipelineOrder {
		ag, ok := r.agents[t]
		if !ok {
			missing.Add(errors.Wrapf(errors.ErrNotFound, "agent %s not registered", t))
			continue
		}
		out = append(out, ag)
	}
	if err := missing.ToError(); err != nil {
		return nil, err
	}
	return out, nil
}
