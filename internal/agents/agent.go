package agents

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"bizplanner/internal/adapters/ai"
	"bizplanner/internal/adapters/retry"
	"bizplanner/internal/adapters/search"
	"bizplanner/internal/metrics"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
	"bizplanner/pkg/templates"
)

const (
	taskTemplateID = "prompts/agent_task"

	// DefaultContextBudget is the token allowance for condensed prior sections.
	DefaultContextBudget = 6000
)

// Agent binds an AgentSpec to an inference client and, when the AgentSpec grants
// capabilities, a scoped search tool.
type Agent struct {
	spec      AgentSpec
	inference ai.InferenceClient
	tools     search.Tool
	templates *templates.Registry
	queries   []*template.Template
	retry     *retry.Middleware
	clock     func() time.Time
	budget    int
	maxTokens int
	log       *logger.Logger
}

// Option customizes an Agent.
type Option func(*Agent)

// WithTemplates renders prompts from reg instead of the embedded registry.
func WithTemplates(reg *templates.Registry) Option {
	return func(a *Agent) {
		if reg != nil {
			a.templates = reg
		}
	}
}

// WithClock overrides the clock used for the date in instructions.
func WithClock(clock func() time.Time) Option {
	return func(a *Agent) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithContextBudget sets the token allowance for prior sections.
func WithContextBudget(tokens int) Option {
	return func(a *Agent) {
		if tokens > 0 {
			a.budget = tokens
		}
	}
}

// WithDefaultMaxTokens sets the output cap reserved in the context window
// when the AgentSpec leaves MaxTokens unset. It should match the inference
// client's default.
func WithDefaultMaxTokens(tokens int) Option {
	return func(a *Agent) {
		if tokens > 0 {
			a.maxTokens = tokens
		}
	}
}

// WithRetry retries transient inference failures.
func WithRetry(m *retry.Middleware) Option {
	return func(a *Agent) {
		if m != nil {
			a.retry = m
		}
	}
}

// WithLogger overrides the agent logger.
func WithLogger(log *logger.Logger) Option {
	return func(a *Agent) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAgent validates spec and builds an agent. tool may be nil for agents
// without capabilities; searches then fail as unavailable and are skipped.
func NewAgent(spec AgentSpec, inference ai.InferenceClient, tool search.Tool, opts ...Option) (*Agent, error) {
	if inference == nil {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "agent %s: inference client is required", spec.Name)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	a := &Agent{
		spec:      spec,
		inference: inference,
		templates: templates.Get(),
		retry:     retry.New(retry.Config{MaxRetries: 0}),
		clock:     time.Now,
		budget:    DefaultContextBudget,
		maxTokens: defaultOutputTokens,
		log:       logger.Get().With("component", "agent", "agent", spec.Name),
	}
	for _, opt := range opts {
		opt(a)
	}

	if tool != nil && len(spec.Capabilities) > 0 {
		a.tools = search.Scope(tool, spec.Capabilities...)
	}

	for i, q := range spec.Queries {
		tmpl, err := templates.ParseInline(fmt.Sprintf("%s-query-%d", spec.Type, i), q)
		if err != nil {
			return nil, errors.Wrapf(err, "agent %s: parse query %d", spec.Name, i)
		}
		a.queries = append(a.queries, tmpl)
	}

	return a, nil
}

func (a *Agent) Type() AgentType { return a.spec.Type }
func (a *Agent) Name() string    { return a.spec.Name }

type researchNote struct {
	Provider string
	Query    string
	Text     string
}

type priorSection struct {
	Name string
	Text string
}

// Run produces this agent's Section. Searches run first and their failures
// only degrade the prompt; a failed inference call fails the run with an
// AgentRunError.
func (a *Agent) Run(ctx context.Context, idea BusinessIdea, prior []Section) (Section, error) {
	start := time.Now()

	section, err := a.run(ctx, idea, prior)
	section.Duration = time.Since(start)
	metrics.RecordAgentRun(a.spec.Name, section.Duration, err)

	if err != nil {
		a.log.Errorw("Agent run failed", "duration", section.Duration, "error", err)
		return Section{}, &errors.AgentRunError{Agent: a.spec.Name, Err: err}
	}

	a.log.Infow("Agent run completed",
		"duration", section.Duration,
		"tool_calls", section.ToolCalls,
		"tool_errors", section.ToolErrors,
		"tokens", section.Usage.TotalTokens,
		"cost_usd", section.CostUSD.StringFixed(4),
	)
	return section, nil
}

func (a *Agent) run(ctx context.Context, idea BusinessIdea, prior []Section) (Section, error) {
	section := Section{Agent: a.spec.Type, Name: a.spec.Name}

	system, err := a.templates.Render(a.spec.TemplateID, map[string]any{
		"Date": a.clock().Format("2006-01-02"),
		"Role": a.spec.Role,
	})
	if err != nil {
		return section, errors.Wrap(errors.ErrInternal, err.Error())
	}
	system = strings.TrimSpace(system)

	notes, calls, failures := a.research(ctx, idea)
	section.ToolCalls = calls
	section.ToolErrors = failures

	prompt, err := a.renderTask(idea, a.condense(system, idea, notes, prior), notes)
	if err != nil {
		return section, err
	}

	model := a.inference.Model()
	completion, err := retry.DoWithResult(ctx, a.retry, func(ctx context.Context) (*ai.Completion, error) {
		return a.inference.Generate(ctx, ai.GenerateRequest{
			System:    system,
			Prompt:    prompt,
			MaxTokens: a.spec.MaxTokens,
		})
	})
	if err != nil {
		return section, err
	}

	section.Text = completion.Text
	section.Model = completion.Model
	section.Usage = completion.Usage
	section.CostUSD = ai.CalculateCost(model, int64(completion.Usage.PromptTokens), int64(completion.Usage.CompletionTokens))
	return section, nil
}

// research issues every query against every granted provider. Failures are
// logged and counted, never returned.
func (a *Agent) research(ctx context.Context, idea BusinessIdea) ([]researchNote, int, int) {
	if len(a.spec.Capabilities) == 0 || len(a.queries) == 0 {
		return nil, 0, 0
	}

	var (
		notes    []researchNote
		calls    int
		failures int
	)
	for _, provider := range a.spec.Capabilities {
		for _, tmpl := range a.queries {
			if ctx.Err() != nil {
				return notes, calls, failures
			}

			var b strings.Builder
			if err := tmpl.Execute(&b, map[string]any{"Idea": idea.String()}); err != nil {
				failures++
				a.log.Warnw("Search query render failed", "query", tmpl.Name(), "error", err)
				continue
			}
			query := strings.TrimSpace(b.String())

			calls++
			result, err := a.search(ctx, query, provider)
			if err != nil {
				failures++
				a.log.Warnw("Search failed, continuing without results",
					"provider", provider,
					"query", query,
					"error", err,
				)
				continue
			}
			if len(result.Hits) == 0 {
				continue
			}
			notes = append(notes, researchNote{
				Provider: provider.String(),
				Query:    query,
				Text:     result.Text(),
			})
		}
	}
	return notes, calls, failures
}

func (a *Agent) search(ctx context.Context, query string, provider search.Provider) (search.ToolResult, error) {
	if a.tools == nil {
		return search.ToolResult{}, errors.Wrapf(errors.ErrToolUnavailable, "no search client for %s", provider)
	}
	return a.tools.Search(ctx, query, provider)
}

// condense shrinks prior sections so the prompt fits both the configured
// budget and the model context window.
func (a *Agent) condense(system string, idea BusinessIdea, notes []researchNote, prior []Section) []priorSection {
	budget := a.budget
	if window := a.inference.Model().MaxTokens; window > 0 {
		fixed := ai.EstimateTokens(system) + ai.EstimateTokens(idea.String()) + a.outputTokens() + promptOverheadTokens
		for _, n := range notes {
			fixed += ai.EstimateTokens(n.Text) + ai.EstimateTokens(n.Query)
		}
		if remaining := window - fixed; remaining < budget {
			budget = remaining
		}
	}
	return condenseSections(prior, budget)
}

func (a *Agent) outputTokens() int {
	if a.spec.MaxTokens > 0 {
		return a.spec.MaxTokens
	}
	return a.maxTokens
}

func (a *Agent) renderTask(idea BusinessIdea, prior []priorSection, notes []researchNote) (string, error) {
	prompt, err := a.templates.Render(taskTemplateID, map[string]any{
		"Idea":     idea.String(),
		"Prior":    prior,
		"Research": notes,
		"Section":  a.spec.Name,
	})
	if err != nil {
		return "", errors.Wrap(errors.ErrInternal, err.Error())
	}
	return strings.TrimSpace(prompt), nil
}
