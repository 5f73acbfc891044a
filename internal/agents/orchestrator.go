package agents

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizplanner/internal/adapters/ai"
	"bizplanner/internal/metrics"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/logger"
	"bizplanner/pkg/templates"
)

const (
	synthesisTemplateID = "prompts/synthesis"
	synthesisSystem     = "You are the coordinator of a business startup advisory team. Combine the analysts' findings into clear, actionable advice."
)

// Orchestrator runs the analysts strictly in PipelineOrder, feeding each one
// the sections produced before it. The first failure ends the run.
type Orchestrator struct {
	agents    []*Agent
	synth     ai.InferenceClient
	templates *templates.Registry
	timeout   time.Duration
	budget    int
	observer  Observer
	costGuard *CostGuard
	tracker   errors.Tracker
	clock     func() time.Time
	log       *logger.Logger

	runMu sync.Mutex
	mu    sync.RWMutex
	state State
}

// OrchestratorOption customizes an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithSynthesis adds a final summary call after the five sections.
func WithSynthesis(client ai.InferenceClient) OrchestratorOption {
	return func(o *Orchestrator) { o.synth = client }
}

// WithPipelineTimeout bounds a whole run.
func WithPipelineTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.timeout = timeout }
}

// WithSynthesisBudget sets the token allowance for sections in the synthesis prompt.
func WithSynthesisBudget(tokens int) OrchestratorOption {
	return func(o *Orchestrator) {
		if tokens > 0 {
			o.budget = tokens
		}
	}
}

// WithObserver registers a state transition callback.
func WithObserver(observer Observer) OrchestratorOption {
	return func(o *Orchestrator) { o.observer = observer }
}

// WithTracker records stage breadcrumbs on an error tracker.
func WithTracker(tracker errors.Tracker) OrchestratorOption {
	return func(o *Orchestrator) { o.tracker = tracker }
}

// WithOrchestratorClock overrides report timestamps.
func WithOrchestratorClock(clock func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithOrchestratorTemplates renders the synthesis prompt from reg.
func WithOrchestratorTemplates(reg *templates.Registry) OrchestratorOption {
	return func(o *Orchestrator) {
		if reg != nil {
			o.templates = reg
		}
	}
}

// WithCostGuard stops the run before a stage once spend reaches the guard's ceiling.
func WithCostGuard(guard *CostGuard) OrchestratorOption {
	return func(o *Orchestrator) { o.costGuard = guard }
}

// NewOrchestrator checks that agents are exactly PipelineOrder.
func NewOrchestrator(agents []*Agent, opts ...OrchestratorOption) (*Orchestrator, error) {
	if len(agents) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "orchestrator needs at least one agent")
	}

	seen := make(map[AgentType]bool, len(agents))
	for i, ag := range agents {
		if ag == nil {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "agent at stage %d is nil", i+1)
		}
		if seen[ag.Type()] {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "duplicate agent %s", ag.Type())
		}
		seen[ag.Type()] = true
	}

	if len(agents) != len(PipelineOrder) {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "pipeline needs %d agents, got %d", len(PipelineOrder), len(agents))
	}
	for i, ag := range agents {
		if ag.Type() != PipelineOrder[i] {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "stage %d must be %s, got %s", i+1, PipelineOrder[i], ag.Type())
		}
	}

	o := &Orchestrator{
		agents:    append([]*Agent(nil), agents...),
		templates: templates.Get(),
		budget:    DefaultContextBudget,
		clock:     time.Now,
		state:     NotStarted(),
		log:       logger.Get().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Agents returns the stages in order.
func (o *Orchestrator) Agents() []*Agent {
	return append([]*Agent(nil), o.agents...)
}

// State returns the current state machine snapshot.
func (o *Orchestrator) State() State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) transition(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()

	if o.observer != nil {
		o.observer(s)
	}
}

// RunPipeline runs every stage for idea. On failure it returns a
// *errors.PipelineError naming the failed stage and no report.
// Runs on one Orchestrator are serialized.
func (o *Orchestrator) RunPipeline(ctx context.Context, idea string) (*Report, error) {
	businessIdea, err := NewBusinessIdea(idea)
	if err != nil {
		return nil, err
	}

	o.runMu.Lock()
	defer o.runMu.Unlock()

	runID := uuid.New()
	ctx = errors.WithRunID(ctx, runID.String())
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	started := o.clock()
	log := o.log.With("run_id", runID.String())
	log.Infow("Pipeline started", "stages", len(o.agents))

	sections := make([]Section, 0, len(o.agents))
	spent := decimal.Zero
	var last *Section
	for i, ag := range o.agents {
		o.transition(State{Status: StatusRunning, Index: i, Agent: ag.Name(), Last: last})
		o.breadcrumb(ctx, "stage started", errors.LevelInfo, i, ag.Name())

		var section Section
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = &errors.AgentRunError{Agent: ag.Name(), Err: ctxErr}
		} else if costErr := o.costGuard.Check(spent); costErr != nil {
			err = &errors.AgentRunError{Agent: ag.Name(), Err: costErr}
		} else {
			section, err = ag.Run(ctx, businessIdea, append([]Section(nil), sections...))
		}
		if err != nil {
			pipelineErr := &errors.PipelineError{Agent: ag.Name(), Index: i, Err: err}
			o.breadcrumb(ctx, "stage failed", errors.LevelError, i, ag.Name())
			o.transition(State{Status: StatusFailed, Index: i, Agent: ag.Name(), Err: pipelineErr, Last: last})
			metrics.RecordPipelineRun(o.clock().Sub(started), pipelineErr)
			log.Errorw("Pipeline failed", "stage", i+1, "agent", ag.Name(), "error", err)
			return nil, pipelineErr
		}

		sections = append(sections, section)
		spent = spent.Add(section.CostUSD)
		completed := section
		last = &completed
	}

	report := &Report{
		ID:       runID,
		Idea:     businessIdea,
		Sections: sections,
	}
	for _, s := range sections {
		report.Usage = report.Usage.Add(s.Usage)
		report.CostUSD = report.CostUSD.Add(s.CostUSD)
	}

	if o.synth != nil {
		if err := o.costGuard.Check(report.CostUSD); err != nil {
			log.Warnw("Skipping synthesis", "error", err)
		} else {
			o.synthesize(ctx, log, report)
		}
	}

	report.StartedAt = started
	report.CompletedAt = o.clock()

	o.transition(State{Status: StatusCompleted, Index: -1, Last: last})
	metrics.RecordPipelineRun(report.CompletedAt.Sub(started), nil)
	log.Infow("Pipeline completed",
		"duration", report.CompletedAt.Sub(started),
		"tokens", report.Usage.TotalTokens,
		"cost_usd", report.CostUSD.StringFixed(4),
	)

	return report, nil
}

// synthesize fills report.Summary. Failures leave it empty.
func (o *Orchestrator) synthesize(ctx context.Context, log *logger.Logger, report *Report) {
	condensed := condenseSections(report.Sections, o.budget)
	prompt, err := o.templates.Render(synthesisTemplateID, map[string]any{
		"Idea":     report.Idea.String(),
		"Sections": condensed,
	})
	if err != nil {
		log.Warnw("Synthesis prompt render failed", "error", err)
		return
	}

	completion, err := o.synth.Generate(ctx, ai.GenerateRequest{
		System: synthesisSystem,
		Prompt: strings.TrimSpace(prompt),
	})
	if err != nil {
		log.Warnw("Synthesis failed, report has no summary", "error", err)
		return
	}

	report.Summary = completion.Text
	report.Usage = report.Usage.Add(completion.Usage)
	report.CostUSD = report.CostUSD.Add(ai.CalculateCost(
		o.synth.Model(),
		int64(completion.Usage.PromptTokens),
		int64(completion.Usage.CompletionTokens),
	))
}

func (o *Orchestrator) breadcrumb(ctx context.Context, msg string, level errors.Level, index int, agent string) {
	if o.tracker == nil {
		return
	}
	o.tracker.AddBreadcrumb(ctx, msg, "pipeline", level, map[string]interface{}{
		"stage": index + 1,
		"agent": agent,
	})
}
