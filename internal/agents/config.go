package agents

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"bizplanner/internal/adapters/search"
	"bizplanner/pkg/errors"
	"bizplanner/pkg/templates"
)

// AgentSpec is the static definition of one analyst.
type AgentSpec struct {
	Type         AgentType         `validate:"required,oneof=market_research competitor_analysis business_model financial_analysis legal_compliance"`
	Name         string            `validate:"required"`
	Role         string            `validate:"required"`
	TemplateID   string            `validate:"required"`
	Capabilities []search.Provider `validate:"unique,dive,oneof=web_search competitor_search"`
	// Queries are text/template strings rendered with {{.Idea}} and issued
	// against every capability before inference.
	Queries   []string `validate:"required_with=Capabilities,dive,required"`
	MaxTokens int      `validate:"gte=0"`
}

// DefaultAgentSpecs returns the five analysts in pipeline order.
func DefaultAgentSpecs() []AgentSpec {
	return []AgentSpec{
		{
			Type:         AgentMarketResearch,
			Name:         "Market Research",
			Role:         "Market Research Specialist",
			TemplateID:   "agents/market_research",
			Capabilities: []search.Provider{search.WebSearch},
			Queries: []string{
				"{{.Idea}} market size growth trends",
				"{{.Idea}} target customers demographics",
			},
		},
		{
			Type:         AgentCompetitorAnalysis,
			Name:         "Competitor Analysis",
			Role:         "Competitive Intelligence Analyst",
			TemplateID:   "agents/competitor_analysis",
			Capabilities: []search.Provider{search.CompetitorSearch},
			Queries: []string{
				"companies competing in {{.Idea}}",
			},
		},
		{
			Type:         AgentBusinessModel,
			Name:         "Business Model",
			Role:         "Business Model Strategist",
			TemplateID:   "agents/business_model",
			Capabilities: []search.Provider{search.WebSearch},
			Queries: []string{
				"{{.Idea}} business model revenue streams",
			},
		},
		{
			Type:         AgentFinancialAnalysis,
			Name:         "Financial Analysis",
			Role:         "Financial Analyst",
			TemplateID:   "agents/financial_analysis",
			Capabilities: []search.Provider{search.WebSearch},
			Queries: []string{
				"{{.Idea}} startup costs",
				"{{.Idea}} profit margins industry benchmarks",
			},
		},
		{
			Type:         AgentLegalCompliance,
			Name:         "Legal & Compliance",
			Role:         "Legal & Regulatory Advisor",
			TemplateID:   "agents/legal_compliance",
			Capabilities: []search.Provider{search.WebSearch},
			Queries: []string{
				"{{.Idea}} licenses permits regulations",
			},
		},
	}
}

var specValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and that every query template parses.
func (s AgentSpec) Validate() error {
	var errs errors.MultiError

	if err := specValidator.Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return errors.Wrapf(err, "validate agent %q", s.Name)
		}
		for _, fe := range fieldErrs {
			errs.Add(errors.NewValidationError(
				specLabel(s)+"."+fe.Field(),
				fmt.Sprintf("failed %q constraint", fe.Tag()),
				fe.Value(),
			))
		}
	}

	for i, q := range s.Queries {
		if _, err := templates.ParseInline(fmt.Sprintf("%s-query-%d", s.Type, i), q); err != nil {
			errs.Add(errors.NewValidationError(specLabel(s)+".Queries", err.Error(), q))
		}
	}

	return errs.ToError()
}

// ValidateSpecs validates every spec, checks its instruction template exists
// in reg and rejects duplicate types. All problems are reported together.
func ValidateSpecs(specs []AgentSpec, reg *templates.Registry) error {
	if reg == nil {
		reg = templates.Get()
	}

	var errs errors.MultiError
	if len(specs) == 0 {
		errs.Add(errors.NewValidationError("agents", "no agent specs defined", 0))
	}

	seen := make(map[AgentType]bool, len(specs))
	for _, spec := range specs {
		if err := spec.Validate(); err != nil {
			var specErrs *errors.MultiError
			if errors.As(err, &specErrs) {
				errs.Errors = append(errs.Errors, specErrs.Errors...)
			} else {
				errs.Add(err)
			}
		}
		if spec.Type != "" && seen[spec.Type] {
			errs.Add(errors.NewValidationError(specLabel(spec)+".Type", "duplicate agent type", spec.Type))
		}
		seen[spec.Type] = true

		if spec.TemplateID != "" {
			if _, err := reg.GetTemplate(spec.TemplateID); err != nil {
				errs.Add(errors.NewValidationError(specLabel(spec)+".TemplateID", "instruction template not found", spec.TemplateID))
			}
		}
	}

	return errs.ToError()
}

func specLabel(s AgentSpec) string {
	if s.Type != "" {
		return string(s.Type)
	}
	if s.Name != "" {
		return s.Name
	}
	return "agent"
}
