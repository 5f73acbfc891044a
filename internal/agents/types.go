package agents

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"bizplanner/internal/adapters/ai"
	"bizplanner/pkg/errors"
)

// AgentType enumerates the analysts of the planning pipeline.
type AgentType string

const (
	AgentMarketResearch     AgentType = "market_research"
	AgentCompetitorAnalysis AgentType = "competitor_analysis"
	AgentBusinessModel      AgentType = "business_model"
	AgentFinancialAnalysis  AgentType = "financial_analysis"
	AgentLegalCompliance    AgentType = "legal_compliance"
)

// PipelineOrder is the fixed execution order. Later analysts depend on the
// sections produced before them.
var PipelineOrder = []AgentType{
	AgentMarketResearch,
	AgentCompetitorAnalysis,
	AgentBusinessModel,
	AgentFinancialAnalysis,
	AgentLegalCompliance,
}

func (t AgentType) String() string { return string(t) }

// Valid reports whether t is part of the pipeline.
func (t AgentType) Valid() bool {
	for _, known := range PipelineOrder {
		if t == known {
			return true
		}
	}
	return false
}

// BusinessIdea is the free-text pipeline input.
type BusinessIdea string

// NewBusinessIdea trims text and rejects blank input.
func NewBusinessIdea(text string) (BusinessIdea, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.NewValidationError("idea", "business idea is empty", "")
	}
	return BusinessIdea(text), nil
}

func (i BusinessIdea) String() string { return string(i) }

// Section is one analyst's contribution to the report.
type Section struct {
	Agent      AgentType
	Name       string
	Text       string
	Model      string
	ToolCalls  int
	ToolErrors int
	Usage      ai.Usage
	CostUSD    decimal.Decimal
	Duration   time.Duration
}
