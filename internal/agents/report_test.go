package agents

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"bizplanner/internal/adapters/ai"
)

func TestReportMarkdown(t *testing.T) {
	report := &Report{
		ID:   uuid.MustParse("6f1c2a55-8d0e-4c4a-9d43-0d6a5f0b9e11"),
		Idea: BusinessIdea(coffeeIdea),
		Sections: []Section{
			{Agent: AgentMarketResearch, Name: "Market Research", Text: "Growing market.\n"},
			{Agent: AgentCompetitorAnalysis, Name: "Competitor Analysis", Text: "Three rivals."},
		},
		Summary:     "Start small.",
		StartedAt:   fixedNow,
		CompletedAt: fixedNow.Add(95 * time.Second),
		Usage:       ai.Usage{TotalTokens: 12345},
		CostUSD:     decimal.RequireFromString("0.04215"),
	}

	md := report.Markdown()

	assert.True(t, strings.HasPrefix(md, "# Startup Plan\n\n**Business idea:** "+coffeeIdea+"\n"))
	assert.Contains(t, md, "\n## Market Research\n\nGrowing market.\n")
	assert.Less(t, strings.Index(md, "## Market Research"), strings.Index(md, "## Competitor Analysis"))
	assert.Less(t, strings.Index(md, "## Competitor Analysis"), strings.Index(md, "## Summary and Next Steps"))
	assert.Contains(t, md, "12,345 tokens")
	assert.Contains(t, md, "$0.0422")
	assert.Contains(t, md, "1m35s")
	assert.Contains(t, md, "6f1c2a55-8d0e-4c4a-9d43-0d6a5f0b9e11")
}

func TestReportMarkdownWithoutSummary(t *testing.T) {
	report := &Report{Idea: "x", Sections: []Section{{Name: "Market Research", Text: "a"}}}
	assert.NotContains(t, report.Markdown(), "Summary and Next Steps")
}

func TestReportSectionLookup(t *testing.T) {
	report := &Report{Sections: []Section{{Agent: AgentLegalCompliance, Text: "permits"}}}

	s, ok := report.Section(AgentLegalCompliance)
	assert.True(t, ok)
	assert.Equal(t, "permits", s.Text)

	_, ok = report.Section(AgentMarketResearch)
	assert.False(t, ok)
}
