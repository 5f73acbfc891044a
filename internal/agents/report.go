package agents

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bizplanner/internal/adapters/ai"
)

// Report is the finished plan. Sections follow PipelineOrder.
type Report struct {
	ID          uuid.UUID
	Idea        BusinessIdea
	Sections    []Section
	Summary     string
	StartedAt   time.Time
	CompletedAt time.Time
	Usage       ai.Usage
	CostUSD     decimal.Decimal
}

// Section looks up a section by agent type.
func (r *Report) Section(t AgentType) (Section, bool) {
	for _, s := range r.Sections {
		if s.Agent == t {
			return s, true
		}
	}
	return Section{}, false
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Markdown renders the report with one heading per section.
func (r *Report) Markdown() string {
	var b strings.Builder

	b.WriteString("# Startup Plan\n\n")
	fmt.Fprintf(&b, "**Business idea:** %s\n", r.Idea)

	for _, s := range r.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", s.Name, strings.TrimSpace(s.Text))
	}

	if summary := strings.TrimSpace(r.Summary); summary != "" {
		fmt.Fprintf(&b, "\n## Summary and Next Steps\n\n%s\n", summary)
	}

	b.WriteString("\n---\n")
	fmt.Fprintf(&b, "_Run %s: %d sections, %s tokens, $%s, %s._\n",
		r.ID,
		len(r.Sections),
		humanize.Comma(int64(r.Usage.TotalTokens)),
		r.CostUSD.StringFixed(4),
		r.Duration().Round(time.Second),
	)

	return b.String()
}
