package agents

import (
	"bizplanner/internal/adapters/ai"
	"bizplanner/pkg/templates"
)

const (
	promptOverheadTokens = 200
	defaultOutputTokens  = 4096
	minSectionRunes      = 120
)

// condenseSections fits prior sections into budgetTokens. Each section gets
// an even share of what is left; short sections hand their unused share to
// the ones after them. Order is preserved and the total never exceeds the
// budget.
func condenseSections(prior []Section, budgetTokens int) []priorSection {
	if len(prior) == 0 || budgetTokens <= 0 {
		return nil
	}

	out := make([]priorSection, 0, len(prior))
	remaining := budgetTokens * 4

	floor := minSectionRunes
	if remaining < len(prior)*minSectionRunes {
		floor = 0
	}

	for i, s := range prior {
		share := max(remaining/(len(prior)-i), floor)
		share = min(share, remaining)

		text := templates.Truncate(s.Text, share)
		remaining -= ai.EstimateTokens(text) * 4
		if remaining < 0 {
			remaining = 0
		}

		out = append(out, priorSection{Name: s.Name, Text: text})
	}
	return out
}
