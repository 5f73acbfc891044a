package agents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondenseSectionsKeepsShortSections(t *testing.T) {
	prior := []Section{{Name: "A", Text: "short"}, {Name: "B", Text: "also short"}}
	out := condenseSections(prior, 1000)

	require.Len(t, out, 2)
	assert.Equal(t, priorSection{Name: "A", Text: "short"}, out[0])
	assert.Equal(t, "also short", out[1].Text)
}

func TestCondenseSectionsRedistributesUnusedShare(t *testing.T) {
	long := strings.Repeat("word ", 400)
	prior := []Section{{Name: "A", Text: "tiny"}, {Name: "B", Text: long}}
	out := condenseSections(prior, 200)

	require.Len(t, out, 2)
	assert.Equal(t, "tiny", out[0].Text)
	assert.Greater(t, len(out[1].Text), 600, "B gets most of the 800-rune allowance")
	assert.LessOrEqual(t, len(out[1].Text), 800)
}

func TestCondenseSectionsWithoutBudget(t *testing.T) {
	assert.Nil(t, condenseSections([]Section{{Name: "A", Text: "x"}}, 0))
	assert.Nil(t, condenseSections(nil, 100))
}

func TestCondenseSectionsMinimumShare(t *testing.T) {
	long := strings.Repeat("word ", 400)
	out := condenseSections([]Section{{Name: "A", Text: long}, {Name: "B", Text: long}, {Name: "C", Text: long}}, 100)

	require.Len(t, out, 3)
	for _, s := range out {
		assert.GreaterOrEqual(t, len(s.Text), minSectionRunes-len(" [...]")-5)
	}
	assert.LessOrEqual(t, totalRunes(out), 400)
}

func TestCondenseSectionsSmallBudgetStaysWithinBudget(t *testing.T) {
	long := strings.Repeat("word ", 400)
	prior := []Section{{Name: "A", Text: long}, {Name: "B", Text: long}, {Name: "C", Text: long}, {Name: "D", Text: long}}
	out := condenseSections(prior, 40)

	require.Len(t, out, 4)
	assert.NotEmpty(t, out[3].Text)
	assert.LessOrEqual(t, totalRunes(out), 160, "4 x %d-rune floor would overflow the 160-rune budget", minSectionRunes)
}

func totalRunes(sections []priorSection) int {
	n := 0
	for _, s := range sections {
		n += len([]rune(s.Text))
	}
	return n
}
