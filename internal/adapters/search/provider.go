package search

import (
	"context"
	"fmt"
	"strings"

	"bizplanner/pkg/templates"
)

// Provider names a search capability an agent may be granted.
type Provider string

const (
	// WebSearch is general web search (DuckDuckGo).
	WebSearch Provider = "web_search"
	// CompetitorSearch is company and product discovery (Exa).
	CompetitorSearch Provider = "competitor_search"
)

func (p Provider) String() string { return string(p) }

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	return p == WebSearch || p == CompetitorSearch
}

// AllProviders returns every known provider.
func AllProviders() []Provider {
	return []Provider{WebSearch, CompetitorSearch}
}

// Hit is one ranked search result.
type Hit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// ToolResult is the response of one search call. Hits keep provider ranking.
type ToolResult struct {
	Provider Provider `json:"provider"`
	Query    string   `json:"query"`
	Hits     []Hit    `json:"hits"`
	Cached   bool     `json:"-"`
}

const maxSnippetRunes = 400

// Text renders the hits as a numbered list for prompt inclusion.
func (r ToolResult) Text() string {
	if len(r.Hits) == 0 {
		return "No results."
	}

	var b strings.Builder
	for i, hit := range r.Hits {
		fmt.Fprintf(&b, "%d. %s", i+1, hit.Title)
		if hit.URL != "" {
			fmt.Fprintf(&b, " (%s)", hit.URL)
		}
		b.WriteByte('\n')
		if snippet := strings.TrimSpace(hit.Snippet); snippet != "" {
			b.WriteString("   ")
			b.WriteString(templates.Truncate(strings.Join(strings.Fields(snippet), " "), maxSnippetRunes))
			b.WriteByte('\n')
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Searcher is one search backend.
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]Hit, error)
}

// Tool is what agents call: provider routing over a set of Searchers.
type Tool interface {
	Search(ctx context.Context, query string, provider Provider) (ToolResult, error)
}
