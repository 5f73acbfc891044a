package search

import (
	"context"

	"bizplanner/pkg/errors"
)

type scopedTool struct {
	next    Tool
	allowed map[Provider]bool
}

// Scope restricts next to the allowed providers. Calls outside the set fail
// with ErrToolForbidden without reaching next.
func Scope(next Tool, allowed ...Provider) Tool {
	set := make(map[Provider]bool, len(allowed))
	for _, p := range allowed {
		set[p] = true
	}
	return &scopedTool{next: next, allowed: set}
}

func (s *scopedTool) Search(ctx context.Context, query string, provider Provider) (ToolResult, error) {
	if !s.allowed[provider] {
		return ToolResult{}, errors.Wrapf(errors.ErrToolForbidden, "provider %s not granted", provider)
	}
	return s.next.Search(ctx, query, provider)
}
