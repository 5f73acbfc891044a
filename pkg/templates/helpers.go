package templates

import (
	"fmt"
	"strings"
	"text/template"
	"unicode/utf8"
)

const ellipsis = " [...]"

// FuncMap returns the helper functions available inside prompt templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"truncate": Truncate,
		"trim":     strings.TrimSpace,
		"upper":    strings.ToUpper,
	}
}

// Truncate shortens text to at most maxRunes runes, cutting on a word
// boundary when possible and marking the cut.
func Truncate(text string, maxRunes int) string {
	text = strings.ToValidUTF8(strings.TrimSpace(text), "")
	if maxRunes <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	limit := maxRunes - utf8.RuneCountInString(ellipsis)
	if limit <= 0 {
		return string([]rune(text)[:maxRunes])
	}

	cut := string([]rune(text)[:limit])
	if idx := strings.LastIndexAny(cut, " \n\t"); idx > len(cut)/2 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut) + ellipsis
}

// ParseInline parses a one-off template string, such as a search query
// pattern, with the prompt FuncMap. Unknown fields fail at execution.
func ParseInline(name, text string) (*template.Template, error) {
	parsed, err := template.New(name).Funcs(FuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse inline template %s: %w", name, err)
	}
	return parsed, nil
}
