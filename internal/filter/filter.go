// Package filter selects papers whose metadata mentions any configured
// keyword.
package filter

import (
	"strings"

	"paperdaily/internal/source"
)

// Filter matches papers against a keyword list. Matching is
// case-insensitive substring search over title, abstract and
// categories. An empty keyword list matches everything.
type Filter struct {
	keywords []string
}

func New(keywords []string) *Filter {
	normalized := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			normalized = append(normalized, kw)
		}
	}
	return &Filter{keywords: normalized}
}

func (f *Filter) Matches(p source.Paper) bool {
	if len(f.keywords) == 0 {
		return true
	}

	haystack := strings.ToLower(p.Title + " " + p.Abstract + " " + strings.Join(p.Categories, " "))
	for _, kw := range f.keywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
