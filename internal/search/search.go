// Package search implements the library query predicate and match
// highlighting for song names.
package search

import (
	"strings"

	lfuzzy "github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/sahilm/fuzzy"
)

// Mode selects the query predicate
type Mode string

const (
	// ModeSubstring matches when the case-folded query occurs in the name
	ModeSubstring Mode = "substring"

	// ModeFuzzy matches when the query runes occur in order in the name
	ModeFuzzy Mode = "fuzzy"
)

// ParseMode converts a config string to a Mode, defaulting to substring
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeFuzzy:
		return ModeFuzzy
	default:
		return ModeSubstring
	}
}

// Normalize trims and case-folds a raw query
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Matches reports whether key satisfies the normalized query. An empty
// query matches everything.
func Matches(mode Mode, query, key string) bool {
	if query == "" {
		return true
	}
	key = strings.ToLower(key)
	if mode == ModeFuzzy {
		return lfuzzy.MatchNormalized(query, key)
	}
	return strings.Contains(key, query)
}

// Filter returns the indexes of keys matching query, preserving input order
func Filter(mode Mode, query string, keys []string) []int {
	query = Normalize(query)
	matched := make([]int, 0, len(keys))
	for i, key := range keys {
		if Matches(mode, query, key) {
			matched = append(matched, i)
		}
	}
	return matched
}

// Highlight returns the rune positions in title that matched query, for
// rendering. Substring mode highlights the first occurrence.
func Highlight(mode Mode, query, title string) []int {
	query = Normalize(query)
	if query == "" {
		return nil
	}

	if mode == ModeFuzzy {
		matches := fuzzy.Find(query, []string{strings.ToLower(title)})
		if len(matches) == 0 {
			return nil
		}
		return matches[0].MatchedIndexes
	}

	lower := strings.ToLower(title)
	idx := strings.Index(lower, query)
	if idx < 0 {
		return nil
	}
	start := len([]rune(lower[:idx]))
	return makeIndexRange(start, start+len([]rune(query)))
}

// makeIndexRange creates a slice of consecutive integers [start, end)
func makeIndexRange(start, end int) []int {
	indexes := make([]int, end-start)
	for i := range indexes {
		indexes[i] = start + i
	}
	return indexes
}
