package ui

import (
	"sort"
	"strings"
)

const (
	// MaxSuggestDistance is the largest edit distance still offered as a suggestion
	MaxSuggestDistance = 3
	// MaxSuggestions caps the number of suggestions returned
	MaxSuggestions = 3
)

// Suggest returns up to MaxSuggestions candidates within MaxSuggestDistance edits
// of target, closest first. Matching ignores case; ties keep candidate order.
func Suggest(target string, candidates []string) []string {
	type match struct {
		value    string
		distance int
	}

	lower := strings.ToLower(target)
	var matches []match
	for _, candidate := range candidates {
		if d := Distance(lower, strings.ToLower(candidate)); d <= MaxSuggestDistance {
			matches = append(matches, match{candidate, d})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].distance < matches[j].distance })

	var out []string
	for i := 0; i < len(matches) && i < MaxSuggestions; i++ {
		out = append(out, matches[i].value)
	}
	return out
}

// Distance is the Levenshtein distance between a and b, counted in runes
func Distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
