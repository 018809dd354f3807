package util

import (
	"sort"
	"strings"
)

// JoinOrNone joins items with ", ", or returns "(none)" when empty.
func JoinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

// Pluralize picks singular when count is 1.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// maxSuggestDistance is how many edits a typo may be from a real name.
const maxSuggestDistance = 2

// LevenshteinDistance counts the single-rune edits between a and b.
func LevenshteinDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	row := make([]int, len(rb)+1)
	for j := range row {
		row[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		diag := row[0]
		row[0] = i
		for j := 1; j <= len(rb); j++ {
			above := row[j]
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			row[j] = min(row[j]+1, row[j-1]+1, diag+cost)
			diag = above
		}
	}
	return row[len(rb)]
}

// SuggestSimilar returns up to limit candidates within two edits of input,
// closest first, ignoring case. Used for "did you mean" hints on task and
// environment names.
func SuggestSimilar(input string, candidates []string, limit int) []string {
	if input == "" || limit <= 0 {
		return nil
	}

	needle := strings.ToLower(input)
	dist := make(map[string]int)
	var near []string
	for _, c := range candidates {
		d := LevenshteinDistance(needle, strings.ToLower(c))
		if d > maxSuggestDistance {
			continue
		}
		dist[c] = d
		near = append(near, c)
	}

	sort.SliceStable(near, func(i, j int) bool { return dist[near[i]] < dist[near[j]] })
	if len(near) > limit {
		near = near[:limit]
	}
	return near
}
