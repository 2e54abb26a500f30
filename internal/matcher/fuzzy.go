// file: internal/matcher/fuzzy.go
// version: 2.0.0
// guid: 2afb5783-05ca-4f58-964e-e5f0bb0c23c2

package matcher

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// FuzzyResult holds a scored search result.
type FuzzyResult struct {
	Index int // index into the original slice
	Score int // 0-100, higher is better
}

// LevenshteinDistance computes the case-insensitive edit distance between two strings.
func LevenshteinDistance(a, b string) int {
	return fuzzy.LevenshteinDistance(fold(a), fold(b))
}

// Ratio returns a normalized similarity score in 0..100.
// Underscores and spaces are treated as the same separator.
// Returns 0 when either side is empty.
func Ratio(a, b string) int {
	fa, fb := fold(a), fold(b)
	if fa == "" || fb == "" {
		return 0
	}
	if fa == fb {
		return 100
	}
	maxLen := max(utf8.RuneCountInString(fa), utf8.RuneCountInString(fb))
	dist := fuzzy.LevenshteinDistance(fa, fb)
	score := int(100 * (1 - float64(dist)/float64(maxLen)))
	return max(0, min(100, score))
}

// RankResults scores each candidate against the query and returns results
// sorted by score descending. Only results with score >= minScore are returned.
func RankResults(query string, candidates []string, minScore int) []FuzzyResult {
	var results []FuzzyResult
	for i, c := range candidates {
		s := Ratio(query, c)
		if s >= minScore {
			results = append(results, FuzzyResult{Index: i, Score: s})
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// BestMatch returns the candidate closest to query, or "" when none reaches minScore.
func BestMatch(query string, candidates []string, minScore int) (string, int) {
	ranked := RankResults(query, candidates, minScore)
	if len(ranked) == 0 {
		return "", 0
	}
	return candidates[ranked[0].Index], ranked[0].Score
}

// NormalizeName lowercases a vendor or product name and joins words with underscores.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), "_")
}

func fold(s string) string {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", " ")
	return folder.String(strings.Join(strings.Fields(s), " "))
}
