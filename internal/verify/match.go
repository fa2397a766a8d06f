package verify

import (
	"strings"

	"github.com/ppiankov/animequote/internal/model"
)

const (
	// SimilarityThreshold is the minimum word-set overlap (|A∩B| / |A∪B|) for a similar match
	SimilarityThreshold = 0.5

	// MinSimilarWords is the minimum distinct word count both texts need before overlap is considered
	MinSimilarWords = 3
)

// Match classifies every candidate in pool against query.
//
// Both texts are lower-cased and trimmed; internal whitespace is kept. Each
// candidate gets the first rule it satisfies: exact, then partial (substring in
// either direction), then similar. Candidates matching nothing are dropped,
// as are candidates whose text the upstream left empty (model.UnknownValue).
// Results keep pool order and are not sorted by strength.
func Match(query string, pool []model.QuoteRecord) []model.MatchResult {
	normalizedQuery := normalize(query)
	if normalizedQuery == "" {
		return nil
	}
	queryWords := wordSet(normalizedQuery)

	var matches []model.MatchResult
	for _, record := range pool {
		if record.Text == model.UnknownValue {
			continue
		}
		matchType, ok := classify(normalizedQuery, queryWords, normalize(record.Text))
		if !ok {
			continue
		}
		matches = append(matches, model.MatchResult{Record: record, MatchType: matchType})
	}
	return matches
}

func classify(query string, queryWords map[string]struct{}, candidate string) (model.MatchType, bool) {
	switch {
	case candidate == query:
		return model.MatchExact, true
	case strings.Contains(candidate, query) || strings.Contains(query, candidate):
		return model.MatchPartial, true
	case isSimilar(queryWords, wordSet(candidate)):
		return model.MatchSimilar, true
	default:
		return "", false
	}
}

// isSimilar applies the word-overlap rule. Short texts never qualify.
func isSimilar(a, b map[string]struct{}) bool {
	if len(a) < MinSimilarWords || len(b) < MinSimilarWords {
		return false
	}
	return Overlap(a, b) >= SimilarityThreshold
}

// Overlap returns the Jaccard index of two word sets
func Overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}

	intersection := 0
	for word := range a {
		if _, ok := b[word]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(s)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
