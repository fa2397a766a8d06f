package verify

import (
	"fmt"

	"github.com/ppiankov/animequote/internal/model"
)

// MaxMatches is how many matches a verdict carries
const MaxMatches = 5

const notFoundMessage = "Quote not found in the database. It may not exist, or the character/anime name might be slightly different."

// DedupeMatches removes matches whose quote text repeats, keeping the last
// occurrence's value at the first occurrence's position.
// Match over an aggregated pool never repeats a text, so this only changes
// lists built by combining the results of several Match calls.
func DedupeMatches(matches []model.MatchResult) []model.MatchResult {
	if len(matches) == 0 {
		return matches
	}

	index := make(map[string]int, len(matches))
	out := make([]model.MatchResult, 0, len(matches))
	for _, m := range matches {
		if i, ok := index[m.Record.Text]; ok {
			out[i] = m
			continue
		}
		index[m.Record.Text] = len(out)
		out = append(out, m)
	}
	return out
}

// Compose reduces the full match list to a verdict. poolSize is the number of
// candidates the matches were drawn from.
func Compose(matches []model.MatchResult, poolSize int) model.Verdict {
	var exact, partial int
	for _, m := range matches {
		switch m.MatchType {
		case model.MatchExact:
			exact++
		case model.MatchPartial:
			partial++
		}
	}

	switch {
	case exact > 0:
		return model.Verdict{
			Verified:   true,
			Confidence: model.ConfidenceHigh,
			Matches:    capMatches(matches),
			Message:    fmt.Sprintf("Quote verified! Found %d exact match(es).", exact),
		}
	case partial > 0:
		return model.Verdict{
			Verified:   true,
			Confidence: model.ConfidenceMedium,
			Matches:    capMatches(matches),
			Message:    fmt.Sprintf("Quote likely verified with %d partial match(es). The quote may have slight variations.", partial),
		}
	case len(matches) > 0:
		return model.Verdict{
			Verified:   true,
			Confidence: model.ConfidenceLow,
			Matches:    capMatches(matches),
			Message:    fmt.Sprintf("Found %d similar quote(s), but not an exact match.", len(matches)),
		}
	case poolSize > 0:
		return model.Verdict{Confidence: model.ConfidenceHigh, Matches: []model.MatchResult{}, Message: notFoundMessage}
	default:
		return model.Verdict{Confidence: model.ConfidenceMedium, Matches: []model.MatchResult{}, Message: notFoundMessage}
	}
}

// ComposeCriteria builds the verdict for a lookup without quote text: the
// candidates themselves are the evidence.
func ComposeCriteria(pool []model.QuoteRecord) model.Verdict {
	if len(pool) == 0 {
		return model.Verdict{
			Confidence: model.ConfidenceLow,
			Matches:    []model.MatchResult{},
			Message:    "No quotes found for the specified character or anime.",
		}
	}

	matches := make([]model.MatchResult, 0, min(len(pool), MaxMatches))
	for _, record := range pool[:min(len(pool), MaxMatches)] {
		matches = append(matches, model.MatchResult{Record: record})
	}

	return model.Verdict{
		Verified:   true,
		Confidence: model.ConfidenceMedium,
		Matches:    matches,
		Message:    fmt.Sprintf("Found %d quote(s) for the specified criteria.", len(pool)),
	}
}

// EmptyRequest is the verdict for a request with nothing to verify
func EmptyRequest() model.Verdict {
	return model.Verdict{
		Confidence: model.ConfidenceLow,
		Matches:    []model.MatchResult{},
		Message:    "Cannot verify: please provide at least one of a quote, a character, or an anime.",
	}
}

// ErrorVerdict is the lowest-confidence verdict for a verification that could not complete
func ErrorVerdict(err error) model.Verdict {
	return model.Verdict{
		Confidence: model.ConfidenceLow,
		Matches:    []model.MatchResult{},
		Message:    fmt.Sprintf("Error during verification: %v", err),
	}
}

// capMatches keeps the first MaxMatches entries in discovery order
func capMatches(matches []model.MatchResult) []model.MatchResult {
	if len(matches) <= MaxMatches {
		return matches
	}
	capped := make([]model.MatchResult, MaxMatches)
	copy(capped, matches[:MaxMatches])
	return capped
}
