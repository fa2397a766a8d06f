// Package verify decides whether a quote is genuine from the candidates the
// quote service returns.
package verify

import "github.com/ppiankov/animequote/internal/model"

// Aggregate merges the character and anime lookups into one candidate pool.
//
// Character results come first in their original order, then anime results.
// A record is appended only if no record already in the pool has the identical
// (case-sensitive, untrimmed) text, so the first occurrence wins. Attribution is
// ignored: the same words credited to two characters are kept once.
func Aggregate(byCharacter, byAnime []model.QuoteRecord) []model.QuoteRecord {
	pool := make([]model.QuoteRecord, 0, len(byCharacter)+len(byAnime))
	seen := make(map[string]struct{}, len(byCharacter)+len(byAnime))

	for _, source := range [][]model.QuoteRecord{byCharacter, byAnime} {
		for _, record := range source {
			if _, dup := seen[record.Text]; dup {
				continue
			}
			pool = append(pool, record)
			seen[record.Text] = struct{}{}
		}
	}

	return pool
}
