package model

import (
	"encoding/json"
	"strings"
)

// MarshalJSON flattens the record into {quote, anime, character, matchType}
func (m MatchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(matchJSON{
		Quote:     m.Record.Text,
		Anime:     m.Record.Anime,
		Character: m.Record.Character,
		MatchType: m.MatchType,
	})
}

// UnmarshalJSON reads the flattened form written by MarshalJSON
func (m *MatchResult) UnmarshalJSON(data []byte) error {
	var raw matchJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Record = QuoteRecord{Text: raw.Quote, Anime: raw.Anime, Character: raw.Character}
	m.MatchType = raw.MatchType
	return nil
}

// MarshalJSON keeps "matches" an array even when there are none
func (v Verdict) MarshalJSON() ([]byte, error) {
	type alias Verdict
	out := alias(v)
	if out.Matches == nil {
		out.Matches = []MatchResult{}
	}
	return json.Marshal(out)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
