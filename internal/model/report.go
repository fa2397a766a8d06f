package model

import "time"

// Report is the complete result of one verification run
type Report struct {
	Request   VerifyRequest `json:"request"`    // Redacted request that was verified
	Verdict   Verdict       `json:"verdict"`    // Deterministic verdict (never changed by the narrative)
	CheckedAt time.Time     `json:"checked_at"` // When the verification ran
	Evidence  EvidenceStats `json:"evidence"`   // How much upstream material was examined

	Narrative *Narrative `json:"narrative,omitempty"` // Optional model-written prose (separate, never affects verdict)
}

// EvidenceStats counts the candidate quotes gathered for a verification
type EvidenceStats struct {
	CharacterHits int `json:"character_hits"` // Records returned by the character lookup
	AnimeHits     int `json:"anime_hits"`     // Records returned by the anime lookup
	PoolSize      int `json:"pool_size"`      // Candidates after deduplication
	TotalMatches  int `json:"total_matches"`  // Matches before the display cap
}

// Narrative contains optional model-generated prose about a verdict
type Narrative struct {
	Enabled        bool     `json:"enabled"`
	Provider       string   `json:"provider,omitempty"` // openai, anthropic, ollama
	Model          string   `json:"model,omitempty"`
	StrictEvidence bool     `json:"strict_evidence"` // Prose may only quote text present in the verdict
	Text           string   `json:"text,omitempty"`
	Warnings       []string `json:"warnings,omitempty"` // Why prose is missing or degraded
}

// Subject returns a short human-readable label for the report
func (r *Report) Subject() string {
	switch {
	case !isBlank(r.Request.Quote):
		return r.Request.Quote
	case !isBlank(r.Request.Character) && !isBlank(r.Request.Anime):
		return r.Request.Character + " (" + r.Request.Anime + ")"
	case !isBlank(r.Request.Character):
		return r.Request.Character
	default:
		return r.Request.Anime
	}
}
