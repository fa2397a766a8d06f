package model

// UnknownValue is substituted for any quote field the upstream API leaves unresolved
const UnknownValue = "Unknown"

// QuoteRecord is one attributed quotation as normalized from an upstream payload.
// All three fields are non-empty; unresolvable values hold UnknownValue.
type QuoteRecord struct {
	Text      string `json:"quote"`
	Anime     string `json:"anime"`
	Character string `json:"character"`
}

// MatchType classifies how a candidate quote relates to the quote being verified
type MatchType string

const (
	MatchExact   MatchType = "exact"   // Normalized texts are equal
	MatchPartial MatchType = "partial" // One normalized text contains the other
	MatchSimilar MatchType = "similar" // Word sets overlap enough
)

// MatchResult pairs a candidate with the rule it satisfied.
// MatchType is empty when the record was returned without matching (criteria-only lookups).
type MatchResult struct {
	Record    QuoteRecord
	MatchType MatchType
}

// matchJSON is the flattened wire form of a MatchResult
type matchJSON struct {
	Quote     string    `json:"quote"`
	Anime     string    `json:"anime"`
	Character string    `json:"character"`
	MatchType MatchType `json:"matchType,omitempty"`
}

// Confidence is the three-level confidence attached to a verdict
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Verdict is the terminal artifact of one verification.
//
// Matches holds at most five entries and they are in discovery order, i.e. the
// order the candidates were returned upstream (character lookup first, then
// anime lookup). They are NOT sorted by match strength; filter on MatchType
// when the strongest matches are needed.
type Verdict struct {
	Verified   bool          `json:"verified"`
	Confidence Confidence    `json:"confidence"`
	Matches    []MatchResult `json:"matches"`
	Message    string        `json:"message"`
}

// VerifyRequest is the inbound verification request.
// APIKey is forwarded to the quote service when present and never serialized back.
type VerifyRequest struct {
	Quote     string `json:"quote"`
	Character string `json:"character,omitempty"`
	Anime     string `json:"anime,omitempty"`
	APIKey    string `json:"apiKey,omitempty"`
}

// IsEmpty reports whether the request carries nothing to verify
func (r VerifyRequest) IsEmpty() bool {
	return isBlank(r.Quote) && isBlank(r.Character) && isBlank(r.Anime)
}

// Redacted returns a copy without the API key, suitable for reports and logs
func (r VerifyRequest) Redacted() VerifyRequest {
	r.APIKey = ""
	return r
}
