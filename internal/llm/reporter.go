package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/model"
)

const narrativeSystemPrompt = "You explain anime quote verification results. The verdict is final; you describe it, you never revise it."

// Reporter turns a finished verification report into prose.
// The verdict is fixed before the Reporter runs and is never altered by it.
type Reporter struct {
	provider Provider
	config   Config
	logger   *zap.Logger
}

// NewReporter creates a reporter for the configured provider.
// An empty provider yields a disabled reporter.
func NewReporter(config Config) (*Reporter, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}
	return NewReporterWithProvider(provider, config), nil
}

// NewReporterWithProvider wraps an existing provider (nil disables the reporter)
func NewReporterWithProvider(provider Provider, config Config) *Reporter {
	return &Reporter{
		provider: provider,
		config:   config,
		logger:   logging.Component(config.Logger, "llm.reporter"),
	}
}

// IsEnabled reports whether a provider is configured
func (r *Reporter) IsEnabled() bool {
	return r != nil && r.provider != nil
}

// ProviderName returns the configured provider name, or "" when disabled
func (r *Reporter) ProviderName() string {
	if !r.IsEnabled() {
		return ""
	}
	return r.provider.Name()
}

// Provider returns the underlying provider (nil when disabled)
func (r *Reporter) Provider() Provider {
	if r == nil {
		return nil
	}
	return r.provider
}

// Narrate writes prose for report. It returns nil when disabled. Provider
// problems are reported as warnings on the narrative, never as errors.
func (r *Reporter) Narrate(ctx context.Context, report model.Report) *model.Narrative {
	if !r.IsEnabled() {
		return nil
	}

	narrative := &model.Narrative{
		Enabled:        true,
		Provider:       r.provider.Name(),
		Model:          r.config.Model,
		StrictEvidence: r.config.StrictEvidence,
	}

	if !r.provider.IsAvailable(ctx) {
		narrative.Enabled = false
		narrative.Warnings = append(narrative.Warnings,
			fmt.Sprintf("Provider %s is not available (check API key or connectivity)", r.provider.Name()))
		return narrative
	}

	resp, err := r.provider.Complete(ctx, CompletionRequest{
		System:    narrativeSystemPrompt,
		Prompt:    BuildNarrativePrompt(report),
		MaxTokens: r.config.MaxTokens,
	})
	if err != nil {
		r.logger.Warn("narrative generation failed", zap.Error(err))
		narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Narrative generation failed: %v", err))
		return narrative
	}

	if resp.Model != "" {
		narrative.Model = resp.Model
	}
	narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Tokens used: %d", resp.TokensUsed))

	quoted := extractQuotations(resp.Text)
	if r.config.StrictEvidence {
		allowed := evidenceTexts(report)
		for _, q := range quoted {
			if !containsQuotation(allowed, q) {
				narrative.Warnings = append(narrative.Warnings,
					fmt.Sprintf("Narrative rejected: it quotes text not present in the evidence: %q", q))
				return narrative
			}
		}
	}

	narrative.Text = resp.Text
	if len(quoted) > 0 {
		narrative.Warnings = append(narrative.Warnings, fmt.Sprintf("Verified %d quotations against the evidence", len(quoted)))
	}
	return narrative
}

// BuildNarrativePrompt constructs the prompt describing a finished verification
func BuildNarrativePrompt(report model.Report) string {
	var b strings.Builder
	v := report.Verdict

	fmt.Fprintf(&b, `Explain this anime quote verification result to the user.

RULES:
1. The verdict below is final. Do not contradict it or change its confidence.
2. Only put text in double quotes if it appears verbatim in the request or the matches below.
3. If no matches were found, say so and suggest checking the character or anime spelling.
4. Keep it to 2-4 sentences.

Request:
- Quote: %s
- Character: %s
- Anime: %s

Verdict:
- Verified: %t
- Confidence: %s
- Message: %s
- Candidates examined: %d (character lookup %d, anime lookup %d)

Matches (in the order they were found, not ranked):
`, orNone(report.Request.Quote), orNone(report.Request.Character), orNone(report.Request.Anime),
		v.Verified, v.Confidence, v.Message,
		report.Evidence.PoolSize, report.Evidence.CharacterHits, report.Evidence.AnimeHits)

	if len(v.Matches) == 0 {
		b.WriteString("(none)\n")
	}
	for i, m := range v.Matches {
		kind := string(m.MatchType)
		if kind == "" {
			kind = "candidate"
		}
		fmt.Fprintf(&b, "%d. [%s] %q by %s (%s)\n", i+1, kind, m.Record.Text, m.Record.Character, m.Record.Anime)
	}

	return b.String()
}

// FallbackNarrative describes a report without a model
func FallbackNarrative(report model.Report) string {
	v := report.Verdict
	var b strings.Builder
	b.WriteString(v.Message)

	if len(v.Matches) > 0 {
		top := v.Matches[0]
		fmt.Fprintf(&b, " The first match is %q, said by %s in %s", top.Record.Text, top.Record.Character, top.Record.Anime)
		if top.MatchType != "" {
			fmt.Fprintf(&b, " (%s match)", top.MatchType)
		}
		b.WriteString(".")
	}

	fmt.Fprintf(&b, " Confidence: %s.", v.Confidence)
	return b.String()
}

// RenderNarrativeMarkdown renders a narrative as its own Markdown document,
// kept apart from the deterministic report
func RenderNarrativeMarkdown(narrative *model.Narrative) string {
	if narrative == nil || !narrative.Enabled {
		return ""
	}

	var b strings.Builder
	b.WriteString("# Narrative\n\n")
	b.WriteString("> **GENERATED CONTENT**: written by a language model from the verdict below it in the report.\n")
	b.WriteString("> The verdict and confidence were determined independently and are not affected by this text.\n\n")
	fmt.Fprintf(&b, "- **Provider**: %s\n", narrative.Provider)
	if narrative.Model != "" {
		fmt.Fprintf(&b, "- **Model**: %s\n", narrative.Model)
	}
	fmt.Fprintf(&b, "- **Strict Evidence Mode**: %t\n\n", narrative.StrictEvidence)

	if narrative.Text == "" {
		b.WriteString("_No narrative generated._\n")
	} else {
		b.WriteString(narrative.Text)
		b.WriteString("\n")
	}

	if len(narrative.Warnings) > 0 {
		b.WriteString("\n## Notes\n\n")
		for _, w := range narrative.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return b.String()
}

var curlyQuotation = regexp.MustCompile(`“([^”]+)”`)

const minQuotationLength = 12

// extractQuotations returns the quoted spans long enough to be quotations
func extractQuotations(text string) []string {
	var out []string
	add := func(q string) {
		q = strings.TrimSpace(q)
		if len(q) >= minQuotationLength {
			out = append(out, q)
		}
	}

	// Straight quotes pair up in order; a trailing unmatched quote is ignored
	parts := strings.Split(text, `"`)
	for i := 1; i < len(parts)-1; i += 2 {
		add(parts[i])
	}
	for _, m := range curlyQuotation.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	return out
}

func evidenceTexts(report model.Report) []string {
	texts := []string{strings.ToLower(report.Request.Quote)}
	for _, m := range report.Verdict.Matches {
		texts = append(texts, strings.ToLower(m.Record.Text))
	}
	return texts
}

func containsQuotation(allowed []string, quotation string) bool {
	q := strings.ToLower(strings.Trim(quotation, " .,!?"))
	for _, text := range allowed {
		if text != "" && strings.Contains(text, q) {
			return true
		}
	}
	return false
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "(not given)"
	}
	return s
}
