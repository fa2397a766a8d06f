package llm

import (
	"context"
	"strings"
	"testing"

	"github.com/ppiankov/animequote/internal/model"
)

// MockProvider implements the Provider interface for testing
type MockProvider struct {
	name      string
	available bool
	response  *CompletionResponse
	err       error
	requests  []CompletionRequest
}

func (m *MockProvider) Name() string {
	return m.name
}

func (m *MockProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *MockProvider) IsAvailable(ctx context.Context) bool {
	return m.available
}

func sampleReport() model.Report {
	return model.Report{
		Request: model.VerifyRequest{Quote: "I'll become the god of this new world", Character: "Light Yagami"},
		Verdict: model.Verdict{
			Verified:   true,
			Confidence: model.ConfidenceHigh,
			Message:    "Quote verified! Found 1 exact match(es).",
			Matches: []model.MatchResult{{
				Record:    model.QuoteRecord{Text: "I'll become the god of this new world", Anime: "Death Note", Character: "Light Yagami"},
				MatchType: model.MatchExact,
			}},
		},
		Evidence: model.EvidenceStats{CharacterHits: 3, PoolSize: 3, TotalMatches: 1},
	}
}

func hasWarning(n *model.Narrative, parts ...string) bool {
	for _, w := range n.Warnings {
		ok := true
		for _, p := range parts {
			if !strings.Contains(w, p) {
				ok = false
			}
		}
		if ok {
			return true
		}
	}
	return false
}

func TestNewReporter_DisabledProvider(t *testing.T) {
	reporter, err := NewReporter(Config{Provider: ""})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if reporter.IsEnabled() {
		t.Error("Expected reporter to be disabled")
	}
	if reporter.ProviderName() != "" {
		t.Error("Expected empty provider name when disabled")
	}
	if n := reporter.Narrate(context.Background(), sampleReport()); n != nil {
		t.Errorf("Expected nil narrative when disabled, got %+v", n)
	}
}

func TestNewReporter_UnknownProvider(t *testing.T) {
	if _, err := NewReporter(Config{Provider: "mystery"}); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestReporter_Narrate_ProviderUnavailable(t *testing.T) {
	reporter := NewReporterWithProvider(&MockProvider{name: "test-provider"}, Config{StrictEvidence: true})

	n := reporter.Narrate(context.Background(), sampleReport())
	if n == nil {
		t.Fatal("Expected narrative with warnings")
	}
	if n.Enabled {
		t.Error("Expected narrative to be marked as disabled")
	}
	if !hasWarning(n, "not available") {
		t.Errorf("Expected warning about availability, got %v", n.Warnings)
	}
}

func TestReporter_Narrate_Success(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		response: &CompletionResponse{
			Text:       `Light Yagami really said "I'll become the god of this new world" in Death Note.`,
			Model:      "test-model",
			TokensUsed: 150,
		},
	}
	reporter := NewReporterWithProvider(provider, Config{Model: "configured", StrictEvidence: true})

	n := reporter.Narrate(context.Background(), sampleReport())
	if n == nil || !n.Enabled {
		t.Fatalf("Expected enabled narrative, got %+v", n)
	}
	if n.Provider != "test-provider" || n.Model != "test-model" {
		t.Errorf("Unexpected provider/model: %s/%s", n.Provider, n.Model)
	}
	if !strings.HasPrefix(n.Text, "Light Yagami") {
		t.Errorf("Unexpected text: %q", n.Text)
	}
	if !hasWarning(n, "Tokens used") || !hasWarning(n, "Verified", "quotations") {
		t.Errorf("Expected token and quotation notes, got %v", n.Warnings)
	}
	if len(provider.requests) != 1 || !strings.Contains(provider.requests[0].Prompt, "Confidence: high") {
		t.Errorf("Expected verdict in prompt, got %+v", provider.requests)
	}
}

func TestReporter_Narrate_RejectsInventedQuotation(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		response:  &CompletionResponse{Text: `He also said "the world is rotten and needs cleansing".`},
	}
	reporter := NewReporterWithProvider(provider, Config{StrictEvidence: true})

	n := reporter.Narrate(context.Background(), sampleReport())
	if n.Text != "" {
		t.Errorf("Expected rejected narrative to have no text, got %q", n.Text)
	}
	if !hasWarning(n, "not present in the evidence") {
		t.Errorf("Expected rejection warning, got %v", n.Warnings)
	}

	lenient := NewReporterWithProvider(provider, Config{StrictEvidence: false})
	if n := lenient.Narrate(context.Background(), sampleReport()); n.Text == "" {
		t.Error("Expected text to be kept without strict evidence mode")
	}
}

func TestReporter_Narrate_ProviderError(t *testing.T) {
	provider := &MockProvider{
		name:      "test-provider",
		available: true,
		err:       &mockError{msg: "API rate limit exceeded"},
	}
	reporter := NewReporterWithProvider(provider, Config{StrictEvidence: true})

	report := sampleReport()
	n := reporter.Narrate(context.Background(), report)
	if n == nil || !n.Enabled {
		t.Fatalf("Expected enabled narrative carrying the failure, got %+v", n)
	}
	if !hasWarning(n, "failed", "rate limit") {
		t.Errorf("Expected warning to mention error: %v", n.Warnings)
	}
	if !report.Verdict.Verified || report.Verdict.Confidence != model.ConfidenceHigh {
		t.Error("Verdict must be untouched by narrative failure")
	}
}

func TestBuildNarrativePrompt(t *testing.T) {
	prompt := BuildNarrativePrompt(sampleReport())

	for _, element := range []string{
		"verdict below is final",
		"Quote: I'll become the god of this new world",
		"Character: Light Yagami",
		"Anime: (not given)",
		"Verified: true",
		"Confidence: high",
		"Candidates examined: 3",
		"[exact]",
		"not ranked",
	} {
		if !strings.Contains(prompt, element) {
			t.Errorf("Expected prompt to contain %q", element)
		}
	}

	empty := BuildNarrativePrompt(model.Report{})
	if !strings.Contains(empty, "(none)") {
		t.Error("Expected placeholder for no matches")
	}
}

func TestFallbackNarrative(t *testing.T) {
	text := FallbackNarrative(sampleReport())
	for _, element := range []string{"Quote verified!", "Light Yagami", "Death Note", "exact match", "Confidence: high"} {
		if !strings.Contains(text, element) {
			t.Errorf("Expected fallback to contain %q, got %q", element, text)
		}
	}

	none := FallbackNarrative(model.Report{Verdict: model.Verdict{Message: "No quotes found for the specified character or anime.", Confidence: model.ConfidenceLow}})
	if none != "No quotes found for the specified character or anime. Confidence: low." {
		t.Errorf("Unexpected fallback: %q", none)
	}
}

func TestRenderNarrativeMarkdown(t *testing.T) {
	if RenderNarrativeMarkdown(nil) != "" {
		t.Error("Expected empty markdown when nil")
	}
	if RenderNarrativeMarkdown(&model.Narrative{Enabled: false}) != "" {
		t.Error("Expected empty markdown when disabled")
	}

	md := RenderNarrativeMarkdown(&model.Narrative{
		Enabled:        true,
		Provider:       "openai",
		Model:          "gpt-4o-mini",
		StrictEvidence: true,
		Text:           "This is the generated narrative.",
		Warnings:       []string{"Tokens used: 150"},
	})
	for _, section := range []string{
		"# Narrative",
		"GENERATED CONTENT",
		"determined independently",
		"openai",
		"gpt-4o-mini",
		"Strict Evidence Mode**: true",
		"This is the generated narrative.",
		"## Notes",
		"Tokens used: 150",
	} {
		if !strings.Contains(md, section) {
			t.Errorf("Expected markdown to contain %q", section)
		}
	}

	empty := RenderNarrativeMarkdown(&model.Narrative{Enabled: true, Provider: "test"})
	if !strings.Contains(empty, "No narrative generated") {
		t.Error("Expected message about no narrative")
	}
}

func TestExtractQuotations(t *testing.T) {
	got := extractQuotations(`He said "short" and then “this is a long enough quotation” plus "another long quotation here".`)
	if len(got) != 2 {
		t.Fatalf("Expected 2 quotations, got %v", got)
	}
	if got[0] != "another long quotation here" || got[1] != "this is a long enough quotation" {
		t.Errorf("Unexpected quotations: %v", got)
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Provider != "" {
		t.Errorf("Expected provider to be empty (disabled), got '%s'", config.Provider)
	}
	if !config.StrictEvidence {
		t.Error("Expected strict evidence to be enabled by default")
	}
	if config.Timeout <= 0 || config.MaxTokens <= 0 {
		t.Error("Expected positive timeout and max tokens")
	}
}

// Mock error type for testing
type mockError struct {
	msg string
}

func (e *mockError) Error() string {
	return e.msg
}
