package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/animequote/internal/llm"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/model"
	"github.com/ppiankov/animequote/internal/quotes"
)

var lightQuote = model.QuoteRecord{Text: "I'll become the god of this new world", Anime: "Death Note", Character: "Light Yagami"}

type stubSource struct {
	records []model.QuoteRecord
	keys    []string
}

func (s *stubSource) ByCharacter(ctx context.Context, name string, opts quotes.LookupOptions) ([]model.QuoteRecord, error) {
	s.keys = append(s.keys, opts.APIKey)
	return s.records, nil
}

func (s *stubSource) ByAnime(ctx context.Context, title string, opts quotes.LookupOptions) ([]model.QuoteRecord, error) {
	return nil, quotes.ErrUpstream
}

type stubProvider struct {
	text string
	err  error
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return true }

func (p *stubProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.text, Model: "stub-model", TokensUsed: 42}, nil
}

func fixedNow(t *testing.T) time.Time {
	t.Helper()
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	orig := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = orig })
	return at
}

func TestPipeline_Verify_BuildsReport(t *testing.T) {
	at := fixedNow(t)
	source := &stubSource{records: []model.QuoteRecord{lightQuote}}
	p := NewPipeline(model.DefaultConfig(), source, nil, logging.Nop())

	report := p.Verify(context.Background(), model.VerifyRequest{
		Quote:     "i'll become the god of this new world",
		Character: "Light Yagami",
		Anime:     "Death Note",
		APIKey:    "secret",
	})

	want := &model.Report{
		Request:   model.VerifyRequest{Quote: "i'll become the god of this new world", Character: "Light Yagami", Anime: "Death Note"},
		CheckedAt: at,
		Verdict: model.Verdict{
			Verified:   true,
			Confidence: model.ConfidenceHigh,
			Message:    "Quote verified! Found 1 exact match(es).",
			Matches:    []model.MatchResult{{Record: lightQuote, MatchType: model.MatchExact}},
		},
		Evidence: model.EvidenceStats{CharacterHits: 1, AnimeHits: 0, PoolSize: 1, TotalMatches: 1},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}
	if len(source.keys) != 1 || source.keys[0] != "secret" {
		t.Errorf("expected API key forwarded to the source, got %v", source.keys)
	}
}

func TestPipeline_Verify_NarrativeAfterVerdict(t *testing.T) {
	fixedNow(t)
	source := &stubSource{records: []model.QuoteRecord{lightQuote}}
	reporter := llm.NewReporterWithProvider(&stubProvider{text: "Light Yagami said it in Death Note."}, llm.Config{StrictEvidence: true})
	p := NewPipeline(model.DefaultConfig(), source, reporter, logging.Nop())

	report := p.Verify(context.Background(), model.VerifyRequest{Quote: lightQuote.Text, Character: "Light Yagami"})

	if report.Narrative == nil || report.Narrative.Text != "Light Yagami said it in Death Note." {
		t.Fatalf("expected narrative text, got %+v", report.Narrative)
	}
	if !report.Verdict.Verified || report.Verdict.Confidence != model.ConfidenceHigh {
		t.Errorf("verdict changed: %+v", report.Verdict)
	}
}

func TestPipeline_Verify_NarrativeFailureKeepsVerdict(t *testing.T) {
	fixedNow(t)
	source := &stubSource{records: []model.QuoteRecord{lightQuote}}
	reporter := llm.NewReporterWithProvider(&stubProvider{err: errors.New("model offline")}, llm.Config{StrictEvidence: true})
	p := NewPipeline(model.DefaultConfig(), source, reporter, logging.Nop())

	report := p.Verify(context.Background(), model.VerifyRequest{Quote: lightQuote.Text, Character: "Light Yagami"})

	if report.Narrative == nil || report.Narrative.Text != "" {
		t.Fatalf("expected narrative without text, got %+v", report.Narrative)
	}
	found := false
	for _, w := range report.Narrative.Warnings {
		if strings.Contains(w, "model offline") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected failure warning, got %v", report.Narrative.Warnings)
	}
	if !report.Verdict.Verified || report.Verdict.Message != "Quote verified! Found 1 exact match(es)." {
		t.Errorf("verdict changed: %+v", report.Verdict)
	}
}

func TestPipeline_Verify_EmptyRequest(t *testing.T) {
	fixedNow(t)
	p := NewPipeline(nil, &stubSource{}, nil, nil)

	report := p.Verify(context.Background(), model.VerifyRequest{Quote: "  "})
	if report.Verdict.Verified || report.Verdict.Confidence != model.ConfidenceLow {
		t.Errorf("unexpected verdict for empty request: %+v", report.Verdict)
	}
	if report.Narrative != nil {
		t.Error("expected no narrative without a reporter")
	}
}

func TestPipeline_RenderReport(t *testing.T) {
	fixedNow(t)
	dir := t.TempDir()
	source := &stubSource{records: []model.QuoteRecord{lightQuote}}
	reporter := llm.NewReporterWithProvider(&stubProvider{text: "A verified line."}, llm.Config{StrictEvidence: true})
	p := NewPipeline(model.DefaultConfig(), source, reporter, logging.Nop())
	report := p.Verify(context.Background(), model.VerifyRequest{Quote: lightQuote.Text, Character: "Light Yagami", APIKey: "secret"})

	jsonPath := filepath.Join(dir, "out", "report.json")
	mdPath := filepath.Join(dir, "report.md")
	var stdout bytes.Buffer
	if err := p.RenderReport(&stdout, report, jsonPath, mdPath); err != nil {
		t.Fatalf("RenderReport: %v", err)
	}

	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatalf("read JSON: %v", err)
	}
	if bytes.Contains(data, []byte("secret")) {
		t.Error("API key leaked into the JSON report")
	}
	var decoded struct {
		Verdict struct {
			Verified bool `json:"verified"`
			Matches  []struct {
				Quote     string `json:"quote"`
				MatchType string `json:"matchType"`
			} `json:"matches"`
		} `json:"verdict"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if !decoded.Verdict.Verified || len(decoded.Verdict.Matches) != 1 || decoded.Verdict.Matches[0].MatchType != "exact" {
		t.Errorf("unexpected JSON verdict: %+v", decoded.Verdict)
	}

	md, err := os.ReadFile(mdPath)
	if err != nil {
		t.Fatalf("read Markdown: %v", err)
	}
	for _, section := range []string{"# Quote Verification", "## Verdict", "**Confidence**: high", "| 1 | I'll become the god of this new world | Light Yagami | Death Note | exact |", "## Evidence", "Generated by animequote"} {
		if !strings.Contains(string(md), section) {
			t.Errorf("expected Markdown to contain %q", section)
		}
	}

	narrative, err := os.ReadFile(filepath.Join(dir, "report.narrative.md"))
	if err != nil {
		t.Fatalf("read narrative: %v", err)
	}
	if !strings.Contains(string(narrative), "A verified line.") {
		t.Errorf("unexpected narrative file: %s", narrative)
	}

	summary := stdout.String()
	for _, element := range []string{"✓ Quote verified!", "Confidence: high", `1. "I'll become the god of this new world" - Light Yagami (Death Note) [exact]`, "A verified line."} {
		if !strings.Contains(summary, element) {
			t.Errorf("expected summary to contain %q, got:\n%s", element, summary)
		}
	}
}

func TestRenderer_Markdown_NoMatchesNoFooter(t *testing.T) {
	r := NewRenderer(false)
	md := r.Markdown(&model.Report{
		Request: model.VerifyRequest{Character: "Nobody"},
		Verdict: model.Verdict{Confidence: model.ConfidenceLow, Message: "No quotes found for the specified character or anime."},
	})

	if !strings.Contains(md, "_No matches._") || !strings.Contains(md, "**Quote**: -") {
		t.Errorf("unexpected Markdown:\n%s", md)
	}
	if strings.Contains(md, "Generated by animequote") {
		t.Error("expected no footer")
	}
}

func TestRenderer_SummaryFailure(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(true).RenderSummary(&buf, &model.Report{
		Request: model.VerifyRequest{Quote: "made up"},
		Verdict: model.Verdict{Confidence: model.ConfidenceMedium, Message: "Quote not found in the database."},
	})
	if !strings.HasPrefix(buf.String(), "✗ Quote not found") || !strings.Contains(buf.String(), "Subject:    made up") {
		t.Errorf("unexpected summary: %q", buf.String())
	}
}

func TestNarrativePath(t *testing.T) {
	if got := NarrativePath("out/report.md"); got != "out/report.narrative.md" {
		t.Errorf("got %q", got)
	}
	if got := NarrativePath("report"); got != "report.narrative.md" {
		t.Errorf("got %q", got)
	}
}
