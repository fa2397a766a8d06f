package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/animequote/internal/llm"
	"github.com/ppiankov/animequote/internal/model"
)

// Renderer writes reports as JSON, Markdown and terminal summaries
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the report as indented JSON
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return writeFile(path, append(data, '\n'))
}

// RenderMarkdown writes the report as a Markdown document
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	return writeFile(path, []byte(r.Markdown(report)))
}

// RenderNarrative writes the narrative as its own Markdown document
func (r *Renderer) RenderNarrative(narrative *model.Narrative, path string) error {
	md := llm.RenderNarrativeMarkdown(narrative)
	if md == "" {
		return nil
	}
	return writeFile(path, []byte(md))
}

// Markdown renders the deterministic part of a report
func (r *Renderer) Markdown(report *model.Report) string {
	var b strings.Builder
	v := report.Verdict

	b.WriteString("# Quote Verification\n\n")
	fmt.Fprintf(&b, "- **Quote**: %s\n", orDash(report.Request.Quote))
	fmt.Fprintf(&b, "- **Character**: %s\n", orDash(report.Request.Character))
	fmt.Fprintf(&b, "- **Anime**: %s\n", orDash(report.Request.Anime))
	fmt.Fprintf(&b, "- **Checked**: %s\n\n", report.CheckedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("## Verdict\n\n")
	fmt.Fprintf(&b, "- **Verified**: %s\n", yesNo(v.Verified))
	fmt.Fprintf(&b, "- **Confidence**: %s\n", v.Confidence)
	fmt.Fprintf(&b, "- **Message**: %s\n\n", v.Message)

	b.WriteString("## Matches\n\n")
	if len(v.Matches) == 0 {
		b.WriteString("_No matches._\n\n")
	} else {
		b.WriteString("Listed in the order they were found, not by strength.\n\n")
		b.WriteString("| # | Quote | Character | Anime | Match |\n")
		b.WriteString("|---|---|---|---|---|\n")
		for i, m := range v.Matches {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
				i+1, cell(m.Record.Text), cell(m.Record.Character), cell(m.Record.Anime), orDash(string(m.MatchType)))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Evidence\n\n")
	fmt.Fprintf(&b, "- Character lookup: %d record(s)\n", report.Evidence.CharacterHits)
	fmt.Fprintf(&b, "- Anime lookup: %d record(s)\n", report.Evidence.AnimeHits)
	fmt.Fprintf(&b, "- Candidates after deduplication: %d\n", report.Evidence.PoolSize)
	fmt.Fprintf(&b, "- Matches before the display limit: %d\n", report.Evidence.TotalMatches)

	if r.includeFooter {
		b.WriteString("\n---\n\n")
		b.WriteString("_Generated by animequote. Matching is lexical; a missing quote may still exist under a different spelling._\n")
	}

	return b.String()
}

// RenderSummary prints a short human-readable summary to w
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	v := report.Verdict
	mark := "✗"
	if v.Verified {
		mark = "✓"
	}

	fmt.Fprintf(w, "%s %s\n", mark, v.Message)
	fmt.Fprintf(w, "  Subject:    %s\n", report.Subject())
	fmt.Fprintf(w, "  Confidence: %s\n", v.Confidence)
	fmt.Fprintf(w, "  Candidates: %d (character %d, anime %d)\n",
		report.Evidence.PoolSize, report.Evidence.CharacterHits, report.Evidence.AnimeHits)

	for i, m := range v.Matches {
		kind := ""
		if m.MatchType != "" {
			kind = " [" + string(m.MatchType) + "]"
		}
		fmt.Fprintf(w, "  %d. %q - %s (%s)%s\n", i+1, m.Record.Text, m.Record.Character, m.Record.Anime, kind)
	}

	if n := report.Narrative; n != nil {
		if n.Text != "" {
			fmt.Fprintf(w, "\n%s\n", n.Text)
		}
		for _, warning := range n.Warnings {
			fmt.Fprintf(w, "  note: %s\n", warning)
		}
	}
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
