// Package pipeline wraps a verification into a report and renders it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/animequote/internal/llm"
	"github.com/ppiankov/animequote/internal/logging"
	"github.com/ppiankov/animequote/internal/model"
	"github.com/ppiankov/animequote/internal/verify"
)

// nowFunc stamps reports (injectable for tests)
var nowFunc = func() time.Time { return time.Now().UTC() }

// Pipeline orchestrates one verification: verdict first, prose second
type Pipeline struct {
	verifier *verify.Verifier
	reporter *llm.Reporter // Optional (nil or disabled means no narrative)
	renderer *Renderer
	config   *model.Config
	logger   *zap.Logger
}

// NewPipeline creates a pipeline over source. reporter may be nil.
func NewPipeline(cfg *model.Config, source verify.Source, reporter *llm.Reporter, logger *zap.Logger) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}
	return &Pipeline{
		verifier: verify.NewVerifier(source, logger),
		reporter: reporter,
		renderer: NewRenderer(cfg.Output.IncludeFooter),
		config:   cfg,
		logger:   logging.Component(logger, "pipeline"),
	}
}

// Verify runs one verification and returns its report. It never fails: lookup
// problems are expressed in the verdict, narrative problems as warnings.
func (p *Pipeline) Verify(ctx context.Context, req model.VerifyRequest) *model.Report {
	started := nowFunc()
	outcome := p.verifier.Verify(ctx, req)

	report := &model.Report{
		Request:   req.Redacted(),
		Verdict:   outcome.Verdict,
		CheckedAt: started,
		Evidence: model.EvidenceStats{
			CharacterHits: outcome.CharacterHits,
			AnimeHits:     outcome.AnimeHits,
			PoolSize:      outcome.PoolSize,
			TotalMatches:  outcome.TotalMatches,
		},
	}

	p.logger.Debug("verification finished",
		zap.Bool("verified", report.Verdict.Verified),
		zap.String("confidence", string(report.Verdict.Confidence)),
		zap.Int("pool_size", report.Evidence.PoolSize),
		zap.Int("matches", len(report.Verdict.Matches)))

	// Narrative runs after the verdict is fixed and never changes it
	if p.reporter.IsEnabled() {
		report.Narrative = p.reporter.Narrate(ctx, *report)
	}

	return report
}

// RenderReport writes the report to the requested outputs and prints a summary to w
func (p *Pipeline) RenderReport(w io.Writer, report *model.Report, jsonPath, mdPath string) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		p.logger.Info("wrote JSON report", zap.String("path", jsonPath))
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		p.logger.Info("wrote Markdown report", zap.String("path", mdPath))
	}

	// Narrative goes to its own file next to the Markdown report
	if report.Narrative != nil && report.Narrative.Enabled && mdPath != "" {
		narrativePath := NarrativePath(mdPath)
		if err := p.renderer.RenderNarrative(report.Narrative, narrativePath); err != nil {
			p.logger.Warn("failed to write narrative", zap.String("path", narrativePath), zap.Error(err))
		} else {
			p.logger.Info("wrote narrative", zap.String("path", narrativePath))
		}
	}

	p.renderer.RenderSummary(w, report)
	return nil
}

// NarrativePath derives the narrative file name from a Markdown report path
func NarrativePath(mdPath string) string {
	return strings.TrimSuffix(mdPath, ".md") + ".narrative.md"
}
