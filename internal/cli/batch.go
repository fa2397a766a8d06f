package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/animequote/internal/worker"
)

var (
	concurrency  int
	outputPath   string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file.jsonl>",
	Short: "Verify many quotes from a JSON Lines file in parallel",
	Long: `Batch verifies one request per line concurrently:
- Each line is a JSON object: {"quote": "...", "character": "...", "anime": "..."}
- Blank lines and lines starting with # are skipped
- Results are written as JSON Lines in input order, one per request
- A bad line produces an error result; the rest of the batch still runs

Example:
  animequote batch quotes.jsonl
  animequote batch quotes.jsonl --concurrency 8 --output results.jsonl
  animequote batch quotes.jsonl --timeout 5m --no-llm`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	// Concurrency flags
	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default: concurrency.workers)")
	batchCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output JSON Lines path (default: stdout)")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	addLLMFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) (err error) {
	file := args[0]

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	workers := cfg.Concurrency.Workers
	if cmd.Flags().Changed("concurrency") {
		workers = concurrency
	}
	if workers < 1 {
		workers = 1
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  animequote Batch Verification\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(os.Stderr, "  Output:       %s\n", orStdout(outputPath))
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	if a.reporter.IsEnabled() {
		fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", a.reporter.ProviderName(), cfg.LLM.Model)
	}
	fmt.Fprintf(os.Stderr, "\n")

	processor := worker.NewBatchProcessor(a.pipeline, workers)

	fmt.Fprintf(os.Stderr, "⚙️  Verifying requests with %d workers...\n", workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	var out io.Writer = cmd.OutOrStdout()
	if outputPath != "" {
		if dir := filepath.Dir(outputPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output directory: %w", err)
			}
		}
		f, createErr := os.Create(outputPath)
		if createErr != nil {
			return fmt.Errorf("create output file: %w", createErr)
		}
		defer func() {
			if closeErr := f.Close(); closeErr != nil && err == nil {
				err = fmt.Errorf("close output file: %w", closeErr)
			}
		}()
		out = f
	}

	if err := worker.WriteResults(out, results); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	verified, unverified, failures := 0, 0, 0
	for _, result := range results {
		switch {
		case result.Error != nil:
			failures++
			fmt.Fprintf(os.Stderr, "✗ line %d: %v\n", result.Line, result.Error)
		case result.Report.Verdict.Verified:
			verified++
		default:
			unverified++
		}
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:       %d requests\n", len(results))
	fmt.Fprintf(os.Stderr, "  Verified:    %d\n", verified)
	fmt.Fprintf(os.Stderr, "  Unverified:  %d\n", unverified)
	fmt.Fprintf(os.Stderr, "  Failures:    %d\n", failures)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

func orStdout(path string) string {
	if path == "" {
		return "stdout"
	}
	return path
}
