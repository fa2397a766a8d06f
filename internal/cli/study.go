package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ppiankov/animequote/internal/agent"
	"github.com/ppiankov/animequote/internal/study"
)

var (
	studyTitle     string
	flashcardCount int
	planDays       int
)

// studyCmd represents the study command
var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Study documents with the help of a language model",
	Long: `Ingest PDF, HTML or text documents and study them.

Ingesting and listing work without a language model. Summaries, flashcards,
study plans and questions need one (see --llm-provider or llm.provider).

Example:
  animequote study ingest notes.pdf
  animequote study ingest https://example.com/guide.html
  animequote study list
  animequote study flashcards <id> --count 5
  animequote study ask <id> "Who wrote the Death Note rules?"`,
}

var studyIngestCmd = &cobra.Command{
	Use:   "ingest <file|url>",
	Short: "Add a document from a file or URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		if isURL(source) {
			return runSkill(cmd, true, "study_ingest", agent.Params{"url": source})
		}

		data, err := os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("read %s: %w", source, err)
		}
		return withStudy(cmd, func(a *app) error {
			doc, created, err := a.study.Ingest(cmd.Context(), study.IngestRequest{
				Name:  filepath.Base(source),
				Title: studyTitle,
				Data:  data,
			})
			if err != nil {
				return err
			}
			verb := "Ingested"
			if !created {
				verb = "Already ingested"
			}
			doc.Text = ""
			return printResult(cmd.OutOrStdout(), &agent.Result{
				Skill: "study_ingest",
				Text:  fmt.Sprintf("%s %q (%d words). Document ID: %s", verb, doc.Title, doc.WordCount, doc.ID),
				Data:  doc,
			})
		})
	},
}

var studyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStudy(cmd, func(a *app) error {
			docs, err := a.study.Documents(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printResult(cmd.OutOrStdout(), &agent.Result{Data: docs})
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents ingested yet.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTITLE\tTYPE\tWORDS\tADDED")
			for _, d := range docs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", d.ID, d.Title, d.ContentType, d.WordCount, d.CreatedAt.Format("2006-01-02 15:04"))
			}
			return tw.Flush()
		})
	},
}

var studyRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Delete an ingested document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStudy(cmd, func(a *app) error {
			if err := a.store.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed document %s\n", args[0])
			return nil
		})
	},
}

var studySummaryCmd = &cobra.Command{
	Use:   "summary <id>",
	Short: "Summarize a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, true, "study_summary", agent.Params{"document_id": args[0]})
	},
}

var studyFlashcardsCmd = &cobra.Command{
	Use:   "flashcards <id>",
	Short: "Generate flashcards for a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, true, "study_flashcards", agent.Params{"document_id": args[0], "count": flashcardCount})
	},
}

var studyPlanCmd = &cobra.Command{
	Use:   "plan <id>",
	Short: "Generate a day-by-day study plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, true, "study_plan", agent.Params{"document_id": args[0], "days": planDays})
	},
}

var studyAskCmd = &cobra.Command{
	Use:   "ask <id> <question>",
	Short: "Ask a question about a document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, true, "study_ask", agent.Params{
			"document_id": args[0],
			"question":    strings.Join(args[1:], " "),
		})
	},
}

// withStudy opens storage and runs fn with the study service ready
func withStudy(cmd *cobra.Command, fn func(a *app) error) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if err := a.withStore(); err != nil {
		return err
	}
	return fn(a)
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func init() {
	rootCmd.AddCommand(studyCmd)
	studyCmd.AddCommand(studyIngestCmd, studyListCmd, studyRemoveCmd,
		studySummaryCmd, studyFlashcardsCmd, studyPlanCmd, studyAskCmd)

	studyIngestCmd.Flags().StringVar(&studyTitle, "title", "", "document title (default: derived from the content or file name)")
	studyFlashcardsCmd.Flags().IntVar(&flashcardCount, "count", 10, "number of flashcards")
	studyPlanCmd.Flags().IntVar(&planDays, "days", 7, "number of days")

	for _, cmd := range studyCmd.Commands() {
		addJSONFlag(cmd)
	}
	for _, cmd := range []*cobra.Command{studySummaryCmd, studyFlashcardsCmd, studyPlanCmd, studyAskCmd} {
		addLLMFlags(cmd)
	}
}
