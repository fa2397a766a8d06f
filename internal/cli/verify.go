package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/animequote/internal/model"
)

var (
	outJSON     string
	outMD       string
	timeout     time.Duration
	character   string
	anime       string
	apiKey      string
	noFooter    bool
	noLLM       bool
	llmProvider string
	llmModel    string
)

// verifyCmd represents the verify command
var verifyCmd = &cobra.Command{
	Use:   "verify [quote]",
	Short: "Verify a quote, optionally against a character and/or anime",
	Long: `Verify gathers candidate quotes for the character and the anime, compares
them with the quote, and reports:
- whether the quote is verified
- a confidence level (high, medium, low)
- up to 5 matching quotes in the order they were found (not ranked)

Without a quote, the quotes found for the character/anime are listed instead.

Example:
  animequote verify "I am the hope of the universe" --character Goku
  animequote verify "Believe it!" -c "Naruto Uzumaki" -a Naruto --json report.json --md report.md
  animequote verify --anime "Death Note"
  animequote verify "Plus Ultra" -c "All Might" --llm-provider openai --llm-model gpt-4o-mini`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&character, "character", "c", "", "character who said the quote")
	verifyCmd.Flags().StringVarP(&anime, "anime", "a", "", "anime the quote is from")
	verifyCmd.Flags().StringVar(&apiKey, "api-key", "", "quote service API key (default: quotes.api_key / QUOTES_API_KEY)")

	// Output flags
	verifyCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	verifyCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	verifyCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	verifyCmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "overall timeout")

	addLLMFlags(verifyCmd)
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&noLLM, "no-llm", false, "disable the language model even if one is configured")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
}

// commandConfig loads the configuration and applies the command's flags
func commandConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = ""
		applyProviderEnv(cfg, os.Getenv)
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if noLLM {
		cfg.LLM.Provider = ""
	}
	if flags.Changed("no-footer") {
		cfg.Output.IncludeFooter = !noFooter
	}
	if flags.Changed("api-key") {
		cfg.Quotes.APIKey = apiKey
	}
	cfg.Output.Verbose = verbose
	return cfg, nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	req := model.VerifyRequest{Character: character, Anime: anime}
	if len(args) == 1 {
		req.Quote = args[0]
	}
	if req.IsEmpty() {
		return fmt.Errorf("nothing to verify: give a quote, --character or --anime")
	}

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Verifying: %s\n", strings.TrimSpace(req.Quote))
		fmt.Fprintf(os.Stderr, "Quote service: %s\n", cfg.Quotes.BaseURL)
		if a.reporter.IsEnabled() {
			fmt.Fprintf(os.Stderr, "Narrative: %s\n", a.reporter.ProviderName())
		}
		fmt.Fprintln(os.Stderr)
	}

	report := a.pipeline.Verify(ctx, req)

	if err := a.pipeline.RenderReport(cmd.OutOrStdout(), report, outJSON, outMD); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}
