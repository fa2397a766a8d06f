package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/animequote/internal/agent"
)

var quotePage int

// quotesCmd represents the quotes command
var quotesCmd = &cobra.Command{
	Use:   "quotes",
	Short: "Browse quotes from the quote service",
	Long: `Look up quotes by character or by anime, or get a random one.

Example:
  animequote quotes character "Lelouch Lamperouge"
  animequote quotes anime "Fullmetal Alchemist" --page 2
  animequote quotes random --anime Naruto --json`,
}

var quotesCharacterCmd = &cobra.Command{
	Use:   "character <name>",
	Short: "List quotes said by a character",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := agent.Params{"character": strings.Join(args, " ")}
		if quotePage > 0 {
			params["page"] = quotePage
		}
		return runSkill(cmd, false, "character_quotes", params)
	},
}

var quotesAnimeCmd = &cobra.Command{
	Use:   "anime <title>",
	Short: "List quotes from an anime",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params := agent.Params{"anime": strings.Join(args, " ")}
		if quotePage > 0 {
			params["page"] = quotePage
		}
		return runSkill(cmd, false, "anime_quotes", params)
	},
}

var (
	randomAnime     string
	randomCharacter string
)

var quotesRandomCmd = &cobra.Command{
	Use:   "random",
	Short: "Show a random quote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, false, "random_quote", agent.Params{
			"anime":     randomAnime,
			"character": randomCharacter,
		})
	},
}

func init() {
	rootCmd.AddCommand(quotesCmd)
	quotesCmd.AddCommand(quotesCharacterCmd, quotesAnimeCmd, quotesRandomCmd)

	for _, cmd := range []*cobra.Command{quotesCharacterCmd, quotesAnimeCmd} {
		cmd.Flags().IntVar(&quotePage, "page", 0, "result page (default: quotes.page)")
		addJSONFlag(cmd)
	}
	quotesRandomCmd.Flags().StringVarP(&randomAnime, "anime", "a", "", "restrict to an anime")
	quotesRandomCmd.Flags().StringVarP(&randomCharacter, "character", "c", "", "restrict to a character")
	addJSONFlag(quotesRandomCmd)
}
