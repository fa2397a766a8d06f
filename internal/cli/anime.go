package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/animequote/internal/agent"
)

var catalogLimit int

// animeCmd represents the anime command
var animeCmd = &cobra.Command{
	Use:   "anime",
	Short: "Look up anime and characters in the catalog",
	Long: `Query the anime catalog for titles, characters and rankings.
Responses are cached according to the cache settings.

Example:
  animequote anime search "Cowboy Bebop"
  animequote anime get 1535
  animequote anime characters "Spike Spiegel" --limit 3
  animequote anime top --limit 10 --json`,
}

var animeSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search anime by title",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, false, "anime_search", limitParams("query", strings.Join(args, " ")))
	},
}

var animeGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show details for one anime",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, false, "anime_details", agent.Params{"id": args[0]})
	},
}

var animeCharactersCmd = &cobra.Command{
	Use:   "characters <name>",
	Short: "Search characters by name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, false, "character_search", limitParams("query", strings.Join(args, " ")))
	},
}

var animeTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the top-ranked anime",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSkill(cmd, false, "top_anime", limitParams("", ""))
	},
}

func limitParams(key, value string) agent.Params {
	params := agent.Params{}
	if key != "" {
		params[key] = value
	}
	if catalogLimit > 0 {
		params["limit"] = catalogLimit
	}
	return params
}

func init() {
	rootCmd.AddCommand(animeCmd)
	animeCmd.AddCommand(animeSearchCmd, animeGetCmd, animeCharactersCmd, animeTopCmd)

	for _, cmd := range []*cobra.Command{animeSearchCmd, animeCharactersCmd, animeTopCmd} {
		cmd.Flags().IntVarP(&catalogLimit, "limit", "n", 0, "maximum number of results")
	}
	for _, cmd := range animeCmd.Commands() {
		addJSONFlag(cmd)
	}
}
