package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ppiankov/animequote/internal/agent"
)

// asJSON prints skill results as JSON instead of text
var asJSON bool

func addJSONFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
}

// runSkill runs one agent skill and prints its result
func runSkill(cmd *cobra.Command, withStore bool, name string, params agent.Params) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if withStore {
		if err := a.withStore(); err != nil {
			return err
		}
	}

	ag, err := a.newAgent()
	if err != nil {
		return err
	}

	result, err := ag.Run(cmd.Context(), name, params)
	if err != nil {
		return err
	}
	return printResult(cmd.OutOrStdout(), result)
}

func printResult(w io.Writer, result *agent.Result) error {
	if !asJSON {
		_, err := fmt.Fprintln(w, result.Text)
		return err
	}

	data := result.Data
	if data == nil {
		data = map[string]string{"text": result.Text}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
