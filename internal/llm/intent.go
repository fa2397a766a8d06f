package llm

import (
	"fmt"
	"strings"
)

// IntentSystemPrompt instructs the model to route a message to one skill
const IntentSystemPrompt = "You route user requests to exactly one skill of an anime quote assistant. Reply with JSON only."

// SkillSpec describes a skill the model may choose
type SkillSpec struct {
	Name        string
	Description string
	Params      []string
}

// BuildIntentPrompt asks the model to pick a skill and its parameters for message
func BuildIntentPrompt(message string, skills []SkillSpec) string {
	var b strings.Builder
	b.WriteString("Available skills:\n")
	for _, s := range skills {
		fmt.Fprintf(&b, "- %s: %s", s.Name, s.Description)
		if len(s.Params) > 0 {
			fmt.Fprintf(&b, " (params: %s)", strings.Join(s.Params, ", "))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
Return a JSON object {"skill": "<name>", "params": {<param>: <value>}} for the message below.
Use only the listed skill names and parameter names. Put quote text in "quote" exactly as the user wrote it, without surrounding quotation marks.
If nothing fits, use {"skill": ""}.

Message:
%s
`, message)

	return b.String()
}
