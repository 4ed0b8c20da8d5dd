// Package dialogue selects the condition-gated narrative lines shown under
// a step's description.
package dialogue

import (
	"strings"

	"github.com/Elenyx/discordrpg/engine/rules"
	"github.com/Elenyx/discordrpg/types"
)

// AvailableLines returns the texts for stepKey whose conditions are met,
// in authored order.
func AvailableLines(def *types.QuestDefinition, stepKey string, env rules.Env) []string {
	if def == nil || def.Dialogue == nil {
		return nil
	}
	var result []string
	for _, line := range def.Dialogue[stepKey] {
		if rules.EvalAllConditions(line.Requires, env) {
			result = append(result, line.Text)
		}
	}
	return result
}

// Compose joins a description with its extra lines, one blank line apart.
func Compose(description string, lines []string) string {
	parts := make([]string, 0, len(lines)+1)
	if description != "" {
		parts = append(parts, description)
	}
	for _, l := range lines {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "\n\n")
}
