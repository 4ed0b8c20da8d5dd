// Package parser splits inbound action identifiers and console command lines.
// Intentionally dumb: no NLP, just pattern matching.
package parser

import (
	"strconv"
	"strings"

	"github.com/Elenyx/discordrpg/types"
)

// Separator divides an action id from its suffix.
const Separator = "::"

// ActionRef is a parsed action identifier.
type ActionRef struct {
	ID     string
	Suffix string // capability token or step index; empty if absent
}

// ParseAction splits "fight_morgan::abc123" into its id and suffix.
// Only the first separator counts; surrounding whitespace is dropped.
func ParseAction(raw string) ActionRef {
	raw = strings.TrimSpace(raw)
	id, suffix, _ := strings.Cut(raw, Separator)
	return ActionRef{ID: strings.TrimSpace(id), Suffix: strings.TrimSpace(suffix)}
}

// FormatAction joins an id and suffix. An empty suffix yields the bare id.
func FormatAction(id, suffix string) string {
	if suffix == "" {
		return id
	}
	return id + Separator + suffix
}

// StepSuffix parses a continue suffix as a step index.
func StepSuffix(ref ActionRef) (int, bool) {
	n, err := strconv.Atoi(ref.Suffix)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// ConsoleCommand is a parsed console line.
type ConsoleCommand struct {
	Verb string   // "quest", "profile", "start", "help", "quit", or "" for a choice
	Sub  string   // quest sub-command
	Args []string // remaining words
	Raw  string   // the trimmed input
}

var verbAliases = map[string]string{
	"q":      "quest",
	"quests": "quest",
	"p":      "profile",
	"me":     "profile",
	"stats":  "profile",
	"new":    "start",
	"create": "start",
	"h":      "help",
	"?":      "help",
	"exit":   "quit",
	"bye":    "quit",
}

var subAliases = map[string]string{
	"cur":    string(types.CommandCurrent),
	"status": string(types.CommandCurrent),
	"show":   string(types.CommandCurrent),
	"begin":  string(types.CommandAccept),
	"take":   string(types.CommandAccept),
	"done":   string(types.CommandComplete),
	"finish": string(types.CommandComplete),
	"claim":  string(types.CommandComplete),
}

// ParseCommand parses a console line. Lines starting with "/" are slash
// commands; anything else is a choice to resolve against offered actions.
func ParseCommand(input string) ConsoleCommand {
	input = strings.TrimSpace(input)
	cmd := ConsoleCommand{Raw: input}
	if !strings.HasPrefix(input, "/") {
		return cmd
	}

	words := strings.Fields(strings.ToLower(strings.TrimPrefix(input, "/")))
	if len(words) == 0 {
		return cmd
	}
	verb := words[0]
	if alias, ok := verbAliases[verb]; ok {
		verb = alias
	}
	cmd.Verb = verb
	rest := words[1:]

	if verb == "quest" {
		cmd.Sub = string(types.CommandCurrent)
		if len(rest) > 0 {
			sub := rest[0]
			if alias, ok := subAliases[sub]; ok {
				sub = alias
			}
			cmd.Sub = sub
			rest = rest[1:]
		}
	}
	// Args keep their original casing for names like races.
	if len(rest) > 0 {
		orig := strings.Fields(strings.TrimPrefix(input, "/"))
		cmd.Args = orig[len(orig)-len(rest):]
	}
	return cmd
}
