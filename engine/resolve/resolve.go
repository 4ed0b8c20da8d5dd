// Package resolve maps console input onto the actions of the last reply.
package resolve

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/types"
)

// Entry is one numbered choice. A button is one entry; a select
// contributes one entry per option.
type Entry struct {
	Label    string
	ActionID string // raw id, suffix included
	Value    string // select option value, "" for buttons
	Style    string
}

// Choice is a resolved entry ready to send as an action event.
type Choice struct {
	ActionID string
	Values   []string
}

// AmbiguityError indicates several entries matched the input.
type AmbiguityError struct {
	Input      string
	Candidates []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("which %s? (%s)", e.Input, strings.Join(e.Candidates, ", "))
}

// NotFoundError indicates no entry matched the input.
type NotFoundError struct {
	Input string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("there is no %q choice here", e.Input)
}

// Entries flattens actions into the numbered list shown to the player.
func Entries(actions []types.Action) []Entry {
	var out []Entry
	for _, a := range actions {
		if a.Kind == types.KindSelect {
			for _, opt := range a.Options {
				out = append(out, Entry{
					Label:    a.Label + ": " + opt.Label,
					ActionID: a.ID,
					Value:    opt.Value,
					Style:    a.Style,
				})
			}
			continue
		}
		out = append(out, Entry{Label: a.Label, ActionID: a.ID, Style: a.Style})
	}
	return out
}

func (e Entry) choice() Choice {
	c := Choice{ActionID: e.ActionID}
	if e.Value != "" {
		c.Values = []string{e.Value}
	}
	return c
}

// Resolve matches input against the offered actions.
func Resolve(actions []types.Action, input string) (Choice, error) {
	entries := Entries(actions)
	query := strings.ToLower(strings.TrimSpace(input))
	if query == "" {
		return Choice{}, &NotFoundError{Input: input}
	}

	// 1. A 1-based index.
	if n, err := strconv.Atoi(query); err == nil {
		if n >= 1 && n <= len(entries) {
			return entries[n-1].choice(), nil
		}
		return Choice{}, &NotFoundError{Input: input}
	}

	// 2. Action ids and option values, with spaces standing in for
	// underscores: "search barrel" matches search_barrel.
	id := strings.ReplaceAll(query, " ", "_")
	var matches []Entry
	for _, e := range entries {
		base := strings.ToLower(parser.ParseAction(e.ActionID).ID)
		if base == id || strings.ToLower(e.Value) == id {
			matches = append(matches, e)
		}
	}
	if len(matches) == 0 {
		matches = matchLabels(entries, query)
	}

	switch len(matches) {
	case 0:
		return Choice{}, &NotFoundError{Input: input}
	case 1:
		return matches[0].choice(), nil
	}
	labels := make([]string, len(matches))
	for i, m := range matches {
		labels[i] = m.Label
	}
	return Choice{}, &AmbiguityError{Input: input, Candidates: labels}
}

// matchLabels tries an exact label match first, then entries whose label
// contains every word of the query.
func matchLabels(entries []Entry, query string) []Entry {
	for _, e := range entries {
		if strings.ToLower(e.Label) == query {
			return []Entry{e}
		}
	}
	words := strings.Fields(query)
	var matches []Entry
	for _, e := range entries {
		labelWords := strings.Fields(strings.ToLower(strings.NewReplacer(":", " ", ",", " ", "!", " ", "?", " ").Replace(e.Label)))
		if containsAll(labelWords, words) {
			matches = append(matches, e)
		}
	}
	return matches
}

func containsAll(haystack, needles []string) bool {
	for _, n := range needles {
		found := false
		for _, h := range haystack {
			if h == n {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
