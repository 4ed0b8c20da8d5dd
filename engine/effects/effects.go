// Package effects applies consequence-table entries to a player and the
// running quest's progress. Every call is one atomic in-memory update.
package effects

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

// Event types emitted by Apply.
const (
	EventConsequenceApplied = "consequence_applied"
	EventItemFound          = "item_found"
)

// Outcome is what Apply changed, ready for display.
type Outcome struct {
	Entry  types.HistoryEntry
	Lines  []string
	Events []types.Event
}

// Text joins the outcome lines for display.
func (o Outcome) Text() string {
	return strings.Join(o.Lines, "\n")
}

// Apply adds the stat deltas, rolls each loot entry independently, sets
// the consequence flags and appends one history entry to custom.
func Apply(p *types.Player, custom *types.Custom, actionID string, c types.Consequence, src rng.Source, now time.Time) Outcome {
	var out Outcome

	if c.Message != "" {
		out.Lines = append(out.Lines, c.Message)
	}

	// Sorted so the display order does not depend on map iteration.
	for _, stat := range slices.Sorted(maps.Keys(c.Stats)) {
		delta := c.Stats[stat]
		if delta == 0 {
			continue
		}
		state.AddStat(p, stat, delta)
		out.Lines = append(out.Lines, fmt.Sprintf("%+d %s", delta, stat))
	}

	for _, loot := range c.Loot {
		if loot.Chance > 0 && src.Float64() >= loot.Chance {
			continue
		}
		item := types.Item{ID: loot.ID, Name: loot.Name, Qty: loot.Qty}
		if item.Name == "" {
			item.Name = loot.ID
		}
		state.AddItem(p, item)
		out.Lines = append(out.Lines, fmt.Sprintf("You found: %s!", item.Name))
		out.Events = append(out.Events, types.Event{
			Type: EventItemFound,
			Data: map[string]any{"item": item.ID, "action": actionID},
		})
	}

	if len(c.Flags) > 0 {
		if custom.Flags == nil {
			custom.Flags = map[string]bool{}
		}
		for _, f := range c.Flags {
			custom.Flags[f] = true
		}
	}

	out.Entry = types.HistoryEntry{
		ID:     ulid.Make().String(),
		Action: actionID,
		Stats:  statsCopy(c.Stats),
		At:     now.UnixMilli(),
	}
	custom.History = append(custom.History, out.Entry)
	out.Events = append(out.Events, types.Event{
		Type: EventConsequenceApplied,
		Data: map[string]any{"action": actionID, "entry": out.Entry.ID},
	})
	return out
}

// Recent returns at most n of the newest history entries, oldest first.
func Recent(custom types.Custom, n int) []types.HistoryEntry {
	h := custom.History
	if n <= 0 {
		return nil
	}
	if len(h) > n {
		h = h[len(h)-n:]
	}
	return h
}

// FormatEntry renders a history entry as a single line.
func FormatEntry(e types.HistoryEntry) string {
	if len(e.Stats) == 0 {
		return e.Action
	}
	parts := make([]string, 0, len(e.Stats))
	for _, stat := range slices.Sorted(maps.Keys(e.Stats)) {
		parts = append(parts, fmt.Sprintf("%+d %s", e.Stats[stat], stat))
	}
	return fmt.Sprintf("%s (%s)", e.Action, strings.Join(parts, ", "))
}

func statsCopy(m map[string]int) map[string]int {
	if len(m) == 0 {
		return nil
	}
	return maps.Clone(m)
}
