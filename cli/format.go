package cli

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

func (s *Session) formatProfile(p *types.Player) string {
	level := state.Level(p)
	lines := []string{
		fmt.Sprintf("%s from %s, dreaming of %s", p.Race, p.Origin, p.Dream),
		fmt.Sprintf("Level %d (%d exp, next level at %d)", level, p.Exp, s.mgr.Curve().CumulativeExpFor(level+1)),
		fmt.Sprintf("Berries: %d", p.Berries),
	}

	stats := make([]string, 0, len(p.Stats))
	for _, k := range slices.Sorted(maps.Keys(p.Stats)) {
		stats = append(stats, fmt.Sprintf("%s %d", k, p.Stats[k]))
	}
	lines = append(lines, "Stats: "+strings.Join(stats, ", "))

	if len(p.Items) > 0 {
		items := make([]string, len(p.Items))
		for i, it := range p.Items {
			items[i] = fmt.Sprintf("%s %s x%d", s.balance.Icon(it.ID), it.Name, it.Qty)
		}
		lines = append(lines, "Items: "+strings.Join(items, ", "))
	}
	if len(p.Allies) > 0 {
		lines = append(lines, "Allies: "+strings.Join(p.Allies, ", "))
	}
	if snap := p.ActiveQuest; snap != nil {
		lines = append(lines, fmt.Sprintf("Quest: %s (step %d, %s)", snap.QuestID, snap.CurrentStep, snap.State))
	}
	return strings.Join(lines, "\n")
}

// FormatReply renders a reply as plain text lines.
func FormatReply(r Reply) []string {
	var lines []string
	if r.Title != "" {
		lines = append(lines, "== "+r.Title+" ==")
	}
	if r.Text != "" {
		lines = append(lines, strings.Split(r.Text, "\n")...)
	}
	for i, e := range r.Entries {
		lines = append(lines, fmt.Sprintf("  %d) %s", i+1, e.Label))
	}
	for _, msg := range r.System {
		lines = append(lines, "["+msg+"]")
	}
	lines = append(lines, r.Trace...)
	return lines
}
