// Package state holds the player record helpers: stat lookups with defaults,
// inventory stacking, and the active-quest field pair.
package state

import (
	"fmt"
	"slices"

	"github.com/Elenyx/discordrpg/types"
)

// Choice is one selectable character-creation value.
type Choice struct {
	Value       string
	Description string
}

// Races lists the playable races. Stats seeds the starting stat block.
var Races = []Choice{
	{Value: "Human", Description: "Versatile and adaptable fighters"},
	{Value: "Fishman", Description: "Strong swimmers with aquatic abilities"},
	{Value: "Mink", Description: "Electric-powered animal humanoids"},
	{Value: "Giant", Description: "Massive warriors with incredible strength"},
	{Value: "Skypiean", Description: "Sky islanders with small wings"},
}

// Origins lists the seas a character may hail from.
var Origins = []Choice{
	{Value: "East Blue", Description: "The weakest sea, birthplace of legends"},
	{Value: "West Blue", Description: "Known for its strong fighters"},
	{Value: "North Blue", Description: "Home to many notorious pirates"},
	{Value: "South Blue", Description: "A sea of diverse cultures"},
	{Value: "Grand Line", Description: "The most dangerous sea"},
}

// Dreams lists the available character dreams.
var Dreams = []Choice{
	{Value: "Pirate King", Description: "Find the One Piece treasure"},
	{Value: "All Blue", Description: "The legendary sea of all fish"},
	{Value: "World Map", Description: "Chart every island and sea"},
	{Value: "Cure All", Description: "Become the greatest doctor"},
	{Value: "Strongest", Description: "Become the world's strongest fighter"},
}

// raceBonus adjusts the base stat block per race.
var raceBonus = map[string]map[string]int{
	"Human":    {"charisma": 1},
	"Fishman":  {"power": 5, "hp": 10},
	"Mink":     {"atk": 2},
	"Giant":    {"power": 10, "hp": 20, "def": 2},
	"Skypiean": {"charisma": 2},
}

// NewPlayer creates a level-1 player. Race must be one of Races.
func NewPlayer(actorID, race, origin, dream string) (*types.Player, error) {
	if actorID == "" {
		return nil, fmt.Errorf("actor id is required")
	}
	if !validChoice(Races, race) {
		return nil, fmt.Errorf("unknown race %q", race)
	}
	stats := map[string]int{"hp": 100, "atk": 10, "def": 10, "power": 10, "charisma": 0}
	for k, v := range raceBonus[race] {
		stats[k] += v
	}
	return &types.Player{
		ActorID: actorID,
		Race:    race,
		Origin:  origin,
		Dream:   dream,
		Stats:   stats,
		Level:   1,
		Items:   []types.Item{},
		Allies:  []string{},
	}, nil
}

func validChoice(choices []Choice, v string) bool {
	for _, c := range choices {
		if c.Value == v {
			return true
		}
	}
	return false
}

// Stat returns a stat value. Unset stats return 0.
func Stat(p *types.Player, name string) int {
	if p == nil {
		return 0
	}
	return p.Stats[name]
}

// Level returns the player's level, never less than 1.
func Level(p *types.Player) int {
	if p == nil || p.Level < 1 {
		return 1
	}
	return p.Level
}

// Power returns the power stat, defaulting to level*10 when unset.
func Power(p *types.Player) int {
	if p != nil {
		if v, ok := p.Stats["power"]; ok {
			return v
		}
	}
	return Level(p) * 10
}

// AddStat adds delta to a stat. A missing power stat is seeded from the
// level default first so the delta is not applied to zero.
func AddStat(p *types.Player, name string, delta int) {
	if p.Stats == nil {
		p.Stats = map[string]int{}
	}
	if _, ok := p.Stats[name]; !ok && name == "power" {
		p.Stats[name] = Power(p)
	}
	p.Stats[name] += delta
}

// HasItem returns true if the player holds at least one of the item.
func HasItem(p *types.Player, itemID string) bool {
	return ItemQty(p, itemID) > 0
}

// ItemQty returns how many of an item the player holds.
func ItemQty(p *types.Player, itemID string) int {
	if p == nil {
		return 0
	}
	for _, it := range p.Items {
		if it.ID == itemID {
			return it.Qty
		}
	}
	return 0
}

// AddItem stacks an item onto an existing entry or appends a new one.
// A zero Qty counts as one.
func AddItem(p *types.Player, item types.Item) {
	if item.Qty <= 0 {
		item.Qty = 1
	}
	for i := range p.Items {
		if p.Items[i].ID == item.ID {
			p.Items[i].Qty += item.Qty
			return
		}
	}
	p.Items = append(p.Items, item)
}

// TakeItem removes qty of an item, dropping the entry when it reaches zero.
// Returns false if the player did not hold enough.
func TakeItem(p *types.Player, itemID string, qty int) bool {
	for i := range p.Items {
		if p.Items[i].ID != itemID {
			continue
		}
		if p.Items[i].Qty < qty {
			return false
		}
		p.Items[i].Qty -= qty
		if p.Items[i].Qty <= 0 {
			p.Items = slices.Delete(p.Items, i, i+1)
		}
		return true
	}
	return false
}

// SetActiveQuest stores the snapshot and its id together.
func SetActiveQuest(p *types.Player, snap types.QuestSnapshot) {
	p.ActiveQuestID = snap.QuestID
	p.ActiveQuest = &snap
}

// ClearActiveQuest nulls both active-quest fields.
func ClearActiveQuest(p *types.Player) {
	p.ActiveQuestID = ""
	p.ActiveQuest = nil
}

// Clone returns a deep copy of the player record.
func Clone(p *types.Player) *types.Player {
	if p == nil {
		return nil
	}
	c := *p
	if p.Stats != nil {
		c.Stats = make(map[string]int, len(p.Stats))
		for k, v := range p.Stats {
			c.Stats[k] = v
		}
	}
	c.Items = slices.Clone(p.Items)
	c.Allies = slices.Clone(p.Allies)
	if p.ActiveQuest != nil {
		snap := CloneSnapshot(*p.ActiveQuest)
		c.ActiveQuest = &snap
	}
	return &c
}

// CloneSnapshot deep-copies a snapshot, preserving nil maps and slices.
func CloneSnapshot(s types.QuestSnapshot) types.QuestSnapshot {
	c := s
	if s.Custom.History != nil {
		c.Custom.History = make([]types.HistoryEntry, len(s.Custom.History))
		for i, h := range s.Custom.History {
			c.Custom.History[i] = h
			if h.Stats != nil {
				stats := make(map[string]int, len(h.Stats))
				for k, v := range h.Stats {
					stats[k] = v
				}
				c.Custom.History[i].Stats = stats
			}
		}
	}
	if s.Custom.Counters != nil {
		c.Custom.Counters = make(map[string]int, len(s.Custom.Counters))
		for k, v := range s.Custom.Counters {
			c.Custom.Counters[k] = v
		}
	}
	if s.Custom.Flags != nil {
		c.Custom.Flags = make(map[string]bool, len(s.Custom.Flags))
		for k, v := range s.Custom.Flags {
			c.Custom.Flags[k] = v
		}
	}
	c.Custom.Offered = slices.Clone(s.Custom.Offered)
	return c
}
