// Package loader loads Lua quest definitions into Go structs at startup.
// The Lua VM is discarded after loading; nothing runs Lua at play time.
package loader

import (
	"fmt"

	"github.com/Elenyx/discordrpg/types"
	lua "github.com/yuin/gopher-lua"
)

type section int

const (
	sectionBase section = iota
	sectionRace
	sectionTail
)

// rawStep holds a step table before compilation.
type rawStep struct {
	section section
	race    string
	key     string
	table   *lua.LTable
}

// rawConsequence holds a consequence table before compilation.
type rawConsequence struct {
	action string
	table  *lua.LTable
}

// rawAugment holds an augment before compilation.
type rawAugment struct {
	step       string
	conditions *lua.LTable // may be nil
	action     *lua.LTable
}

// rawLine holds a narrative line before compilation.
type rawLine struct {
	step       string
	text       string
	conditions *lua.LTable // may be nil
}

// getString returns a string field from a Lua table, or "" if missing.
func getString(tbl *lua.LTable, key string) string {
	v := tbl.RawGetString(key)
	if s, ok := v.(lua.LString); ok {
		return string(s)
	}
	return ""
}

// getNumber returns a numeric field from a Lua table, or 0 if missing.
func getNumber(tbl *lua.LTable, key string) float64 {
	v := tbl.RawGetString(key)
	if n, ok := v.(lua.LNumber); ok {
		return float64(n)
	}
	return 0
}

// getInt returns an int field from a Lua table, or 0 if missing.
func getInt(tbl *lua.LTable, key string) int {
	return int(getNumber(tbl, key))
}

// getTable returns a table field from a Lua table, or nil if missing.
func getTable(tbl *lua.LTable, key string) *lua.LTable {
	v := tbl.RawGetString(key)
	if t, ok := v.(*lua.LTable); ok {
		return t
	}
	return nil
}

// eachTable calls fn for each table element of an array-like table.
func eachTable(tbl *lua.LTable, fn func(*lua.LTable)) {
	if tbl == nil {
		return
	}
	for i := 1; i <= tbl.MaxN(); i++ {
		if t, ok := tbl.RawGetInt(i).(*lua.LTable); ok {
			fn(t)
		}
	}
}

// toGoValue converts a Lua scalar to a Go value. Whole numbers become int.
func toGoValue(v lua.LValue) any {
	switch val := v.(type) {
	case lua.LBool:
		return bool(val)
	case lua.LNumber:
		f := float64(val)
		if f == float64(int(f)) {
			return int(f)
		}
		return f
	case lua.LString:
		return string(val)
	default:
		return nil
	}
}

// tableToIntMap converts a Lua table to a map[string]int.
func tableToIntMap(tbl *lua.LTable) map[string]int {
	if tbl == nil {
		return nil
	}
	m := map[string]int{}
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok {
			return
		}
		if n, ok := v.(lua.LNumber); ok {
			m[string(ks)] = int(n)
		}
	})
	return m
}

// tableToStrings converts an array-like table of strings.
func tableToStrings(tbl *lua.LTable) []string {
	if tbl == nil {
		return nil
	}
	var out []string
	for i := 1; i <= tbl.MaxN(); i++ {
		if s, ok := tbl.RawGetInt(i).(lua.LString); ok {
			out = append(out, string(s))
		}
	}
	return out
}

// compile converts all collected Lua data into a quest definition.
func compile(coll *collector) (*types.QuestDefinition, error) {
	if coll.quest == nil {
		return nil, fmt.Errorf("no Quest{} definition found")
	}

	def := &types.QuestDefinition{
		ID:           coll.questID,
		Title:        getString(coll.quest, "title"),
		Description:  getString(coll.quest, "description"),
		Version:      getInt(coll.quest, "version"),
		RaceSteps:    map[string][]types.Step{},
		Consequences: map[string]types.Consequence{},
		Dialogue:     map[string][]types.Line{},
	}
	if def.Version == 0 {
		def.Version = 1
	}
	if r := getTable(coll.quest, "rewards"); r != nil {
		def.Rewards = compileRewards(r)
	}

	for _, raw := range coll.steps {
		step := compileStep(raw)
		switch raw.section {
		case sectionBase:
			def.Steps = append(def.Steps, step)
		case sectionRace:
			def.RaceSteps[raw.race] = append(def.RaceSteps[raw.race], step)
		case sectionTail:
			def.TailSteps = append(def.TailSteps, step)
		}
	}

	for _, raw := range coll.consequences {
		if _, dup := def.Consequences[raw.action]; dup {
			return nil, fmt.Errorf("duplicate consequence for action %q", raw.action)
		}
		def.Consequences[raw.action] = compileConsequence(raw.table)
	}

	for _, raw := range coll.augments {
		def.Augments = append(def.Augments, types.Augment{
			Step:   raw.step,
			When:   compileConditions(raw.conditions),
			Action: compileAction(raw.action),
		})
	}

	for _, raw := range coll.lines {
		def.Dialogue[raw.step] = append(def.Dialogue[raw.step], types.Line{
			Text:     raw.text,
			Requires: compileConditions(raw.conditions),
		})
	}

	return def, nil
}

func compileRewards(tbl *lua.LTable) types.RewardDescriptor {
	r := types.RewardDescriptor{
		Berries: getInt(tbl, "berries"),
		Exp:     getInt(tbl, "exp"),
		Allies:  tableToStrings(getTable(tbl, "allies")),
	}
	eachTable(getTable(tbl, "items"), func(it *lua.LTable) {
		r.Items = append(r.Items, types.Item{
			ID:   getString(it, "id"),
			Name: getString(it, "name"),
			Qty:  getInt(it, "qty"),
		})
	})
	return r
}

func compileStep(raw rawStep) types.Step {
	step := types.Step{
		Key:         raw.key,
		Title:       getString(raw.table, "title"),
		Description: getString(raw.table, "description"),
	}
	eachTable(getTable(raw.table, "actions"), func(a *lua.LTable) {
		step.Actions = append(step.Actions, compileAction(a))
	})
	return step
}

func compileAction(tbl *lua.LTable) types.Action {
	a := types.Action{
		ID:    getString(tbl, "id"),
		Label: getString(tbl, "label"),
		Kind:  getString(tbl, "kind"),
		Style: getString(tbl, "style"),
	}
	if a.Kind == "" {
		a.Kind = types.KindButton
	}
	eachTable(getTable(tbl, "options"), func(o *lua.LTable) {
		a.Options = append(a.Options, types.Option{
			Label: getString(o, "label"),
			Value: getString(o, "value"),
		})
	})
	return a
}

func compileConsequence(tbl *lua.LTable) types.Consequence {
	c := types.Consequence{
		Stats:   tableToIntMap(getTable(tbl, "stats")),
		Flags:   tableToStrings(getTable(tbl, "flags")),
		Message: getString(tbl, "message"),
	}
	eachTable(getTable(tbl, "loot"), func(l *lua.LTable) {
		c.Loot = append(c.Loot, types.LootEntry{
			ID:     getString(l, "id"),
			Name:   getString(l, "name"),
			Qty:    getInt(l, "qty"),
			Chance: getNumber(l, "chance"),
		})
	})
	return c
}

func compileConditions(tbl *lua.LTable) []types.Condition {
	var conditions []types.Condition
	eachTable(tbl, func(c *lua.LTable) {
		conditions = append(conditions, compileCondition(c))
	})
	return conditions
}

func compileCondition(tbl *lua.LTable) types.Condition {
	cond := types.Condition{
		Type:   getString(tbl, "type"),
		Params: map[string]any{},
	}
	tbl.ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok || ks == "type" || ks == "inner" {
			return
		}
		cond.Params[string(ks)] = toGoValue(v)
	})
	if cond.Type == "not" {
		cond.Negate = true
		if inner := getTable(tbl, "inner"); inner != nil {
			in := compileCondition(inner)
			cond.Inner = &in
		}
	}
	return cond
}
