package loader

import (
	lua "github.com/yuin/gopher-lua"
)

// registerAPI registers all Lua constructors and helpers as globals.
func registerAPI(L *lua.LState, coll *collector) {
	registerConstructors(L, coll)
	registerActionHelpers(L)
	registerConditionHelpers(L)
}

// curried returns a function that takes a table and hands it to fn.
// Used for the `Name "id" { ... }` call style.
func curried(L *lua.LState, fn func(tbl *lua.LTable)) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		fn(L.CheckTable(1))
		return 0
	})
}

func registerConstructors(L *lua.LState, coll *collector) {
	// Quest "id" { title = "...", ... }
	L.SetGlobal("Quest", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(curried(L, func(tbl *lua.LTable) {
			coll.questID = id
			coll.quest = tbl
		}))
		return 1
	}))

	// Step "key" { ... } is part of the shared prefix.
	L.SetGlobal("Step", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		L.Push(curried(L, func(tbl *lua.LTable) {
			coll.steps = append(coll.steps, rawStep{section: sectionBase, key: key, table: tbl})
		}))
		return 1
	}))

	// RaceStep("Race", "key") { ... } is a race-specific inset.
	L.SetGlobal("RaceStep", L.NewFunction(func(L *lua.LState) int {
		race := L.CheckString(1)
		key := L.CheckString(2)
		L.Push(curried(L, func(tbl *lua.LTable) {
			coll.steps = append(coll.steps, rawStep{section: sectionRace, race: race, key: key, table: tbl})
		}))
		return 1
	}))

	// TailStep "key" { ... } is part of the shared suffix.
	L.SetGlobal("TailStep", L.NewFunction(func(L *lua.LState) int {
		key := L.CheckString(1)
		L.Push(curried(L, func(tbl *lua.LTable) {
			coll.steps = append(coll.steps, rawStep{section: sectionTail, key: key, table: tbl})
		}))
		return 1
	}))

	// Consequence "action_id" { stats = {...}, loot = {...}, flags = {...}, message = "..." }
	L.SetGlobal("Consequence", L.NewFunction(func(L *lua.LState) int {
		id := L.CheckString(1)
		L.Push(curried(L, func(tbl *lua.LTable) {
			coll.consequences = append(coll.consequences, rawConsequence{action: id, table: tbl})
		}))
		return 1
	}))

	// Augment("step_key", { conditions }, Button(...))
	L.SetGlobal("Augment", L.NewFunction(func(L *lua.LState) int {
		coll.augments = append(coll.augments, rawAugment{
			step:       L.CheckString(1),
			conditions: L.OptTable(2, nil),
			action:     L.CheckTable(3),
		})
		return 0
	}))

	// Line("step_key", "text", { conditions })
	L.SetGlobal("Line", L.NewFunction(func(L *lua.LState) int {
		coll.lines = append(coll.lines, rawLine{
			step:       L.CheckString(1),
			text:       L.CheckString(2),
			conditions: L.OptTable(3, nil),
		})
		return 0
	}))
}

func registerActionHelpers(L *lua.LState) {
	// Button("id", "Label", "style")
	L.SetGlobal("Button", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("kind", lua.LString("button"))
		tbl.RawSetString("id", lua.LString(L.CheckString(1)))
		tbl.RawSetString("label", lua.LString(L.CheckString(2)))
		tbl.RawSetString("style", lua.LString(L.OptString(3, "")))
		L.Push(tbl)
		return 1
	}))

	// Select("id", "Placeholder", { Option(...), ... })
	L.SetGlobal("Select", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("kind", lua.LString("select"))
		tbl.RawSetString("id", lua.LString(L.CheckString(1)))
		tbl.RawSetString("label", lua.LString(L.CheckString(2)))
		tbl.RawSetString("options", L.CheckTable(3))
		L.Push(tbl)
		return 1
	}))

	// Option("Label", "value")
	L.SetGlobal("Option", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("label", lua.LString(L.CheckString(1)))
		tbl.RawSetString("value", lua.LString(L.CheckString(2)))
		L.Push(tbl)
		return 1
	}))

	// Item("id", "Name", qty)
	L.SetGlobal("Item", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("id", lua.LString(L.CheckString(1)))
		tbl.RawSetString("name", lua.LString(L.CheckString(2)))
		tbl.RawSetString("qty", lua.LNumber(L.OptInt(3, 1)))
		L.Push(tbl)
		return 1
	}))

	// Loot("id", "Name", qty, chance)
	L.SetGlobal("Loot", L.NewFunction(func(L *lua.LState) int {
		tbl := L.NewTable()
		tbl.RawSetString("id", lua.LString(L.CheckString(1)))
		tbl.RawSetString("name", lua.LString(L.CheckString(2)))
		tbl.RawSetString("qty", lua.LNumber(L.OptInt(3, 1)))
		tbl.RawSetString("chance", lua.LNumber(L.OptNumber(4, 0)))
		L.Push(tbl)
		return 1
	}))
}

// condition builds a condition table from a type and key/value pairs.
func condition(L *lua.LState, typ string, kv ...any) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("type", lua.LString(typ))
	for i := 0; i+1 < len(kv); i += 2 {
		key := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			tbl.RawSetString(key, lua.LString(v))
		case lua.LNumber:
			tbl.RawSetString(key, v)
		}
	}
	return tbl
}

func registerConditionHelpers(L *lua.LState) {
	// StatGte("stat", value)
	L.SetGlobal("StatGte", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "stat_gte", "stat", L.CheckString(1), "value", L.CheckNumber(2)))
		return 1
	}))

	// StatLt("stat", value)
	L.SetGlobal("StatLt", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "stat_lt", "stat", L.CheckString(1), "value", L.CheckNumber(2)))
		return 1
	}))

	// LevelGte(value)
	L.SetGlobal("LevelGte", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "level_gte", "value", L.CheckNumber(1)))
		return 1
	}))

	// HasItem("item")
	L.SetGlobal("HasItem", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "has_item", "item", L.CheckString(1)))
		return 1
	}))

	// RaceIs("Race")
	L.SetGlobal("RaceIs", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "race_is", "race", L.CheckString(1)))
		return 1
	}))

	// FlagSet("flag")
	L.SetGlobal("FlagSet", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "flag_set", "flag", L.CheckString(1)))
		return 1
	}))

	// FlagNot("flag")
	L.SetGlobal("FlagNot", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "flag_not", "flag", L.CheckString(1)))
		return 1
	}))

	// CounterGte("counter", value)
	L.SetGlobal("CounterGte", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "counter_gte", "counter", L.CheckString(1), "value", L.CheckNumber(2)))
		return 1
	}))

	// CounterLt("counter", value)
	L.SetGlobal("CounterLt", L.NewFunction(func(L *lua.LState) int {
		L.Push(condition(L, "counter_lt", "counter", L.CheckString(1), "value", L.CheckNumber(2)))
		return 1
	}))

	// Not(condition)
	L.SetGlobal("Not", L.NewFunction(func(L *lua.LState) int {
		inner := L.CheckTable(1)
		tbl := condition(L, "not")
		tbl.RawSetString("inner", inner)
		L.Push(tbl)
		return 1
	}))
}
