package loader

import (
	"testing"

	lua "github.com/yuin/gopher-lua"
)

// newTestVM creates a sandboxed Lua VM with the API registered and a fresh collector.
func newTestVM() (*lua.LState, *collector) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	openSafeLibs(L)
	sandbox(L)
	coll := &collector{}
	registerAPI(L, coll)
	return L, coll
}

func TestCompileAction_DefaultsToButton(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return { id = "go", label = "Go" }`); err != nil {
		t.Fatal(err)
	}
	a := compileAction(L.CheckTable(-1))
	if a.Kind != "button" || a.ID != "go" || a.Label != "Go" {
		t.Errorf("action = %+v", a)
	}
}

func TestCompileCondition_Helpers(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	tests := []struct {
		src   string
		typ   string
		param string
		want  any
	}{
		{`return StatGte("charisma", 2)`, "stat_gte", "value", 2},
		{`return StatLt("power", 50)`, "stat_lt", "stat", "power"},
		{`return LevelGte(5)`, "level_gte", "value", 5},
		{`return HasItem("map_fragment")`, "has_item", "item", "map_fragment"},
		{`return RaceIs("Mink")`, "race_is", "race", "Mink"},
		{`return FlagSet("fed")`, "flag_set", "flag", "fed"},
		{`return FlagNot("fed")`, "flag_not", "flag", "fed"},
		{`return CounterGte("trainingCount", 3)`, "counter_gte", "counter", "trainingCount"},
		{`return CounterLt("trainingCount", 3)`, "counter_lt", "value", 3},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if err := L.DoString(tt.src); err != nil {
				t.Fatal(err)
			}
			c := compileCondition(L.CheckTable(-1))
			L.Pop(1)
			if c.Type != tt.typ {
				t.Errorf("Type = %q, want %q", c.Type, tt.typ)
			}
			if c.Params[tt.param] != tt.want {
				t.Errorf("Params[%q] = %v, want %v", tt.param, c.Params[tt.param], tt.want)
			}
		})
	}
}

func TestCompileCondition_Not(t *testing.T) {
	L, _ := newTestVM()
	defer L.Close()

	if err := L.DoString(`return Not(FlagSet("x"))`); err != nil {
		t.Fatal(err)
	}
	c := compileCondition(L.CheckTable(-1))
	if c.Type != "not" || !c.Negate || c.Inner == nil || c.Inner.Type != "flag_set" {
		t.Errorf("condition = %+v", c)
	}
	if _, ok := c.Params["inner"]; ok {
		t.Error("inner should not leak into params")
	}
}

func TestCompile_CollectsSections(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	err := L.DoString(`
		Quest "q" { title = "Q" }
		Step "a" { title = "A" }
		RaceStep("Giant", "g") { title = "G" }
		TailStep "z" { title = "Z" }
		Step "b" { title = "B" }
	`)
	if err != nil {
		t.Fatal(err)
	}
	def, err := compile(coll)
	if err != nil {
		t.Fatal(err)
	}
	if len(def.Steps) != 2 || def.Steps[1].Key != "b" {
		t.Errorf("base steps = %+v", def.Steps)
	}
	if def.RaceSteps["Giant"][0].Key != "g" || def.TailSteps[0].Key != "z" {
		t.Errorf("race=%+v tail=%+v", def.RaceSteps, def.TailSteps)
	}
	if def.Version != 1 {
		t.Errorf("default version = %d", def.Version)
	}
}

func TestCompile_DuplicateConsequence(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	err := L.DoString(`
		Quest "q" { title = "Q" }
		Consequence "a" { message = "one" }
		Consequence "a" { message = "two" }
	`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := compile(coll); err == nil {
		t.Fatal("expected duplicate consequence error")
	}
}

func TestItemAndLootDefaults(t *testing.T) {
	L, coll := newTestVM()
	defer L.Close()

	err := L.DoString(`
		Quest "q" { title = "Q", rewards = { items = { Item("hat", "Hat") } } }
		Consequence "a" { loot = { Loot("gem", "Gem") } }
	`)
	if err != nil {
		t.Fatal(err)
	}
	def, err := compile(coll)
	if err != nil {
		t.Fatal(err)
	}
	if def.Rewards.Items[0].Qty != 1 {
		t.Errorf("item qty default = %d", def.Rewards.Items[0].Qty)
	}
	loot := def.Consequences["a"].Loot[0]
	if loot.Qty != 1 || loot.Chance != 0 {
		t.Errorf("loot defaults = %+v", loot)
	}
}
