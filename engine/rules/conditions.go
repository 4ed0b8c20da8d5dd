// Package rules evaluates the declarative conditions that gate augmented
// actions and narrative lines.
package rules

import (
	"strings"

	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

// Env is what a condition can see: the player and the quest's progress.
// Custom may be nil when no quest is active.
type Env struct {
	Player *types.Player
	Custom *types.Custom
}

func (e Env) flag(name string) bool {
	if e.Custom == nil {
		return false
	}
	return e.Custom.Flags[name]
}

func (e Env) counter(name string) int {
	if e.Custom == nil {
		return 0
	}
	return e.Custom.Counters[name]
}

// EvalCondition evaluates a single condition.
func EvalCondition(c types.Condition, env Env) bool {
	switch c.Type {
	case "stat_gte":
		stat, _ := c.Params["stat"].(string)
		return statValue(env.Player, stat) >= toInt(c.Params["value"])

	case "stat_lt":
		stat, _ := c.Params["stat"].(string)
		return statValue(env.Player, stat) < toInt(c.Params["value"])

	case "level_gte":
		return state.Level(env.Player) >= toInt(c.Params["value"])

	case "has_item":
		item, _ := c.Params["item"].(string)
		return state.HasItem(env.Player, item)

	case "race_is":
		race, _ := c.Params["race"].(string)
		return env.Player != nil && strings.EqualFold(env.Player.Race, race)

	case "flag_set":
		flag, _ := c.Params["flag"].(string)
		return env.flag(flag)

	case "flag_not":
		flag, _ := c.Params["flag"].(string)
		return !env.flag(flag)

	case "counter_gte":
		counter, _ := c.Params["counter"].(string)
		return env.counter(counter) >= toInt(c.Params["value"])

	case "counter_lt":
		counter, _ := c.Params["counter"].(string)
		return env.counter(counter) < toInt(c.Params["value"])

	case "not":
		if c.Inner == nil {
			return true
		}
		return !EvalCondition(*c.Inner, env)

	default:
		return false
	}
}

// EvalAllConditions returns true if all conditions pass (AND logic).
// An empty condition list is vacuously true.
func EvalAllConditions(conditions []types.Condition, env Env) bool {
	for _, c := range conditions {
		if !EvalCondition(c, env) {
			return false
		}
	}
	return true
}

// statValue reads power through its level default.
func statValue(p *types.Player, stat string) int {
	if stat == "power" {
		return state.Power(p)
	}
	return state.Stat(p, stat)
}

// toInt converts an any value to int, handling float64 from JSON/Lua.
func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	case int64:
		return int(n)
	default:
		return 0
	}
}
