package loader

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

// ValidationError collects all validation errors and warnings.
type ValidationError struct {
	Errors   []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed with %d error(s):\n  %s",
		len(e.Errors), strings.Join(e.Errors, "\n  "))
}

// Known condition types.
var validConditionTypes = map[string]bool{
	"stat_gte":    true,
	"stat_lt":     true,
	"level_gte":   true,
	"has_item":    true,
	"race_is":     true,
	"flag_set":    true,
	"flag_not":    true,
	"counter_gte": true,
	"counter_lt":  true,
	"not":         true,
}

// validate checks the compiled definition for consistency.
func validate(def *types.QuestDefinition) error {
	ve := &ValidationError{}

	if def.ID == "" {
		ve.Errors = append(ve.Errors, "Quest id is required")
	}
	if def.Title == "" {
		ve.Errors = append(ve.Errors, "Quest.title is required")
	}
	if len(def.Steps)+len(def.TailSteps) == 0 {
		ve.Errors = append(ve.Errors, "quest has no steps")
	}

	// Step keys must be unique across every effective list.
	keys := map[string]bool{}
	checkStep := func(where string, s types.Step) {
		if s.Title == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s step %q has no title", where, s.Key))
		}
		validateActions(fmt.Sprintf("%s step %q", where, s.Key), s.Actions, ve)
	}
	for _, s := range def.Steps {
		if keys[s.Key] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate step key %q", s.Key))
		}
		keys[s.Key] = true
		checkStep("base", s)
	}
	for _, s := range def.TailSteps {
		if keys[s.Key] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("duplicate step key %q", s.Key))
		}
		keys[s.Key] = true
		checkStep("tail", s)
	}

	races := make([]string, 0, len(def.RaceSteps))
	for race := range def.RaceSteps {
		races = append(races, race)
	}
	sort.Strings(races)
	for _, race := range races {
		if !knownRace(race) {
			ve.Warnings = append(ve.Warnings, fmt.Sprintf("race steps for unknown race %q", race))
		}
		seen := map[string]bool{}
		for _, s := range def.RaceSteps[race] {
			if keys[s.Key] || seen[s.Key] {
				ve.Errors = append(ve.Errors, fmt.Sprintf("race %q step key %q collides", race, s.Key))
			}
			seen[s.Key] = true
			checkStep(race, s)
		}
		for k := range seen {
			keys[k] = true
		}
	}

	for i, a := range def.Augments {
		if !keys[a.Step] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("augment %d targets undefined step %q", i+1, a.Step))
		}
		validateActions(fmt.Sprintf("augment %d", i+1), []types.Action{a.Action}, ve)
		validateConditions(fmt.Sprintf("augment %d", i+1), a.When, ve)
	}

	for step, lines := range def.Dialogue {
		if !keys[step] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("line targets undefined step %q", step))
		}
		for _, l := range lines {
			validateConditions(fmt.Sprintf("line on %q", step), l.Requires, ve)
		}
	}

	for action, c := range def.Consequences {
		for _, l := range c.Loot {
			if l.ID == "" {
				ve.Errors = append(ve.Errors, fmt.Sprintf("consequence %q has loot without an id", action))
			}
			if l.Chance < 0 || l.Chance > 1 {
				ve.Errors = append(ve.Errors, fmt.Sprintf("consequence %q loot %q chance %v outside [0,1]", action, l.ID, l.Chance))
			}
		}
	}

	for _, it := range def.Rewards.Items {
		if it.ID == "" {
			ve.Errors = append(ve.Errors, "reward item without an id")
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateActions(where string, actions []types.Action, ve *ValidationError) {
	ids := map[string]bool{}
	for _, a := range actions {
		if a.ID == "" {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s has an action without an id", where))
			continue
		}
		if strings.Contains(a.ID, "::") {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s action %q must not contain \"::\"", where, a.ID))
		}
		if ids[a.ID] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s has duplicate action %q", where, a.ID))
		}
		ids[a.ID] = true
		switch a.Kind {
		case types.KindButton:
		case types.KindSelect:
			if len(a.Options) == 0 {
				ve.Errors = append(ve.Errors, fmt.Sprintf("%s select %q has no options", where, a.ID))
			}
		default:
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s action %q has unknown kind %q", where, a.ID, a.Kind))
		}
	}
}

func validateConditions(where string, conds []types.Condition, ve *ValidationError) {
	for _, c := range conds {
		if !validConditionTypes[c.Type] {
			ve.Errors = append(ve.Errors, fmt.Sprintf("%s has unknown condition type %q", where, c.Type))
		}
		if c.Inner != nil {
			validateConditions(where, []types.Condition{*c.Inner}, ve)
		}
	}
}

func knownRace(race string) bool {
	for _, r := range state.Races {
		if r.Value == race {
			return true
		}
	}
	return false
}
