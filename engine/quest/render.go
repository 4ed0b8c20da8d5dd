package quest

import (
	"strconv"

	"github.com/Elenyx/discordrpg/engine/dialogue"
	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/rules"
	"github.com/Elenyx/discordrpg/types"
)

// Generic action ids understood by every quest.
const (
	ActionContinue = "continue"
	ActionResume   = "resume_quest"
	ActionAbandon  = "abandon_quest"
	ActionEndNow   = "end_quest_now"
	ActionComplete = "complete_quest"
)

// EffectiveSteps concatenates the shared prefix, the race inset and the
// shared suffix into a new slice.
func EffectiveSteps(def *types.QuestDefinition, race string) []types.Step {
	inset := def.RaceSteps[race]
	steps := make([]types.Step, 0, len(def.Steps)+len(inset)+len(def.TailSteps))
	steps = append(steps, def.Steps...)
	steps = append(steps, inset...)
	return append(steps, def.TailSteps...)
}

// RenderStep returns step as the player should see it: augment actions
// whose conditions hold are appended and qualifying dialogue lines are
// added to the description. Neither def nor step is modified.
func RenderStep(def *types.QuestDefinition, step types.Step, p *types.Player, custom types.Custom) types.Step {
	env := rules.Env{Player: p, Custom: &custom}

	out := step
	out.Actions = make([]types.Action, 0, len(step.Actions))
	out.Actions = append(out.Actions, step.Actions...)
	for _, aug := range def.Augments {
		if aug.Step == step.Key && rules.EvalAllConditions(aug.When, env) {
			out.Actions = append(out.Actions, aug.Action)
		}
	}
	out.Description = dialogue.Compose(step.Description, dialogue.AvailableLines(def, step.Key, env))
	return out
}

// ContinueAction is the generic button bound to step n.
func ContinueAction(n int) types.Action {
	return types.Action{
		ID:    parser.FormatAction(ActionContinue, strconv.Itoa(n)),
		Label: "Continue",
		Kind:  types.KindButton,
		Style: types.StylePrimary,
	}
}

// Button is shorthand for a button action.
func Button(id, label, style string) types.Action {
	return types.Action{ID: id, Label: label, Kind: types.KindButton, Style: style}
}

func isGeneric(id string) bool {
	switch id {
	case ActionContinue, ActionResume, ActionAbandon, ActionEndNow, ActionComplete:
		return true
	}
	return false
}
