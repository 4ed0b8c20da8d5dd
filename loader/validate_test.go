package loader

import (
	"testing"

	"github.com/Elenyx/discordrpg/types"
)

// validDef returns a minimal valid definition for testing.
func validDef() *types.QuestDefinition {
	return &types.QuestDefinition{
		ID:    "q",
		Title: "Test",
		Steps: []types.Step{
			{Key: "start", Title: "Start", Actions: []types.Action{{ID: "go", Label: "Go", Kind: types.KindButton}}},
		},
		RaceSteps:    map[string][]types.Step{},
		Consequences: map[string]types.Consequence{},
	}
}

func TestValidate_ValidDef(t *testing.T) {
	if err := validate(validDef()); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
}

func TestValidate_EmptyTitle(t *testing.T) {
	def := validDef()
	def.Title = ""
	err := validate(def)
	if err == nil {
		t.Fatal("expected error for empty title")
	}
	assertContains(t, err.(*ValidationError).Errors, "title")
}

func TestValidate_NoSteps(t *testing.T) {
	def := validDef()
	def.Steps = nil
	err := validate(def)
	if err == nil {
		t.Fatal("expected error for quest without steps")
	}
	assertContains(t, err.(*ValidationError).Errors, "no steps")
}

func TestValidate_DuplicateStepKeys(t *testing.T) {
	def := validDef()
	def.TailSteps = []types.Step{{Key: "start", Title: "Again"}}
	err := validate(def)
	if err == nil {
		t.Fatal("expected duplicate key error")
	}
	assertContains(t, err.(*ValidationError).Errors, "duplicate step key")
}

func TestValidate_RaceStepCollision(t *testing.T) {
	def := validDef()
	def.RaceSteps["Human"] = []types.Step{{Key: "start", Title: "Human"}}
	err := validate(def)
	if err == nil {
		t.Fatal("expected collision error")
	}
	assertContains(t, err.(*ValidationError).Errors, "collides")
}

func TestValidate_UnknownRaceIsWarningOnly(t *testing.T) {
	def := validDef()
	def.RaceSteps["Dragon"] = []types.Step{{Key: "fly", Title: "Fly"}}
	if err := validate(def); err != nil {
		t.Fatalf("unknown race should only warn, got %v", err)
	}
}

func TestValidate_UnknownActionKind(t *testing.T) {
	def := validDef()
	def.Steps[0].Actions = append(def.Steps[0].Actions, types.Action{ID: "x", Kind: "slider"})
	err := validate(def)
	if err == nil {
		t.Fatal("expected unknown kind error")
	}
	assertContains(t, err.(*ValidationError).Errors, "unknown kind")
}

func TestValidate_NestedConditionType(t *testing.T) {
	def := validDef()
	def.Augments = []types.Augment{{
		Step:   "start",
		When:   []types.Condition{{Type: "not", Inner: &types.Condition{Type: "in_room"}}},
		Action: types.Action{ID: "extra", Kind: types.KindButton},
	}}
	err := validate(def)
	if err == nil {
		t.Fatal("expected unknown condition error")
	}
	assertContains(t, err.(*ValidationError).Errors, `"in_room"`)
}

func TestValidate_LineOnUndefinedStep(t *testing.T) {
	def := validDef()
	def.Dialogue = map[string][]types.Line{"nowhere": {{Text: "hi"}}}
	err := validate(def)
	if err == nil {
		t.Fatal("expected undefined step error")
	}
	assertContains(t, err.(*ValidationError).Errors, "undefined step")
}

func TestValidate_RewardItemID(t *testing.T) {
	def := validDef()
	def.Rewards.Items = []types.Item{{Name: "Nameless"}}
	err := validate(def)
	if err == nil {
		t.Fatal("expected reward item error")
	}
	assertContains(t, err.(*ValidationError).Errors, "reward item")
}
