package quest

import (
	"context"
	"errors"
	"reflect"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/save"
	"github.com/Elenyx/discordrpg/types"
)

// testDef builds a three-section quest: one shared step, a Fishman inset
// and one tail step.
func testDef() *types.QuestDefinition {
	return &types.QuestDefinition{
		ID:      "test",
		Title:   "Test Quest",
		Version: 1,
		Steps: []types.Step{
			{Key: "a", Title: "A", Description: "Step A.", Actions: []types.Action{
				{ID: "go", Label: "Go", Kind: types.KindButton},
				{ID: "talk", Label: "Talk", Kind: types.KindButton},
				{ID: "park", Label: "Park", Kind: types.KindButton},
			}},
		},
		RaceSteps: map[string][]types.Step{
			"Fishman": {{Key: "swim", Title: "Swim", Actions: []types.Action{{ID: "dive", Kind: types.KindButton}}}},
		},
		TailSteps: []types.Step{
			{Key: "z", Title: "Z", Description: "Step Z.", Actions: []types.Action{{ID: "fight", Kind: types.KindButton}}},
		},
		Consequences: map[string]types.Consequence{
			"go": {Stats: map[string]int{"charisma": 1}, Message: "Went."},
		},
		Augments: []types.Augment{{
			Step:   "a",
			When:   []types.Condition{{Type: "stat_gte", Params: map[string]any{"stat": "charisma", "value": 1}}},
			Action: types.Action{ID: "bonus", Label: "Bonus", Kind: types.KindButton},
		}},
		Dialogue: map[string][]types.Line{
			"z": {{Text: "You went.", Requires: []types.Condition{{Type: "flag_set", Params: map[string]any{"flag": "went"}}}}},
		},
	}
}

type testType struct {
	Base
	handlers map[string]Handler
}

func (t testType) Handlers() map[string]Handler { return t.handlers }

func newTestType(handlers map[string]Handler) testType {
	return testType{Base: Base{Def: testDef()}, handlers: handlers}
}

func testDeps() Deps {
	return Deps{
		RNG: rng.NewSequence(0.5),
		Now: func() time.Time { return time.Unix(1700000000, 0) },
	}
}

func testPlayer(race string) *types.Player {
	return &types.Player{ActorID: "u1", Race: race, Level: 1, Stats: map[string]int{"power": 10}}
}

func act(id string) Call {
	return Call{Ref: parser.ParseAction(id)}
}

func actionIDs(p types.RenderPayload) []string {
	ids := make([]string, len(p.Actions))
	for i, a := range p.Actions {
		ids[i] = a.ID
	}
	return ids
}

func TestEffectiveSteps_RaceInset(t *testing.T) {
	def := testDef()
	tests := []struct {
		race string
		want []string
	}{
		{"Fishman", []string{"a", "swim", "z"}},
		{"Human", []string{"a", "z"}},
	}
	for _, tt := range tests {
		var keys []string
		for _, s := range EffectiveSteps(def, tt.race) {
			keys = append(keys, s.Key)
		}
		if !slices.Equal(keys, tt.want) {
			t.Errorf("%s: steps = %v, want %v", tt.race, keys, tt.want)
		}
	}
}

func TestRenderStep_AugmentsWithoutMutating(t *testing.T) {
	def := testDef()
	p := testPlayer("Human")

	plain := RenderStep(def, def.Steps[0], p, types.Custom{})
	if len(plain.Actions) != 3 {
		t.Fatalf("expected 3 actions below threshold, got %d", len(plain.Actions))
	}

	p.Stats["charisma"] = 1
	aug := RenderStep(def, def.Steps[0], p, types.Custom{})
	if len(aug.Actions) != 4 || aug.Actions[3].ID != "bonus" {
		t.Errorf("augmented actions = %v", aug.Actions)
	}
	if len(def.Steps[0].Actions) != 3 {
		t.Error("RenderStep modified the definition")
	}
}

func TestRenderStep_GatedDialogue(t *testing.T) {
	def := testDef()
	step := def.TailSteps[0]

	got := RenderStep(def, step, testPlayer("Human"), types.Custom{Flags: map[string]bool{"went": true}})
	if got.Description != "Step Z.\n\nYou went." {
		t.Errorf("description = %q", got.Description)
	}
	if step.Description != "Step Z." {
		t.Error("RenderStep modified the step")
	}
}

func TestStart(t *testing.T) {
	in := New(newTestType(nil), testPlayer("Human"), testDeps())
	if in.State() != types.StateAvailable {
		t.Fatalf("new instance state = %s", in.State())
	}

	out := in.Start()
	if in.State() != types.StateInProgress || in.CurrentStep() != 1 {
		t.Errorf("after start: %s step %d", in.State(), in.CurrentStep())
	}
	if out.Title != "A" || out.Text != "Step A." {
		t.Errorf("payload = %+v", out)
	}
	if !slices.Equal(in.Custom().Offered, []string{"go", "talk", "park"}) {
		t.Errorf("offered = %v", in.Custom().Offered)
	}
	if evts := in.DrainEvents(); len(evts) != 1 || evts[0].Type != "quest_started" {
		t.Errorf("events = %v", evts)
	}
}

func TestHandleAction_ConsequenceAdvances(t *testing.T) {
	p := testPlayer("Human")
	in := New(newTestType(nil), p, testDeps())
	in.Start()

	out, err := in.HandleAction(context.Background(), act("go"))
	if err != nil {
		t.Fatal(err)
	}
	if in.CurrentStep() != 2 {
		t.Errorf("step = %d, want 2", in.CurrentStep())
	}
	if len(in.Custom().History) != 1 || in.Custom().History[0].Action != "go" {
		t.Errorf("history = %+v", in.Custom().History)
	}
	if p.Stats["charisma"] != 1 {
		t.Errorf("charisma = %d", p.Stats["charisma"])
	}
	if !strings.HasPrefix(out.Text, "Went.\n+1 charisma") || out.Title != "Z" {
		t.Errorf("payload = %+v", out)
	}
}

func TestHandleAction_UnknownAdvances(t *testing.T) {
	in := New(newTestType(nil), testPlayer("Human"), testDeps())
	in.Start()

	if _, err := in.HandleAction(context.Background(), act("tpyo")); err != nil {
		t.Fatal(err)
	}
	if in.CurrentStep() != 2 {
		t.Errorf("step = %d, want 2", in.CurrentStep())
	}
}

func TestHandleAction_StaleActionRerenders(t *testing.T) {
	in := New(newTestType(nil), testPlayer("Human"), testDeps())
	in.Start()

	// "fight" belongs to the tail step and was never offered here.
	out, err := in.HandleAction(context.Background(), act("fight"))
	if err != nil {
		t.Fatal(err)
	}
	if in.CurrentStep() != 1 {
		t.Errorf("step = %d, want 1", in.CurrentStep())
	}
	if !strings.Contains(out.Text, "isn't available") {
		t.Errorf("text = %q", out.Text)
	}
}

func TestHandleAction_StaleActionKeepsQuestParked(t *testing.T) {
	handlers := map[string]Handler{
		"park": func(_ context.Context, in *Instance, _ Call) (Outcome, error) {
			in.SetState(types.StateAvailable)
			return Outcome{Text: "parked", Actions: []types.Action{Button(ActionResume, "Resume", types.StylePrimary)}}, nil
		},
	}
	in := New(newTestType(handlers), testPlayer("Human"), testDeps())
	in.Start()
	in.HandleAction(context.Background(), act("park"))

	out, err := in.HandleAction(context.Background(), act("fight"))
	if err != nil {
		t.Fatal(err)
	}
	if in.State() != types.StateAvailable {
		t.Errorf("state = %s, want available", in.State())
	}
	if !strings.Contains(out.Text, "isn't available") {
		t.Errorf("text = %q", out.Text)
	}
}

func TestHandleAction_ActionlessStepOffersContinue(t *testing.T) {
	def := testDef()
	def.Steps = append(def.Steps, types.Step{Key: "story", Title: "Story", Description: "Time passes."})
	in := New(testType{Base: Base{Def: def}}, testPlayer("Human"), testDeps())
	in.Start()

	out, err := in.HandleAction(context.Background(), act("go"))
	if err != nil {
		t.Fatal(err)
	}
	if out.Title != "Story" {
		t.Fatalf("title = %q, want Story", out.Title)
	}
	if got := actionIDs(out); !slices.Equal(got, []string{"continue::3"}) {
		t.Fatalf("actions = %v, want [continue::3]", got)
	}

	out, err = in.HandleAction(context.Background(), act("continue::3"))
	if err != nil {
		t.Fatal(err)
	}
	if in.CurrentStep() != 3 || out.Title != "Z" {
		t.Errorf("step = %d title = %q, want 3 Z", in.CurrentStep(), out.Title)
	}
}

func TestHandleAction_LegacySnapshotIsPermissive(t *testing.T) {
	snap := types.QuestSnapshot{QuestID: "test", State: types.StateInProgress, CurrentStep: 1, Version: 1}
	in, err := Restore(newTestType(nil), snap, testPlayer("Human"), testDeps())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.HandleAction(context.Background(), act("fight")); err != nil {
		t.Fatal(err)
	}
	if in.CurrentStep() != 2 {
		t.Errorf("step = %d, want 2", in.CurrentStep())
	}
}

func TestHandleAction_Continue(t *testing.T) {
	tests := []struct {
		action string
		want   int
	}{
		{"continue::2", 2},
		{"continue::1", 1},
		{"continue::5", 1},
		{"continue", 1},
		{"continue::abc", 1},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			in := New(newTestType(nil), testPlayer("Human"), testDeps())
			in.Start()
			if _, err := in.HandleAction(context.Background(), act(tt.action)); err != nil {
				t.Fatal(err)
			}
			if in.CurrentStep() != tt.want {
				t.Errorf("step = %d, want %d", in.CurrentStep(), tt.want)
			}
		})
	}
}

func TestHandleAction_ContinueSynthesis(t *testing.T) {
	handlers := map[string]Handler{
		"go": func(context.Context, *Instance, Call) (Outcome, error) {
			return Outcome{Text: "next"}, nil
		},
		"talk": func(context.Context, *Instance, Call) (Outcome, error) {
			return Outcome{Text: "stay", Stay: true}, nil
		},
		"park": func(context.Context, *Instance, Call) (Outcome, error) {
			return Outcome{Text: "moved", Advance: 1}, nil
		},
	}
	tests := []struct {
		action   string
		wantStep int
		wantAct  string
	}{
		{"go", 1, "continue::2"},
		{"talk", 1, "continue::1"},
		{"park", 2, "continue::2"},
	}
	for _, tt := range tests {
		t.Run(tt.action, func(t *testing.T) {
			in := New(newTestType(handlers), testPlayer("Human"), testDeps())
			in.Start()
			out, err := in.HandleAction(context.Background(), act(tt.action))
			if err != nil {
				t.Fatal(err)
			}
			if in.CurrentStep() != tt.wantStep {
				t.Errorf("step = %d, want %d", in.CurrentStep(), tt.wantStep)
			}
			if ids := actionIDs(out); !slices.Equal(ids, []string{tt.wantAct}) {
				t.Errorf("actions = %v, want [%s]", ids, tt.wantAct)
			}
		})
	}
}

func TestHandleAction_HandlerError(t *testing.T) {
	boom := errors.New("boom")
	in := New(newTestType(map[string]Handler{
		"go": func(context.Context, *Instance, Call) (Outcome, error) { return Outcome{}, boom },
	}), testPlayer("Human"), testDeps())
	in.Start()

	if _, err := in.HandleAction(context.Background(), act("go")); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if in.CurrentStep() != 1 {
		t.Errorf("step moved on error: %d", in.CurrentStep())
	}
}

func TestProgress_CompletesWhenNoStepRemains(t *testing.T) {
	in := New(newTestType(nil), testPlayer("Human"), testDeps())
	in.Start()
	ctx := context.Background()

	in.HandleAction(ctx, act("go"))
	out, err := in.HandleAction(ctx, act("fight"))
	if err != nil {
		t.Fatal(err)
	}
	if in.State() != types.StateCompleted || in.Remaining() {
		t.Fatalf("state = %s remaining=%v", in.State(), in.Remaining())
	}
	if ids := actionIDs(out); !slices.Equal(ids, []string{ActionComplete}) {
		t.Errorf("actions = %v", ids)
	}

	if _, err := in.HandleAction(ctx, act("go")); !errors.Is(err, ErrQuestNotActive) {
		t.Errorf("completed instance accepted action: %v", err)
	}
}

func TestHandleAction_AvailableAndAbandon(t *testing.T) {
	handlers := map[string]Handler{
		"park": func(_ context.Context, in *Instance, _ Call) (Outcome, error) {
			in.SetState(types.StateAvailable)
			return Outcome{Text: "parked", Actions: []types.Action{Button(ActionEndNow, "Give up", types.StyleDanger)}}, nil
		},
	}
	ctx := context.Background()

	in := New(newTestType(handlers), testPlayer("Human"), testDeps())
	in.Start()
	in.HandleAction(ctx, act("park"))
	if in.State() != types.StateAvailable {
		t.Fatalf("state = %s, want available", in.State())
	}
	in.HandleAction(ctx, act("talk"))
	if in.State() != types.StateInProgress {
		t.Errorf("non-generic action left state %s", in.State())
	}

	out, err := in.HandleAction(ctx, act(ActionEndNow))
	if err != nil {
		t.Fatal(err)
	}
	if in.State() != types.StateAbandoned || len(out.Actions) != 0 {
		t.Errorf("after end: %s %+v", in.State(), out)
	}
	if _, err := in.HandleAction(ctx, act(ActionResume)); !errors.Is(err, ErrQuestNotActive) {
		t.Errorf("abandoned instance accepted resume: %v", err)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snaps := []types.QuestSnapshot{
		{QuestID: "test", State: types.StateInProgress, CurrentStep: 1, Version: 1},
		{QuestID: "test", State: types.StateAvailable, CurrentStep: 2, Version: 1, Custom: types.Custom{
			History:  []types.HistoryEntry{{ID: "01H", Action: "go", Stats: map[string]int{"charisma": 1}, At: 1}},
			Counters: map[string]int{"trainingCount": 2},
			Flags:    map[string]bool{"went": true},
			Offered:  []string{"dive"},
		}},
		{QuestID: "test", State: types.StateCompleted, CurrentStep: 4, Version: 1},
	}
	for _, s := range snaps {
		in, err := Restore(newTestType(nil), s, testPlayer("Fishman"), testDeps())
		if err != nil {
			t.Fatal(err)
		}
		if got := in.Snapshot(); !reflect.DeepEqual(got, s) {
			t.Errorf("round trip:\n got %+v\nwant %+v", got, s)
		}

		data, err := save.EncodeSnapshot(in.Snapshot())
		if err != nil {
			t.Fatal(err)
		}
		decoded, err := save.DecodeSnapshot(data)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(decoded, s) {
			t.Errorf("json round trip:\n got %+v\nwant %+v", decoded, s)
		}
	}
}

func TestSnapshotIsDetached(t *testing.T) {
	in := New(newTestType(nil), testPlayer("Human"), testDeps())
	in.Start()
	snap := in.Snapshot()
	in.SetFlag("later")
	if snap.Custom.Flags["later"] {
		t.Error("snapshot shares state with the instance")
	}
}

func TestRestore_WrongQuest(t *testing.T) {
	_, err := Restore(newTestType(nil), types.QuestSnapshot{QuestID: "other", CurrentStep: 1}, testPlayer("Human"), testDeps())
	if !errors.Is(err, ErrQuestNotFound) {
		t.Fatalf("err = %v, want ErrQuestNotFound", err)
	}
}
