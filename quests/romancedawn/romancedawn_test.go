package romancedawn

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Elenyx/discordrpg/engine/events"
	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/quest"
	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/engine/tokens"
	"github.com/Elenyx/discordrpg/types"
)

// Step numbers for a Human player.
const (
	stepBarrel    = 1
	stepDream     = 3
	stepZoro      = 6
	stepChallenge = 7
)

func mustQuest(t *testing.T) *Quest {
	t.Helper()
	q, err := New()
	if err != nil {
		t.Fatalf("loading romance_dawn: %v", err)
	}
	return q
}

func player(race string, stats map[string]int) *types.Player {
	return &types.Player{ActorID: "u1", Race: race, Level: 1, Stats: stats}
}

func deps(src rng.Source, store *tokens.Store) quest.Deps {
	return quest.Deps{
		RNG:    src,
		Tokens: store,
		Now:    func() time.Time { return time.Unix(1700000000, 0) },
	}
}

// at restores an in-progress instance at the given step with no offer
// history, so any authored action is accepted.
func at(t *testing.T, q *Quest, p *types.Player, d quest.Deps, step int, counters map[string]int) *quest.Instance {
	t.Helper()
	in, err := quest.Restore(q, types.QuestSnapshot{
		QuestID:     ID,
		State:       types.StateInProgress,
		CurrentStep: step,
		Version:     1,
		Custom:      types.Custom{Counters: counters},
	}, p, d)
	if err != nil {
		t.Fatal(err)
	}
	return in
}

func call(id string, values ...string) quest.Call {
	return quest.Call{Ref: parser.ParseAction(id), Values: values}
}

func ids(actions []types.Action) []string {
	out := make([]string, len(actions))
	for i, a := range actions {
		out[i] = parser.ParseAction(a.ID).ID
	}
	return out
}

func eventTypes(evts []types.Event) []string {
	out := make([]string, len(evts))
	for i, e := range evts {
		out[i] = e.Type
	}
	return out
}

func TestNew_EmbeddedDefinition(t *testing.T) {
	q := mustQuest(t)
	def := q.Definition()
	if def.ID != ID || def.Title != "Romance Dawn" {
		t.Errorf("definition = %s %q", def.ID, def.Title)
	}
	if len(def.Steps) != 3 || len(def.TailSteps) != 3 {
		t.Errorf("base=%d tail=%d", len(def.Steps), len(def.TailSteps))
	}
	if def.Rewards.Berries != 100 || def.Rewards.Exp != 50 || def.Rewards.Items[0].ID != "straw_hat" {
		t.Errorf("rewards = %+v", def.Rewards)
	}
}

func TestRaceInsets(t *testing.T) {
	q := mustQuest(t)
	tests := []struct {
		race  string
		inset string
	}{
		{"Human", "human_resilience"},
		{"Fishman", "fishman_abilities"},
		{"Mink", "electro_power"},
		{"Giant", "giant_strength"},
		{"Skypiean", "wings_of_the_sky"},
	}
	for _, tt := range tests {
		steps := q.GenerateSteps(player(tt.race, nil))
		if len(steps) != 7 {
			t.Errorf("%s: %d steps, want 7", tt.race, len(steps))
			continue
		}
		if steps[3].Key != tt.inset || steps[6].Key != "the_challenge" {
			t.Errorf("%s: inset=%s last=%s", tt.race, steps[3].Key, steps[6].Key)
		}
	}
}

func TestSearchBarrel_AdvancesAndRecords(t *testing.T) {
	q := mustQuest(t)
	p := player("Human", map[string]int{"charisma": 0})
	in := quest.New(q, p, deps(rng.NewSequence(0.9), nil))
	in.Start()

	out, err := in.HandleAction(context.Background(), call("search_barrel"))
	if err != nil {
		t.Fatal(err)
	}
	if in.CurrentStep() != 2 {
		t.Errorf("step = %d, want 2", in.CurrentStep())
	}
	if h := in.Custom().History; len(h) != 1 || h[0].Action != "search_barrel" {
		t.Errorf("history = %+v", h)
	}
	if state.HasItem(p, ItemMapFragment) {
		t.Error("0.9 roll should miss the 50% fragment")
	}
	// searched_barrel unlocks the extra line on the next step.
	if out.Title != "Meeting Luffy" || !strings.Contains(out.Text, "soaked, starving") {
		t.Errorf("payload = %+v", out)
	}
}

func TestIgnoreBarrel_ParksThenReconsiders(t *testing.T) {
	q := mustQuest(t)
	in := quest.New(q, player("Human", nil), deps(rng.NewSequence(0.5), nil))
	in.Start()
	ctx := context.Background()

	out, err := in.HandleAction(ctx, call(ActionIgnore))
	if err != nil {
		t.Fatal(err)
	}
	if in.State() != types.StateAvailable {
		t.Errorf("state = %s, want available", in.State())
	}
	if got := ids(out.Actions); !slices.Equal(got, []string{ActionInvestigate, quest.ActionEndNow}) {
		t.Errorf("actions = %v", got)
	}

	if _, err := in.HandleAction(ctx, call(ActionInvestigate)); err != nil {
		t.Fatal(err)
	}
	if in.State() != types.StateInProgress || in.CurrentStep() != 2 {
		t.Errorf("after reconsider: %s step %d", in.State(), in.CurrentStep())
	}
}

func TestFlatterLuffy_OnlyAboveCharismaThreshold(t *testing.T) {
	q := mustQuest(t)
	d := deps(rng.NewSequence(0.5), nil)

	low := at(t, q, player("Human", map[string]int{"charisma": 1}), d, stepDream, nil)
	if slices.Contains(ids(low.Progress().Actions), ActionFlatter) {
		t.Error("flatter offered below charisma 2")
	}
	high := at(t, q, player("Human", map[string]int{"charisma": 2}), d, stepDream, nil)
	if !slices.Contains(ids(high.Progress().Actions), ActionFlatter) {
		t.Error("flatter missing at charisma 2")
	}

	out, err := high.HandleAction(context.Background(), call(ActionFlatter))
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(out.Actions); !slices.Equal(got, []string{quest.ActionContinue}) {
		t.Errorf("actions = %v", got)
	}
	if out.Actions[0].ID != "continue::4" {
		t.Errorf("continue = %s, want continue::4", out.Actions[0].ID)
	}
}

func TestFreeZoro(t *testing.T) {
	q := mustQuest(t)
	tests := []struct {
		value     string
		wantStep  int
		wantState types.QuestState
		wantFlag  string
	}{
		{OptionFreeYes, stepChallenge, types.StateInProgress, FlagFreedZoro},
		{OptionFreeNo, stepChallenge + 1, types.StateCompleted, FlagLeftZoro},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			in := at(t, q, player("Human", nil), deps(rng.NewSequence(0.5), nil), stepZoro, nil)
			if _, err := in.HandleAction(context.Background(), call(ActionFreeZoro, tt.value)); err != nil {
				t.Fatal(err)
			}
			if in.CurrentStep() != tt.wantStep || in.State() != tt.wantState {
				t.Errorf("step %d state %s, want %d %s", in.CurrentStep(), in.State(), tt.wantStep, tt.wantState)
			}
			if !in.Flag(tt.wantFlag) {
				t.Errorf("flag %s not set", tt.wantFlag)
			}
		})
	}
}

func TestFightMorgan_GatedOnTraining(t *testing.T) {
	q := mustQuest(t)
	in := at(t, q, player("Human", map[string]int{"power": 10}), deps(rng.NewSequence(0.99), nil), stepChallenge, nil)
	ctx := context.Background()

	for i := range 3 {
		out, err := in.HandleAction(ctx, call(ActionFight))
		if err != nil {
			t.Fatal(err)
		}
		if got := ids(out.Actions); !slices.Equal(got, []string{ActionTrain, ActionSpar, ActionFish}) {
			t.Errorf("attempt %d: actions = %v", i+1, got)
		}
	}
	if slices.Contains(eventTypes(in.DrainEvents()), events.FightResolved) {
		t.Error("fight resolved below the training requirement")
	}
	if in.CurrentStep() != stepChallenge {
		t.Errorf("step = %d", in.CurrentStep())
	}
}

func TestMiniGames_CountTraining(t *testing.T) {
	q := mustQuest(t)
	p := player("Human", map[string]int{"power": 10})
	in := at(t, q, p, deps(rng.NewSequence(0), nil), stepChallenge, nil)
	ctx := context.Background()

	in.HandleAction(ctx, call(ActionFight))
	for _, id := range []string{ActionTrain, ActionFish, ActionTrain} {
		out, err := in.HandleAction(ctx, call(id))
		if err != nil {
			t.Fatal(err)
		}
		if out.Actions[0].ID != "continue::7" {
			t.Errorf("%s: continue = %s", id, out.Actions[0].ID)
		}
	}
	if n := in.Counter(CounterTraining); n != 3 {
		t.Errorf("trainingCount = %d, want 3", n)
	}
	// Training and fishing each grant their minimum with a zero roll.
	if got := p.Stats["power"]; got != 10+3+2+3 {
		t.Errorf("power = %d", got)
	}

	in.DrainEvents()
	in.HandleAction(ctx, call(ActionFight))
	if !slices.Contains(eventTypes(in.DrainEvents()), events.FightResolved) {
		t.Error("fight not resolved after training")
	}
}

func TestFightMorgan_RetryCeiling(t *testing.T) {
	q := mustQuest(t)
	store := tokens.NewStore()
	// Power 1 against Morgan's 75 with zero rolls always loses.
	p := player("Human", map[string]int{"power": 1})
	in := at(t, q, p, deps(rng.NewSequence(0), store), stepChallenge, map[string]int{CounterTraining: 3})
	ctx := context.Background()

	c := call(ActionFight)
	for attempt := 1; attempt <= 3; attempt++ {
		out, err := in.HandleAction(ctx, c)
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if len(out.Actions) == 0 || out.Actions[0].Label != "Try Again" {
			t.Fatalf("attempt %d: actions = %+v", attempt, out.Actions)
		}
		ref := parser.ParseAction(out.Actions[0].ID)
		payload, ok := store.Consume(ref.Suffix)
		if !ok {
			t.Fatalf("attempt %d: retry token not stored", attempt)
		}
		if payload.RetryCount != attempt || payload.OwnerID != "u1" || payload.CurrentStep != stepChallenge {
			t.Errorf("attempt %d: payload = %+v", attempt, payload)
		}
		c = quest.Call{Ref: ref, Token: &quest.Token{ID: ref.Suffix, Payload: payload}}
	}
	if store.Len() != 1 {
		t.Errorf("rotation left %d tokens, want 1", store.Len())
	}

	_, err := in.HandleAction(ctx, c)
	if !errors.Is(err, quest.ErrRetryLimitExceeded) {
		t.Fatalf("fourth attempt err = %v, want ErrRetryLimitExceeded", err)
	}
	if store.Len() != 0 {
		t.Errorf("token not deleted at the ceiling")
	}
	if !slices.Contains(eventTypes(in.DrainEvents()), events.RetryLimit) {
		t.Error("retry_limit event missing")
	}
}

func TestFightMorgan_TokenlessPressCountsAgainstEncounter(t *testing.T) {
	q := mustQuest(t)
	store := tokens.NewStore()
	in := at(t, q, player("Human", map[string]int{"power": 1}), deps(rng.NewSequence(0), store), stepChallenge, map[string]int{CounterTraining: 3})
	ctx := context.Background()

	for attempt := 1; attempt <= 3; attempt++ {
		out, err := in.HandleAction(ctx, call(ActionFight))
		if err != nil {
			t.Fatalf("attempt %d: %v", attempt, err)
		}
		if got := ids(out.Actions); !slices.Equal(got, []string{ActionFight}) {
			t.Fatalf("attempt %d: actions = %v, want only Try Again", attempt, got)
		}
		payload, ok := store.Consume(parser.ParseAction(out.Actions[0].ID).Suffix)
		if !ok || payload.RetryCount != attempt {
			t.Fatalf("attempt %d: payload = %+v (ok=%v)", attempt, payload, ok)
		}
		if in.EncounterToken() != parser.ParseAction(out.Actions[0].ID).Suffix {
			t.Errorf("attempt %d: encounter token not recorded", attempt)
		}
	}

	if _, err := in.HandleAction(ctx, call(ActionFight)); !errors.Is(err, quest.ErrRetryLimitExceeded) {
		t.Fatalf("fourth attempt err = %v, want ErrRetryLimitExceeded", err)
	}
	if in.EncounterToken() != "" || store.Len() != 0 {
		t.Error("encounter token survived the ceiling")
	}
}

func TestFightMorgan_ExpiredEncounterStartsOver(t *testing.T) {
	q := mustQuest(t)
	now := time.Unix(1700000000, 0)
	store := tokens.NewStore(tokens.WithClock(func() time.Time { return now }))
	in := at(t, q, player("Human", map[string]int{"power": 1}), deps(rng.NewSequence(0), store), stepChallenge, map[string]int{CounterTraining: 3})
	ctx := context.Background()

	in.HandleAction(ctx, call(ActionFight))
	in.HandleAction(ctx, call(ActionFight))
	now = now.Add(tokens.DefaultTTL + time.Second)

	out, err := in.HandleAction(ctx, call(ActionFight))
	if err != nil {
		t.Fatal(err)
	}
	payload, ok := store.Consume(parser.ParseAction(out.Actions[0].ID).Suffix)
	if !ok || payload.RetryCount != 1 {
		t.Errorf("after expiry payload = %+v (ok=%v), want a fresh encounter", payload, ok)
	}
}

func TestFightMorgan_StaleTokenGetsNoRetry(t *testing.T) {
	q := mustQuest(t)
	store := tokens.NewStore()
	in := at(t, q, player("Human", map[string]int{"power": 1}), deps(rng.NewSequence(0), store), stepChallenge, map[string]int{CounterTraining: 3})

	stale := &quest.Token{ID: "gone", Payload: types.TokenPayload{OwnerID: "u1", QuestID: ID, CurrentStep: stepChallenge, RetryCount: 1}}
	out, err := in.HandleAction(context.Background(), quest.Call{Ref: parser.ParseAction("fight_morgan::gone"), Token: stale})
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(out.Actions); !slices.Equal(got, []string{quest.ActionContinue}) {
		t.Errorf("actions = %v, want only continue", got)
	}
	if store.Len() != 0 {
		t.Errorf("a token was minted for a stale retry")
	}
}

func TestFightMorgan_VictoryAdvances(t *testing.T) {
	q := mustQuest(t)
	store := tokens.NewStore()
	tok := store.Issue(types.TokenPayload{OwnerID: "u1", QuestID: ID, CurrentStep: stepChallenge, RetryCount: 1})
	in := at(t, q, player("Human", map[string]int{"power": 500}), deps(rng.NewSequence(0), store), stepChallenge, map[string]int{CounterTraining: 3})
	ctx := context.Background()

	payload, _ := store.Consume(tok)
	out, err := in.HandleAction(ctx, quest.Call{Ref: parser.ParseAction("fight_morgan::" + tok), Token: &quest.Token{ID: tok, Payload: payload}})
	if err != nil {
		t.Fatal(err)
	}
	if !in.Flag(FlagDefeatedMorgan) || in.CurrentStep() != stepChallenge+1 {
		t.Errorf("flag=%v step=%d", in.Flag(FlagDefeatedMorgan), in.CurrentStep())
	}
	if store.Len() != 0 {
		t.Error("token kept after victory")
	}
	if out.Actions[0].ID != "continue::8" {
		t.Errorf("continue = %s", out.Actions[0].ID)
	}

	done, err := in.HandleAction(ctx, call(out.Actions[0].ID))
	if err != nil {
		t.Fatal(err)
	}
	if in.State() != types.StateCompleted || done.Actions[0].ID != quest.ActionComplete {
		t.Errorf("state=%s actions=%v", in.State(), ids(done.Actions))
	}
}

func TestUseMapFragment(t *testing.T) {
	q := mustQuest(t)
	p := player("Human", map[string]int{"charisma": 10, "power": 10})
	state.AddItem(p, types.Item{ID: ItemMapFragment, Name: "Map Fragment", Qty: 1})
	in := at(t, q, p, deps(rng.NewSequence(0), nil), stepChallenge, nil)

	if !slices.Contains(ids(in.Progress().Actions), ActionUseMap) {
		t.Fatal("map action not offered while holding a fragment")
	}
	if _, err := in.HandleAction(context.Background(), call(ActionUseMap)); err != nil {
		t.Fatal(err)
	}
	if state.HasItem(p, ItemMapFragment) {
		t.Error("fragment not consumed")
	}
	if p.Stats["power"] != 13 {
		t.Errorf("power = %d, want 13", p.Stats["power"])
	}
	if in.CurrentStep() != stepChallenge {
		t.Errorf("step = %d", in.CurrentStep())
	}
}

func TestComputeRewards_Allies(t *testing.T) {
	q := mustQuest(t)
	tests := []struct {
		name  string
		flags map[string]bool
		want  []string
	}{
		{"nobody", nil, nil},
		{"luffy", map[string]bool{FlagJoinedLuffy: true}, []string{"Luffy"}},
		{"zoro freed but morgan standing", map[string]bool{FlagFreedZoro: true}, nil},
		{"both", map[string]bool{FlagJoinedLuffy: true, FlagFreedZoro: true, FlagDefeatedMorgan: true}, []string{"Luffy", "Zoro"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := q.ComputeRewards(nil, types.QuestSnapshot{Custom: types.Custom{Flags: tt.flags}})
			if !slices.Equal(r.Allies, tt.want) {
				t.Errorf("allies = %v, want %v", r.Allies, tt.want)
			}
			if r.Berries != 100 || r.Exp != 50 {
				t.Errorf("rewards = %+v", r)
			}
		})
	}
	if len(q.Definition().Rewards.Allies) != 0 {
		t.Error("ComputeRewards modified the definition")
	}
}
