package quest

import (
	"context"
	"fmt"
	"slices"

	"github.com/samber/oops"

	"github.com/Elenyx/discordrpg/engine/effects"
	"github.com/Elenyx/discordrpg/engine/events"
	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/save"
	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

// Instance is one player's run through a quest. It lives for a single
// request: it is rebuilt from the persisted snapshot every time.
type Instance struct {
	typ    Type
	player *types.Player
	deps   Deps
	snap   types.QuestSnapshot
	steps  []types.Step
	events []types.Event
}

// New creates a fresh, not yet started instance.
func New(typ Type, p *types.Player, deps Deps) *Instance {
	return &Instance{
		typ:    typ,
		player: p,
		deps:   deps.withDefaults(),
		snap: types.QuestSnapshot{
			QuestID:     typ.ID(),
			State:       types.StateAvailable,
			CurrentStep: 1,
			Version:     typ.Definition().Version,
		},
		steps: typ.GenerateSteps(p),
	}
}

// Restore rebuilds an instance from a snapshot.
func Restore(typ Type, snap types.QuestSnapshot, p *types.Player, deps Deps) (*Instance, error) {
	if snap.QuestID != typ.ID() {
		return nil, oops.In("quest").
			With("snapshot_quest", snap.QuestID, "type", typ.ID()).
			Wrapf(ErrQuestNotFound, "restoring snapshot")
	}
	in := New(typ, p, deps)
	in.snap = state.CloneSnapshot(snap)
	if in.snap.CurrentStep < 1 {
		in.snap.CurrentStep = 1
	}
	return in, nil
}

// Snapshot returns the durable form of the instance.
func (in *Instance) Snapshot() types.QuestSnapshot {
	return save.Canonical(state.CloneSnapshot(in.snap))
}

func (in *Instance) QuestID() string             { return in.snap.QuestID }
func (in *Instance) Type() Type                  { return in.typ }
func (in *Instance) Player() *types.Player       { return in.player }
func (in *Instance) Deps() Deps                  { return in.deps }
func (in *Instance) State() types.QuestState     { return in.snap.State }
func (in *Instance) CurrentStep() int            { return in.snap.CurrentStep }
func (in *Instance) Steps() []types.Step         { return in.steps }
func (in *Instance) Custom() types.Custom        { return in.snap.Custom }
func (in *Instance) SetState(s types.QuestState) { in.snap.State = s }

// EncounterToken returns the retry token recorded for the current step.
func (in *Instance) EncounterToken() string { return in.snap.Custom.Encounter }

// SetEncounterToken records (or, with "", forgets) the retry token of the
// encounter at the current step.
func (in *Instance) SetEncounterToken(id string) { in.snap.Custom.Encounter = id }

// Terminal reports whether the instance is completed or abandoned.
func (in *Instance) Terminal() bool {
	return in.snap.State == types.StateCompleted || in.snap.State == types.StateAbandoned
}

// Remaining reports whether the current step still exists.
func (in *Instance) Remaining() bool {
	return in.snap.CurrentStep <= len(in.steps)
}

// Step returns the current step, unrendered.
func (in *Instance) Step() (types.Step, bool) {
	if !in.Remaining() {
		return types.Step{}, false
	}
	return in.steps[in.snap.CurrentStep-1], true
}

// Counter returns a progress counter.
func (in *Instance) Counter(name string) int {
	return in.snap.Custom.Counters[name]
}

// AddCounter adds delta to a progress counter and returns the new value.
func (in *Instance) AddCounter(name string, delta int) int {
	if in.snap.Custom.Counters == nil {
		in.snap.Custom.Counters = map[string]int{}
	}
	in.snap.Custom.Counters[name] += delta
	return in.snap.Custom.Counters[name]
}

// Flag reports whether a branch flag is set.
func (in *Instance) Flag(name string) bool {
	return in.snap.Custom.Flags[name]
}

// SetFlag sets a branch flag.
func (in *Instance) SetFlag(name string) {
	if in.snap.Custom.Flags == nil {
		in.snap.Custom.Flags = map[string]bool{}
	}
	in.snap.Custom.Flags[name] = true
}

// Apply runs the quest type's consequence for actionID.
func (in *Instance) Apply(actionID string) (effects.Outcome, bool) {
	out, ok := in.typ.ApplyConsequence(in, actionID)
	if ok {
		in.events = append(in.events, out.Events...)
	}
	return out, ok
}

// Emit queues an event for dispatch after the instance is persisted.
func (in *Instance) Emit(e types.Event) {
	in.events = append(in.events, e)
}

// DrainEvents returns and clears the queued events.
func (in *Instance) DrainEvents() []types.Event {
	evts := in.events
	in.events = nil
	return evts
}

// Start moves the instance to in-progress and renders the current step.
func (in *Instance) Start() types.RenderPayload {
	in.snap.State = types.StateInProgress
	in.snap.CurrentStep = max(1, in.snap.CurrentStep)
	in.snap.Custom.Offered = nil
	in.Emit(types.Event{Type: events.QuestStarted, Data: map[string]any{"quest": in.snap.QuestID, "step": in.snap.CurrentStep}})
	return in.render("")
}

// Progress renders the current step. When no step remains an in-progress
// quest is marked completed and the claim action is offered.
func (in *Instance) Progress() types.RenderPayload {
	return in.render("")
}

// HandleAction dispatches one action. Terminal instances refuse with
// ErrQuestNotActive.
func (in *Instance) HandleAction(ctx context.Context, call Call) (types.RenderPayload, error) {
	if in.Terminal() {
		return types.RenderPayload{}, ErrQuestNotActive
	}
	id := call.Ref.ID

	switch id {
	case ActionContinue:
		if n, ok := parser.StepSuffix(call.Ref); ok && n == in.snap.CurrentStep+1 {
			in.advance(1)
		}
		return in.render(""), nil
	case ActionResume:
		in.snap.State = types.StateInProgress
		return in.render(""), nil
	case ActionAbandon, ActionEndNow:
		in.snap.State = types.StateAbandoned
		in.Emit(types.Event{Type: events.QuestAbandoned, Data: map[string]any{"quest": in.snap.QuestID, "step": in.snap.CurrentStep}})
		return types.RenderPayload{
			Title: in.typ.Definition().Title,
			Text:  fmt.Sprintf("You abandoned %s. Use /quest accept to set out again.", in.typ.Definition().Title),
		}, nil
	case ActionComplete:
		return in.render(""), nil
	}

	if in.known(id) && !in.allowed(id) {
		return in.render("That choice isn't available right now."), nil
	}

	if in.snap.State == types.StateAvailable {
		in.snap.State = types.StateInProgress
	}

	if h, ok := in.typ.Handlers()[id]; ok {
		out, err := h(ctx, in, call)
		if err != nil {
			return types.RenderPayload{}, err
		}
		return in.finish(out), nil
	}

	// No handler: apply the consequence, if any, and move on.
	var text string
	if res, ok := in.Apply(id); ok {
		text = res.Text()
	}
	in.advance(1)
	return in.render(text), nil
}

func (in *Instance) finish(out Outcome) types.RenderPayload {
	in.events = append(in.events, out.Events...)
	if out.Advance != 0 {
		in.advance(out.Advance)
	}

	if len(out.Actions) > 0 {
		in.offer(out.Actions)
		return types.RenderPayload{Title: in.title(), Text: out.Text, Actions: out.Actions}
	}
	if out.Show {
		return in.render(out.Text)
	}

	target := in.snap.CurrentStep + 1
	if out.Advance > 0 || out.Stay {
		target = in.snap.CurrentStep
	}
	cont := ContinueAction(target)
	in.offer([]types.Action{cont})
	return types.RenderPayload{Title: in.title(), Text: out.Text, Actions: []types.Action{cont}}
}

// advance moves the step pointer by n, never below 1.
func (in *Instance) advance(n int) {
	from := in.snap.CurrentStep
	in.snap.CurrentStep = max(1, from+n)
	if in.snap.CurrentStep == from {
		return
	}
	in.snap.Custom.Offered = nil
	in.snap.Custom.Encounter = ""
	in.Emit(types.Event{Type: events.StepAdvanced, Data: map[string]any{"from": from, "to": in.snap.CurrentStep}})
}

func (in *Instance) render(prefix string) types.RenderPayload {
	def := in.typ.Definition()

	step, ok := in.Step()
	if !ok {
		if in.snap.State == types.StateInProgress {
			in.snap.State = types.StateCompleted
		}
		claim := Button(ActionComplete, "Claim Rewards", types.StyleSuccess)
		in.offer([]types.Action{claim})
		return types.RenderPayload{
			Title:   def.Title,
			Text:    joinText(prefix, fmt.Sprintf("You have finished %s! Claim your rewards.", def.Title)),
			Actions: []types.Action{claim},
		}
	}

	eff := RenderStep(def, step, in.player, in.snap.Custom)
	actions := eff.Actions
	if len(actions) == 0 && in.snap.State == types.StateInProgress {
		actions = []types.Action{ContinueAction(in.snap.CurrentStep + 1)}
	}
	in.offer(actions)
	return types.RenderPayload{
		Title:   eff.Title,
		Text:    joinText(prefix, eff.Description),
		Actions: actions,
	}
}

func (in *Instance) title() string {
	if step, ok := in.Step(); ok {
		return step.Title
	}
	return in.typ.Definition().Title
}

// offer records the base ids of actions shown at the current step.
func (in *Instance) offer(actions []types.Action) {
	for _, a := range actions {
		id := parser.ParseAction(a.ID).ID
		if !slices.Contains(in.snap.Custom.Offered, id) {
			in.snap.Custom.Offered = append(in.snap.Custom.Offered, id)
		}
	}
}

// allowed reports whether id may run at the current step. Snapshots that
// never recorded offers accept anything.
func (in *Instance) allowed(id string) bool {
	if isGeneric(id) || len(in.snap.Custom.Offered) == 0 {
		return true
	}
	if slices.Contains(in.snap.Custom.Offered, id) {
		return true
	}
	step, ok := in.Step()
	if !ok {
		return false
	}
	eff := RenderStep(in.typ.Definition(), step, in.player, in.snap.Custom)
	return slices.ContainsFunc(eff.Actions, func(a types.Action) bool { return a.ID == id })
}

// known reports whether id is authored anywhere in the quest.
func (in *Instance) known(id string) bool {
	if _, ok := in.typ.Handlers()[id]; ok {
		return true
	}
	def := in.typ.Definition()
	if _, ok := def.Consequences[id]; ok {
		return true
	}
	has := func(steps []types.Step) bool {
		for _, s := range steps {
			for _, a := range s.Actions {
				if a.ID == id {
					return true
				}
			}
		}
		return false
	}
	if has(def.Steps) || has(def.TailSteps) {
		return true
	}
	for _, steps := range def.RaceSteps {
		if has(steps) {
			return true
		}
	}
	for _, aug := range def.Augments {
		if aug.Action.ID == id {
			return true
		}
	}
	return false
}

func joinText(prefix, body string) string {
	switch {
	case prefix == "":
		return body
	case body == "":
		return prefix
	}
	return prefix + "\n\n" + body
}
