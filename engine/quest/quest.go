// Package quest is the per-player quest state machine. An Instance walks
// the effective step list of one quest type, dispatches actions to the
// type's handlers and falls back to the definition's consequence table.
package quest

import (
	"context"
	"time"

	"github.com/Elenyx/discordrpg/engine/effects"
	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/tokens"
	"github.com/Elenyx/discordrpg/types"
)

// Type is the capability set of one quest. Implementations usually embed
// Base and override only what they need.
type Type interface {
	ID() string
	Definition() *types.QuestDefinition
	// GenerateSteps returns the effective step list for the player.
	GenerateSteps(p *types.Player) []types.Step
	// ApplyConsequence applies the consequence table entry for actionID.
	// It reports false when the table has no entry.
	ApplyConsequence(in *Instance, actionID string) (effects.Outcome, bool)
	// ComputeRewards returns what completing the quest grants.
	ComputeRewards(p *types.Player, snap types.QuestSnapshot) types.RewardDescriptor
	// Handlers maps action ids to custom behaviour.
	Handlers() map[string]Handler
}

// Handler runs one action against an instance.
type Handler func(ctx context.Context, in *Instance, call Call) (Outcome, error)

// Call is one inbound action, already split from its suffix.
type Call struct {
	Ref    parser.ActionRef
	Values []string // select values
	Token  *Token   // nil when absent, expired or not bound to this encounter
}

// Value returns the first selected value, or "".
func (c Call) Value() string {
	if len(c.Values) == 0 {
		return ""
	}
	return c.Values[0]
}

// Token is a validated capability token carried by a Call.
type Token struct {
	ID      string
	Payload types.TokenPayload
}

// Outcome is what a handler wants shown. After Advance is applied:
// Actions, if set, are offered as-is; otherwise Show renders the new
// current step under Text; otherwise a single continue action is added.
type Outcome struct {
	Text    string
	Actions []types.Action
	Advance int
	Show    bool
	Stay    bool // continue re-renders the current step instead of moving on
	Events  []types.Event
}

// Encounters holds the tunable numbers for gated and retry-limited encounters.
type Encounters struct {
	RetryCeiling     int
	RequiredTraining int
	OpponentBase     int
	OpponentPerLevel int
}

// DefaultEncounters returns the stock balance.
func DefaultEncounters() Encounters {
	return Encounters{RetryCeiling: 3, RequiredTraining: 3, OpponentBase: 70, OpponentPerLevel: 5}
}

// Deps are the collaborators an instance needs. Zero fields get defaults.
type Deps struct {
	RNG        rng.Source
	Tokens     *tokens.Store
	Now        func() time.Time
	Encounters Encounters
}

func (d Deps) withDefaults() Deps {
	if d.RNG == nil {
		d.RNG = rng.NewTimeSeeded()
	}
	if d.Tokens == nil {
		d.Tokens = tokens.NewStore()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	def := DefaultEncounters()
	if d.Encounters.RetryCeiling <= 0 {
		d.Encounters.RetryCeiling = def.RetryCeiling
	}
	if d.Encounters.RequiredTraining <= 0 {
		d.Encounters.RequiredTraining = def.RequiredTraining
	}
	if d.Encounters.OpponentBase <= 0 {
		d.Encounters.OpponentBase = def.OpponentBase
	}
	if d.Encounters.OpponentPerLevel <= 0 {
		d.Encounters.OpponentPerLevel = def.OpponentPerLevel
	}
	return d
}

// Base implements Type from a definition alone.
type Base struct {
	Def *types.QuestDefinition
}

func (b Base) ID() string                         { return b.Def.ID }
func (b Base) Definition() *types.QuestDefinition { return b.Def }
func (b Base) Handlers() map[string]Handler       { return nil }

func (b Base) GenerateSteps(p *types.Player) []types.Step {
	return EffectiveSteps(b.Def, p.Race)
}

func (b Base) ApplyConsequence(in *Instance, actionID string) (effects.Outcome, bool) {
	c, ok := b.Def.Consequences[actionID]
	if !ok {
		return effects.Outcome{}, false
	}
	return effects.Apply(in.player, &in.snap.Custom, actionID, c, in.deps.RNG, in.deps.Now()), true
}

func (b Base) ComputeRewards(_ *types.Player, _ types.QuestSnapshot) types.RewardDescriptor {
	return b.Def.Rewards
}
