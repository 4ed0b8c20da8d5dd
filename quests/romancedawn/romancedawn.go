// Package romancedawn is the opening quest: the barrel, Luffy, a race
// specific interlude, Zoro and the duel with Captain Morgan.
package romancedawn

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/Elenyx/discordrpg/engine/combat"
	"github.com/Elenyx/discordrpg/engine/events"
	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/quest"
	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/loader"
	"github.com/Elenyx/discordrpg/types"
)

// ID is the quest id.
const ID = "romance_dawn"

//go:embed romance_dawn.lua
var source []byte

// Progress keys.
const (
	CounterTraining = "trainingCount"

	FlagIgnoredBarrel  = "ignored_barrel"
	FlagJoinedLuffy    = "joined_luffy"
	FlagFreedZoro      = "freed_zoro"
	FlagLeftZoro       = "left_zoro"
	FlagDefeatedMorgan = "defeated_morgan"
	FlagDistracted     = "distracted_morgan"
)

// Action ids with custom handling.
const (
	ActionInvestigate = "investigate_barrel"
	ActionIgnore      = "ignore_barrel"
	ActionFlatter     = "flatter_luffy"
	ActionFreeZoro    = "free_zoro"
	ActionFight       = "fight_morgan"
	ActionUseMap      = "use_map_fragment"
	ActionTrain       = "mini_train"
	ActionSpar        = "mini_spar"
	ActionFish        = "mini_fish"

	OptionFreeYes = "free_yes"
	OptionFreeNo  = "free_no"

	ItemMapFragment = "map_fragment"
	MorganName      = "Captain Morgan"
)

// Quest is the Romance Dawn quest type.
type Quest struct {
	quest.Base
	handlers map[string]quest.Handler
}

// New loads the embedded definition.
func New() (*Quest, error) {
	def, err := loader.LoadSource("romance_dawn.lua", source)
	if err != nil {
		return nil, err
	}
	return FromDefinition(def), nil
}

// FromDefinition builds the quest around an already loaded definition,
// e.g. one read from a quest directory override.
func FromDefinition(def *types.QuestDefinition) *Quest {
	q := &Quest{Base: quest.Base{Def: def}}
	q.handlers = map[string]quest.Handler{
		ActionInvestigate: investigateBarrel,
		ActionIgnore:      ignoreBarrel,
		ActionFlatter:     flatterLuffy,
		ActionFreeZoro:    freeZoro,
		ActionFight:       fightMorgan,
		ActionUseMap:      useMapFragment,
		ActionTrain:       miniGame("Training", combat.TrainingCheck),
		ActionSpar:        miniGame("Sparring", combat.SparCheck),
		ActionFish:        miniGame("Fishing", combat.FishingCheck),
	}
	return q
}

// Handlers returns the custom action handlers.
func (q *Quest) Handlers() map[string]quest.Handler { return q.handlers }

// ComputeRewards adds the crewmates the player actually recruited to the
// authored rewards.
func (q *Quest) ComputeRewards(_ *types.Player, snap types.QuestSnapshot) types.RewardDescriptor {
	r := q.Def.Rewards
	r.Items = append([]types.Item(nil), r.Items...)
	r.Allies = append([]string(nil), r.Allies...)

	flags := snap.Custom.Flags
	if flags[FlagJoinedLuffy] {
		r.Allies = append(r.Allies, "Luffy")
	}
	if flags[FlagFreedZoro] && (flags[FlagDefeatedMorgan] || flags[FlagDistracted]) {
		r.Allies = append(r.Allies, "Zoro")
	}
	return r
}

func investigateBarrel(_ context.Context, in *quest.Instance, _ quest.Call) (quest.Outcome, error) {
	text := "You haul the barrel aboard and pry the lid loose."
	if res, ok := in.Apply(ActionInvestigate); ok {
		text = res.Text()
	}
	return quest.Outcome{Text: text, Advance: 1, Show: true}, nil
}

// ignoreBarrel parks the quest. The player can reconsider or give up.
func ignoreBarrel(_ context.Context, in *quest.Instance, _ quest.Call) (quest.Outcome, error) {
	in.SetState(types.StateAvailable)
	in.SetFlag(FlagIgnoredBarrel)
	return quest.Outcome{
		Text: "You keep sailing. The barrel bobs away behind you, but you can't stop thinking about it.",
		Actions: []types.Action{
			quest.Button(ActionInvestigate, "Reconsider the barrel", types.StylePrimary),
			quest.Button(quest.ActionEndNow, "Give up on this quest", types.StyleDanger),
		},
	}, nil
}

func flatterLuffy(_ context.Context, in *quest.Instance, _ quest.Call) (quest.Outcome, error) {
	var lines []string
	if res, ok := in.Apply(ActionFlatter); ok {
		lines = append(lines, res.Text())
	}

	p := in.Player()
	spar := combat.SparCheck(p, in.Deps().RNG)
	if spar.Success {
		state.AddStat(p, "power", spar.Amount)
		lines = append(lines, fmt.Sprintf("You hold your own in the spar! +%d power", spar.Amount))
	} else {
		lines = append(lines, "Luffy sends you flying into a haystack. Nobody is hurt.")
	}
	return quest.Outcome{
		Text:   strings.Join(lines, "\n"),
		Events: []types.Event{miniGameEvent("spar", spar)},
	}, nil
}

func freeZoro(_ context.Context, in *quest.Instance, call quest.Call) (quest.Outcome, error) {
	switch call.Value() {
	case OptionFreeYes:
		in.SetFlag(FlagFreedZoro)
		return quest.Outcome{
			Text:    "You cut the ropes. Zoro eyes you warily, but the marines have already noticed.",
			Advance: 1,
			Show:    true,
		}, nil
	case OptionFreeNo:
		in.SetFlag(FlagLeftZoro)
		return quest.Outcome{
			Text:    "You leave the swordsman where he is and slip out of Shells Town.",
			Advance: 2,
			Show:    true,
		}, nil
	}
	return quest.Outcome{Text: "Pick one of the options.", Show: true}, nil
}

// fightMorgan is gated on training and retry-limited through a token.
func fightMorgan(_ context.Context, in *quest.Instance, call quest.Call) (quest.Outcome, error) {
	deps := in.Deps()
	enc := deps.Encounters
	p := in.Player()

	tok := call.Token
	if tok == nil {
		tok = liveEncounter(in)
	}

	if tok != nil && tok.Payload.RetryCount >= enc.RetryCeiling {
		deps.Tokens.Delete(tok.ID)
		in.SetEncounterToken("")
		in.Emit(types.Event{Type: events.RetryLimit, Data: map[string]any{
			"action":  ActionFight,
			"retries": tok.Payload.RetryCount,
		}})
		return quest.Outcome{}, quest.ErrRetryLimitExceeded
	}

	if trained := in.Counter(CounterTraining); trained < enc.RequiredTraining {
		return quest.Outcome{
			Text: fmt.Sprintf("Captain Morgan is far too strong right now. Train first! (%d/%d)", trained, enc.RequiredTraining),
			Actions: []types.Action{
				quest.Button(ActionTrain, "Train", types.StylePrimary),
				quest.Button(ActionSpar, "Spar", types.StyleSecondary),
				quest.Button(ActionFish, "Go fishing", types.StyleSecondary),
			},
		}, nil
	}

	opp := combat.Opponent{
		Name:  MorganName,
		Power: combat.OpponentPower(enc.OpponentBase, enc.OpponentPerLevel, p),
	}
	res := combat.Fight(p, opp, deps.RNG)
	in.Emit(types.Event{Type: events.FightResolved, Data: map[string]any{
		"opponent": opp.Name,
		"victory":  res.Victory,
		"turns":    res.Turns,
	}})
	log := strings.Join(res.Log, "\n")

	if res.Victory {
		if tok != nil {
			deps.Tokens.Delete(tok.ID)
		}
		in.SetFlag(FlagDefeatedMorgan)
		return quest.Outcome{
			Text:    log + "\n\nCaptain Morgan crashes to the ground! The marines drop their weapons.",
			Advance: 1,
		}, nil
	}

	var token string
	if tok == nil {
		token = deps.Tokens.Issue(types.TokenPayload{
			OwnerID:     p.ActorID,
			QuestID:     in.QuestID(),
			CurrentStep: in.CurrentStep(),
			RetryCount:  1,
		})
		in.Emit(types.Event{Type: events.TokenIssued, Data: map[string]any{"action": ActionFight, "retries": 1}})
	} else {
		next, payload, ok := deps.Tokens.Rotate(tok.ID, func(tp *types.TokenPayload) { tp.RetryCount++ })
		if !ok {
			// Already rotated by a concurrent attempt.
			return quest.Outcome{Text: log + "\n\nMorgan's guards drive you back.", Stay: true}, nil
		}
		token = next
		in.Emit(types.Event{Type: events.TokenRotated, Data: map[string]any{"action": ActionFight, "retries": payload.RetryCount}})
	}

	in.SetEncounterToken(token)

	return quest.Outcome{
		Text: log + "\n\nCaptain Morgan knocks you down. You can try again.",
		Actions: []types.Action{
			quest.Button(parser.FormatAction(ActionFight, token), "Try Again", types.StyleDanger),
		},
	}, nil
}

// liveEncounter returns the retry token recorded for this step while it is
// still valid. A fight_morgan press without a token (from a re-rendered
// step) keeps counting against the same encounter; only expiry resets it.
func liveEncounter(in *quest.Instance) *quest.Token {
	id := in.EncounterToken()
	if id == "" {
		return nil
	}
	payload, ok := in.Deps().Tokens.Consume(id)
	if !ok || payload.OwnerID != in.Player().ActorID || payload.QuestID != in.QuestID() || payload.CurrentStep != in.CurrentStep() {
		in.SetEncounterToken("")
		return nil
	}
	return &quest.Token{ID: id, Payload: payload}
}

func useMapFragment(_ context.Context, in *quest.Instance, _ quest.Call) (quest.Outcome, error) {
	p := in.Player()
	if !state.HasItem(p, ItemMapFragment) {
		return quest.Outcome{Text: "You don't have a map fragment.", Show: true}, nil
	}
	res := combat.MapPuzzleCheck(p, in.Deps().RNG)
	evt := miniGameEvent("map_puzzle", res)
	if !res.Success {
		return quest.Outcome{Text: "The markings on the fragment make no sense yet.", Stay: true, Events: []types.Event{evt}}, nil
	}
	state.TakeItem(p, ItemMapFragment, 1)
	state.AddStat(p, "power", res.Amount)
	return quest.Outcome{
		Text:   fmt.Sprintf("The fragment shows a weak spot in the base's defences. +%d power", res.Amount),
		Stay:   true,
		Events: []types.Event{evt},
	}, nil
}

// miniGame builds a training handler: success counts towards the
// fight_morgan gate and adds power.
func miniGame(name string, check func(*types.Player, rng.Source) types.MiniGameResult) quest.Handler {
	return func(_ context.Context, in *quest.Instance, _ quest.Call) (quest.Outcome, error) {
		p := in.Player()
		res := check(p, in.Deps().RNG)
		evt := miniGameEvent(strings.ToLower(name), res)
		if !res.Success {
			return quest.Outcome{Text: name + " didn't go well this time.", Stay: true, Events: []types.Event{evt}}, nil
		}
		state.AddStat(p, "power", res.Amount)
		n := in.AddCounter(CounterTraining, 1)
		return quest.Outcome{
			Text:   fmt.Sprintf("%s paid off! +%d power (training %d/%d)", name, res.Amount, n, in.Deps().Encounters.RequiredTraining),
			Stay:   true,
			Events: []types.Event{evt},
		}, nil
	}
}

func miniGameEvent(game string, res types.MiniGameResult) types.Event {
	return types.Event{Type: events.MiniGamePlayed, Data: map[string]any{
		"game":    game,
		"success": res.Success,
		"amount":  res.Amount,
	}}
}
