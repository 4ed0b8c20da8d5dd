// Package engine is the quest lifecycle manager. For every command or
// action it loads the acting player, rebuilds their quest instance from
// the stored snapshot, dispatches, persists the result and answers
// exactly once.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/Elenyx/discordrpg/engine/effects"
	"github.com/Elenyx/discordrpg/engine/events"
	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/quest"
	"github.com/Elenyx/discordrpg/engine/rewards"
	"github.com/Elenyx/discordrpg/engine/rng"
	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/engine/tokens"
	"github.com/Elenyx/discordrpg/storage"
	"github.com/Elenyx/discordrpg/types"
)

// HistoryWindow is the number of history entries shown by `current` for a
// parked quest.
const HistoryWindow = 5

// Responder delivers a payload to the player.
type Responder interface {
	Respond(ctx context.Context, payload types.RenderPayload) error
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, payload types.RenderPayload) error

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, payload types.RenderPayload) error {
	return f(ctx, payload)
}

// Options configures a Manager. Store and DefaultQuest are required.
type Options struct {
	Store        storage.PlayerStore
	Tokens       *tokens.Store
	RNG          rng.Source
	Curve        *rewards.Curve
	Encounters   quest.Encounters
	DefaultQuest string
	Logger       *slog.Logger
	Listeners    []events.Listener
	Now          func() time.Time
}

// Manager orchestrates quests for all players. It holds no per-player
// state between requests.
type Manager struct {
	reg          *Registry
	store        storage.PlayerStore
	curve        *rewards.Curve
	deps         quest.Deps
	defaultQuest string
	log          *slog.Logger
	listeners    []events.Listener
}

// NewManager builds a Manager over a registry.
func NewManager(reg *Registry, opts Options) (*Manager, error) {
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("player store is required")
	}
	if opts.DefaultQuest == "" {
		return nil, fmt.Errorf("default quest is required")
	}
	if _, err := reg.Lookup(opts.DefaultQuest); err != nil {
		return nil, err
	}
	if opts.Curve == nil {
		opts.Curve = rewards.DefaultCurve()
	}
	if opts.Tokens == nil {
		opts.Tokens = tokens.NewStore()
	}
	if opts.RNG == nil {
		opts.RNG = rng.NewTimeSeeded()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		reg:   reg,
		store: opts.Store,
		curve: opts.Curve,
		deps: quest.Deps{
			RNG:        opts.RNG,
			Tokens:     opts.Tokens,
			Now:        opts.Now,
			Encounters: opts.Encounters,
		},
		defaultQuest: opts.DefaultQuest,
		log:          opts.Logger,
		listeners:    opts.Listeners,
	}, nil
}

func (m *Manager) Registry() *Registry   { return m.reg }
func (m *Manager) Tokens() *tokens.Store { return m.deps.Tokens }
func (m *Manager) Curve() *rewards.Curve { return m.curve }
func (m *Manager) DefaultQuest() string  { return m.defaultQuest }

// RegisterQuestType adds a quest type to the registry.
func (m *Manager) RegisterQuestType(t quest.Type) error {
	return m.reg.Register(t)
}

// CreateInstance creates a fresh, not yet started instance.
func (m *Manager) CreateInstance(questID string, p *types.Player) (*quest.Instance, error) {
	typ, err := m.reg.Lookup(questID)
	if err != nil {
		return nil, err
	}
	return quest.New(typ, p, m.deps), nil
}

// GetActiveInstance rebuilds the player's instance from its snapshot. It
// returns nil, nil when the player has no active quest.
func (m *Manager) GetActiveInstance(p *types.Player) (*quest.Instance, error) {
	if p.ActiveQuest == nil {
		return nil, nil
	}
	typ, err := m.reg.Lookup(p.ActiveQuest.QuestID)
	if err != nil {
		return nil, err
	}
	return quest.Restore(typ, *p.ActiveQuest, p, m.deps)
}

// CreatePlayer creates and stores a level-1 character.
func (m *Manager) CreatePlayer(ctx context.Context, actorID, race, origin, dream string) (*types.Player, error) {
	p, err := state.NewPlayer(actorID, race, origin, dream)
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, p); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			return nil, fmt.Errorf("%s already has a character: %w", actorID, err)
		}
		return nil, persistenceError(err)
	}
	return p, nil
}

// Player loads the actor's character.
func (m *Manager) Player(ctx context.Context, actorID string) (*types.Player, error) {
	return m.load(ctx, actorID)
}

// HandleCommand runs a quest command and answers through r. The returned
// error has already been turned into a reply unless it wraps
// ErrRenderFailure.
func (m *Manager) HandleCommand(ctx context.Context, cmd types.Command, actorID string, r Responder) error {
	var (
		payload types.RenderPayload
		err     error
	)
	switch cmd {
	case types.CommandAccept:
		payload, err = m.accept(ctx, actorID)
	case types.CommandCurrent:
		payload, err = m.current(ctx, actorID)
	case types.CommandComplete:
		payload, err = m.complete(ctx, actorID)
	default:
		err = fmt.Errorf("unknown quest command %q", cmd)
	}
	return m.answer(ctx, r, payload, err,
		slog.String("actor_id", actorID),
		slog.String("command", string(cmd)),
	)
}

// HandleAction runs one component interaction and answers through r.
// Errors are reported as for HandleCommand.
func (m *Manager) HandleAction(ctx context.Context, ev types.ActionEvent, r Responder) error {
	ref := parser.ParseAction(ev.ActionID)

	var (
		payload types.RenderPayload
		err     error
	)
	if ref.ID == quest.ActionComplete {
		payload, err = m.complete(ctx, ev.ActorID)
	} else {
		payload, err = m.action(ctx, ev, ref)
	}
	return m.answer(ctx, r, payload, err,
		slog.String("actor_id", ev.ActorID),
		slog.String("action_id", ref.ID),
	)
}

func (m *Manager) action(ctx context.Context, ev types.ActionEvent, ref parser.ActionRef) (types.RenderPayload, error) {
	// 1. Load the player. Nothing is cached across requests, so a
	// redelivered callback sees whatever was persisted last.
	p, err := m.load(ctx, ev.ActorID)
	if err != nil {
		return types.RenderPayload{}, err
	}

	// 2. Rebuild the instance.
	in, err := m.GetActiveInstance(p)
	if err != nil {
		return types.RenderPayload{}, err
	}
	if in == nil {
		return types.RenderPayload{}, quest.ErrQuestNotActive
	}

	// 3. Resolve the token suffix, if any.
	call := quest.Call{Ref: ref, Values: ev.Values, Token: m.token(ctx, ref, p, in)}

	// 4. Dispatch.
	payload, err := in.HandleAction(ctx, call)
	if err != nil {
		// The state is not saved, but what happened (a retry limit, a
		// deleted token) is still reported.
		events.Dispatch(ctx, p.ActorID, in.DrainEvents(), m.listeners)
		return types.RenderPayload{}, oops.In("quest").
			With("quest_id", in.QuestID(), "step", in.CurrentStep()).
			Wrap(err)
	}

	// 5. Persist, then notify listeners.
	if err := m.persist(ctx, p, in); err != nil {
		return types.RenderPayload{}, err
	}
	return payload, nil
}

// token returns the validated token carried by ref. Unknown, expired and
// foreign tokens are all treated as absent.
func (m *Manager) token(ctx context.Context, ref parser.ActionRef, p *types.Player, in *quest.Instance) *quest.Token {
	if ref.Suffix == "" || ref.ID == quest.ActionContinue {
		return nil
	}
	payload, ok := m.deps.Tokens.Consume(ref.Suffix)
	if !ok {
		m.log.DebugContext(ctx, "token expired or unknown",
			"actor_id", p.ActorID, "action_id", ref.ID)
		return nil
	}
	if payload.OwnerID != p.ActorID || payload.QuestID != in.QuestID() || payload.CurrentStep != in.CurrentStep() {
		m.log.WarnContext(ctx, "token does not match encounter",
			"actor_id", p.ActorID, "action_id", ref.ID,
			"token_owner", payload.OwnerID, "token_quest", payload.QuestID, "token_step", payload.CurrentStep,
			"quest_id", in.QuestID(), "step", in.CurrentStep())
		return nil
	}
	return &quest.Token{ID: ref.Suffix, Payload: payload}
}

func (m *Manager) accept(ctx context.Context, actorID string) (types.RenderPayload, error) {
	p, err := m.load(ctx, actorID)
	if err != nil {
		return types.RenderPayload{}, err
	}
	in, err := m.GetActiveInstance(p)
	if err != nil {
		return types.RenderPayload{}, err
	}

	if in != nil {
		switch in.State() {
		case types.StateInProgress:
			return types.RenderPayload{}, quest.ErrAlreadyOnQuest
		case types.StateAvailable:
			payload := in.Start()
			return payload, m.persist(ctx, p, in)
		case types.StateCompleted:
			// Finished but unclaimed: show the claim prompt.
			return in.Progress(), nil
		}
	}

	in, err = m.CreateInstance(m.defaultQuest, p)
	if err != nil {
		return types.RenderPayload{}, err
	}
	payload := in.Start()
	return payload, m.persist(ctx, p, in)
}

func (m *Manager) current(ctx context.Context, actorID string) (types.RenderPayload, error) {
	p, err := m.load(ctx, actorID)
	if err != nil {
		return types.RenderPayload{}, err
	}
	in, err := m.GetActiveInstance(p)
	if err != nil {
		return types.RenderPayload{}, err
	}
	if in == nil || in.State() == types.StateAbandoned {
		return types.RenderPayload{}, quest.ErrQuestNotActive
	}

	payload := in.Progress()
	if in.State() != types.StateAvailable {
		return payload, nil
	}

	payload.Actions = append(payload.Actions,
		quest.Button(quest.ActionResume, "Resume Quest", types.StyleSuccess),
		quest.Button(quest.ActionAbandon, "Abandon Quest", types.StyleDanger),
	)
	if recent := effects.Recent(in.Custom(), HistoryWindow); len(recent) > 0 {
		var b strings.Builder
		b.WriteString(payload.Text)
		b.WriteString("\n\nYour recent choices:")
		for _, e := range recent {
			b.WriteString("\n- ")
			b.WriteString(effects.FormatEntry(e))
		}
		payload.Text = b.String()
	}
	return payload, nil
}

// complete grants the rewards, clears the quest and saves the player in
// one transaction when the store supports it. Without one the same steps
// run in the same order and a failure is reported, not rolled back.
func (m *Manager) complete(ctx context.Context, actorID string) (types.RenderPayload, error) {
	var (
		payload types.RenderPayload
		evts    []types.Event
	)
	run := func(ctx context.Context, ps storage.PlayerStore) error {
		p, err := findPlayer(ctx, ps, actorID)
		if err != nil {
			return err
		}
		in, err := m.GetActiveInstance(p)
		if err != nil {
			return err
		}
		if in == nil || in.State() == types.StateAbandoned {
			return quest.ErrQuestNotActive
		}
		if in.Remaining() {
			return quest.ErrQuestUnfinished
		}

		def := in.Type().Definition()
		res := m.curve.GiveRewards(p, in.Type().ComputeRewards(p, in.Snapshot()))
		state.ClearActiveQuest(p)
		if err := ps.Save(ctx, p); err != nil {
			return oops.In("manager").
				With("actor_id", actorID, "quest_id", def.ID).
				Wrap(persistenceError(err))
		}

		payload = completionPayload(def, res)
		evts = append(in.DrainEvents(), types.Event{Type: events.QuestCompleted, Data: map[string]any{
			"quest":   def.ID,
			"berries": res.Berries,
			"exp":     res.Exp,
			"levelUp": res.LevelUp != nil,
		}})
		return nil
	}

	var err error
	if tx, ok := m.store.(storage.Transactor); ok {
		err = tx.WithinTx(ctx, run)
	} else {
		err = run(ctx, m.store)
	}
	if err != nil {
		if !Expected(err) && !errors.Is(err, ErrPersistenceFailure) && !errors.Is(err, quest.ErrQuestNotFound) {
			err = persistenceError(err)
		}
		return types.RenderPayload{}, err
	}
	events.Dispatch(ctx, actorID, evts, m.listeners)
	return payload, nil
}

// persist writes the instance back onto the player and saves. Abandoned
// quests clear the active-quest fields. Queued events go out only after
// the save succeeds.
func (m *Manager) persist(ctx context.Context, p *types.Player, in *quest.Instance) error {
	if in.State() == types.StateAbandoned {
		state.ClearActiveQuest(p)
	} else {
		state.SetActiveQuest(p, in.Snapshot())
	}
	evts := in.DrainEvents()
	if err := m.store.Save(ctx, p); err != nil {
		return oops.In("manager").
			With("actor_id", p.ActorID, "quest_id", in.QuestID(), "step", in.CurrentStep()).
			Wrap(persistenceError(err))
	}
	events.Dispatch(ctx, p.ActorID, evts, m.listeners)
	return nil
}

func (m *Manager) load(ctx context.Context, actorID string) (*types.Player, error) {
	p, err := findPlayer(ctx, m.store, actorID)
	if err != nil && !errors.Is(err, ErrPlayerNotFound) {
		return nil, oops.In("manager").With("actor_id", actorID).Wrap(err)
	}
	return p, err
}

func findPlayer(ctx context.Context, ps storage.PlayerStore, actorID string) (*types.Player, error) {
	p, err := ps.FindByActorID(ctx, actorID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, ErrPlayerNotFound
	case err != nil:
		return nil, persistenceError(err)
	}
	return p, nil
}

// answer sends exactly one reply. A failed error is replaced by its
// player-facing text; a rejected payload is replaced by the fallback.
func (m *Manager) answer(ctx context.Context, r Responder, payload types.RenderPayload, err error, attrs ...slog.Attr) error {
	if err != nil {
		level := slog.LevelError
		if Expected(err) {
			level = slog.LevelDebug
		}
		m.log.LogAttrs(ctx, level, "quest request failed", append(attrs, slog.Any("error", err))...)
		payload = types.RenderPayload{Text: Classify(err)}
	}

	rerr := r.Respond(ctx, payload)
	if rerr == nil {
		return err
	}
	m.log.LogAttrs(ctx, slog.LevelError, "render failed", append(attrs, slog.Any("error", rerr))...)
	renderErr := fmt.Errorf("%w: %w", ErrRenderFailure, rerr)
	if ferr := r.Respond(ctx, FallbackPayload()); ferr != nil {
		m.log.LogAttrs(ctx, slog.LevelError, "fallback render failed", append(attrs, slog.Any("error", ferr))...)
		return errors.Join(err, renderErr, ferr)
	}
	return errors.Join(err, renderErr)
}

// FallbackPayload is the minimal reply used when a richer payload could
// not be rendered.
func FallbackPayload() types.RenderPayload {
	return types.RenderPayload{
		Text:    "Something went wrong showing that. Use the button below to pick up where you left off.",
		Actions: []types.Action{quest.Button(quest.ActionResume, "Continue Quest", types.StylePrimary)},
	}
}

func completionPayload(def *types.QuestDefinition, res types.RewardResult) types.RenderPayload {
	lines := []string{fmt.Sprintf("Quest complete: %s!", def.Title), "", "Rewards:"}
	if res.Berries != 0 {
		lines = append(lines, fmt.Sprintf("+%d berries", res.Berries))
	}
	if res.Exp != 0 {
		lines = append(lines, fmt.Sprintf("+%d exp", res.Exp))
	}
	for _, it := range res.Items {
		lines = append(lines, fmt.Sprintf("%s x%d", it.Name, it.Qty))
	}
	if len(res.Allies) > 0 {
		lines = append(lines, "New allies: "+strings.Join(res.Allies, ", "))
	}
	if lu := res.LevelUp; lu != nil {
		lines = append(lines, "", fmt.Sprintf("Level up! You are now level %d (+%d).", lu.NewLevel, lu.LevelsGained))
	}
	return types.RenderPayload{Title: def.Title, Text: strings.Join(lines, "\n")}
}
