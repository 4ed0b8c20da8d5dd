package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/Elenyx/discordrpg/config"
	"github.com/Elenyx/discordrpg/engine"
	"github.com/Elenyx/discordrpg/engine/events"
	"github.com/Elenyx/discordrpg/engine/parser"
	"github.com/Elenyx/discordrpg/engine/resolve"
	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/types"
)

// Reply is what one console line produced.
type Reply struct {
	Title   string
	Text    string
	Entries []resolve.Entry // numbered choices
	System  []string
	Trace   []string
	Quit    bool
}

// Status is the one-line summary shown by the TUI.
type Status struct {
	Name       string
	Race       string
	Level      int
	Berries    int
	QuestTitle string
	Step       int
	Steps      int
}

// Session plays the messaging platform for a single actor: it turns
// console lines into commands and action events and keeps the buttons of
// the last message clickable.
type Session struct {
	mgr     *engine.Manager
	actorID string
	balance config.Balance
	rec     *events.Recorder

	Trace bool

	last    []types.Action
	pending *types.RenderPayload
	status  Status
	turn    int
}

// NewSession creates a session for actorID. rec, when non-nil, must also
// be registered as a Manager listener; its events feed /trace.
func NewSession(mgr *engine.Manager, actorID string, balance config.Balance, rec *events.Recorder) *Session {
	return &Session{mgr: mgr, actorID: actorID, balance: balance, rec: rec}
}

// Respond records the payload as the latest message.
func (s *Session) Respond(_ context.Context, p types.RenderPayload) error {
	s.pending = &p
	if len(p.Actions) > 0 {
		s.last = p.Actions
	}
	return nil
}

// Status returns the summary as of the last Exec.
func (s *Session) Status() Status { return s.status }

// Intro greets the player: the current quest for a returning character,
// the creation hint otherwise.
func (s *Session) Intro(ctx context.Context) Reply {
	defer s.refreshStatus(ctx)
	p, err := s.mgr.Player(ctx, s.actorID)
	if errors.Is(err, engine.ErrPlayerNotFound) {
		return Reply{
			Text:   strings.Join(raceLines(), "\n"),
			System: []string{"Welcome aboard! Create a character with /start <race>[, origin[, dream]]."},
		}
	}
	if err != nil {
		return Reply{System: []string{err.Error()}}
	}
	if p.ActiveQuest == nil {
		return Reply{System: []string{"Welcome back. Use /quest accept to set out."}}
	}
	return s.command(ctx, types.CommandCurrent)
}

// Exec runs one console line.
func (s *Session) Exec(ctx context.Context, input string) Reply {
	defer s.refreshStatus(ctx)
	s.turn++

	cmd := parser.ParseCommand(input)
	switch cmd.Verb {
	case "":
		return s.choose(ctx, cmd.Raw)
	case "quest":
		switch c := types.Command(cmd.Sub); c {
		case types.CommandCurrent, types.CommandAccept, types.CommandComplete:
			return s.command(ctx, c)
		}
		return Reply{System: []string{fmt.Sprintf("Unknown quest command: %s. Try current, accept or complete.", cmd.Sub)}}
	case "start":
		return s.create(ctx, cmd.Args)
	case "profile":
		return s.profile(ctx)
	case "races":
		return Reply{Text: strings.Join(raceLines(), "\n")}
	case "trace":
		s.Trace = !s.Trace
		if s.Trace {
			return Reply{System: []string{"Trace output enabled."}}
		}
		return Reply{System: []string{"Trace output disabled."}}
	case "help":
		return Reply{Text: strings.Join(helpLines(), "\n")}
	case "quit":
		return Reply{System: []string{"Goodbye."}, Quit: true}
	}
	return Reply{System: []string{fmt.Sprintf("Unknown command: /%s. Type /help for available commands.", cmd.Verb)}}
}

func (s *Session) choose(ctx context.Context, raw string) Reply {
	if len(s.last) == 0 {
		return Reply{System: []string{"Nothing to choose from. Try /quest accept or /quest current."}}
	}
	choice, err := resolve.Resolve(s.last, raw)
	if err != nil {
		return Reply{System: []string{err.Error()}}
	}
	ev := types.ActionEvent{
		ActorID:    s.actorID,
		ActionID:   choice.ActionID,
		Values:     choice.Values,
		MessageRef: fmt.Sprintf("console-%d", s.turn),
	}
	return s.deliver(ctx, func(r engine.Responder) error {
		return s.mgr.HandleAction(ctx, ev, r)
	})
}

func (s *Session) command(ctx context.Context, c types.Command) Reply {
	return s.deliver(ctx, func(r engine.Responder) error {
		return s.mgr.HandleCommand(ctx, c, s.actorID, r)
	})
}

// deliver runs fn against the session as responder and turns the payload
// it received into a Reply.
func (s *Session) deliver(ctx context.Context, fn func(engine.Responder) error) Reply {
	s.pending = nil
	if s.rec != nil {
		s.rec.Events = nil
	}
	err := fn(s)

	var r Reply
	if p := s.pending; p != nil {
		r.Title = p.Title
		r.Text = p.Text
		r.Entries = resolve.Entries(s.last)
	}
	if errors.Is(err, engine.ErrRenderFailure) {
		r.System = append(r.System, "The reply could not be shown.")
	}
	if s.Trace && s.rec != nil {
		r.Trace = traceLines(s.rec.Events)
	}
	return r
}

func (s *Session) create(ctx context.Context, args []string) Reply {
	race, origin, dream, err := parseCreation(args)
	if err != nil {
		return Reply{System: []string{err.Error()}}
	}
	p, err := s.mgr.CreatePlayer(ctx, s.actorID, race, origin, dream)
	if err != nil {
		return Reply{System: []string{fmt.Sprintf("Could not create your character: %v", err)}}
	}
	return Reply{
		Title:  "A new pirate sets sail",
		Text:   fmt.Sprintf("%s the %s from %s dreams of %s.", displayName(p.ActorID), p.Race, p.Origin, p.Dream),
		System: []string{"Use /quest accept to begin your first adventure."},
	}
}

func (s *Session) profile(ctx context.Context) Reply {
	p, err := s.mgr.Player(ctx, s.actorID)
	if err != nil {
		return Reply{System: []string{engine.Classify(err)}}
	}
	return Reply{Title: displayName(p.ActorID), Text: s.formatProfile(p)}
}

func (s *Session) refreshStatus(ctx context.Context) {
	p, err := s.mgr.Player(ctx, s.actorID)
	if err != nil {
		s.status = Status{Name: displayName(s.actorID)}
		return
	}
	st := Status{
		Name:    displayName(p.ActorID),
		Race:    p.Race,
		Level:   state.Level(p),
		Berries: p.Berries,
	}
	if in, err := s.mgr.GetActiveInstance(p); err == nil && in != nil {
		st.QuestTitle = in.Type().Definition().Title
		st.Step = in.CurrentStep()
		st.Steps = len(in.Steps())
	}
	s.status = st
}

// parseCreation reads "race[, origin[, dream]]". Missing values take the
// first catalogue entry.
func parseCreation(args []string) (race, origin, dream string, err error) {
	parts := strings.Split(strings.Join(args, " "), ",")
	title := cases.Title(language.English)
	pick := func(i int, choices []state.Choice, what string) (string, error) {
		if i >= len(parts) || strings.TrimSpace(parts[i]) == "" {
			if i == 0 {
				return "", fmt.Errorf("usage: /start <race>[, origin[, dream]]")
			}
			return choices[0].Value, nil
		}
		v := title.String(strings.TrimSpace(parts[i]))
		for _, c := range choices {
			if c.Value == v {
				return v, nil
			}
		}
		return "", fmt.Errorf("unknown %s %q", what, v)
	}
	if race, err = pick(0, state.Races, "race"); err != nil {
		return "", "", "", err
	}
	if origin, err = pick(1, state.Origins, "origin"); err != nil {
		return "", "", "", err
	}
	if dream, err = pick(2, state.Dreams, "dream"); err != nil {
		return "", "", "", err
	}
	return race, origin, dream, nil
}

// displayName turns an actor id such as "straw_hat" into "Straw Hat".
func displayName(id string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(id, "_", " "))
}

func traceLines(evts []types.Event) []string {
	var out []string
	for _, e := range evts {
		parts := []string{"[trace] " + e.Type}
		for _, k := range slices.Sorted(maps.Keys(e.Data)) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Data[k]))
		}
		out = append(out, strings.Join(parts, " "))
	}
	return out
}

func raceLines() []string {
	lines := []string{"Races:"}
	for _, r := range state.Races {
		lines = append(lines, fmt.Sprintf("  %-9s %s", r.Value, r.Description))
	}
	return lines
}

func helpLines() []string {
	return []string{
		"Quest:",
		"  /quest accept     Set out on a quest (or resume a parked one)",
		"  /quest current    Show where you are",
		"  /quest complete   Claim the rewards of a finished quest",
		"",
		"Character:",
		"  /start <race>[, origin[, dream]]   Create your character",
		"  /races            List the playable races",
		"  /profile          Show your stats and inventory",
		"",
		"System:",
		"  /trace            Toggle event trace output",
		"  /help             Show this help",
		"  /quit             Exit",
		"",
		"Anything else picks one of the numbered choices: type its number,",
		"its id, or a word from its label.",
	}
}
