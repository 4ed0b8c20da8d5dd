// Package events fans quest events out to listeners. Listeners observe;
// they cannot change the outcome of the action that emitted the event.
package events

import (
	"context"
	"log/slog"
	"maps"
	"slices"

	"github.com/Elenyx/discordrpg/types"
)

// Event types emitted by the quest engine.
const (
	QuestStarted   = "quest_started"
	QuestCompleted = "quest_completed"
	QuestAbandoned = "quest_abandoned"
	StepAdvanced   = "step_advanced"
	TokenIssued    = "token_issued"
	TokenRotated   = "token_rotated"
	RetryLimit     = "retry_limit"
	FightResolved  = "fight_resolved"
	MiniGamePlayed = "minigame_played"
)

// Listener receives dispatched events.
type Listener interface {
	OnEvent(ctx context.Context, actorID string, e types.Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, actorID string, e types.Event)

// OnEvent calls f.
func (f ListenerFunc) OnEvent(ctx context.Context, actorID string, e types.Event) {
	f(ctx, actorID, e)
}

// Dispatch runs every listener against every event, in order. Single pass.
func Dispatch(ctx context.Context, actorID string, evts []types.Event, listeners []Listener) {
	for _, e := range evts {
		for _, l := range listeners {
			l.OnEvent(ctx, actorID, e)
		}
	}
}

// LogListener writes each event as one structured log line. Retry-limit
// events are logged at warn, everything else at info.
func LogListener(logger *slog.Logger) Listener {
	return ListenerFunc(func(ctx context.Context, actorID string, e types.Event) {
		level := slog.LevelInfo
		if e.Type == RetryLimit {
			level = slog.LevelWarn
		}
		attrs := []slog.Attr{slog.String("actor_id", actorID), slog.String("event", e.Type)}
		for _, k := range slices.Sorted(maps.Keys(e.Data)) {
			attrs = append(attrs, slog.Any(k, e.Data[k]))
		}
		logger.LogAttrs(ctx, level, "quest event", attrs...)
	})
}

// Recorder keeps every event it sees. Useful in tests and the console.
type Recorder struct {
	Events []types.Event
}

// OnEvent appends e.
func (r *Recorder) OnEvent(_ context.Context, _ string, e types.Event) {
	r.Events = append(r.Events, e)
}

// Types returns the recorded event types in order.
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
