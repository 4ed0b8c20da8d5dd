// Package types defines the shared data structures for the quest engine.
// This package contains only type definitions and no logic.
package types

// QuestState is the lifecycle state of a running quest instance.
type QuestState string

const (
	StateAvailable  QuestState = "available"
	StateInProgress QuestState = "in-progress"
	StateCompleted  QuestState = "completed"
	StateAbandoned  QuestState = "abandoned"
)

// Command is a quest slash-command verb.
type Command string

const (
	CommandCurrent  Command = "current"
	CommandAccept   Command = "accept"
	CommandComplete Command = "complete"
)

// Item is one inventory entry. Items with the same ID stack by Qty.
type Item struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Qty  int    `json:"qty" yaml:"qty"`
}

// Player is the persisted player record. The engine reads and mutates it;
// the storage layer owns it.
type Player struct {
	ActorID string `json:"actorId"`
	Race    string `json:"race"`
	Origin  string `json:"origin"`
	Dream   string `json:"dream"`

	Stats   map[string]int `json:"stats"`
	Level   int            `json:"level"`
	Exp     int            `json:"exp"`
	Berries int            `json:"berries"`
	Items   []Item         `json:"items"`
	Allies  []string       `json:"allies"`

	// ActiveQuestID is empty iff ActiveQuest is nil.
	ActiveQuestID string         `json:"activeQuestId,omitempty"`
	ActiveQuest   *QuestSnapshot `json:"activeQuestSnapshot,omitempty"`

	// Revision is bumped by every successful save.
	Revision int64 `json:"revision"`
}

// HistoryEntry records one applied consequence.
type HistoryEntry struct {
	ID     string         `json:"id"`
	Action string         `json:"action"`
	Stats  map[string]int `json:"stats,omitempty"`
	At     int64          `json:"at"` // unix millis
}

// Custom is the free-form per-instance progress data.
type Custom struct {
	History  []HistoryEntry  `json:"history,omitempty"`
	Counters map[string]int  `json:"counters,omitempty"`
	Flags    map[string]bool `json:"flags,omitempty"`
	Offered  []string        `json:"offered,omitempty"` // action ids offered since entering CurrentStep

	// Encounter is the retry token of the encounter in progress at
	// CurrentStep, if any.
	Encounter string `json:"encounter,omitempty"`
}

// QuestSnapshot is the only durable representation of quest progress.
type QuestSnapshot struct {
	QuestID     string     `json:"questId"`
	State       QuestState `json:"state"`
	CurrentStep int        `json:"currentStep"` // 1-based
	Version     int        `json:"version"`
	Custom      Custom     `json:"custom"`
}

// Option is one labeled outcome of a select action.
type Option struct {
	Label string
	Value string
}

// Action kinds.
const (
	KindButton = "button"
	KindSelect = "select"
)

// Action styles.
const (
	StylePrimary   = "primary"
	StyleSecondary = "secondary"
	StyleSuccess   = "success"
	StyleDanger    = "danger"
)

// Action is a player-triggerable choice. ID may carry a "::suffix".
type Action struct {
	ID      string
	Label   string
	Kind    string // KindButton or KindSelect
	Style   string
	Options []Option // select only
}

// Step is one node of a quest's step sequence.
type Step struct {
	Key         string
	Title       string
	Description string
	Actions     []Action
}

// Condition is a predicate evaluated against the player and quest progress.
type Condition struct {
	Type   string         // "stat_gte", "has_item", "flag_set", "counter_gte", ...
	Params map[string]any // condition-specific parameters
	Negate bool           // true if wrapped in Not()
	Inner  *Condition     // for Not(): the negated inner condition
}

// Augment adds Action to the step with key Step when all When conditions hold.
type Augment struct {
	Step   string
	When   []Condition
	Action Action
}

// LootEntry is one independently rolled drop.
type LootEntry struct {
	ID     string
	Name   string
	Qty    int
	Chance float64 // 0 < Chance <= 1; 0 means always
}

// Consequence is the effect table entry for one action id.
type Consequence struct {
	Stats   map[string]int
	Loot    []LootEntry
	Flags   []string // set on the quest's progress when applied
	Message string
}

// Line is a narrative text gated by conditions.
type Line struct {
	Text     string
	Requires []Condition
}

// RewardDescriptor is the raw reward granted on quest completion.
type RewardDescriptor struct {
	Berries int
	Exp     int
	Items   []Item
	Allies  []string
}

// QuestDefinition is the immutable authored data for one quest.
// The effective step list is Steps ++ RaceSteps[race] ++ TailSteps.
type QuestDefinition struct {
	ID           string
	Title        string
	Description  string
	Version      int
	Steps        []Step
	RaceSteps    map[string][]Step
	TailSteps    []Step
	Consequences map[string]Consequence
	Augments     []Augment
	Dialogue     map[string][]Line
	Rewards      RewardDescriptor
}

// RenderPayload is the render-agnostic response handed to the messaging layer.
type RenderPayload struct {
	Title   string
	Text    string
	Actions []Action
}

// LevelUp reports a level increase caused by a reward.
type LevelUp struct {
	OldLevel     int
	NewLevel     int
	LevelsGained int
}

// RewardResult describes the deltas actually applied by a reward.
type RewardResult struct {
	Berries int
	Exp     int
	Items   []Item
	Allies  []string
	LevelUp *LevelUp // nil unless the level increased
}

// Event is emitted by quest handlers for auditing.
type Event struct {
	Type string
	Data map[string]any
}

// ActionEvent is an inbound component interaction from the messaging layer.
type ActionEvent struct {
	ActorID    string
	ActionID   string   // raw id, may carry "::suffix"
	Values     []string // selected values for select actions
	MessageRef string
}

// TokenPayload is the server-side data bound to a capability token.
type TokenPayload struct {
	OwnerID     string
	QuestID     string
	CurrentStep int
	RetryCount  int
	Context     map[string]string
}

// MiniGameResult is the outcome of a mini-game check.
type MiniGameResult struct {
	Success bool
	Amount  int
}

// FightResult is the outcome of a turn-based fight.
type FightResult struct {
	Victory    bool
	Log        []string
	PlayerHP   int
	OpponentHP int
	Turns      int
}
