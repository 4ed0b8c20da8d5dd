package engine

import (
	"errors"
	"fmt"

	"github.com/Elenyx/discordrpg/engine/quest"
)

// Boundary errors. Domain errors live in package quest.
var (
	// ErrRenderFailure means the responder rejected a payload.
	ErrRenderFailure = errors.New("render failure")
	// ErrPersistenceFailure means a save or transaction failed. The
	// in-memory state of that request must be considered lost.
	ErrPersistenceFailure = errors.New("persistence failure")
	// ErrPlayerNotFound means the actor has no character yet.
	ErrPlayerNotFound = errors.New("player not found")
)

// Player-facing texts.
const (
	msgNoCharacter  = "You don't have a character yet. Use /start <race> to create one."
	msgNoQuest      = "You don't have an active quest. Use /quest accept to set out."
	msgAlreadyOn    = "You're already on a quest. Use /quest current to see where you are."
	msgRetryLimit   = "You've been beaten too many times. Catch your breath and come back later."
	msgUnfinished   = "You haven't finished this quest yet. Use /quest current to keep going."
	msgUnknownQuest = "That quest isn't available right now."
	msgSaveFailed   = "Something went wrong saving your progress. Please try again."
	msgGeneric      = "Something went wrong. Please try again."
)

// Expected reports whether err is ordinary control flow that the player
// can recover from. Anything else is logged with full context.
func Expected(err error) bool {
	return errors.Is(err, quest.ErrQuestNotActive) ||
		errors.Is(err, quest.ErrAlreadyOnQuest) ||
		errors.Is(err, quest.ErrRetryLimitExceeded) ||
		errors.Is(err, quest.ErrQuestUnfinished) ||
		errors.Is(err, ErrPlayerNotFound)
}

// Classify maps any error to exactly one player-facing text.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPlayerNotFound):
		return msgNoCharacter
	case errors.Is(err, quest.ErrQuestNotActive):
		return msgNoQuest
	case errors.Is(err, quest.ErrAlreadyOnQuest):
		return msgAlreadyOn
	case errors.Is(err, quest.ErrRetryLimitExceeded):
		return msgRetryLimit
	case errors.Is(err, quest.ErrQuestUnfinished):
		return msgUnfinished
	case errors.Is(err, quest.ErrQuestNotFound):
		return msgUnknownQuest
	case errors.Is(err, ErrPersistenceFailure):
		return msgSaveFailed
	}
	return msgGeneric
}

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistenceFailure, err)
}
