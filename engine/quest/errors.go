package quest

import "errors"

// Domain errors. The lifecycle manager turns these into player-facing text.
var (
	// ErrQuestNotFound means no quest type is registered under the id.
	ErrQuestNotFound = errors.New("quest not found")
	// ErrQuestNotActive means there is no instance, or it is completed or abandoned.
	ErrQuestNotActive = errors.New("quest not active")
	// ErrAlreadyOnQuest means an in-progress quest blocks accepting another.
	ErrAlreadyOnQuest = errors.New("already on a quest")
	// ErrRetryLimitExceeded means an encounter's retry ceiling was reached.
	ErrRetryLimitExceeded = errors.New("retry limit exceeded")
	// ErrQuestUnfinished means completion was requested while steps remain.
	ErrQuestUnfinished = errors.New("quest unfinished")
)
