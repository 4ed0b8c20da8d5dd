// Package storage defines the persistence contracts for player records.
package storage

import (
	"context"
	"errors"

	"github.com/Elenyx/discordrpg/types"
)

var (
	// ErrNotFound indicates a requested player record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrConflict indicates a save raced another save of the same record.
	ErrConflict = errors.New("record changed since it was read")
)

// PlayerStore persists player records keyed by actor id.
//
// Save compares p.Revision with the stored revision and fails with
// ErrConflict when they differ. A successful save increments p.Revision.
// A record with Revision 0 is new.
type PlayerStore interface {
	FindByActorID(ctx context.Context, actorID string) (*types.Player, error)
	Save(ctx context.Context, p *types.Player) error
	Destroy(ctx context.Context, actorID string) error
}

// Transactor runs fn against a store whose writes commit together.
// If fn returns an error nothing it wrote is kept.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx PlayerStore) error) error
}
