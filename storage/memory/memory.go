// Package memory provides an in-process player store for tests and the
// console harness.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/Elenyx/discordrpg/engine/state"
	"github.com/Elenyx/discordrpg/storage"
	"github.com/Elenyx/discordrpg/types"
)

// Store keeps deep copies of players in a map. Writes are serialized;
// a transaction stages its writes on a copy and swaps it in on success.
type Store struct {
	writeMu sync.Mutex // held by writers and for the length of a transaction
	mu      sync.RWMutex
	players map[string]*types.Player

	// FailSave, when set, is returned by every Save. Tests use it to
	// simulate a persistence outage.
	FailSave error
}

var (
	_ storage.PlayerStore = (*Store)(nil)
	_ storage.Transactor  = (*Store)(nil)
)

// New returns an empty store.
func New() *Store {
	return &Store{players: map[string]*types.Player{}}
}

// FindByActorID returns a copy of the stored player.
func (s *Store) FindByActorID(ctx context.Context, actorID string) (*types.Player, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[actorID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return state.Clone(p), nil
}

// Save stores a copy of p after the revision check.
func (s *Store) Save(ctx context.Context, p *types.Player) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.save(ctx, p)
}

func (s *Store) save(ctx context.Context, p *types.Player) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailSave != nil {
		return s.FailSave
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.players[p.ActorID]
	switch {
	case !ok && p.Revision != 0:
		return storage.ErrConflict
	case ok && cur.Revision != p.Revision:
		return storage.ErrConflict
	}
	p.Revision++
	s.players[p.ActorID] = state.Clone(p)
	return nil
}

// Destroy removes a player.
func (s *Store) Destroy(ctx context.Context, actorID string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.destroy(ctx, actorID)
}

func (s *Store) destroy(ctx context.Context, actorID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[actorID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.players, actorID)
	return nil
}

// WithinTx runs fn against a staged copy of the store. The copy replaces
// the store's contents only if fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx storage.PlayerStore) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	staged := &txStore{Store: &Store{players: maps.Clone(s.players), FailSave: s.FailSave}}
	s.mu.RUnlock()

	if err := fn(ctx, staged); err != nil {
		return err
	}

	s.mu.Lock()
	s.players = staged.players
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored players.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// txStore writes without taking the parent's write lock, which the
// transaction already holds.
type txStore struct {
	*Store
}

func (t *txStore) Save(ctx context.Context, p *types.Player) error {
	return t.save(ctx, p)
}

func (t *txStore) Destroy(ctx context.Context, actorID string) error {
	return t.destroy(ctx, actorID)
}
