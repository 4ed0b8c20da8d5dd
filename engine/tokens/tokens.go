// Package tokens issues short-lived capability tokens that bind a retry
// button to server-side state. Tokens are opaque and expire after a TTL.
package tokens

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Elenyx/discordrpg/types"
)

// DefaultTTL is how long a token stays valid.
const DefaultTTL = 2 * time.Minute

type entry struct {
	payload   types.TokenPayload
	expiresAt time.Time
}

// Store is an in-memory token map. It is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]entry
}

// Option configures a Store.
type Option func(*Store)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		ttl:     DefaultTTL,
		now:     time.Now,
		entries: map[string]entry{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TTL returns the configured lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Issue stores payload under a fresh token.
func (s *Store) Issue(payload types.TokenPayload) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(payload)
}

func (s *Store) issueLocked(payload types.TokenPayload) string {
	id := newID()
	s.entries[id] = entry{payload: clonePayload(payload), expiresAt: s.now().Add(s.ttl)}
	return id
}

// Consume returns the payload if the token exists and has not expired.
// The token stays valid; callers Delete or Rotate it explicitly.
// An expired token is removed on read.
func (s *Store) Consume(token string) (types.TokenPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(token)
	if !ok {
		return types.TokenPayload{}, false
	}
	return clonePayload(e.payload), true
}

func (s *Store) lookupLocked(token string) (entry, bool) {
	e, ok := s.entries[token]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, token)
		return entry{}, false
	}
	return e, true
}

// Delete removes a token. Deleting an unknown token is a no-op.
func (s *Store) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, token)
}

// Rotate atomically replaces old with a new token carrying the mutated
// payload. It fails if old is missing or expired, so two concurrent
// retries on the same token cannot both mint a successor.
func (s *Store) Rotate(old string, mutate func(*types.TokenPayload)) (string, types.TokenPayload, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.lookupLocked(old)
	if !ok {
		return "", types.TokenPayload{}, false
	}
	delete(s.entries, old)
	payload := clonePayload(e.payload)
	if mutate != nil {
		mutate(&payload)
	}
	return s.issueLocked(payload), clonePayload(payload), true
}

// Len returns the number of stored tokens, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep removes expired tokens and returns how many were dropped.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// StartJanitor sweeps expired tokens every interval until ctx is done.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()
}

func clonePayload(p types.TokenPayload) types.TokenPayload {
	if p.Context != nil {
		ctx := make(map[string]string, len(p.Context))
		for k, v := range p.Context {
			ctx[k] = v
		}
		p.Context = ctx
	}
	return p
}
