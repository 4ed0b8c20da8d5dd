package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/samber/oops"

	"github.com/Elenyx/discordrpg/engine/quest"
)

// Registry holds the quest types known to a Manager. Build one at startup
// and hand it to NewManager.
type Registry struct {
	mu    sync.RWMutex
	types map[string]quest.Type
}

// NewRegistry returns a registry holding the given types.
func NewRegistry(ts ...quest.Type) (*Registry, error) {
	r := &Registry{types: map[string]quest.Type{}}
	for _, t := range ts {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a quest type. Ids must be unique.
func (r *Registry) Register(t quest.Type) error {
	if t == nil || t.Definition() == nil {
		return fmt.Errorf("quest type has no definition")
	}
	id := t.ID()
	if id == "" {
		return fmt.Errorf("quest type has an empty id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.types[id]; dup {
		return fmt.Errorf("quest type %q registered twice", id)
	}
	r.types[id] = t
	return nil
}

// Lookup returns the type registered under id.
func (r *Registry) Lookup(id string) (quest.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[id]
	if !ok {
		return nil, oops.In("registry").With("quest_id", id).Wrapf(quest.ErrQuestNotFound, "lookup")
	}
	return t, nil
}

// IDs returns the registered ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.types))
	for id := range r.types {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
