// Package inmem holds in-memory implementations of the services the
// decision core works through: settlement state, inventory, accounts,
// blueprints, construction, procurement and mission records. They back the
// simulate command and the tests of the packages above them.
package inmem

import (
	"fmt"
	"sync"

	"github.com/talgya/colony-ai/internal/colony"
)

// Settlements is a WorldReader over settlements held in memory.
type Settlements struct {
	mu sync.RWMutex
	m  map[string]*colony.Settlement
}

// NewSettlements creates an empty settlement set.
func NewSettlements() *Settlements {
	return &Settlements{m: make(map[string]*colony.Settlement)}
}

// Put stores a copy of s, replacing any settlement with the same id.
func (w *Settlements) Put(s *colony.Settlement) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.m[s.ID] = s.Clone()
}

// Settlement returns a detached copy.
func (w *Settlements) Settlement(id string) (*colony.Settlement, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.m[id]
	if !ok {
		return nil, fmt.Errorf("settlement %s: %w", id, colony.ErrNotFound)
	}
	return s.Clone(), nil
}

// Update applies fn to the stored settlement under the write lock.
func (w *Settlements) Update(id string, fn func(*colony.Settlement)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	s, ok := w.m[id]
	if !ok {
		return fmt.Errorf("settlement %s: %w", id, colony.ErrNotFound)
	}
	fn(s)
	return nil
}

// IDs lists stored settlement ids.
func (w *Settlements) IDs() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := make([]string, 0, len(w.m))
	for id := range w.m {
		ids = append(ids, id)
	}
	return ids
}
