package inmem

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/talgya/colony-ai/internal/colony"
)

// ErrInvalidAmount rejects negative or zero transfers.
var ErrInvalidAmount = errors.New("amount must be positive")

// Inventory stores a settlement's materials in the settlement record itself,
// so snapshots taken through Settlements see every change.
type Inventory struct {
	world *Settlements
	id    string
}

// Inventory returns the material service for settlement id.
func (w *Settlements) Inventory(id string) *Inventory {
	return &Inventory{world: w, id: id}
}

func (inv *Inventory) CurrentStock(material string) float64 {
	w := inv.world
	w.mu.RLock()
	defer w.mu.RUnlock()
	if s, ok := w.m[inv.id]; ok {
		return s.Storage.Items[material]
	}
	return 0
}

func (inv *Inventory) AddItem(material string, qty float64) {
	_ = inv.world.Update(inv.id, func(s *colony.Settlement) {
		if s.Storage.Items == nil {
			s.Storage.Items = make(map[string]float64)
		}
		s.Storage.Items[material] += qty
	})
}

func (inv *Inventory) RemoveItem(material string, qty float64) error {
	var err error
	uerr := inv.world.Update(inv.id, func(s *colony.Settlement) {
		have := s.Storage.Items[material]
		if have < qty {
			err = fmt.Errorf("%s: have %.2f, need %.2f: %w", material, have, qty, colony.ErrInsufficientStock)
			return
		}
		s.Storage.Items[material] = have - qty
	})
	if uerr != nil {
		return uerr
	}
	return err
}

func (inv *Inventory) Items() map[string]float64 {
	w := inv.world
	w.mu.RLock()
	defer w.mu.RUnlock()
	if s, ok := w.m[inv.id]; ok {
		return maps.Clone(s.Storage.Items)
	}
	return nil
}

// Entry is one ledger movement.
type Entry struct {
	Amount float64
	Memo   string
	At     time.Time
}

// Ledger keeps a settlement's balance on the settlement record and an
// append-only journal of movements. A balance may go negative.
type Ledger struct {
	world *Settlements
	id    string

	mu      sync.Mutex
	journal []Entry
}

// Accounts returns the financial service for settlement id.
func (w *Settlements) Accounts(id string) *Ledger {
	return &Ledger{world: w, id: id}
}

func (l *Ledger) Balance() float64 {
	s, err := l.world.Settlement(l.id)
	if err != nil {
		return 0
	}
	return s.Balance
}

func (l *Ledger) Debit(amount float64, memo string) error {
	return l.post(-amount, amount, memo)
}

func (l *Ledger) Credit(amount float64, memo string) error {
	return l.post(amount, amount, memo)
}

func (l *Ledger) post(delta, amount float64, memo string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if err := l.world.Update(l.id, func(s *colony.Settlement) { s.Balance += delta }); err != nil {
		return err
	}
	l.mu.Lock()
	l.journal = append(l.journal, Entry{Amount: delta, Memo: memo, At: time.Now()})
	l.mu.Unlock()
	return nil
}

// Journal returns a copy of the movements posted through this ledger.
func (l *Ledger) Journal() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.journal...)
}
