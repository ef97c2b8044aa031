package inmem

import (
	"maps"
	"sync"
	"time"

	"github.com/talgya/colony-ai/internal/colony"
)

// Procurement is one tracked movement.
type Procurement struct {
	SettlementID string
	Material     string
	Quantity     float64
	Method       colony.Procurement
	Meta         map[string]any
	At           time.Time
}

// InventorySnapshot is a point-in-time copy of a settlement's stock.
type InventorySnapshot struct {
	SettlementID string
	Items        map[string]float64
	At           time.Time
}

// Tracker records procurement and inventory snapshots in memory.
type Tracker struct {
	world *Settlements

	mu        sync.Mutex
	entries   []Procurement
	snapshots []InventorySnapshot
}

// NewTracker creates a tracker that snapshots stock from world.
func NewTracker(world *Settlements) *Tracker {
	return &Tracker{world: world}
}

func (t *Tracker) TrackProcurement(settlementID, material string, qty float64, method colony.Procurement, meta map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Procurement{
		SettlementID: settlementID,
		Material:     material,
		Quantity:     qty,
		Method:       method,
		Meta:         maps.Clone(meta),
		At:           time.Now(),
	})
}

func (t *Tracker) TrackInventorySnapshot(settlementID string) {
	var items map[string]float64
	if t.world != nil {
		if s, err := t.world.Settlement(settlementID); err == nil {
			items = s.Storage.Items
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshots = append(t.snapshots, InventorySnapshot{SettlementID: settlementID, Items: items, At: time.Now()})
}

// Totals sums tracked quantities per material for one method.
func (t *Tracker) Totals(method colony.Procurement) map[string]float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]float64)
	for _, e := range t.entries {
		if e.Method == method {
			out[e.Material] += e.Quantity
		}
	}
	return out
}

// Snapshots returns the inventory snapshots taken so far.
func (t *Tracker) Snapshots() []InventorySnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]InventorySnapshot(nil), t.snapshots...)
}
