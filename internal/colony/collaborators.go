package colony

import "errors"

// ErrNotFound is returned by collaborators when a named entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrInsufficientStock is returned when a removal exceeds the stored amount.
var ErrInsufficientStock = errors.New("insufficient stock")

// WorldReader loads settlement state from the host's persistence layer.
type WorldReader interface {
	Settlement(id string) (*Settlement, error)
}

// ResourceHolder answers stock queries for a single material.
type ResourceHolder interface {
	CurrentStock(material string) float64
}

// Inventory is the material service for one settlement.
type Inventory interface {
	ResourceHolder
	AddItem(material string, qty float64)
	RemoveItem(material string, qty float64) error
	Items() map[string]float64
}

// Blueprint is the resolved build profile of a unit or material.
type Blueprint struct {
	ID       string             `json:"id" yaml:"id"`
	Name     string             `json:"name" yaml:"name"`
	Category string             `json:"category" yaml:"category"`
	Cost     map[string]float64 `json:"cost" yaml:"cost"`
	PowerKW  float64            `json:"power_kw" yaml:"power_kw"`
	MassKg   float64            `json:"mass_kg" yaml:"mass_kg"`
}

// BlueprintLookup resolves a named unit or material to its blueprint.
type BlueprintLookup interface {
	Blueprint(name string) (Blueprint, bool)
}

// Accounts is the financial service for one settlement.
type Accounts interface {
	Balance() float64
	Debit(amount float64, memo string) error
	Credit(amount float64, memo string) error
}

// Procurement classifies where a tracked quantity came from.
type Procurement string

const (
	ProcurementLocalISRU       Procurement = "local_isru"
	ProcurementAutofulfill     Procurement = "ai_autofulfill"
	ProcurementLocalProduction Procurement = "local_production"
)

// ResourceTracker records procurement and production for reporting.
type ResourceTracker interface {
	TrackProcurement(settlementID, material string, qty float64, method Procurement, meta map[string]any)
	TrackInventorySnapshot(settlementID string)
}

// Acquirer obtains materials from outside the settlement's own stock and
// delivers them into inventory. It returns the source that satisfied the
// request.
type Acquirer interface {
	Acquire(material string, qty float64) (source string, err error)
}
