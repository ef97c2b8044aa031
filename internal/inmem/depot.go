package inmem

import (
	"errors"
	"fmt"
	"sync"

	"github.com/talgya/colony-ai/internal/colony"
)

// ErrUnavailable is returned when a depot cannot supply a request.
var ErrUnavailable = errors.New("material unavailable")

// Depot is an off-world supplier. It delivers materials into a settlement's
// inventory and bills the settlement's accounts at its listed price. Credits
// are extended as a credit line rather than delivered as stock.
type Depot struct {
	Name string

	inv      colony.Inventory
	accounts colony.Accounts

	mu     sync.Mutex
	supply map[string]float64 // nil means unlimited
	prices map[string]float64
	limit  float64 // remaining credit line
}

// DepotOption configures a Depot.
type DepotOption func(*Depot)

// WithSupply caps what the depot can deliver per material. Materials absent
// from the map are unavailable.
func WithSupply(supply map[string]float64) DepotOption {
	return func(d *Depot) {
		d.supply = make(map[string]float64, len(supply))
		for k, v := range supply {
			d.supply[k] = v
		}
	}
}

// WithPrices sets per-unit prices billed on delivery.
func WithPrices(prices map[string]float64) DepotOption {
	return func(d *Depot) { d.prices = prices }
}

// WithCreditLine sets how many credits the depot will extend in total.
func WithCreditLine(limit float64) DepotOption {
	return func(d *Depot) { d.limit = limit }
}

// NewDepot creates a depot delivering into inv and billing accounts.
func NewDepot(name string, inv colony.Inventory, accounts colony.Accounts, opts ...DepotOption) *Depot {
	d := &Depot{Name: name, inv: inv, accounts: accounts}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Depot) Acquire(material string, qty float64) (string, error) {
	if qty <= 0 {
		return "", ErrInvalidAmount
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if material == colony.Credits {
		if d.accounts == nil || qty > d.limit {
			return "", fmt.Errorf("credit line of %.0f: %w", d.limit, ErrUnavailable)
		}
		if err := d.accounts.Credit(qty, "credit line from "+d.Name); err != nil {
			return "", err
		}
		d.limit -= qty
		return d.Name + "_credit_line", nil
	}

	if d.supply != nil && d.supply[material] < qty {
		return "", fmt.Errorf("%s: %.2f requested, %.2f on hand: %w", material, qty, d.supply[material], ErrUnavailable)
	}
	if price := d.prices[material]; price > 0 && d.accounts != nil {
		if err := d.accounts.Debit(price*qty, fmt.Sprintf("%s from %s", material, d.Name)); err != nil {
			return "", fmt.Errorf("billing %s: %w", material, err)
		}
	}
	if d.supply != nil {
		d.supply[material] -= qty
	}
	d.inv.AddItem(material, qty)
	return d.Name, nil
}
