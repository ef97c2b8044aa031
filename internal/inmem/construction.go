package inmem

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/mission"
)

// ErrUnknownStructure is returned for structure types the site cannot build.
var ErrUnknownStructure = errors.New("unknown structure type")

// DefaultStructures are the structure types a site can build.
var DefaultStructures = []string{
	"landing_pad", "habitat", "habitat_dome", "power_station", "storage_module",
	"tank_farm", "greenhouse", "fabrication_bay", "methane_plant", "comms_array",
}

type structure struct {
	ID    string
	Type  string
	Name  string
	State string
}

// Construction tracks deployed units and built structures per settlement.
type Construction struct {
	mu         sync.Mutex
	known      map[string]bool
	units      map[string]*unitRecord
	order      []string
	structures map[string][]*structure
}

type unitRecord struct {
	mission.Unit
	settlement string
	links      []string
}

// NewConstruction creates a site that can build the given structure types,
// or DefaultStructures when none are given.
func NewConstruction(structureTypes ...string) *Construction {
	if len(structureTypes) == 0 {
		structureTypes = DefaultStructures
	}
	c := &Construction{
		known:      make(map[string]bool, len(structureTypes)),
		units:      make(map[string]*unitRecord),
		structures: make(map[string][]*structure),
	}
	for _, t := range structureTypes {
		c.known[t] = true
	}
	return c
}

func (c *Construction) DeployUnit(settlementID, name, unitType string) (string, error) {
	if name == "" {
		return "", errors.New("deploy: empty unit name")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uuid.NewString()
	c.units[id] = &unitRecord{
		Unit:       mission.Unit{ID: id, Name: name, Type: unitType, State: "deployed"},
		settlement: settlementID,
	}
	c.order = append(c.order, id)
	return id, nil
}

// FindUnits returns units whose name contains nameLike, in deployment order.
func (c *Construction) FindUnits(settlementID, nameLike string) []mission.Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []mission.Unit
	for _, id := range c.order {
		u := c.units[id]
		if u.settlement == settlementID && strings.Contains(u.Name, nameLike) {
			out = append(out, u.Unit)
		}
	}
	return out
}

func (c *Construction) FindUnit(settlementID, name string) (mission.Unit, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		u := c.units[id]
		if u.settlement == settlementID && u.Name == name {
			return u.Unit, true
		}
	}
	return mission.Unit{}, false
}

func (c *Construction) SetUnitState(unitID, state string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.units[unitID]
	if !ok {
		return fmt.Errorf("unit %s: %w", unitID, colony.ErrNotFound)
	}
	u.State = state
	return nil
}

func (c *Construction) ConnectUnits(unitA, portA, unitB, portB string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	a, okA := c.units[unitA]
	b, okB := c.units[unitB]
	if !okA || !okB {
		return fmt.Errorf("connect %s-%s: %w", unitA, unitB, colony.ErrNotFound)
	}
	linkA := portA + "->" + b.Name
	if !slices.Contains(a.links, linkA) {
		a.links = append(a.links, linkA)
	}
	linkB := portB + "->" + a.Name
	if !slices.Contains(b.links, linkB) {
		b.links = append(b.links, linkB)
	}
	return nil
}

// Connected reports whether the named unit has any link.
func (c *Construction) Connected(settlementID, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range c.units {
		if u.settlement == settlementID && u.Name == name {
			return len(u.links) > 0
		}
	}
	return false
}

func (c *Construction) ConstructStructure(settlementID, structureType, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.known[structureType] {
		return "", fmt.Errorf("%s: %w", structureType, ErrUnknownStructure)
	}
	if name == "" {
		name = structureType
	}
	s := &structure{ID: uuid.NewString(), Type: structureType, Name: name, State: "built"}
	c.structures[settlementID] = append(c.structures[settlementID], s)
	return s.ID, nil
}

func (c *Construction) SetStructureState(settlementID, name, state string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.structures[settlementID] {
		if s.Name == name || s.Type == name {
			s.State = state
			return nil
		}
	}
	return fmt.Errorf("structure %s: %w", name, colony.ErrNotFound)
}

// Structures lists the structure types built at a settlement.
func (c *Construction) Structures(settlementID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.structures[settlementID]))
	for _, s := range c.structures[settlementID] {
		out = append(out, s.Type)
	}
	return out
}
