// Package colony provides the settlement aggregate and the narrow collaborator
// interfaces the decision core reads and writes through.
package colony

import "maps"

// Well-known materials referenced by the decision core.
const (
	Oxygen   = "oxygen"
	Nitrogen = "nitrogen"
	Argon    = "argon"
	Energy   = "energy"
	Food     = "food"
	Water    = "water"
	Methane  = "methane"
	Credits  = "credits"
)

// PowerSystem is the settlement's electrical grid.
type PowerSystem struct {
	GeneratedKW float64 `json:"generated_kw" yaml:"generated_kw"`
	ConsumedKW  float64 `json:"consumed_kw" yaml:"consumed_kw"`
	GridOnline  bool    `json:"grid_online" yaml:"grid_online"`
}

// SurplusKW returns generation minus consumption. Negative means a deficit.
func (p PowerSystem) SurplusKW() float64 {
	return p.GeneratedKW - p.ConsumedKW
}

// StorageSystem holds stored materials and per-material target levels.
type StorageSystem struct {
	Items   map[string]float64 `json:"items" yaml:"items"`
	Targets map[string]float64 `json:"targets" yaml:"targets"`

	// Tank farm free capacity in percent. Only meaningful when HasTankFarm.
	HasTankFarm     bool    `json:"has_tank_farm" yaml:"has_tank_farm"`
	TankFarmFreePct float64 `json:"tank_farm_free_pct" yaml:"tank_farm_free_pct"`
}

// Stock returns the stored amount of a material.
func (s StorageSystem) Stock(material string) float64 {
	return s.Items[material]
}

// PopulationSystem tracks inhabitants against habitation capacity.
type PopulationSystem struct {
	Current  int `json:"current" yaml:"current"`
	Capacity int `json:"capacity" yaml:"capacity"`
}

// Ratio returns Current/Capacity, or 0 with no capacity.
func (p PopulationSystem) Ratio() float64 {
	if p.Capacity <= 0 {
		return 0
	}
	return float64(p.Current) / float64(p.Capacity)
}

// Environment holds ambient readings at the settlement's location.
type Environment struct {
	Body               string  `json:"body" yaml:"body"`
	CO2Percent         float64 `json:"co2_percent" yaml:"co2_percent"`
	ArgonPercent       float64 `json:"argon_percent" yaml:"argon_percent"`
	MagneticFieldTesla float64 `json:"magnetic_field_tesla" yaml:"magnetic_field_tesla"`
}

// Settlement is a managed colony. Subsystems are held by composition and read
// through accessors.
type Settlement struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	SystemID string `json:"system_id" yaml:"system_id"`

	Power       PowerSystem      `json:"power" yaml:"power"`
	Storage     StorageSystem    `json:"storage" yaml:"storage"`
	Population  PopulationSystem `json:"population" yaml:"population"`
	Environment Environment      `json:"environment" yaml:"environment"`

	Balance float64 `json:"balance" yaml:"balance"`

	// Daily output and consumption of life-critical flows (energy, food, water).
	Outputs     map[string]float64 `json:"outputs" yaml:"outputs"`
	Consumption map[string]float64 `json:"consumption" yaml:"consumption"`

	// Facilities keyed by name; true when online.
	Facilities map[string]bool `json:"facilities" yaml:"facilities"`
}

// Clone returns a deep copy safe to hand across settlement boundaries.
func (s *Settlement) Clone() *Settlement {
	c := *s
	c.Storage.Items = maps.Clone(s.Storage.Items)
	c.Storage.Targets = maps.Clone(s.Storage.Targets)
	c.Outputs = maps.Clone(s.Outputs)
	c.Consumption = maps.Clone(s.Consumption)
	c.Facilities = maps.Clone(s.Facilities)
	return &c
}

// InfrastructureLevel returns the fraction of known facilities that are online.
// A settlement with no recorded facilities reads as 0.5.
func (s *Settlement) InfrastructureLevel() float64 {
	if len(s.Facilities) == 0 {
		return 0.5
	}
	online := 0
	for _, ok := range s.Facilities {
		if ok {
			online++
		}
	}
	return float64(online) / float64(len(s.Facilities))
}
