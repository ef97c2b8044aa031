package flowsim

import (
	"maps"
	"slices"
)

// Chain is one production recipe. Inputs are consumed and outputs produced
// once per unit of quantity when the production completes.
type Chain struct {
	Inputs        map[string]float64 `yaml:"inputs"`
	Outputs       map[string]float64 `yaml:"outputs"`
	BuildTimeDays int                `yaml:"build_time_days"`
	PowerKW       float64            `yaml:"power_requirement_kw"`
	Requires      []string           `yaml:"requires"`
}

// Profile describes a resource-gathering mission class.
type Profile struct {
	DurationDays int                `yaml:"duration_days"`
	Resources    map[string]float64 `yaml:"resources_per_mission"`
	FuelRequired float64            `yaml:"fuel_required"`
	Crew         int                `yaml:"crew"`
	Risk         string             `yaml:"risk"`
}

// Tables holds every chain and mission profile the simulator knows.
type Tables struct {
	Chains   map[string]Chain   `yaml:"chains"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// Producers returns the chains whose outputs include resource, by name.
func (t Tables) Producers(resource string) []string {
	var out []string
	for name, c := range t.Chains {
		if _, ok := c.Outputs[resource]; ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// Merge returns t with every entry of o added or replaced.
func (t Tables) Merge(o Tables) Tables {
	out := Tables{
		Chains:   make(map[string]Chain, len(t.Chains)+len(o.Chains)),
		Profiles: make(map[string]Profile, len(t.Profiles)+len(o.Profiles)),
	}
	maps.Copy(out.Chains, t.Chains)
	maps.Copy(out.Chains, o.Chains)
	maps.Copy(out.Profiles, t.Profiles)
	maps.Copy(out.Profiles, o.Profiles)
	return out
}

// DefaultTables returns the stock orbital and surface production chains.
func DefaultTables() Tables {
	return Tables{
		Chains: map[string]Chain{
			"gcc_satellite": {
				Inputs:        map[string]float64{"aluminum": 50, "solar_panels": 10, "communication_equipment": 5},
				Outputs:       map[string]float64{"gcc_satellite": 1},
				BuildTimeDays: 7,
				PowerKW:       5,
			},
			"titan_harvester": {
				Inputs:        map[string]float64{"titanium": 200, "solar_panels": 20, "drilling_equipment": 5},
				Outputs:       map[string]float64{"titan_harvester": 1},
				BuildTimeDays: 14,
				PowerKW:       15,
				Requires:      []string{"gcc_satellite"},
			},
			"venus_harvester": {
				Inputs:        map[string]float64{"heat_shield_tiles": 100, "co2_scrubbers": 10, "atmospheric_processors": 5},
				Outputs:       map[string]float64{"venus_harvester": 1},
				BuildTimeDays: 21,
				PowerKW:       25,
				Requires:      []string{"gcc_satellite", "titan_harvester"},
			},
			"lava_tube_base": {
				Inputs:        map[string]float64{"processed_regolith": 1000, "structural_beams": 50, "life_support_modules": 10, "power_reactors": 5},
				Outputs:       map[string]float64{"lava_tube_base": 1},
				BuildTimeDays: 30,
				PowerKW:       50,
				Requires:      []string{"venus_harvester"},
			},
			"teu_unit": {
				Inputs:        map[string]float64{"titanium": 100, "electronics": 20, "solar_panels": 5},
				Outputs:       map[string]float64{"teu_unit": 1},
				BuildTimeDays: 10,
				PowerKW:       15,
			},
			"pve_unit": {
				Inputs:        map[string]float64{"aluminum": 200, "heat_exchangers": 10, "vacuum_pumps": 5},
				Outputs:       map[string]float64{"pve_unit": 1},
				BuildTimeDays: 12,
				PowerKW:       25,
			},
			"co2_splitter": {
				Inputs:        map[string]float64{"titanium": 150, "catalysts": 20, "heat_shield_tiles": 30},
				Outputs:       map[string]float64{"co2_splitter": 1},
				BuildTimeDays: 18,
				PowerKW:       30,
			},
			"sabatier_reactor": {
				Inputs:        map[string]float64{"nickel": 100, "catalysts": 15, "heat_exchangers": 8},
				Outputs:       map[string]float64{"sabatier_reactor": 1},
				BuildTimeDays: 15,
				PowerKW:       20,
			},

			// Continuous processes run by a finished unit.
			"processed_regolith_production": {
				Inputs:   map[string]float64{"raw_regolith": 10},
				Outputs:  map[string]float64{"processed_regolith": 9.95},
				PowerKW:  15,
				Requires: []string{"teu_unit"},
			},
			"water_production": {
				Inputs:   map[string]float64{"processed_regolith": 5},
				Outputs:  map[string]float64{"water": 0.1, "gases": 0.05, "inert_waste": 4.85},
				PowerKW:  25,
				Requires: []string{"pve_unit"},
			},
			"oxygen_production": {
				Inputs:   map[string]float64{"venus_atmosphere": 50},
				Outputs:  map[string]float64{"liquid_oxygen": 11.5, "carbon_monoxide": 21.0},
				PowerKW:  30,
				Requires: []string{"co2_splitter"},
			},
			"methane_production": {
				Inputs:   map[string]float64{"carbon_dioxide": 1, "hydrogen": 4},
				Outputs:  map[string]float64{"methane": 0.67, "water": 1.43},
				PowerKW:  20,
				Requires: []string{"sabatier_reactor"},
			},
		},
		Profiles: map[string]Profile{
			"titan_harvester": {
				DurationDays: 90,
				Resources:    map[string]float64{"titanium": 500, "nitrogen": 100, "methane": 50},
				FuelRequired: 200,
				Crew:         2,
				Risk:         "medium",
			},
			"venus_harvester": {
				DurationDays: 60,
				Resources:    map[string]float64{"carbon_dioxide": 2000, "sulfur": 100, "heat_shield_tiles": 20},
				FuelRequired: 300,
				Crew:         3,
				Risk:         "high",
			},
		},
	}
}
