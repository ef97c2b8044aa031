package heuristic

import (
	"slices"

	"github.com/talgya/colony-ai/internal/colony"
)

// Env wraps a settlement snapshot and exposes helpers callable from rule
// conditions.
type Env struct {
	Balance            float64
	Population         int
	PopulationCapacity int
	PowerSurplusKW     float64
	GridOnline         bool
	HasTankFarm        bool
	TankFarmFreePct    float64
	CO2Percent         float64
	ArgonPercent       float64
	MagneticFieldTesla float64

	Cfg Config

	resources map[string]float64
	targets   map[string]float64
}

func newEnv(s colony.Snapshot, cfg Config) Env {
	return Env{
		Balance:            s.Balance,
		Population:         s.Population,
		PopulationCapacity: s.PopulationCapacity,
		PowerSurplusKW:     s.PowerGeneratedKW - s.PowerConsumedKW,
		GridOnline:         s.GridOnline,
		HasTankFarm:        s.HasTankFarm,
		TankFarmFreePct:    s.TankFarmFreePct,
		CO2Percent:         s.CO2Percent,
		ArgonPercent:       s.ArgonPercent,
		MagneticFieldTesla: s.MagneticFieldTesla,
		Cfg:                cfg,
		resources:          s.Resources,
		targets:            s.Targets,
	}
}

func (e Env) Stock(material string) float64 {
	return e.resources[material]
}

// Target returns the desired level for a material, falling back to the
// configured default target.
func (e Env) Target(material string) float64 {
	if t, ok := e.targets[material]; ok && t > 0 {
		return t
	}
	return e.Cfg.DefaultTargets[material]
}

// Ratio returns stock/target. A material without a target reads as nominal (1).
func (e Env) Ratio(material string) float64 {
	t := e.Target(material)
	if t <= 0 {
		return 1
	}
	return e.Stock(material) / t
}

// ShortMaterials lists tracked materials below the procurement ratio, sorted
// by name. Life-support gases are excluded; their own rules cover them.
func (e Env) ShortMaterials() []string {
	var short []string
	for m, t := range e.targets {
		if t <= 0 || m == colony.Oxygen || m == colony.Nitrogen {
			continue
		}
		if e.resources[m] < t*e.Cfg.ProcurementRatio {
			short = append(short, m)
		}
	}
	slices.Sort(short)
	return short
}

func (e Env) PopulationRatio() float64 {
	if e.PopulationCapacity <= 0 {
		return 0
	}
	return float64(e.Population) / float64(e.PopulationCapacity)
}
