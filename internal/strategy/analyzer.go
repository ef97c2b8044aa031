// Package strategy decides what a settlement should do next when nothing is
// on fire: it analyzes the settlement, generates candidate actions, scores
// them and dispatches the winner.
package strategy

import (
	"maps"
	"strings"
	"time"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/discovery"
)

var (
	lifeFlows         = []string{colony.Energy, colony.Food, colony.Water}
	buildingMaterials = []string{"steel", "titanium", "aluminum", "modular_structural_panel_base"}
	keyMaterials      = []string{"steel", "titanium", "modular_structural_panel_base"}
)

// Opportunity is a system worth scouting.
type Opportunity struct {
	SystemID       string
	Name           string
	TEI            float64
	StrategicValue float64
	Resources      discovery.Resources
	Wormholes      int
	Category       string // high_value or strategic
	EstimatedValue string // prize_world, high, medium or low
}

// Needs splits requirements into critical and merely needed.
type Needs struct {
	Critical []string
	Needed   []string
}

// Analysis is the structured state a decision is made from. All scores are
// in [0,1].
type Analysis struct {
	ResourceNeeds       Needs
	HighValueSystems    []Opportunity
	StrategicSystems    []Opportunity
	ExpansionReadiness  float64
	InfrastructureNeeds Needs

	AcquisitionCapability float64
	ScoutingCapability    float64
	BuildingResources     float64
	EconomicHealth        float64
	StrategicPosition     float64
	SettlementHealth      float64
	InfrastructureLevel   float64

	ResourceLevels map[string]float64
}

// SystemSource lists systems reachable from an origin system.
type SystemSource interface {
	Nearby(originID string) []discovery.System
}

// Analyzer turns a settlement into an Analysis.
type Analyzer struct {
	cfg     Config
	systems SystemSource
}

// NewAnalyzer creates an analyzer. systems may be nil, in which case no
// scouting opportunities are reported.
func NewAnalyzer(cfg Config, systems SystemSource) *Analyzer {
	return &Analyzer{cfg: cfg, systems: systems}
}

// Analyze inspects s. Systems present in scouted are not reported as
// opportunities again.
func (an *Analyzer) Analyze(s *colony.Settlement, scouted map[string]time.Time) Analysis {
	a := Analysis{
		ResourceNeeds:       an.resourceNeeds(s),
		EconomicHealth:      economicHealth(s),
		InfrastructureLevel: s.InfrastructureLevel(),
		ResourceLevels:      maps.Clone(s.Storage.Items),
	}
	if a.ResourceLevels == nil {
		a.ResourceLevels = map[string]float64{}
	}
	a.ExpansionReadiness = expansionReadiness(s, a.EconomicHealth)
	a.InfrastructureNeeds = an.infrastructureNeeds(s, a.ExpansionReadiness)

	power := 0.0
	if s.Power.GridOnline {
		power = 1
	}
	pop := float64(s.Population.Current)
	a.AcquisitionCapability = (power + min(pop/100, 1)) / 2
	a.ScoutingCapability = (min(pop/50, 1) + power) / 2
	a.BuildingResources = an.buildingResources(s)

	location := 0.6
	if strings.Contains(s.Name, "Luna") || s.Environment.Body == "Luna" {
		location = 0.8
	}
	a.StrategicPosition = (location + a.EconomicHealth) / 2

	lifeSupport := 1 - float64(len(a.ResourceNeeds.Critical))/float64(len(lifeFlows))
	a.SettlementHealth = (a.EconomicHealth + a.InfrastructureLevel + lifeSupport) / 3

	a.HighValueSystems, a.StrategicSystems = an.opportunities(s, a, scouted)
	return a
}

func (an *Analyzer) resourceNeeds(s *colony.Settlement) Needs {
	var n Needs
	for _, r := range lifeFlows {
		rate := s.Consumption[r]
		if rate > 0 && s.Outputs[r] < rate*an.cfg.OutputBuffer {
			n.Critical = append(n.Critical, r)
		}
	}
	for _, m := range buildingMaterials {
		if s.Storage.Stock(m) < an.cfg.MaterialFloor {
			n.Needed = append(n.Needed, m)
		}
	}
	return n
}

func (an *Analyzer) infrastructureNeeds(s *colony.Settlement, readiness float64) Needs {
	var n Needs
	if !s.Power.GridOnline {
		n.Critical = append(n.Critical, "power_grid")
	}
	if readiness > an.cfg.ExpansionThreshold {
		n.Needed = append(n.Needed, "habitation_expansion")
	}
	return n
}

func (an *Analyzer) buildingResources(s *colony.Settlement) float64 {
	have := 0
	for _, m := range keyMaterials {
		if s.Storage.Stock(m) > an.cfg.BuildingStockFloor {
			have++
		}
	}
	return float64(have) / float64(len(keyMaterials))
}

// economicHealth blends energy surplus with population size.
func economicHealth(s *colony.Settlement) float64 {
	gen, cons := s.Outputs[colony.Energy], s.Consumption[colony.Energy]
	ratio := 0.0
	if cons > 0 {
		ratio = gen / cons
	}
	power := min(max(ratio-1, 0), 2) / 2
	pop := min(float64(s.Population.Current)/200, 1)
	return (power + pop) / 2
}

func expansionReadiness(s *colony.Settlement, econ float64) float64 {
	capacity := s.Population.Capacity
	if capacity <= 0 {
		capacity = 1000
	}
	score := min(float64(s.Population.Current)/float64(capacity)*0.4, 0.4)
	if s.Outputs[colony.Energy] > 2000 {
		score += 0.3
	}
	score += econ * 0.3
	return min(score, 1)
}

func (an *Analyzer) opportunities(s *colony.Settlement, a Analysis, scouted map[string]time.Time) (high, strategic []Opportunity) {
	if an.systems == nil {
		return nil, nil
	}
	origin := s.SystemID
	if origin == "" {
		origin = s.ID
	}
	for _, sys := range an.systems.Nearby(origin) {
		if _, seen := scouted[sys.ID]; seen {
			continue
		}
		switch {
		case highValueSystem(sys):
			high = append(high, opportunity(sys, "high_value"))
		case strategicSystem(sys, a):
			strategic = append(strategic, opportunity(sys, "strategic"))
		}
	}
	return high, strategic
}

func highValueSystem(sys discovery.System) bool {
	return sys.TEI > 80 || sys.Resources.Sum() > 1.5 || sys.StrategicValue > 0.7
}

func strategicSystem(sys discovery.System, a Analysis) bool {
	if a.EconomicHealth > 0.6 && sys.StrategicValue > 0.4 {
		return true
	}
	if len(a.ResourceNeeds.Critical) > 0 && sys.Resources.Metal+sys.Resources.Volatile > 0.8 {
		return true
	}
	return sys.Wormholes > 0
}

func opportunity(sys discovery.System, category string) Opportunity {
	value := "low"
	switch {
	case sys.TEI > 80:
		value = "prize_world"
	case sys.StrategicValue > 0.7:
		value = "high"
	case sys.StrategicValue > 0.4:
		value = "medium"
	}
	return Opportunity{
		SystemID:       sys.ID,
		Name:           sys.Name,
		TEI:            sys.TEI,
		StrategicValue: sys.StrategicValue,
		Resources:      sys.Resources,
		Wormholes:      sys.Wormholes,
		Category:       category,
		EstimatedValue: value,
	}
}
