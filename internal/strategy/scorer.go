package strategy

import "slices"

// ActionType names what a decision asks the settlement to do.
type ActionType string

const (
	ResourceAcquisition    ActionType = "resource_acquisition"
	SystemScouting         ActionType = "system_scouting"
	SettlementExpansion    ActionType = "settlement_expansion"
	InfrastructureBuilding ActionType = "infrastructure_building"
	Wait                   ActionType = "wait"
)

// Priority is a candidate's urgency tier.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Rank orders tiers; higher is more urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Candidate is a possible action before scoring.
type Candidate struct {
	Type           ActionType
	Priority       Priority
	Resources      []string
	Systems        []Opportunity
	Infrastructure []string
	Quantity       float64
	Rationale      string
}

// Dependency is a precondition of a candidate.
type Dependency struct {
	Name     string
	Kind     string // capability, resource or infrastructure
	Required float64
	Current  float64
}

// Met reports whether the dependency is satisfied.
func (d Dependency) Met() bool { return d.Current >= d.Required }

// Breakdown is the scorer's full analysis of one candidate.
type Breakdown struct {
	Value              float64
	Cost               float64
	RiskScore          float64
	SuccessProbability float64
	NetBenefit         float64

	CapabilityMultiplier float64
	ContextModifier      float64
	PriorityBonus        float64
	Score                float64

	Unmet          []Dependency
	CanExecuteNow  bool
	Recommendation string
}

// Scorer assigns comparable scores to candidates.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer.
func NewScorer(cfg Config) Scorer {
	return Scorer{cfg: cfg}
}

// Score returns the candidate's final score.
func (sc Scorer) Score(c Candidate, a Analysis) float64 {
	return sc.Analyze(c, a).Score
}

// Analyze computes value, cost, risk and success probability and folds them
// into a score. Low capability for the candidate's type suppresses it;
// weak economic health, strategic position or settlement health boost the
// type that addresses the weakness.
func (sc Scorer) Analyze(c Candidate, a Analysis) Breakdown {
	b := Breakdown{
		Value: value(c, a),
		Cost:  cost(c),
	}
	failure, severity := risk(c, a)
	b.RiskScore = failure * severity

	b.Unmet = unmetDependencies(c, a)
	b.CanExecuteNow = len(b.Unmet) == 0
	b.SuccessProbability = successProbability(c, a, b.CanExecuteNow)

	b.NetBenefit = b.Value*b.SuccessProbability - b.Cost*(1+b.RiskScore)
	base := max(b.NetBenefit+150, 10) * (1 - b.RiskScore*0.3) * b.SuccessProbability

	b.CapabilityMultiplier = capabilityMultiplier(capability(c.Type, a))
	b.ContextModifier = contextModifier(c.Type, a)
	b.PriorityBonus = priorityBonus(c.Priority)
	b.Score = base*b.CapabilityMultiplier*b.ContextModifier + b.PriorityBonus

	switch {
	case b.Score > 25:
		b.Recommendation = "high_priority"
	case b.Score > 10:
		b.Recommendation = "medium_priority"
	default:
		b.Recommendation = "low_priority"
	}
	return b
}

// Viable reports whether the settlement can attempt the candidate at all.
func (sc Scorer) Viable(t ActionType, a Analysis) bool {
	switch t {
	case ResourceAcquisition:
		return a.AcquisitionCapability >= sc.cfg.MinAcquisitionCapability
	case SystemScouting:
		return a.ScoutingCapability >= sc.cfg.MinScoutingCapability
	case SettlementExpansion:
		return a.ExpansionReadiness >= sc.cfg.MinExpansionReadiness
	case InfrastructureBuilding:
		return a.BuildingResources >= sc.cfg.MinBuildingResources
	}
	return true
}

func capability(t ActionType, a Analysis) float64 {
	switch t {
	case ResourceAcquisition:
		return a.AcquisitionCapability
	case SystemScouting:
		return a.ScoutingCapability
	case SettlementExpansion:
		return a.ExpansionReadiness
	case InfrastructureBuilding:
		return a.BuildingResources
	}
	return 0.5
}

func capabilityMultiplier(c float64) float64 {
	switch {
	case c < 0.3:
		return 0.5
	case c > 0.7:
		return 1.1
	}
	return 1.0
}

func contextModifier(t ActionType, a Analysis) float64 {
	switch t {
	case ResourceAcquisition:
		return 1 + (1-a.EconomicHealth)*0.5
	case SystemScouting:
		return 1 + (1-a.StrategicPosition)*0.5
	case InfrastructureBuilding:
		return 1 + (1-a.SettlementHealth)*0.3 + (1-a.InfrastructureLevel)*0.3
	}
	return 1.0
}

func priorityBonus(p Priority) float64 {
	switch p {
	case PriorityCritical:
		return 50
	case PriorityHigh:
		return 30
	case PriorityMedium:
		return 10
	}
	return 0
}

func resourceValue(r string) float64 {
	switch r {
	case "energy":
		return 100
	case "food", "water":
		return 80
	case "steel", "titanium":
		return 60
	}
	return 40
}

func value(c Candidate, a Analysis) float64 {
	total := 0.0
	switch c.Type {
	case ResourceAcquisition:
		for _, r := range c.Resources {
			total += resourceValue(r)
		}
	case SystemScouting:
		for _, s := range c.Systems {
			switch s.EstimatedValue {
			case "prize_world", "high":
				total += 150
			case "medium":
				total += 120
			default:
				total += 50
			}
		}
	case SettlementExpansion:
		total = 200 + a.ExpansionReadiness*50
	case InfrastructureBuilding:
		for _, i := range c.Infrastructure {
			switch i {
			case "power_grid":
				total += 120
			case "habitation_expansion":
				total += 100
			default:
				total += 80
			}
		}
	}
	return total
}

func cost(c Candidate) float64 {
	switch c.Type {
	case ResourceAcquisition:
		return float64(len(c.Resources))*20 + 10
	case SystemScouting:
		return float64(len(c.Systems))*30 + 15
	case SettlementExpansion:
		return 80 + 40 + 25
	case InfrastructureBuilding:
		n := float64(len(c.Infrastructure))
		return n*50 + n*30 + 20
	}
	return 0
}

// risk returns failure probability and consequence severity.
func risk(c Candidate, a Analysis) (float64, float64) {
	switch c.Type {
	case ResourceAcquisition:
		if a.AcquisitionCapability < 0.5 {
			return 0.3, 0.6
		}
		return 0.1, 0.6
	case SystemScouting:
		if a.ScoutingCapability < 0.6 {
			return 0.4, 0.4
		}
		return 0.15, 0.4
	case SettlementExpansion:
		if a.ExpansionReadiness < 0.7 {
			return 0.5, 0.8
		}
		return 0.2, 0.8
	case InfrastructureBuilding:
		if a.BuildingResources < 0.6 {
			return 0.35, 0.7
		}
		return 0.1, 0.7
	}
	return 0.5, 0.5
}

func successProbability(c Candidate, a Analysis, depsMet bool) float64 {
	var base, resource, complexity float64
	switch c.Type {
	case ResourceAcquisition:
		base, complexity = 0.85, 0.95
		resource = threshold(a.EconomicHealth > 0.3, 1.0, 0.6)
	case SystemScouting:
		base, complexity = 0.75, 0.90
		resource = threshold(a.EconomicHealth > 0.4, 1.0, 0.7)
	case SettlementExpansion:
		base, complexity = 0.70, 0.85
		resource = threshold(a.EconomicHealth > 0.6, 1.0, 0.5)
	case InfrastructureBuilding:
		base, complexity = 0.80, 0.88
		resource = threshold(a.BuildingResources > 0.5, 1.0, 0.6)
	default:
		base, complexity, resource = 0.5, 0.8, 0.8
	}
	dependency := threshold(depsMet, 1.0, 0.0)
	p := base * max(capability(c.Type, a), 0.1) * resource * complexity * dependency
	return min(max(p, 0.05), 0.95)
}

func threshold(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}

func unmetDependencies(c Candidate, a Analysis) []Dependency {
	var deps []Dependency
	switch c.Type {
	case ResourceAcquisition:
		deps = append(deps, Dependency{Name: "basic_operations", Kind: "capability", Required: 0.3, Current: a.EconomicHealth})
		if slices.Contains(c.Resources, "titanium") {
			deps = append(deps, Dependency{Name: "mining_tech", Kind: "capability", Required: 0.5, Current: a.AcquisitionCapability})
		}
	case SystemScouting:
		deps = append(deps,
			Dependency{Name: "scouting_capability", Kind: "capability", Required: 0.4, Current: a.ScoutingCapability},
			Dependency{Name: "energy", Kind: "resource", Required: 20, Current: a.ResourceLevels["energy"]},
		)
	case SettlementExpansion:
		deps = append(deps,
			Dependency{Name: "expansion_readiness", Kind: "capability", Required: 0.6, Current: a.ExpansionReadiness},
			Dependency{Name: "food", Kind: "resource", Required: 50, Current: a.ResourceLevels["food"]},
			Dependency{Name: "water", Kind: "resource", Required: 40, Current: a.ResourceLevels["water"]},
			Dependency{Name: "habitation_capacity", Kind: "infrastructure", Required: 0.7, Current: a.InfrastructureLevel},
		)
	case InfrastructureBuilding:
		deps = append(deps,
			Dependency{Name: "building_resources", Kind: "capability", Required: 0.5, Current: a.BuildingResources},
			Dependency{Name: "steel", Kind: "resource", Required: 30, Current: a.ResourceLevels["steel"]},
		)
	}
	var unmet []Dependency
	for _, d := range deps {
		if !d.Met() {
			unmet = append(unmet, d)
		}
	}
	return unmet
}
