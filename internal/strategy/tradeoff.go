package strategy

import (
	"maps"
	"slices"
)

// Focus is the outcome of a pairwise trade-off.
type Focus string

const (
	FocusA   Focus = "focus_a"
	FocusB   Focus = "focus_b"
	Balanced Focus = "balanced_approach"
)

// TradeOff compares two action types.
type TradeOff struct {
	A, B            ActionType
	ScoreA, ScoreB  float64
	OpportunityCost float64
	RiskAdjustment  float64
	Focus           Focus
}

// Winner returns the favored type, or "" when balanced.
func (t TradeOff) Winner() ActionType {
	switch t.Focus {
	case FocusA:
		return t.A
	case FocusB:
		return t.B
	}
	return ""
}

// Strategy is the overall direction derived from the trade-offs. Focus is
// empty for a balanced approach.
type Strategy struct {
	Focus         ActionType
	TradeOffs     []TradeOff
	RiskTolerance float64
	LongTerm      float64
}

// ResourceAcquisitionScore rates how much the settlement needs resources.
func (sc Scorer) ResourceAcquisitionScore(a Analysis) float64 {
	s := 20 + 25*float64(len(a.ResourceNeeds.Critical)) + 8*float64(len(a.ResourceNeeds.Needed))
	s += (1 - a.EconomicHealth) * 30
	return s * capabilityMultiplier(a.AcquisitionCapability)
}

// ScoutingScore rates the value of exploring.
func (sc Scorer) ScoutingScore(a Analysis) float64 {
	s := 10 + 15*float64(len(a.HighValueSystems)) + 8*float64(len(a.StrategicSystems))
	s += (1 - a.StrategicPosition) * 30
	return s * capabilityMultiplier(a.ScoutingCapability)
}

// BuildingScore rates the need for infrastructure.
func (sc Scorer) BuildingScore(a Analysis) float64 {
	s := 10 + 20*float64(len(a.InfrastructureNeeds.Critical)) + 8*float64(len(a.InfrastructureNeeds.Needed))
	s += (1-a.SettlementHealth)*25 + (1-a.InfrastructureLevel)*20
	return s * capabilityMultiplier(a.BuildingResources)
}

// RiskTolerance is high when stockpiles are deep and the settlement healthy.
func (sc Scorer) RiskTolerance(a Analysis) float64 {
	avg := 0.0
	if n := len(a.ResourceLevels); n > 0 {
		for _, k := range slices.Sorted(maps.Keys(a.ResourceLevels)) {
			avg += a.ResourceLevels[k]
		}
		avg /= float64(n)
	}
	abundance := min(max(avg/200, 0), 1)
	return 0.5*abundance + 0.5*a.SettlementHealth
}

// LongTermPlanningScore rewards actions that compound.
func (sc Scorer) LongTermPlanningScore(a Analysis) float64 {
	s := 5 * float64(len(a.ResourceNeeds.Needed)+len(a.InfrastructureNeeds.Needed))
	s += 5 * float64(len(a.StrategicSystems))
	s += a.ExpansionReadiness*20 + a.EconomicHealth*15
	return s
}

// DetermineOptimalFocus resolves a pairwise comparison. Gaps below the
// configured threshold are balanced; opportunity cost and risk aversion
// widen the threshold, never narrow it. The long-term score applies to both
// sides equally and does not move the comparison.
func (sc Scorer) DetermineOptimalFocus(scoreA, scoreB, opportunityCost, riskTolerance, _ float64) Focus {
	diff := scoreA - scoreB
	gap := sc.cfg.GapThreshold
	threshold := gap + max(opportunityCost, 0)*0.5 + max(0.5-riskTolerance, 0)*gap
	switch {
	case diff >= threshold:
		return FocusA
	case diff <= -threshold:
		return FocusB
	}
	return Balanced
}

// Compare runs one pairwise trade-off.
func (sc Scorer) Compare(x, y ActionType, scoreX, scoreY, risk, longTerm float64) TradeOff {
	oc := min(scoreX, scoreY) * 0.1
	return TradeOff{
		A:               x,
		B:               y,
		ScoreA:          scoreX,
		ScoreB:          scoreY,
		OpportunityCost: oc,
		RiskAdjustment:  risk - 0.5,
		Focus:           sc.DetermineOptimalFocus(scoreX, scoreY, oc, risk, longTerm),
	}
}

// Strategy compares resources, scouting and building pairwise and votes.
func (sc Scorer) Strategy(a Analysis) Strategy {
	res, scout, build := sc.ResourceAcquisitionScore(a), sc.ScoutingScore(a), sc.BuildingScore(a)
	st := Strategy{
		RiskTolerance: sc.RiskTolerance(a),
		LongTerm:      sc.LongTermPlanningScore(a),
	}
	st.TradeOffs = []TradeOff{
		sc.Compare(ResourceAcquisition, SystemScouting, res, scout, st.RiskTolerance, st.LongTerm),
		sc.Compare(ResourceAcquisition, InfrastructureBuilding, res, build, st.RiskTolerance, st.LongTerm),
		sc.Compare(SystemScouting, InfrastructureBuilding, scout, build, st.RiskTolerance, st.LongTerm),
	}

	votes := map[ActionType]int{}
	for _, t := range st.TradeOffs {
		if w := t.Winner(); w != "" {
			votes[w]++
		}
	}
	best, top, tied := ActionType(""), 0, false
	for _, t := range []ActionType{ResourceAcquisition, SystemScouting, InfrastructureBuilding} {
		switch n := votes[t]; {
		case n > top:
			best, top, tied = t, n, false
		case n == top && n > 0:
			tied = true
		}
	}
	if top > 0 && !tied {
		st.Focus = best
		return st
	}
	switch {
	case len(a.ResourceNeeds.Critical) > 0:
		st.Focus = ResourceAcquisition
	case len(a.InfrastructureNeeds.Critical) > 0:
		st.Focus = InfrastructureBuilding
	case len(a.HighValueSystems) > 0:
		st.Focus = SystemScouting
	}
	return st
}
