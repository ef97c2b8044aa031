package strategy

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/discovery"
	"github.com/talgya/colony-ai/internal/heuristic"
)

// Action is the selector's decision.
type Action struct {
	Candidate
	Score     float64
	Breakdown Breakdown
}

// WaitAction is returned when nothing qualifies.
var WaitAction = Action{Candidate: Candidate{Type: Wait, Priority: PriorityLow, Rationale: "no viable action"}}

// Coordinator carries out selected actions.
type Coordinator interface {
	AcquireResource(material string, qty float64, priority string) error
	ScoutSystem(systemID string) (discovery.Report, error)
	QueueMission(missionID string, params map[string]any) error
}

// Selector picks the settlement's next action.
type Selector struct {
	cfg      Config
	analyzer *Analyzer
	scorer   Scorer
	coord    Coordinator
	log      *slog.Logger
}

// NewSelector creates a selector. coord may be nil if ExecuteAction is never
// called.
func NewSelector(cfg Config, systems SystemSource, coord Coordinator, log *slog.Logger) *Selector {
	if log == nil {
		log = slog.Default()
	}
	return &Selector{
		cfg:      cfg,
		analyzer: NewAnalyzer(cfg, systems),
		scorer:   NewScorer(cfg),
		coord:    coord,
		log:      log.With("component", "strategy"),
	}
}

// Scorer exposes the selector's scorer.
func (sel *Selector) Scorer() Scorer { return sel.scorer }

// Analyze runs the state analysis alone.
func (sel *Selector) Analyze(s *colony.Settlement, scouted map[string]time.Time) Analysis {
	return sel.analyzer.Analyze(s, scouted)
}

// EvaluateNextAction returns the best action for s. A critical issue short
// circuits scoring entirely.
func (sel *Selector) EvaluateNextAction(s *colony.Settlement, issues []heuristic.Issue, scouted map[string]time.Time) Action {
	for _, is := range issues {
		if is.Severity >= sel.cfg.CriticalSeverity {
			if a, ok := sel.crisisAction(is); ok {
				sel.log.Info("critical issue short-circuit", "issue", is.Type, "severity", is.Severity, "resources", a.Resources)
				return a
			}
		}
	}

	a := sel.analyzer.Analyze(s, scouted)
	cands := sel.candidates(a, issues)
	if len(cands) == 0 {
		return WaitAction
	}

	st := sel.scorer.Strategy(a)
	scored := make([]Action, 0, len(cands))
	for _, c := range cands {
		b := sel.scorer.Analyze(c, a)
		scored = append(scored, Action{
			Candidate: c,
			Score:     b.Score*strategicMultiplier(c.Type, st) + st.LongTerm*0.1,
			Breakdown: b,
		})
	}
	slices.SortStableFunc(scored, compareActions)

	best, ok := sel.choose(scored, a)
	if !ok {
		return WaitAction
	}
	sel.log.Debug("action selected", "type", best.Type, "priority", best.Priority, "score", best.Score, "focus", st.Focus, "candidates", len(scored))
	return best
}

// compareActions orders by score descending, then priority, then type name,
// then rationale so ranking is a total order.
func compareActions(x, y Action) int {
	if c := cmp.Compare(y.Score, x.Score); c != 0 {
		return c
	}
	if c := cmp.Compare(y.Priority.Rank(), x.Priority.Rank()); c != 0 {
		return c
	}
	if c := cmp.Compare(x.Type, y.Type); c != 0 {
		return c
	}
	return cmp.Compare(x.Rationale, y.Rationale)
}

func (sel *Selector) choose(sorted []Action, a Analysis) (Action, bool) {
	for _, act := range sorted {
		if act.Breakdown.CanExecuteNow && sel.scorer.Viable(act.Type, a) {
			return act, true
		}
	}
	for _, act := range sorted {
		if sel.scorer.Viable(act.Type, a) {
			return act, true
		}
	}
	if len(sorted) > 0 {
		return sorted[0], true
	}
	return Action{}, false
}

func strategicMultiplier(t ActionType, st Strategy) float64 {
	m := 1.0
	if st.Focus != "" {
		if t == st.Focus {
			m = 1.3
		} else {
			m = 0.8
		}
	}
	switch r := st.RiskTolerance; {
	case r >= 0.1 && r <= 0.3:
		m *= 0.9
	case r >= 0.7 && r <= 0.9:
		m *= 1.1
	}
	return m
}

func (sel *Selector) crisisAction(is heuristic.Issue) (Action, bool) {
	c := Candidate{Type: ResourceAcquisition, Priority: PriorityCritical}
	switch is.Type {
	case heuristic.LifeSupport, heuristic.AtmosphericMaintenance:
		r, _ := is.Payload["resource"].(string)
		if r == "" {
			return Action{}, false
		}
		c.Resources = []string{r}
		c.Quantity = floatParam(is.Payload, "shortfall")
		if c.Quantity <= 0 {
			c.Quantity = sel.cfg.DefaultAcquireQuantity
		}
		c.Rationale = fmt.Sprintf("%s: %s via %s", is.Type, r, is.Action)
	case heuristic.DebtRepayment:
		c.Resources = []string{colony.Credits}
		c.Quantity = floatParam(is.Payload, "amount")
		c.Rationale = "debt_repayment: restore positive balance"
	default:
		return Action{}, false
	}
	return Action{Candidate: c, Score: float64(is.Severity)}, true
}

func (sel *Selector) candidates(a Analysis, issues []heuristic.Issue) []Candidate {
	var out []Candidate
	for _, r := range a.ResourceNeeds.Critical {
		out = append(out, Candidate{Type: ResourceAcquisition, Priority: PriorityCritical, Resources: []string{r}, Rationale: "critical flow " + r})
	}
	for _, r := range a.ResourceNeeds.Needed {
		out = append(out, Candidate{Type: ResourceAcquisition, Priority: PriorityMedium, Resources: []string{r}, Rationale: "low stock " + r})
	}
	if len(a.HighValueSystems) > 0 {
		out = append(out, Candidate{Type: SystemScouting, Priority: PriorityHigh, Systems: a.HighValueSystems, Rationale: "high value systems"})
	}
	if len(a.StrategicSystems) > 0 {
		out = append(out, Candidate{Type: SystemScouting, Priority: PriorityMedium, Systems: a.StrategicSystems, Rationale: "strategic systems"})
	}
	// Expansion carries the known opportunities as candidate targets.
	targets := slices.Concat(a.HighValueSystems, a.StrategicSystems)
	if a.ExpansionReadiness >= sel.cfg.ExpansionThreshold {
		out = append(out, Candidate{Type: SettlementExpansion, Priority: PriorityHigh, Systems: targets, Rationale: "expansion ready"})
	}
	if len(a.InfrastructureNeeds.Critical) > 0 {
		out = append(out, Candidate{Type: InfrastructureBuilding, Priority: PriorityCritical, Infrastructure: a.InfrastructureNeeds.Critical, Rationale: "critical infrastructure"})
	}
	if len(a.InfrastructureNeeds.Needed) > 0 {
		out = append(out, Candidate{Type: InfrastructureBuilding, Priority: PriorityMedium, Infrastructure: a.InfrastructureNeeds.Needed, Rationale: "needed infrastructure"})
	}

	for _, is := range issues {
		switch is.Action {
		case "procure_materials":
			mats, _ := is.Payload["materials"].([]string)
			if len(mats) > 0 {
				out = append(out, Candidate{Type: ResourceAcquisition, Priority: PriorityHigh, Resources: mats, Rationale: "procure_materials"})
			}
		case "construct_storage_module":
			out = append(out, Candidate{Type: InfrastructureBuilding, Priority: PriorityCritical, Infrastructure: []string{"storage_module"}, Rationale: "construct_storage_module"})
		case "plan_expansion":
			out = append(out, Candidate{Type: SettlementExpansion, Priority: PriorityMedium, Systems: targets, Rationale: "plan_expansion"})
		}
	}
	return out
}

// ExecuteAction hands a to the coordinator. It reports whether every part of
// the action succeeded.
func (sel *Selector) ExecuteAction(a Action) bool {
	if a.Type == Wait {
		return true
	}
	if sel.coord == nil {
		sel.log.Warn("no coordinator for action", "type", a.Type)
		return false
	}
	switch a.Type {
	case ResourceAcquisition:
		qty := a.Quantity
		if qty <= 0 {
			qty = sel.cfg.DefaultAcquireQuantity
		}
		ok := true
		for _, r := range a.Resources {
			if err := sel.coord.AcquireResource(r, qty, string(a.Priority)); err != nil {
				sel.log.Warn("acquisition failed", "material", r, "qty", qty, "err", err)
				ok = false
			}
		}
		return ok
	case SystemScouting:
		ok := true
		for _, sys := range a.Systems {
			if _, err := sel.coord.ScoutSystem(sys.SystemID); err != nil {
				sel.log.Warn("scouting failed", "system", sys.SystemID, "err", err)
				ok = false
			}
		}
		return ok
	case SettlementExpansion:
		if err := sel.coord.QueueMission(sel.cfg.ExpansionMission, map[string]any{"reason": a.Rationale}); err != nil {
			sel.log.Warn("queue expansion failed", "err", err)
			return false
		}
		return true
	case InfrastructureBuilding:
		ok := true
		for _, item := range a.Infrastructure {
			id := sel.cfg.InfrastructureMissionPrefix + item
			if err := sel.coord.QueueMission(id, map[string]any{"infrastructure": item}); err != nil {
				sel.log.Warn("queue infrastructure failed", "mission", id, "err", err)
				ok = false
			}
		}
		return ok
	}
	sel.log.Warn("unknown action type", "type", a.Type)
	return false
}

func floatParam(p map[string]any, key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}
