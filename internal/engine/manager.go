package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/coordinator"
	"github.com/talgya/colony-ai/internal/heuristic"
	"github.com/talgya/colony-ai/internal/mission"
	"github.com/talgya/colony-ai/internal/orchestrator"
	"github.com/talgya/colony-ai/internal/persistence"
	"github.com/talgya/colony-ai/internal/sharedctx"
	"github.com/talgya/colony-ai/internal/strategy"
)

// DecisionLog records each tick's chosen action.
type DecisionLog interface {
	RecordDecision(d persistence.Decision) error
}

// Manager runs one settlement's decision pipeline.
type Manager struct {
	id        string
	world     colony.WorldReader
	heuristic *heuristic.Heuristic
	selector  *strategy.Selector
	coord     *coordinator.Coordinator
	orch      *orchestrator.Orchestrator
	decisions DecisionLog
	retry     mission.RetryPolicy
	log       *slog.Logger
}

// Report summarizes one tick of one settlement.
type Report struct {
	SettlementID      string
	Tick              uint64
	Issues            []heuristic.Issue
	Action            strategy.Action
	Executed          bool
	MissionsStarted   int
	MissionsAdvanced  int
	RequestsFulfilled int
	Operations        []orchestrator.Result
}

// SettlementID returns the settlement this manager decides for.
func (m *Manager) SettlementID() string { return m.id }

// Context returns the settlement's shared context.
func (m *Manager) Context() *sharedctx.Context { return m.coord.Context() }

// Coordinator returns the settlement's service façade.
func (m *Manager) Coordinator() *coordinator.Coordinator { return m.coord }

// Orchestrator returns the settlement's service orchestrator.
func (m *Manager) Orchestrator() *orchestrator.Orchestrator { return m.orch }

// Tick runs the pipeline once: rank issues, pick and execute an action,
// start queued missions, push in-flight missions, settle resource requests,
// publish economic readings and let the orchestrator rebalance.
func (m *Manager) Tick(tick uint64) (Report, error) {
	rep := Report{SettlementID: m.id, Tick: tick}

	s, err := m.world.Settlement(m.id)
	if err != nil {
		return rep, fmt.Errorf("tick %s: %w", m.id, err)
	}

	ctx := m.coord.Context()
	rep.Issues = m.heuristic.Evaluate(s.Snapshot())
	scouted := ctx.ScoutedSystems()
	rep.Action = m.selector.EvaluateNextAction(s, rep.Issues, scouted)
	rep.Executed = m.selector.ExecuteAction(rep.Action)
	m.record(rep)

	if rep.Executed && rep.Action.Type == strategy.SettlementExpansion {
		m.planExpansion(rep.Action)
	}

	rep.MissionsStarted = m.coord.ProcessPendingMissions()
	rep.MissionsAdvanced = m.advanceMissions()
	rep.RequestsFulfilled = m.coord.ProcessResourceRequests()

	a := m.selector.Analyze(s, scouted)
	m.coord.UpdateEconomicMetrics(map[string]any{
		"tick":                 tick,
		"strategic_position":   a.StrategicPosition,
		"economic_health":      a.EconomicHealth,
		"expansion_readiness":  a.ExpansionReadiness,
		"infrastructure_level": a.InfrastructureLevel,
	})

	m.orch.Heartbeat(orchestrator.TaskEngine, orchestrator.Acquisition, orchestrator.Scouting)
	rep.Operations = m.orch.OrchestrateServices()
	return rep, nil
}

func (m *Manager) record(rep Report) {
	a := rep.Action
	m.log.Info("decision",
		"tick", rep.Tick,
		"clock", SimTime(rep.Tick),
		"action", a.Type,
		"priority", a.Priority,
		"score", a.Score,
		"executed", rep.Executed,
		"issues", len(rep.Issues))
	if m.decisions == nil {
		return
	}
	err := m.decisions.RecordDecision(persistence.Decision{
		SettlementID: m.id,
		Tick:         rep.Tick,
		Action:       string(a.Type),
		Priority:     string(a.Priority),
		Score:        a.Score,
		Rationale:    a.Rationale,
		Executed:     rep.Executed,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		m.log.Warn("decision not recorded", "tick", rep.Tick, "error", err)
	}
}

// planExpansion queues a scouting pass over the best unscouted expansion
// target so the orchestrator can plan the settlement's next move.
func (m *Manager) planExpansion(a strategy.Action) {
	for _, sys := range a.Systems {
		if _, seen := m.coord.Context().ScoutingResult(sys.SystemID); seen {
			continue
		}
		m.orch.QueueOperation(orchestrator.Operation{
			Type:     orchestrator.ScoutingWithExpansionPlanning,
			SystemID: sys.SystemID,
		})
		return
	}
}

// advanceMissions pushes each in-flight mission one task. A mission blocked
// on a failing task is only retried when the policy allows it; otherwise it
// waits to be queued again.
func (m *Manager) advanceMissions() int {
	advanced := 0
	for _, id := range m.coord.InFlight() {
		rec, err := m.coord.MissionStatus(id)
		if errors.Is(err, coordinator.ErrUnknownMission) {
			continue
		}
		if rec.Attempts > 0 && !m.retry.AutoRetry {
			m.log.Debug("mission awaiting requeue", "mission", id, "attempts", rec.Attempts, "last_error", rec.LastError)
			continue
		}
		m.coord.AdvanceMission(id)
		advanced++
	}
	return advanced
}
