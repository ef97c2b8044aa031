package orchestrator

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/talgya/colony-ai/internal/discovery"
)

// ErrMissionNotStarted is returned when a compound operation's mission
// refuses to start after its resources were secured.
var ErrMissionNotStarted = errors.New("mission not started")

// Services are the operations compound work is built from.
type Services interface {
	StartMission(missionID string, params map[string]any) bool
	AcquireResource(material string, qty float64, priority string) error
	ResourceAvailable(material string) float64
	ScoutSystem(systemID string) (discovery.Report, error)
}

// OperationType names a compound operation.
type OperationType string

const (
	MissionWithResourceSupport      OperationType = "mission_with_resource_support"
	ResourceAcquisitionWithScouting OperationType = "resource_acquisition_with_scouting"
	ScoutingWithExpansionPlanning   OperationType = "scouting_with_expansion_planning"
)

// Operation is a request for compound work.
type Operation struct {
	Type      OperationType
	MissionID string
	Params    map[string]any
	Resources map[string]float64 // quantities that must be on hand
	SystemID  string
}

// Result is the outcome of a compound operation.
type Result struct {
	Type             OperationType
	Success          bool
	Acquired         map[string]float64
	Report           *discovery.Report
	ExpansionTargets []string
}

// QueueOperation defers op to the next OrchestrateServices pass.
func (o *Orchestrator) QueueOperation(op Operation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pending = append(o.pending, op)
}

// ExecuteCoordinatedOperation runs op across the services it needs. Either
// every step succeeds or the operation reports failure; a mission is never
// started without its resources.
func (o *Orchestrator) ExecuteCoordinatedOperation(op Operation) (Result, error) {
	res := Result{Type: op.Type}
	switch op.Type {
	case MissionWithResourceSupport:
		if err := o.require(op.Type, TaskEngine, Acquisition); err != nil {
			return res, err
		}
		acquired, err := o.secure(op.Resources)
		res.Acquired = acquired
		if err != nil {
			return res, fmt.Errorf("%s %s: %w", op.Type, op.MissionID, err)
		}
		if !o.svc.StartMission(op.MissionID, op.Params) {
			return res, fmt.Errorf("%s %s: %w", op.Type, op.MissionID, ErrMissionNotStarted)
		}

	case ResourceAcquisitionWithScouting:
		if err := o.require(op.Type, Acquisition, Scouting); err != nil {
			return res, err
		}
		acquired, err := o.secure(op.Resources)
		res.Acquired = acquired
		if err != nil {
			return res, fmt.Errorf("%s: %w", op.Type, err)
		}
		if op.SystemID != "" {
			report, err := o.svc.ScoutSystem(op.SystemID)
			if err != nil {
				return res, fmt.Errorf("%s: %w", op.Type, err)
			}
			res.Report = &report
		}

	case ScoutingWithExpansionPlanning:
		if err := o.require(op.Type, Scouting); err != nil {
			return res, err
		}
		report, err := o.svc.ScoutSystem(op.SystemID)
		if err != nil {
			return res, fmt.Errorf("%s: %w", op.Type, err)
		}
		res.Report = &report
		res.ExpansionTargets = expansionTargets(report)

	default:
		return res, fmt.Errorf("%q: %w", op.Type, ErrUnknownOperation)
	}
	res.Success = true
	o.log.Info("coordinated operation complete", "operation", op.Type, "mission", op.MissionID, "system", op.SystemID)
	return res, nil
}

func (o *Orchestrator) require(op OperationType, names ...string) error {
	for _, n := range names {
		if !o.ServiceAvailable(n) {
			o.log.Warn("operation blocked", "operation", op, "service", n)
			return fmt.Errorf("%s needs %s: %w", op, n, ErrServiceUnavailable)
		}
	}
	return nil
}

// secure acquires whatever part of need is not already held.
func (o *Orchestrator) secure(need map[string]float64) (map[string]float64, error) {
	acquired := make(map[string]float64)
	for _, m := range slices.Sorted(maps.Keys(need)) {
		short := need[m] - o.svc.ResourceAvailable(m)
		if short <= 0 {
			continue
		}
		if err := o.svc.AcquireResource(m, short, string(High)); err != nil {
			return acquired, fmt.Errorf("acquire %s: %w", m, err)
		}
		acquired[m] = short
	}
	return acquired, nil
}

// expansionTargets lists terraformable bodies first, then resource-rich
// ones, without repeats.
func expansionTargets(r discovery.Report) []string {
	var out []string
	for _, b := range slices.Concat(r.TerraformableBodies, r.ResourceRichBodies) {
		if !slices.Contains(out, b) {
			out = append(out, b)
		}
	}
	return out
}

// runQueued executes deferred operations. Ones blocked on an unavailable
// service are kept for the next pass.
func (o *Orchestrator) runQueued(ops []Operation) []Result {
	var results []Result
	var retry []Operation
	for _, op := range ops {
		res, err := o.ExecuteCoordinatedOperation(op)
		if errors.Is(err, ErrServiceUnavailable) {
			retry = append(retry, op)
			continue
		}
		if err != nil {
			o.log.Warn("queued operation failed", "operation", op.Type, "error", err)
		}
		results = append(results, res)
	}
	if len(retry) > 0 {
		o.mu.Lock()
		o.pending = append(retry, o.pending...)
		o.mu.Unlock()
	}
	return results
}
