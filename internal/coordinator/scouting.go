package coordinator

import (
	"fmt"

	"github.com/talgya/colony-ai/internal/discovery"
	"github.com/talgya/colony-ai/internal/sharedctx"
)

// ScoutSystem analyzes a nearby system and caches the report in the shared
// context.
func (c *Coordinator) ScoutSystem(systemID string) (discovery.Report, error) {
	if c.deps.Systems == nil {
		return discovery.Report{}, fmt.Errorf("scout %s: %w", systemID, ErrUnknownSystem)
	}
	sys, ok := c.deps.Systems.System(c.deps.Origin, systemID)
	if !ok {
		return discovery.Report{}, fmt.Errorf("scout %s: %w", systemID, ErrUnknownSystem)
	}
	c.note(c.ctx.NotifyListeners(sharedctx.EventScoutingStarted, map[string]any{"system_id": systemID}))

	report := c.deps.Scout.Analyze(sys)
	c.note(c.ctx.StoreScoutingResult(systemID, report))
	c.note(c.ctx.NotifyListeners(sharedctx.EventScoutingCompleted, map[string]any{
		"system_id":       systemID,
		"target_body":     report.TargetBody,
		"estimated_value": report.EstimatedValue,
	}))
	c.log.Info("system scouted", "system", systemID, "characteristic", report.PrimaryCharacteristic, "target", report.TargetBody)
	return report, nil
}

// ScoutingResults returns every cached scouting report.
func (c *Coordinator) ScoutingResults() map[string]sharedctx.ScoutingResult {
	return c.ctx.ScoutingResults()
}

// HandleEvent logs queue and ledger traffic.
func (c *Coordinator) HandleEvent(event sharedctx.Event, payload map[string]any) error {
	switch event {
	case sharedctx.EventMissionQueued, sharedctx.EventMissionDequeued:
		c.log.Debug("mission queue changed", "event", event, "mission", payload["mission_id"], "queue_length", payload["queue_length"])
	case sharedctx.EventResourceRequested, sharedctx.EventResourceRequestFulfilled:
		c.log.Debug("resource ledger changed", "event", event, "material", payload["material"], "quantity", payload["quantity"])
	}
	return nil
}
