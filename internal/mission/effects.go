package mission

import (
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/colony-ai/internal/colony"
)

var errNoConstruction = errors.New("no construction service")

// byproducts are small yields released by some fabrication tasks, per unit
// of task.
var byproducts = map[string]map[string]float64{
	"print_ibeams":       {colony.Oxygen: 0.001, colony.Water: 0.0005},
	"print_shell_panels": {colony.Oxygen: 0.001, colony.Water: 0.0005},
}

// runTask applies the task's effects in order, skipping any already applied
// during an earlier failed attempt so each effect lands exactly once.
func (e *Engine) runTask(task Task) error {
	if len(task.Effects) == 0 {
		return e.runLegacy(task)
	}
	for i := e.rec.AppliedEffects; i < len(task.Effects); i++ {
		eff := task.Effects[i]
		if err := e.applyEffect(eff); err != nil {
			return fmt.Errorf("effect %d (%s): %w", i, eff.Action, err)
		}
		e.rec.AppliedEffects = i + 1
		e.rec.DeployedUnits = 0
	}
	e.releaseByproducts(task.ID)
	return nil
}

func (e *Engine) applyEffect(eff Effect) error {
	switch eff.Action {
	case "deploy_unit":
		return e.deployUnit(eff)
	case "set_unit_state":
		return e.setUnitState(eff)
	case "connect_units":
		return e.connectUnits(eff)
	case "manufacture":
		return e.manufacture(eff)
	case "check_unit_state":
		e.checkUnitState(eff)
		return nil
	case "check_unit_connected":
		e.log.Debug("connection check", "unit", eff.Unit, "port", eff.Port)
		return nil
	case "transfer_resource":
		e.log.Info("resource transfer", "resource", eff.Resource, "from", eff.SourceUnit, "to", eff.TargetUnit, "continuous", eff.Continuous)
		return nil
	case "construct_structure":
		if e.deps.Construction == nil {
			return errNoConstruction
		}
		if _, err := e.deps.Construction.ConstructStructure(e.rec.SettlementID, eff.Structure, eff.Structure); err != nil {
			return fmt.Errorf("constructing %s: %w", eff.Structure, err)
		}
		return nil
	case "set_structure_state":
		if e.deps.Construction == nil {
			return errNoConstruction
		}
		if err := e.deps.Construction.SetStructureState(e.rec.SettlementID, eff.Structure, eff.State); err != nil {
			e.log.Warn("structure state not applied", "structure", eff.Structure, "error", err)
		}
		return nil
	}
	return fmt.Errorf("unknown effect %q", eff.Action)
}

func (e *Engine) deployUnit(eff Effect) error {
	entry, ok := e.def.Manifest.Unit(eff.Unit)
	if !ok {
		return fmt.Errorf("unit %q not in mission manifest", eff.Unit)
	}
	unitType := entry.Type
	if unitType == "" {
		unitType = entry.Name
	}
	if e.deps.Blueprints != nil {
		if _, ok := e.deps.Blueprints.Blueprint(unitType); !ok {
			e.log.Warn("no blueprint for unit, skipping deployment", "unit", eff.Unit, "type", unitType)
			return nil
		}
	}
	if e.deps.Construction == nil {
		return errNoConstruction
	}
	// DeployedUnits carries the units placed before an earlier attempt failed.
	count := max(eff.Count, 1)
	for i := e.rec.DeployedUnits + 1; i <= count; i++ {
		name := eff.Unit
		if count > 1 {
			name = fmt.Sprintf("%s_%d", eff.Unit, i)
		}
		if _, err := e.deps.Construction.DeployUnit(e.rec.SettlementID, name, unitType); err != nil {
			return fmt.Errorf("deploying %s: %w", name, err)
		}
		e.rec.DeployedUnits = i
	}
	return nil
}

// setUnitState matches units by name fragment. Units already in the target
// state are left alone and no match at all is not an error.
func (e *Engine) setUnitState(eff Effect) error {
	if e.deps.Construction == nil {
		return errNoConstruction
	}
	units := e.deps.Construction.FindUnits(e.rec.SettlementID, eff.Unit)
	if len(units) == 0 {
		e.log.Debug("no units to set state on", "unit", eff.Unit)
		return nil
	}
	for _, u := range units {
		if u.State == eff.State {
			continue
		}
		if err := e.deps.Construction.SetUnitState(u.ID, eff.State); err != nil {
			return fmt.Errorf("setting %s to %s: %w", u.Name, eff.State, err)
		}
	}
	return nil
}

func (e *Engine) connectUnits(eff Effect) error {
	if e.deps.Construction == nil {
		return errNoConstruction
	}
	a, okA := e.deps.Construction.FindUnit(e.rec.SettlementID, eff.Unit1)
	b, okB := e.deps.Construction.FindUnit(e.rec.SettlementID, eff.Unit2)
	if !okA || !okB {
		e.log.Warn("connection skipped, unit missing", "unit1", eff.Unit1, "unit2", eff.Unit2)
		return nil
	}
	if err := e.deps.Construction.ConnectUnits(a.ID, eff.Port1, b.ID, eff.Port2); err != nil {
		return fmt.Errorf("connecting %s to %s: %w", eff.Unit1, eff.Unit2, err)
	}
	return nil
}

func (e *Engine) checkUnitState(eff Effect) {
	if e.deps.Construction == nil {
		return
	}
	u, ok := e.deps.Construction.FindUnit(e.rec.SettlementID, eff.Unit)
	if !ok || u.State != eff.State {
		e.log.Debug("unit state check mismatch", "unit", eff.Unit, "want", eff.State, "have", u.State)
	}
}

// manufacture consumes inputs scaled by quantity and records the output.
// Regolith-derived inputs are drawn from local stock and must be on hand;
// everything else is auto-fulfilled and only tracked. Local inputs are drawn
// all together or not at all.
func (e *Engine) manufacture(eff Effect) error {
	output := string(eff.Output)
	if output == "" {
		e.log.Warn("manufacture without output")
		return nil
	}
	qty := eff.Quantity
	if qty <= 0 {
		qty = 1
	}

	inv := e.deps.Inventory
	local := make(map[string]float64)
	var order []string
	for _, in := range eff.Inputs {
		if !isLocalISRU(in.Material) {
			continue
		}
		if _, seen := local[in.Material]; !seen {
			order = append(order, in.Material)
		}
		local[in.Material] += in.Quantity * qty
	}
	if inv != nil {
		for _, m := range order {
			if have := inv.CurrentStock(m); have < local[m] {
				return fmt.Errorf("%w: %s needs %.2f %s, have %.2f",
					colony.ErrInsufficientStock, output, local[m], m, have)
			}
		}
		for i, m := range order {
			if err := inv.RemoveItem(m, local[m]); err != nil {
				for _, drawn := range order[:i] {
					inv.AddItem(drawn, local[drawn])
				}
				return fmt.Errorf("drawing %s: %w", m, err)
			}
		}
	}

	for _, in := range eff.Inputs {
		need := in.Quantity * qty
		method := colony.ProcurementAutofulfill
		if isLocalISRU(in.Material) {
			method = colony.ProcurementLocalISRU
		}
		e.rec.Consumed[in.Material] += need
		e.track(in.Material, need, method, map[string]any{"for": output})
	}

	if inv != nil {
		inv.AddItem(output, qty)
	}
	e.rec.Produced[output] += qty
	e.track(output, qty, colony.ProcurementLocalProduction, map[string]any{"mission": e.missionID})
	return nil
}

func (e *Engine) releaseByproducts(taskID string) {
	yields, ok := byproducts[taskID]
	if !ok {
		return
	}
	for material, qty := range yields {
		if e.deps.Inventory != nil {
			e.deps.Inventory.AddItem(material, qty)
		}
		e.rec.Produced[material] += qty
		e.track(material, qty, colony.ProcurementLocalProduction, map[string]any{"byproduct_of": taskID})
	}
}

// runLegacy executes tasks written before effect lists existed.
func (e *Engine) runLegacy(task Task) error {
	switch task.Type {
	case "":
		return nil
	case "deploy":
		if e.deps.Construction == nil {
			return errNoConstruction
		}
		if _, err := e.deps.Construction.DeployUnit(e.rec.SettlementID, task.UnitName, task.UnitType); err != nil {
			return fmt.Errorf("deploying %s: %w", task.UnitName, err)
		}
		return nil
	case "construct":
		if task.StructureType == "skylight_cover" {
			e.log.Info("skylight cover already in place", "task", task.ID)
			return nil
		}
		if e.deps.Construction == nil {
			return errNoConstruction
		}
		if _, err := e.deps.Construction.ConstructStructure(e.rec.SettlementID, task.StructureType, task.Name); err != nil {
			return fmt.Errorf("constructing %s: %w", task.StructureType, err)
		}
		return nil
	case "connect", "transfer", "survey", "harvest":
		e.log.Debug("legacy task", "type", task.Type, "task", task.ID)
		return nil
	}
	return fmt.Errorf("unknown task type %q", task.Type)
}

func (e *Engine) track(material string, qty float64, method colony.Procurement, meta map[string]any) {
	if e.deps.Tracker == nil {
		return
	}
	e.deps.Tracker.TrackProcurement(e.rec.SettlementID, material, qty, method, meta)
}

func isLocalISRU(material string) bool {
	return strings.Contains(strings.ToLower(material), "regolith")
}
