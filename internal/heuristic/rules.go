package heuristic

import (
	"github.com/expr-lang/expr/vm"

	"github.com/talgya/colony-ai/internal/colony"
)

// IssueType names a crisis or operational flag.
type IssueType string

const (
	LifeSupport            IssueType = "life_support"
	AtmosphericMaintenance IssueType = "atmospheric_maintenance"
	DebtRepayment          IssueType = "debt_repayment"
	ResourceProcurement    IssueType = "resource_procurement"
	Construction           IssueType = "construction"
	Expansion              IssueType = "expansion"
)

// Severities is the fixed severity scale. Higher is more urgent.
var Severities = map[IssueType]int{
	LifeSupport:            1000,
	AtmosphericMaintenance: 900,
	DebtRepayment:          800,
	ResourceProcurement:    500,
	Construction:           300,
	Expansion:              100,
}

// Branch picks an action when its condition holds. Branches are tried in
// order and the first match wins.
type Branch struct {
	When    string
	Action  string
	program *vm.Program
}

// Rule raises one Issue when its condition holds.
type Rule struct {
	Name      string
	Type      IssueType
	Condition string
	Branches  []Branch
	Payload   func(env Env) map[string]any
	program   *vm.Program
}

// DefaultRules returns the stock rule set in declaration order.
func DefaultRules() []*Rule {
	return []*Rule{
		{
			Name:      "oxygen_shortfall",
			Type:      LifeSupport,
			Condition: `Ratio("oxygen") < Cfg.OxygenCriticalRatio`,
			Branches: []Branch{
				{When: `CO2Percent >= Cfg.LocalGenerationCO2Percent && MagneticFieldTesla < Cfg.ThinFieldTesla`, Action: "local_oxygen_generation"},
				{When: `true`, Action: "refill_oxygen"},
			},
			Payload: gasPayload(colony.Oxygen),
		},
		{
			Name:      "nitrogen_shortfall",
			Type:      AtmosphericMaintenance,
			Condition: `Ratio("nitrogen") < Cfg.NitrogenCriticalRatio`,
			Branches: []Branch{
				{When: `ArgonPercent >= Cfg.ArgonExtractionPercent || Stock("argon") > 0`, Action: "local_argon_extraction"},
				{When: `true`, Action: "refill_nitrogen"},
			},
			Payload: gasPayload(colony.Nitrogen),
		},
		{
			Name:      "negative_balance",
			Type:      DebtRepayment,
			Condition: `Balance < 0`,
			Branches:  []Branch{{When: `true`, Action: "debt_repayment"}},
			Payload: func(env Env) map[string]any {
				return map[string]any{"amount": -env.Balance}
			},
		},
		{
			Name:      "material_shortfall",
			Type:      ResourceProcurement,
			Condition: `len(ShortMaterials()) > 0`,
			Branches:  []Branch{{When: `true`, Action: "procure_materials"}},
			Payload: func(env Env) map[string]any {
				return map[string]any{"materials": env.ShortMaterials()}
			},
		},
		{
			Name:      "excess_synthesis_gases",
			Type:      ResourceProcurement,
			Condition: `Stock("carbon_monoxide") >= Cfg.ExcessGasFloor && Stock("hydrogen") >= Cfg.ExcessGasFloor`,
			Branches:  []Branch{{When: `true`, Action: "methane_synthesis"}},
			Payload: func(env Env) map[string]any {
				return map[string]any{
					"carbon_monoxide": env.Stock("carbon_monoxide"),
					"hydrogen":        env.Stock("hydrogen"),
				}
			},
		},
		{
			Name:      "tank_farm_full",
			Type:      Construction,
			Condition: `HasTankFarm && TankFarmFreePct < Cfg.StorageCriticalPct`,
			Branches:  []Branch{{When: `true`, Action: "construct_storage_module"}},
			Payload: func(env Env) map[string]any {
				return map[string]any{"free_pct": env.TankFarmFreePct}
			},
		},
		{
			Name:      "population_pressure",
			Type:      Expansion,
			Condition: `PopulationCapacity > 0 && PopulationRatio() >= Cfg.ExpansionPopulationRatio && PowerSurplusKW > 0`,
			Branches:  []Branch{{When: `true`, Action: "plan_expansion"}},
			Payload: func(env Env) map[string]any {
				return map[string]any{"population_ratio": env.PopulationRatio()}
			},
		},
	}
}

func gasPayload(gas string) func(Env) map[string]any {
	return func(env Env) map[string]any {
		shortfall := env.Target(gas) - env.Stock(gas)
		if shortfall < 0 {
			shortfall = 0
		}
		return map[string]any{
			"resource":  gas,
			"stock":     env.Stock(gas),
			"shortfall": shortfall,
		}
	}
}
