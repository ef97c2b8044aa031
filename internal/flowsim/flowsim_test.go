package flowsim

import (
	"errors"
	"math"
	"reflect"
	"slices"
	"strings"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func hasPrefix(msgs []string, prefix string) bool {
	return slices.ContainsFunc(msgs, func(m string) bool { return strings.HasPrefix(m, prefix) })
}

func TestShortageIsReportedWithoutConsuming(t *testing.T) {
	sim := New(DefaultConfig(), StaticStock{"titanium": 10})
	res := sim.SimulatePlan([]Phase{{Productions: []Production{{Type: "teu_unit", Quantity: 1}}}}, 20)

	if !hasPrefix(res.Bottlenecks, "Critical shortage of titanium") {
		t.Errorf("bottlenecks = %v", res.Bottlenecks)
	}
	if !slices.Contains(res.Bottlenecks, "Cannot complete teu_unit - insufficient inputs") {
		t.Errorf("missing completion failure in %v", res.Bottlenecks)
	}
	if got := res.FinalInventory["titanium"]; got != 10 {
		t.Errorf("titanium = %v, want 10", got)
	}
	if !reflect.DeepEqual(res.Unfinished, []string{"teu_unit"}) {
		t.Errorf("unfinished = %v", res.Unfinished)
	}
	// Retried through the overrun allowance before giving up.
	if res.CompletionDay != 50 || len(res.Timeline) != 51 {
		t.Errorf("completion day %d, %d timeline entries", res.CompletionDay, len(res.Timeline))
	}
}

func TestCompletesOnSchedule(t *testing.T) {
	stock := StaticStock{"titanium": 100, "electronics": 20, "solar_panels": 5, "aluminum": 200, "heat_exchangers": 10, "vacuum_pumps": 5}
	sim := New(DefaultConfig(), stock, WithPowerUnits(map[string]int{"nuclear_reactor_mk1": 1}))
	res := sim.SimulatePlan([]Phase{{Productions: []Production{{Type: "teu_unit", Quantity: 1}, {Type: "pve_unit", Quantity: 1}}}}, 30)

	if res.CompletionDay != 12 || len(res.Unfinished) != 0 {
		t.Fatalf("completion %d, unfinished %v", res.CompletionDay, res.Unfinished)
	}
	if len(res.Timeline) != 31 {
		t.Errorf("timeline has %d entries, want 31", len(res.Timeline))
	}
	if got := res.Timeline[10].ProductionsCompleted; !reflect.DeepEqual(got, []string{"teu_unit"}) {
		t.Errorf("day 10 completions = %v", got)
	}
	if d := res.Timeline[10].InventoryDelta; d["titanium"] != -100 || d["teu_unit"] != 1 {
		t.Errorf("day 10 delta = %v", d)
	}
	if res.FinalInventory["pve_unit"] != 1 || res.FinalInventory["aluminum"] != 0 {
		t.Errorf("final = %v", res.FinalInventory)
	}
	if len(res.Bottlenecks) != 0 {
		t.Errorf("bottlenecks = %v", res.Bottlenecks)
	}
	if stock["titanium"] != 100 {
		t.Error("simulation mutated the stockpile")
	}
}

func TestDeferredCompletionPastHorizon(t *testing.T) {
	sim := New(DefaultConfig(), StaticStock{"carbon_dioxide": 300, "hydrogen": 1200},
		WithPowerUnits(map[string]int{"solar_array_mk1": 10}))
	res := sim.SimulatePlan([]Phase{
		{StartDay: 0, Missions: []MissionRun{{Type: "titan_harvester"}}},
		{StartDay: 95, Productions: []Production{{Type: "methane_production", Quantity: 300}}},
	}, 92)

	if !slices.Contains(res.Bottlenecks, "Cannot complete titan_harvester mission - insufficient fuel") {
		t.Errorf("bottlenecks = %v", res.Bottlenecks)
	}
	if got := res.Timeline[96].MissionsCompleted; !reflect.DeepEqual(got, []string{"titan_harvester"}) {
		t.Errorf("day 96 missions = %v", got)
	}
	if res.CompletionDay != 96 || len(res.Unfinished) != 0 {
		t.Errorf("completion %d, unfinished %v", res.CompletionDay, res.Unfinished)
	}
	if !approx(res.FinalInventory["methane"], 51) || res.FinalInventory["titanium"] != 500 {
		t.Errorf("final = %v", res.FinalInventory)
	}
}

func TestCapacityBottlenecks(t *testing.T) {
	stock := StaticStock{"aluminum": 50, "solar_panels": 10, "communication_equipment": 5}
	phases := []Phase{{
		Productions: []Production{{Type: "gcc_satellite", Quantity: 1}},
		Missions: []MissionRun{
			{Type: "venus_harvester"}, {Type: "venus_harvester"},
			{Type: "venus_harvester"}, {Type: "venus_harvester"},
		},
	}}

	res := New(DefaultConfig(), stock).SimulatePlan(phases, 5)
	for _, want := range []string{
		"Power constraint: 5kW required, 0kW available",
		"Mission capacity exceeded: 4 active venus_harvester missions",
	} {
		if !slices.Contains(res.Bottlenecks, want) {
			t.Errorf("missing %q in %v", want, res.Bottlenecks)
		}
	}

	powered := New(DefaultConfig(), stock, WithPowerUnits(map[string]int{"solar_array_mk1": 1})).SimulatePlan(phases, 5)
	if hasPrefix(powered.Bottlenecks, "Power constraint") {
		t.Errorf("power flagged with a 10kW array: %v", powered.Bottlenecks)
	}
}

func TestUnknownWorkIsReported(t *testing.T) {
	res := New(DefaultConfig(), nil).SimulatePlan([]Phase{{
		Productions: []Production{{Type: "warp_gate", Quantity: 1}},
		Missions:    []MissionRun{{Type: "kuiper_run"}},
	}}, 3)
	want := []string{"Unknown production type warp_gate", "Unknown mission type kuiper_run"}
	if !reflect.DeepEqual(res.Bottlenecks, want) {
		t.Errorf("bottlenecks = %v", res.Bottlenecks)
	}
	if len(res.Timeline) != 4 || res.CompletionDay != 0 {
		t.Errorf("timeline %d, completion %d", len(res.Timeline), res.CompletionDay)
	}
}

func TestOptimizeFlowRetimesPrerequisites(t *testing.T) {
	phases := []Phase{
		{Name: "harvest", Productions: []Production{{Type: "titan_harvester", Quantity: 1}}},
		{Name: "venus", StartDay: 3, Productions: []Production{{Type: "venus_harvester", Quantity: 1}}},
		{Name: "comms", Productions: []Production{{Type: "gcc_satellite", Quantity: 1}}},
	}
	got := New(DefaultConfig(), nil).OptimizeFlow(phases)

	var order []string
	starts := map[string]int{}
	for _, ph := range got {
		order = append(order, ph.Name)
		starts[ph.Name] = ph.StartDay
	}
	if !reflect.DeepEqual(order, []string{"comms", "harvest", "venus"}) {
		t.Errorf("order = %v", order)
	}
	want := map[string]int{"comms": 0, "harvest": 7, "venus": 21}
	if !reflect.DeepEqual(starts, want) {
		t.Errorf("starts = %v, want %v", starts, want)
	}
	if phases[0].StartDay != 0 || phases[1].StartDay != 3 {
		t.Error("input phases were modified")
	}
}

func TestOptimizeFlowAddsProducers(t *testing.T) {
	got := New(DefaultConfig(), nil).OptimizeFlow([]Phase{{Productions: []Production{{Type: "lava_tube_base", Quantity: 1}}}})
	if len(got) != 1 || got[0].StartDay != 0 {
		t.Fatalf("phases = %+v", got)
	}
	want := []Production{{Type: "lava_tube_base", Quantity: 1}, {Type: "processed_regolith_production", Quantity: 101}}
	if !reflect.DeepEqual(got[0].Productions, want) {
		t.Errorf("productions = %+v", got[0].Productions)
	}
}

func TestOptimizeFlowStaggersMissions(t *testing.T) {
	phases := []Phase{
		{Missions: []MissionRun{{Type: "titan_harvester"}, {Type: "titan_harvester"}, {Type: "venus_harvester"}}},
		{StartDay: 10, Missions: []MissionRun{{Type: "titan_harvester"}, {Type: "venus_harvester"}}},
	}
	got := New(DefaultConfig(), nil).OptimizeFlow(phases)

	var titan, venus []int
	for _, ph := range got {
		for _, m := range ph.Missions {
			if m.StartDay == nil {
				t.Fatalf("%s left unscheduled", m.Type)
			}
			if m.Type == "titan_harvester" {
				titan = append(titan, *m.StartDay)
			} else {
				venus = append(venus, *m.StartDay)
			}
		}
	}
	if !reflect.DeepEqual(titan, []int{0, 30, 60}) || !reflect.DeepEqual(venus, []int{0, 45}) {
		t.Errorf("titan %v venus %v", titan, venus)
	}
}

func TestCalculateResourceAvailability(t *testing.T) {
	sim := New(DefaultConfig(), StaticStock{"processed_regolith": 100},
		WithProductionUnits(map[string]int{"processed_regolith_production": 2}),
		WithInbound(Inbound{Type: "titan_harvester", ArrivalDay: 2}))

	reg := sim.CalculateResourceAvailability("processed_regolith", 2)
	if len(reg) != 2 || !approx(reg[0].Amount, 100+9.95*2*24) || !approx(reg[1].Amount, 100+9.95*2*48) {
		t.Errorf("regolith = %+v", reg)
	}
	ti := sim.CalculateResourceAvailability("titanium", 3)
	got := []float64{ti[0].Amount, ti[1].Amount, ti[2].Amount}
	if !reflect.DeepEqual(got, []float64{0, 500, 500}) {
		t.Errorf("titanium = %v", got)
	}
	if len(sim.CalculateResourceAvailability("water", 0)) != 0 {
		t.Error("projection for zero days")
	}
}

func TestAvailablePowerKW(t *testing.T) {
	sim := New(DefaultConfig(), nil, WithPowerUnits(map[string]int{"solar_array_mk1": 3, "rtg_mk1": 8, "fusion_torch": 1}))
	if got := sim.AvailablePowerKW(); !approx(got, 31) {
		t.Errorf("power = %v, want 31", got)
	}
}

const planYAML = `
name: lunar build-out
horizon_days: 60
inventory:
  titanium: 400
power_units:
  solar_array_mk1: 4
phases:
  - name: surface
    start_day: 0
    productions:
      - type: teu_unit
  - name: orbit
    start_day: 14
    missions:
      - type: titan_harvester
        start_day: 20
`

func TestDecodePlan(t *testing.T) {
	p, err := DecodePlan(strings.NewReader(planYAML))
	if err != nil {
		t.Fatal(err)
	}
	if p.HorizonDays != 60 || p.Inventory["titanium"] != 400 || p.PowerUnits["solar_array_mk1"] != 4 {
		t.Errorf("plan = %+v", p)
	}
	if q := p.Phases[0].Productions[0].Quantity; q != 1 {
		t.Errorf("default quantity = %v", q)
	}
	if sd := p.Phases[1].Missions[0].StartDay; sd == nil || *sd != 20 {
		t.Errorf("mission start = %v", sd)
	}

	tests := []struct {
		name string
		in   string
	}{
		{"unknown field", "phases:\n  - start_day: 0\n    crew: 4\n"},
		{"negative start", "phases:\n  - start_day: -3\n"},
		{"negative horizon", "horizon_days: -1\n"},
		{"untyped production", "phases:\n  - productions:\n      - quantity: 2\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodePlan(strings.NewReader(tt.in)); err == nil {
				t.Fatal("plan accepted")
			}
		})
	}
	if _, err := DecodePlan(strings.NewReader("horizon_days: -1\n")); !errors.Is(err, ErrInvalidPlan) {
		t.Errorf("err = %v", err)
	}
}
