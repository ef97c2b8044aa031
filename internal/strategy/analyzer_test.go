package strategy

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/discovery"
)

type fakeSystems struct {
	systems []discovery.System
	calls   int
}

func (f *fakeSystems) Nearby(string) []discovery.System {
	f.calls++
	return f.systems
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func lunarOutpost() *colony.Settlement {
	return &colony.Settlement{
		ID:          "luna-1",
		Name:        "Luna Base",
		SystemID:    "sol",
		Population:  colony.PopulationSystem{Current: 100, Capacity: 200},
		Outputs:     map[string]float64{"energy": 110},
		Consumption: map[string]float64{"energy": 100},
		Storage: colony.StorageSystem{Items: map[string]float64{
			"steel":    600,
			"titanium": 50,
		}},
	}
}

func TestAnalyze(t *testing.T) {
	an := NewAnalyzer(DefaultConfig(), nil)
	a := an.Analyze(lunarOutpost(), nil)

	if !reflect.DeepEqual(a.ResourceNeeds.Critical, []string{"energy"}) {
		t.Errorf("critical = %v", a.ResourceNeeds.Critical)
	}
	wantNeeded := []string{"titanium", "aluminum", "modular_structural_panel_base"}
	if !reflect.DeepEqual(a.ResourceNeeds.Needed, wantNeeded) {
		t.Errorf("needed = %v, want %v", a.ResourceNeeds.Needed, wantNeeded)
	}
	if !reflect.DeepEqual(a.InfrastructureNeeds.Critical, []string{"power_grid"}) {
		t.Errorf("infrastructure critical = %v", a.InfrastructureNeeds.Critical)
	}

	checks := []struct {
		name      string
		got, want float64
	}{
		{"economic health", a.EconomicHealth, 0.275},
		{"expansion readiness", a.ExpansionReadiness, 0.2825},
		{"acquisition", a.AcquisitionCapability, 0.5},
		{"scouting", a.ScoutingCapability, 0.5},
		{"building", a.BuildingResources, 1.0 / 3},
		{"strategic position", a.StrategicPosition, 0.5375},
		{"steel level", a.ResourceLevels["steel"], 600},
	}
	for _, c := range checks {
		if !approx(c.got, c.want) {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
}

func TestAnalyzeDoesNotAliasSettlement(t *testing.T) {
	s := lunarOutpost()
	a := NewAnalyzer(DefaultConfig(), nil).Analyze(s, nil)
	a.ResourceLevels["steel"] = 0
	if s.Storage.Items["steel"] != 600 {
		t.Error("analysis aliases settlement storage")
	}
}

func TestOpportunities(t *testing.T) {
	src := &fakeSystems{systems: []discovery.System{
		{ID: "prize", TEI: 90},
		{ID: "ore", TEI: 10, StrategicValue: 0.5, Resources: discovery.Resources{Metal: 0.5, Volatile: 0.4}},
		{ID: "dust", TEI: 10, StrategicValue: 0.1},
		{ID: "seen", TEI: 95},
	}}
	scouted := map[string]time.Time{"seen": time.Unix(0, 0)}
	a := NewAnalyzer(DefaultConfig(), src).Analyze(lunarOutpost(), scouted)

	if len(a.HighValueSystems) != 1 || a.HighValueSystems[0].SystemID != "prize" {
		t.Fatalf("high value = %+v", a.HighValueSystems)
	}
	if a.HighValueSystems[0].EstimatedValue != "prize_world" {
		t.Errorf("prize estimated value = %s", a.HighValueSystems[0].EstimatedValue)
	}
	if len(a.StrategicSystems) != 1 || a.StrategicSystems[0].SystemID != "ore" {
		t.Fatalf("strategic = %+v", a.StrategicSystems)
	}
	if a.StrategicSystems[0].EstimatedValue != "medium" {
		t.Errorf("ore estimated value = %s", a.StrategicSystems[0].EstimatedValue)
	}
}
