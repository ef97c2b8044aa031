package colony

import "testing"

func TestSnapshotIsDetached(t *testing.T) {
	s := &Settlement{
		ID:      "luna-1",
		Storage: StorageSystem{Items: map[string]float64{Oxygen: 500}},
		Power:   PowerSystem{GeneratedKW: 120, ConsumedKW: 80, GridOnline: true},
	}
	snap := s.Snapshot()
	snap.Resources[Oxygen] = 1

	if s.Storage.Stock(Oxygen) != 500 {
		t.Fatalf("snapshot mutation leaked into settlement: oxygen = %v", s.Storage.Stock(Oxygen))
	}
	if snap.PowerGeneratedKW-snap.PowerConsumedKW != s.Power.SurplusKW() {
		t.Errorf("surplus mismatch")
	}
}

func TestInfrastructureLevel(t *testing.T) {
	tests := []struct {
		name       string
		facilities map[string]bool
		want       float64
	}{
		{"none recorded", nil, 0.5},
		{"all online", map[string]bool{"power_grid": true, "habitat": true}, 1},
		{"half online", map[string]bool{"power_grid": true, "habitat": false}, 0.5},
	}
	for _, tt := range tests {
		s := &Settlement{Facilities: tt.facilities}
		if got := s.InfrastructureLevel(); got != tt.want {
			t.Errorf("%s: InfrastructureLevel() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCloneDeepCopiesMaps(t *testing.T) {
	s := &Settlement{Outputs: map[string]float64{Energy: 10}}
	c := s.Clone()
	c.Outputs[Energy] = 99
	if s.Outputs[Energy] != 10 {
		t.Fatalf("clone shares outputs map")
	}
}

func TestPopulationRatio(t *testing.T) {
	if r := (PopulationSystem{Current: 5}).Ratio(); r != 0 {
		t.Errorf("zero capacity ratio = %v, want 0", r)
	}
	if r := (PopulationSystem{Current: 45, Capacity: 50}).Ratio(); r != 0.9 {
		t.Errorf("ratio = %v, want 0.9", r)
	}
}
