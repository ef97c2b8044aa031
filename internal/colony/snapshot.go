package colony

import "maps"

// Snapshot is a read of a settlement computed once per tick. It is never
// persisted.
type Snapshot struct {
	SettlementID string
	Body         string

	Resources map[string]float64
	Targets   map[string]float64
	Balance   float64

	Population         int
	PopulationCapacity int

	PowerGeneratedKW float64
	PowerConsumedKW  float64
	GridOnline       bool

	HasTankFarm     bool
	TankFarmFreePct float64

	CO2Percent         float64
	ArgonPercent       float64
	MagneticFieldTesla float64
}

// Snapshot reads the settlement's subsystems into a detached Snapshot.
func (s *Settlement) Snapshot() Snapshot {
	return Snapshot{
		SettlementID:       s.ID,
		Body:               s.Environment.Body,
		Resources:          maps.Clone(s.Storage.Items),
		Targets:            maps.Clone(s.Storage.Targets),
		Balance:            s.Balance,
		Population:         s.Population.Current,
		PopulationCapacity: s.Population.Capacity,
		PowerGeneratedKW:   s.Power.GeneratedKW,
		PowerConsumedKW:    s.Power.ConsumedKW,
		GridOnline:         s.Power.GridOnline,
		HasTankFarm:        s.Storage.HasTankFarm,
		TankFarmFreePct:    s.Storage.TankFarmFreePct,
		CO2Percent:         s.Environment.CO2Percent,
		ArgonPercent:       s.Environment.ArgonPercent,
		MagneticFieldTesla: s.Environment.MagneticFieldTesla,
	}
}

// BuildSnapshot loads a settlement through the world reader and snapshots it.
func BuildSnapshot(w WorldReader, id string) (Snapshot, error) {
	s, err := w.Settlement(id)
	if err != nil {
		return Snapshot{}, err
	}
	return s.Snapshot(), nil
}
