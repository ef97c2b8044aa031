package heuristic

// Config holds the numeric thresholds the default rules compare against.
// The environmental thresholds are taken as given; nothing here derives them.
type Config struct {
	OxygenCriticalRatio   float64 `yaml:"oxygen_critical_ratio"`
	NitrogenCriticalRatio float64 `yaml:"nitrogen_critical_ratio"`

	// Local oxygen generation is chosen over resupply when ambient CO₂ is at
	// least this percentage and the magnetic field is below ThinFieldTesla.
	LocalGenerationCO2Percent float64 `yaml:"local_generation_co2_percent"`
	ThinFieldTesla            float64 `yaml:"thin_field_tesla"`

	// Argon at or above this ambient percentage makes local extraction viable.
	ArgonExtractionPercent float64 `yaml:"argon_extraction_percent"`

	// Stock fraction of target below which a tracked material needs procurement.
	ProcurementRatio float64 `yaml:"procurement_ratio"`

	// Carbon monoxide and hydrogen at or above this amount are turned into methane.
	ExcessGasFloor float64 `yaml:"excess_gas_floor"`

	StorageCriticalPct float64 `yaml:"storage_critical_pct"`

	ExpansionPopulationRatio float64 `yaml:"expansion_population_ratio"`

	// Targets used when the snapshot carries none for a life-support gas.
	DefaultTargets map[string]float64 `yaml:"default_targets"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		OxygenCriticalRatio:       0.15,
		NitrogenCriticalRatio:     0.15,
		LocalGenerationCO2Percent: 90,
		ThinFieldTesla:            0.05,
		ArgonExtractionPercent:    1.0,
		ProcurementRatio:          0.25,
		ExcessGasFloor:            100,
		StorageCriticalPct:        10,
		ExpansionPopulationRatio:  0.9,
		DefaultTargets: map[string]float64{
			"oxygen":   1000,
			"nitrogen": 1000,
		},
	}
}
