package strategy

// Config holds the selector's thresholds and defaults.
type Config struct {
	// Issues at or above this severity bypass candidate scoring.
	CriticalSeverity int `yaml:"critical_severity"`

	// Readiness at which settlement expansion becomes a candidate.
	ExpansionThreshold float64 `yaml:"expansion_threshold"`

	// Score gap below which a trade-off resolves to a balanced approach.
	GapThreshold float64 `yaml:"gap_threshold"`

	// Life-critical output must exceed consumption by this factor.
	OutputBuffer float64 `yaml:"output_buffer"`

	// Building materials below this stock are needed.
	MaterialFloor float64 `yaml:"material_floor"`

	// Key materials above this stock count toward building resources.
	BuildingStockFloor float64 `yaml:"building_stock_floor"`

	MinAcquisitionCapability float64 `yaml:"min_acquisition_capability"`
	MinScoutingCapability    float64 `yaml:"min_scouting_capability"`
	MinExpansionReadiness    float64 `yaml:"min_expansion_readiness"`
	MinBuildingResources     float64 `yaml:"min_building_resources"`

	DefaultAcquireQuantity float64 `yaml:"default_acquire_quantity"`
	ExpansionMission       string  `yaml:"expansion_mission"`

	// Infrastructure missions are queued as <prefix><item>.
	InfrastructureMissionPrefix string `yaml:"infrastructure_mission_prefix"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		CriticalSeverity:   800,
		ExpansionThreshold: 0.8,
		GapThreshold:       10,

		OutputBuffer:       1.2,
		MaterialFloor:      500,
		BuildingStockFloor: 100,

		MinAcquisitionCapability: 0.3,
		MinScoutingCapability:    0.5,
		MinExpansionReadiness:    0.7,
		MinBuildingResources:     0.4,

		DefaultAcquireQuantity:      100,
		ExpansionMission:            "settlement_expansion",
		InfrastructureMissionPrefix: "build_",
	}
}
