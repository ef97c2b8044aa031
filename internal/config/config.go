// Package config loads the colony tuning file: decision thresholds for every
// service, the flow simulator tables and the settlements the host manages.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/colony-ai/internal/colony"
	"github.com/talgya/colony-ai/internal/discovery"
	"github.com/talgya/colony-ai/internal/flowsim"
	"github.com/talgya/colony-ai/internal/heuristic"
	"github.com/talgya/colony-ai/internal/mission"
	"github.com/talgya/colony-ai/internal/orchestrator"
	"github.com/talgya/colony-ai/internal/strategy"
)

// ErrInvalid is returned when a loaded config fails validation.
var ErrInvalid = errors.New("invalid config")

// Depot is the off-world supplier every settlement buys from.
type Depot struct {
	Name       string             `yaml:"name"`
	Supply     map[string]float64 `yaml:"supply"`
	Prices     map[string]float64 `yaml:"prices"`
	CreditLine float64            `yaml:"credit_line"`
}

// Config is the whole tuning file.
type Config struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	Concurrency  int           `yaml:"concurrency"`
	MissionsDir  string        `yaml:"missions_dir"`
	Blueprints   string        `yaml:"blueprints"`

	Heuristic    heuristic.Config    `yaml:"heuristic"`
	Strategy     strategy.Config     `yaml:"strategy"`
	Orchestrator orchestrator.Config `yaml:"orchestrator"`
	Retry        mission.RetryPolicy `yaml:"retry"`
	FlowSim      flowsim.Config      `yaml:"flowsim"`
	Discovery    discovery.GenConfig `yaml:"discovery"`

	Depot       Depot               `yaml:"depot"`
	Settlements []colony.Settlement `yaml:"settlements"`
}

// Default returns the stock tuning with a single lunar outpost.
func Default() Config {
	return Config{
		TickInterval: time.Second,
		Concurrency:  4,
		Heuristic:    heuristic.DefaultConfig(),
		Strategy:     strategy.DefaultConfig(),
		Orchestrator: orchestrator.DefaultConfig(),
		Retry:        mission.DefaultRetryPolicy(),
		FlowSim:      flowsim.DefaultConfig(),
		Discovery:    discovery.DefaultGenConfig(),
		Depot: Depot{
			Name:       "lagrange_depot",
			Supply:     map[string]float64{"oxygen": 5000, "nitrogen": 5000, "water": 2000, "titanium": 1000, "steel": 2000},
			Prices:     map[string]float64{"oxygen": 2, "nitrogen": 1.5, "water": 1, "titanium": 8, "steel": 3},
			CreditLine: 10000,
		},
		Settlements: []colony.Settlement{defaultOutpost()},
	}
}

func defaultOutpost() colony.Settlement {
	return colony.Settlement{
		ID:       "luna-1",
		Name:     "Shackleton Outpost",
		SystemID: "sol",
		Power:    colony.PowerSystem{GeneratedKW: 120, ConsumedKW: 80, GridOnline: true},
		Storage: colony.StorageSystem{
			Items:   map[string]float64{"oxygen": 800, "nitrogen": 600, "water": 400, "food": 300, "steel": 700, "lunar_regolith": 2000},
			Targets: map[string]float64{"oxygen": 1000, "nitrogen": 1000, "water": 500, "food": 400},
		},
		Population:  colony.PopulationSystem{Current: 12, Capacity: 20},
		Environment: colony.Environment{Body: "Luna"},
		Balance:     5000,
		Outputs:     map[string]float64{"energy": 120, "food": 14, "water": 30},
		Consumption: map[string]float64{"energy": 80, "food": 12, "water": 24},
		Facilities:  map[string]bool{"habitat": true, "power_plant": true, "isru_plant": false},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, cfg.Validate()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Normalize fills zero values left by a partial file.
func (c *Config) Normalize() {
	def := Default()
	if c.TickInterval <= 0 {
		c.TickInterval = def.TickInterval
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	if c.Retry.MaxAttempts < 0 {
		c.Retry.MaxAttempts = 0
	}
	if c.Orchestrator.FreshnessWindow <= 0 {
		c.Orchestrator.FreshnessWindow = def.Orchestrator.FreshnessWindow
	}
	if c.FlowSim.FuelMaterial == "" {
		c.FlowSim.FuelMaterial = def.FlowSim.FuelMaterial
	}
	if c.FlowSim.CyclesPerDay <= 0 {
		c.FlowSim.CyclesPerDay = def.FlowSim.CyclesPerDay
	}
	if c.Depot.Name == "" {
		c.Depot.Name = def.Depot.Name
	}
	for i := range c.Settlements {
		s := &c.Settlements[i]
		s.ID = strings.TrimSpace(s.ID)
		if s.Name == "" {
			s.Name = s.ID
		}
	}
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	h := c.Heuristic
	check(inUnit(h.OxygenCriticalRatio), "heuristic.oxygen_critical_ratio %v not in [0,1]", h.OxygenCriticalRatio)
	check(inUnit(h.NitrogenCriticalRatio), "heuristic.nitrogen_critical_ratio %v not in [0,1]", h.NitrogenCriticalRatio)
	check(inUnit(h.ProcurementRatio), "heuristic.procurement_ratio %v not in [0,1]", h.ProcurementRatio)
	check(h.StorageCriticalPct >= 0 && h.StorageCriticalPct <= 100, "heuristic.storage_critical_pct %v not in [0,100]", h.StorageCriticalPct)

	s := c.Strategy
	check(inUnit(s.ExpansionThreshold), "strategy.expansion_threshold %v not in [0,1]", s.ExpansionThreshold)
	check(s.GapThreshold >= 0, "strategy.gap_threshold %v is negative", s.GapThreshold)
	check(s.CriticalSeverity > 0, "strategy.critical_severity must be positive")

	o := c.Orchestrator
	check(o.MaxConcurrentOps > 0, "orchestrator.max_concurrent_operations must be positive")
	check(o.QueueHigh <= o.QueueCritical, "orchestrator.queue_high %d above queue_critical %d", o.QueueHigh, o.QueueCritical)
	check(o.RequestsHigh <= o.RequestsCritical, "orchestrator.requests_high %d above requests_critical %d", o.RequestsHigh, o.RequestsCritical)

	f := c.FlowSim
	check(f.CriticalFloor >= 0 && f.CriticalFloor < f.LowFloor, "flowsim.critical_floor %v must be below low_floor %v", f.CriticalFloor, f.LowFloor)
	check(f.MissionCapacity > 0, "flowsim.mission_capacity must be positive")
	check(f.OverrunDays >= 0, "flowsim.overrun_days %d is negative", f.OverrunDays)

	check(c.Discovery.Neighbors >= 0, "discovery.neighbors %d is negative", c.Discovery.Neighbors)

	check(len(c.Settlements) > 0, "no settlements configured")
	seen := make(map[string]bool, len(c.Settlements))
	for i, st := range c.Settlements {
		check(st.ID != "", "settlements[%d] has no id", i)
		check(!seen[st.ID], "duplicate settlement id %q", st.ID)
		seen[st.ID] = true
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

func inUnit(v float64) bool { return v >= 0 && v <= 1 }
