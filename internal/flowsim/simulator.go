// Package flowsim runs a phased production and mission plan forward one day
// at a time against a settlement's stockpile and reports where it stalls.
package flowsim

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/dustin/go-humanize"
)

// Config tunes bottleneck detection and the projection helpers.
type Config struct {
	// A chain input is critically short at or below CriticalFloor of what
	// the production needs, and low below LowFloor.
	CriticalFloor float64 `yaml:"critical_floor"`
	LowFloor      float64 `yaml:"low_floor"`

	PowerHeadroom   float64 `yaml:"power_headroom"`
	MissionCapacity int     `yaml:"mission_capacity"`

	// Days past the horizon a stalled plan keeps retrying.
	OverrunDays int `yaml:"overrun_days"`

	FuelMaterial string             `yaml:"fuel_material"`
	CyclesPerDay float64            `yaml:"cycles_per_day"`
	PowerRatings map[string]float64 `yaml:"power_ratings"`
	Stagger      map[string]int     `yaml:"stagger_days"`

	// Tables are merged over DefaultTables.
	Tables Tables `yaml:"tables"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		CriticalFloor:   0.1,
		LowFloor:        0.5,
		PowerHeadroom:   1.2,
		MissionCapacity: 3,
		OverrunDays:     30,
		FuelMaterial:    "methane",
		CyclesPerDay:    24,
		PowerRatings: map[string]float64{
			"solar_array_mk1":     10,
			"nuclear_reactor_mk1": 100,
			"rtg_mk1":             0.125,
		},
		Stagger: map[string]int{
			"titan_harvester": 30,
			"venus_harvester": 45,
		},
	}
}

// Stockpile supplies the starting inventory.
type Stockpile interface {
	Items() map[string]float64
}

// StaticStock is a fixed stockpile, used for plan files.
type StaticStock map[string]float64

func (s StaticStock) Items() map[string]float64 { return maps.Clone(s) }

// Inbound is a mission already under way that will deliver its profile's
// resources on ArrivalDay.
type Inbound struct {
	Type       string
	ArrivalDay int
}

// Simulator runs plans against one stockpile.
type Simulator struct {
	cfg     Config
	tables  Tables
	stock   Stockpile
	power   map[string]int
	units   map[string]int
	inbound []Inbound
	log     *slog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithPowerUnits sets the generating units by name and count.
func WithPowerUnits(units map[string]int) Option {
	return func(s *Simulator) { s.power = maps.Clone(units) }
}

// WithProductionUnits sets the continuous production chains already running.
func WithProductionUnits(units map[string]int) Option {
	return func(s *Simulator) { s.units = maps.Clone(units) }
}

// WithInbound sets missions already in flight.
func WithInbound(in ...Inbound) Option {
	return func(s *Simulator) { s.inbound = append([]Inbound(nil), in...) }
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.log = l }
}

// New creates a simulator. A nil stock starts from an empty inventory.
func New(cfg Config, stock Stockpile, opts ...Option) *Simulator {
	if stock == nil {
		stock = StaticStock{}
	}
	s := &Simulator{
		cfg:    cfg,
		tables: DefaultTables().Merge(cfg.Tables),
		stock:  stock,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "flowsim")
	return s
}

// Tables returns the chains and profiles in use.
func (s *Simulator) Tables() Tables { return s.tables }

// AvailablePowerKW sums the rating of every configured generating unit.
func (s *Simulator) AvailablePowerKW() float64 {
	var kw float64
	for _, name := range slices.Sorted(maps.Keys(s.power)) {
		kw += s.cfg.PowerRatings[name] * float64(s.power[name])
	}
	return kw
}

// Day is one entry of a simulation timeline.
type Day struct {
	Day                  int                `json:"day"`
	InventoryDelta       map[string]float64 `json:"inventory_delta"`
	ProductionsCompleted []string           `json:"productions_completed"`
	MissionsCompleted    []string           `json:"missions_completed"`
	Bottlenecks          []string           `json:"bottlenecks"`
}

// Result is the outcome of SimulatePlan.
type Result struct {
	Timeline       []Day              `json:"timeline"`
	FinalInventory map[string]float64 `json:"final_inventory"`
	Bottlenecks    []string           `json:"bottlenecks"`
	CompletionDay  int                `json:"completion_day"`
	Unfinished     []string           `json:"unfinished,omitempty"`
}

type runKind int

const (
	productionRun runKind = iota
	missionRun
)

type run struct {
	kind     runKind
	name     string
	qty      float64
	chain    Chain
	profile  Profile
	start    int
	due      int
	finished int
}

func (r *run) done() bool { return r.finished >= 0 }

// SimulatePlan advances phases day by day from day 0. Work whose inputs are
// short on its due day is retried daily, past horizonDays if needed, until
// the overrun allowance runs out.
func (s *Simulator) SimulatePlan(phases []Phase, horizonDays int) Result {
	inv := s.stock.Items()
	if inv == nil {
		inv = make(map[string]float64)
	}
	runs, problems := s.schedule(phases)

	res := Result{}
	seen := make(map[string]bool)
	note := func(msgs []string) {
		for _, m := range msgs {
			if !seen[m] {
				seen[m] = true
				res.Bottlenecks = append(res.Bottlenecks, m)
			}
		}
	}
	note(problems)

	open := len(runs)
	lastDay := horizonDays + max(s.cfg.OverrunDays, 0)
	day := 0
	for ; day <= horizonDays || (open > 0 && day <= lastDay); day++ {
		before := maps.Clone(inv)
		entry := Day{Day: day}
		for _, r := range runs {
			if r.done() || r.due > day {
				continue
			}
			if msg, ok := s.complete(r, inv); !ok {
				entry.Bottlenecks = append(entry.Bottlenecks, msg)
				continue
			}
			r.finished = day
			open--
			if r.kind == productionRun {
				entry.ProductionsCompleted = append(entry.ProductionsCompleted, r.name)
			} else {
				entry.MissionsCompleted = append(entry.MissionsCompleted, r.name)
			}
			s.log.Debug("work completed", "name", r.name, "day", day, "scheduled", r.due)
		}
		entry.Bottlenecks = append(entry.Bottlenecks, s.bottlenecks(runs, inv, day)...)
		entry.InventoryDelta = delta(before, inv)
		note(entry.Bottlenecks)
		res.Timeline = append(res.Timeline, entry)
	}

	for _, r := range runs {
		if r.done() {
			res.CompletionDay = max(res.CompletionDay, r.finished)
		} else {
			res.Unfinished = append(res.Unfinished, r.name)
		}
	}
	if len(res.Unfinished) > 0 {
		res.CompletionDay = day - 1
	}
	res.FinalInventory = inv
	s.log.Info("plan simulated",
		"phases", len(phases),
		"days", len(res.Timeline),
		"completion_day", res.CompletionDay,
		"bottlenecks", len(res.Bottlenecks),
		"unfinished", len(res.Unfinished))
	return res
}

// schedule expands phases into runs ordered by due day.
func (s *Simulator) schedule(phases []Phase) ([]*run, []string) {
	var runs []*run
	var problems []string
	for _, ph := range phases {
		for _, p := range ph.Productions {
			c, ok := s.tables.Chains[p.Type]
			if !ok {
				problems = append(problems, fmt.Sprintf("Unknown production type %s", p.Type))
				continue
			}
			runs = append(runs, &run{
				kind:     productionRun,
				name:     p.Type,
				qty:      p.Quantity,
				chain:    c,
				start:    ph.StartDay,
				due:      ph.StartDay + c.BuildTimeDays,
				finished: -1,
			})
		}
		for _, m := range ph.Missions {
			prof, ok := s.tables.Profiles[m.Type]
			if !ok {
				problems = append(problems, fmt.Sprintf("Unknown mission type %s", m.Type))
				continue
			}
			start := ph.StartDay
			if m.StartDay != nil {
				start = *m.StartDay
			}
			runs = append(runs, &run{
				kind:     missionRun,
				name:     m.Type,
				qty:      1,
				profile:  prof,
				start:    start,
				due:      start + prof.DurationDays,
				finished: -1,
			})
		}
	}
	slices.SortStableFunc(runs, func(a, b *run) int { return a.due - b.due })
	return runs, problems
}

// complete applies a run to inv, or reports why it cannot finish. inv is
// untouched on failure.
func (s *Simulator) complete(r *run, inv map[string]float64) (string, bool) {
	if r.kind == missionRun {
		fuel := r.profile.FuelRequired
		if inv[s.cfg.FuelMaterial] < fuel {
			return fmt.Sprintf("Cannot complete %s mission - insufficient fuel", r.name), false
		}
		inv[s.cfg.FuelMaterial] -= fuel
		for res, amt := range r.profile.Resources {
			inv[res] += amt
		}
		return "", true
	}

	for _, in := range slices.Sorted(maps.Keys(r.chain.Inputs)) {
		if inv[in] < r.chain.Inputs[in]*r.qty {
			return fmt.Sprintf("Cannot complete %s - insufficient inputs", r.name), false
		}
	}
	for in, amt := range r.chain.Inputs {
		inv[in] -= amt * r.qty
	}
	for out, amt := range r.chain.Outputs {
		inv[out] += amt * r.qty
	}
	return "", true
}

func (s *Simulator) bottlenecks(runs []*run, inv map[string]float64, day int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(m string) {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}

	var powerKW float64
	missions := make(map[string]int)
	for _, r := range runs {
		if r.done() || r.start > day {
			continue
		}
		if r.kind == missionRun {
			missions[r.name]++
			continue
		}
		powerKW += r.chain.PowerKW * r.qty
		for _, in := range slices.Sorted(maps.Keys(r.chain.Inputs)) {
			need := r.chain.Inputs[in] * r.qty
			switch have := inv[in]; {
			case have <= need*s.cfg.CriticalFloor:
				add(fmt.Sprintf("Critical shortage of %s for %s", in, r.name))
			case have < need*s.cfg.LowFloor:
				add(fmt.Sprintf("Low availability of %s for %s", in, r.name))
			}
		}
	}

	if avail := s.AvailablePowerKW(); powerKW > avail*s.cfg.PowerHeadroom {
		add(fmt.Sprintf("Power constraint: %skW required, %skW available",
			humanize.Commaf(powerKW), humanize.Commaf(avail)))
	}
	for _, name := range slices.Sorted(maps.Keys(missions)) {
		if n := missions[name]; n > s.cfg.MissionCapacity {
			add(fmt.Sprintf("Mission capacity exceeded: %d active %s missions", n, name))
		}
	}
	return out
}

func delta(before, after map[string]float64) map[string]float64 {
	d := make(map[string]float64)
	for k, v := range after {
		if diff := v - before[k]; diff != 0 {
			d[k] = diff
		}
	}
	for k, v := range before {
		if _, ok := after[k]; !ok && v != 0 {
			d[k] = -v
		}
	}
	return d
}
