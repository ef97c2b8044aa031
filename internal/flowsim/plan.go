package flowsim

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidPlan is returned when a plan fails validation.
var ErrInvalidPlan = errors.New("invalid plan")

// Production schedules Quantity units of a chain.
type Production struct {
	Type     string  `yaml:"type"`
	Quantity float64 `yaml:"quantity"`
}

// MissionRun schedules one mission of a profile class. StartDay overrides
// the phase start when set.
type MissionRun struct {
	Type     string `yaml:"type"`
	StartDay *int   `yaml:"start_day,omitempty"`
}

// Phase groups work that begins on the same day.
type Phase struct {
	Name        string       `yaml:"name"`
	StartDay    int          `yaml:"start_day"`
	Productions []Production `yaml:"productions"`
	Missions    []MissionRun `yaml:"missions"`
}

// Plan is a phased build-out as read from a plan file.
type Plan struct {
	Name        string             `yaml:"name"`
	HorizonDays int                `yaml:"horizon_days"`
	Inventory   map[string]float64 `yaml:"inventory"`
	PowerUnits  map[string]int     `yaml:"power_units"`
	Tables      Tables             `yaml:"tables"`
	Phases      []Phase            `yaml:"phases"`
}

// LoadPlan reads and validates a plan file.
func LoadPlan(path string) (Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		return Plan{}, fmt.Errorf("open plan: %w", err)
	}
	defer f.Close()
	p, err := DecodePlan(f)
	if err != nil {
		return Plan{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// DecodePlan parses a YAML plan and fills in defaults.
func DecodePlan(r io.Reader) (Plan, error) {
	var p Plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return Plan{}, fmt.Errorf("decode plan: %w", err)
	}
	for i := range p.Phases {
		for j := range p.Phases[i].Productions {
			if p.Phases[i].Productions[j].Quantity == 0 {
				p.Phases[i].Productions[j].Quantity = 1
			}
		}
	}
	if err := p.Validate(); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// Validate rejects negative days and quantities.
func (p Plan) Validate() error {
	if p.HorizonDays < 0 {
		return fmt.Errorf("horizon_days %d: %w", p.HorizonDays, ErrInvalidPlan)
	}
	for i, ph := range p.Phases {
		if ph.StartDay < 0 {
			return fmt.Errorf("phase %d start_day %d: %w", i, ph.StartDay, ErrInvalidPlan)
		}
		for _, pr := range ph.Productions {
			if pr.Type == "" || pr.Quantity < 0 {
				return fmt.Errorf("phase %d production %q: %w", i, pr.Type, ErrInvalidPlan)
			}
		}
		for _, m := range ph.Missions {
			if m.Type == "" || (m.StartDay != nil && *m.StartDay < 0) {
				return fmt.Errorf("phase %d mission %q: %w", i, m.Type, ErrInvalidPlan)
			}
		}
	}
	return nil
}

func clonePhases(phases []Phase) []Phase {
	out := make([]Phase, len(phases))
	for i, ph := range phases {
		out[i] = ph
		out[i].Productions = append([]Production(nil), ph.Productions...)
		out[i].Missions = make([]MissionRun, len(ph.Missions))
		for j, m := range ph.Missions {
			out[i].Missions[j] = m
			if m.StartDay != nil {
				d := *m.StartDay
				out[i].Missions[j].StartDay = &d
			}
		}
	}
	return out
}
