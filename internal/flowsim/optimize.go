package flowsim

import (
	"cmp"
	"maps"
	"math"
	"slices"
)

// OptimizeFlow returns a copy of phases rearranged so the plan can run:
// producers are added for inputs the plan and stockpile cannot cover, any
// phase building on a prerequisite is pushed back until that prerequisite is
// built, and repeated missions of a class are spaced out. Phases come back
// ordered by start day.
func (s *Simulator) OptimizeFlow(phases []Phase) []Phase {
	out := clonePhases(phases)
	if len(out) == 0 {
		return out
	}
	added := s.balance(out)
	moved := s.retime(out)
	slices.SortStableFunc(out, func(a, b Phase) int { return cmp.Compare(a.StartDay, b.StartDay) })
	s.stagger(out)
	s.log.Info("flow optimized", "phases", len(out), "producers_added", added, "phases_moved", moved)
	return out
}

// balance adds producers for chain inputs the plan consumes faster than
// stock and planned output can cover. It returns how many were added.
func (s *Simulator) balance(phases []Phase) int {
	demand := make(map[string]float64)
	supply := s.stock.Items()
	if supply == nil {
		supply = make(map[string]float64)
	}
	for _, ph := range phases {
		for _, p := range ph.Productions {
			c := s.tables.Chains[p.Type]
			for in, amt := range c.Inputs {
				demand[in] += amt * p.Quantity
			}
			for o, amt := range c.Outputs {
				supply[o] += amt * p.Quantity
			}
		}
		for _, m := range ph.Missions {
			for r, amt := range s.tables.Profiles[m.Type].Resources {
				supply[r] += amt
			}
		}
	}

	first := 0
	for i, ph := range phases {
		if ph.StartDay < phases[first].StartDay {
			first = i
		}
	}

	added := 0
	for _, res := range slices.Sorted(maps.Keys(demand)) {
		short := demand[res] - supply[res]
		if short <= 0 {
			continue
		}
		producers := s.tables.Producers(res)
		if len(producers) == 0 {
			continue
		}
		name := producers[0]
		qty := math.Ceil(short / s.tables.Chains[name].Outputs[res])
		ph := &phases[first]
		if i := slices.IndexFunc(ph.Productions, func(p Production) bool { return p.Type == name }); i >= 0 {
			ph.Productions[i].Quantity += qty
		} else {
			ph.Productions = append(ph.Productions, Production{Type: name, Quantity: qty})
		}
		s.log.Debug("producer added", "resource", res, "producer", name, "quantity", qty)
		added++
	}
	return added
}

// retime pushes each phase back until every prerequisite its productions
// require, built in another phase, is finished. It returns how many phases
// moved.
func (s *Simulator) retime(phases []Phase) int {
	moved := make(map[int]bool)
	// Each pass settles at least one more link of any dependency chain.
	for range len(phases) + len(s.tables.Chains) {
		changed := false
		for i := range phases {
			for _, p := range phases[i].Productions {
				for _, req := range s.tables.Chains[p.Type].Requires {
					j := s.builtIn(phases, req)
					if j < 0 || j == i {
						continue
					}
					ready := phases[j].StartDay + s.tables.Chains[req].BuildTimeDays
					if phases[i].StartDay < ready {
						phases[i].StartDay = ready
						moved[i] = true
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}
	return len(moved)
}

// builtIn returns the earliest phase that produces name, or -1.
func (s *Simulator) builtIn(phases []Phase, name string) int {
	best := -1
	for i, ph := range phases {
		if !slices.ContainsFunc(ph.Productions, func(p Production) bool { return p.Type == name }) {
			continue
		}
		if best < 0 || ph.StartDay < phases[best].StartDay {
			best = i
		}
	}
	return best
}

// stagger spaces missions of the same class by the configured interval.
func (s *Simulator) stagger(phases []Phase) {
	next := make(map[string]int)
	for i := range phases {
		for j := range phases[i].Missions {
			m := &phases[i].Missions[j]
			interval, ok := s.cfg.Stagger[m.Type]
			if !ok {
				continue
			}
			start := phases[i].StartDay
			if m.StartDay != nil {
				start = *m.StartDay
			}
			if n, seen := next[m.Type]; seen {
				start = max(start, n)
			}
			m.StartDay = &start
			next[m.Type] = start + interval
		}
	}
}

// Projection is the expected stock of a resource on a future day.
type Projection struct {
	Day    int     `json:"day"`
	Amount float64 `json:"amount"`
}

// CalculateResourceAvailability projects a resource for each of the next
// daysAhead days from current stock, running production units and inbound
// missions.
func (s *Simulator) CalculateResourceAvailability(resource string, daysAhead int) []Projection {
	current := s.stock.Items()[resource]
	var perDay float64
	for _, name := range slices.Sorted(maps.Keys(s.units)) {
		perDay += s.tables.Chains[name].Outputs[resource] * float64(s.units[name]) * s.cfg.CyclesPerDay
	}

	out := make([]Projection, 0, max(daysAhead, 0))
	for day := 1; day <= daysAhead; day++ {
		amt := current + perDay*float64(day)
		for _, in := range s.inbound {
			if in.ArrivalDay <= day {
				amt += s.tables.Profiles[in.Type].Resources[resource]
			}
		}
		out = append(out, Projection{Day: day, Amount: amt})
	}
	return out
}
