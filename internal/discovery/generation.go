// Package discovery generates the star systems reachable from a settlement
// and analyzes them the way a scout would.
//
// Systems are derived from layered simplex noise, so a seed and an origin
// always produce the same neighbourhood.
package discovery

import (
	"fmt"
	"hash/fnv"
	"math"
	"sort"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// BodyKind classifies a celestial body.
type BodyKind string

const (
	KindTerrestrial  BodyKind = "terrestrial_planet"
	KindGasGiant     BodyKind = "gas_giant"
	KindMoon         BodyKind = "moon"
	KindAsteroidBelt BodyKind = "asteroid_belt"
	KindIceWorld     BodyKind = "ice_world"
)

// Body is one celestial body in a system.
type Body struct {
	Name             string   `json:"name"`
	Kind             BodyKind `json:"kind"`
	MassKg           float64  `json:"mass_kg"`
	Terraformable    bool     `json:"terraformable"`
	AtmosphereDense  bool     `json:"atmosphere_dense"`
	SurfaceAccess    bool     `json:"surface_access"`
	Resources        []string `json:"resources,omitempty"`
	IceFraction      float64  `json:"ice_fraction"`
	OrbitingBodyName string   `json:"orbiting_body,omitempty"`
}

// Resources are normalized richness readings in [0,1].
type Resources struct {
	Metal     float64 `json:"metal"`
	Volatile  float64 `json:"volatile"`
	RareEarth float64 `json:"rare_earth"`
}

// Sum returns the total richness.
func (r Resources) Sum() float64 { return r.Metal + r.Volatile + r.RareEarth }

// System is a candidate star system.
type System struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	TEI            float64   `json:"tei"` // terrestrial equivalence index, 0-100
	StrategicValue float64   `json:"strategic_value"`
	Resources      Resources `json:"resources"`
	Wormholes      int       `json:"wormholes"`
	Distance       float64   `json:"distance_ly"`
	Bodies         []Body    `json:"bodies"`
}

// GenConfig holds generation parameters.
type GenConfig struct {
	Seed      int64   `yaml:"seed"`
	Neighbors int     `yaml:"neighbors"`
	Radius    float64 `yaml:"radius_ly"`
}

// DefaultGenConfig returns a small neighbourhood suitable for a single colony.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Seed:      42,
		Neighbors: 6,
		Radius:    12,
	}
}

// Generator produces deterministic neighbourhoods.
type Generator struct {
	cfg GenConfig

	teiNoise      opensimplex.Noise
	metalNoise    opensimplex.Noise
	volatileNoise opensimplex.Noise
	rareNoise     opensimplex.Noise
	strategyNoise opensimplex.Noise
}

// NewGenerator creates independent noise layers from the seed.
func NewGenerator(cfg GenConfig) *Generator {
	if cfg.Neighbors <= 0 {
		cfg.Neighbors = DefaultGenConfig().Neighbors
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultGenConfig().Radius
	}
	return &Generator{
		cfg:           cfg,
		teiNoise:      opensimplex.NewNormalized(cfg.Seed),
		metalNoise:    opensimplex.NewNormalized(cfg.Seed + 1),
		volatileNoise: opensimplex.NewNormalized(cfg.Seed + 2),
		rareNoise:     opensimplex.NewNormalized(cfg.Seed + 3),
		strategyNoise: opensimplex.NewNormalized(cfg.Seed + 4),
	}
}

// Nearby returns the systems around origin, sorted by distance then id.
func (g *Generator) Nearby(originID string) []System {
	ox, oy := originCoords(originID)
	systems := make([]System, 0, g.cfg.Neighbors)
	for i := 0; i < g.cfg.Neighbors; i++ {
		angle := 2 * math.Pi * float64(i) / float64(g.cfg.Neighbors)
		// Vary the ring radius per slot so neighbours are not equidistant.
		r := g.cfg.Radius * (0.4 + 0.6*octaveNoise(g.strategyNoise, ox+float64(i), oy, 2, 0.3, 0.5))
		x := ox + r*math.Cos(angle)
		y := oy + r*math.Sin(angle)
		systems = append(systems, g.systemAt(fmt.Sprintf("%s-n%d", originID, i+1), x, y, r))
	}
	sort.SliceStable(systems, func(i, j int) bool {
		if systems[i].Distance != systems[j].Distance {
			return systems[i].Distance < systems[j].Distance
		}
		return systems[i].ID < systems[j].ID
	})
	return systems
}

// System looks up a generated neighbour by id. The origin is encoded in the
// id, so any id produced by Nearby resolves.
func (g *Generator) System(originID, systemID string) (System, bool) {
	for _, s := range g.Nearby(originID) {
		if s.ID == systemID {
			return s, true
		}
	}
	return System{}, false
}

func (g *Generator) systemAt(id string, x, y, dist float64) System {
	metal := octaveNoise(g.metalNoise, x, y, 4, 0.08, 0.5)
	volatile := octaveNoise(g.volatileNoise, x, y, 3, 0.06, 0.5)
	rare := octaveNoise(g.rareNoise, x, y, 3, 0.05, 0.5)
	strategic := octaveNoise(g.strategyNoise, x, y, 2, 0.04, 0.5)
	tei := octaveNoise(g.teiNoise, x, y, 4, 0.07, 0.5) * 100

	s := System{
		ID:             id,
		Name:           systemName(x, y),
		TEI:            round2(tei),
		StrategicValue: round2(strategic),
		Resources: Resources{
			Metal:     round2(metal),
			Volatile:  round2(volatile),
			RareEarth: round2(rare),
		},
		Distance: round2(dist),
	}
	if strategic > 0.75 {
		s.Wormholes = 1 + int((strategic-0.75)*8)
	}
	s.Bodies = makeBodies(s, x, y)
	return s
}

// makeBodies derives a body list from the system's readings.
func makeBodies(s System, x, y float64) []Body {
	var bodies []Body
	h := hashFloat(x, y)

	primary := Body{
		Name:          s.Name + " b",
		Kind:          KindTerrestrial,
		MassKg:        3e24 + h*4e24,
		Terraformable: s.TEI > 60,
		SurfaceAccess: true,
	}
	if s.Resources.Volatile > 0.6 && s.TEI < 40 {
		primary.AtmosphereDense = true
		primary.SurfaceAccess = false
	}
	if s.Resources.Metal > 0.5 {
		primary.Resources = append(primary.Resources, "iron", "titanium")
	}
	bodies = append(bodies, primary)

	if s.Resources.Volatile > 0.4 {
		giant := Body{Name: s.Name + " c", Kind: KindGasGiant, MassKg: 1.9e27}
		bodies = append(bodies, giant)
		moon := Body{Name: s.Name + " c I", Kind: KindMoon, MassKg: 1.3e23, OrbitingBodyName: giant.Name, IceFraction: s.Resources.Volatile}
		if s.Resources.Volatile > 0.55 {
			moon.Resources = []string{"methane", "nitrogen"}
		}
		bodies = append(bodies, moon)
	}
	if s.Resources.Metal > 0.45 || s.Resources.RareEarth > 0.55 {
		belt := Body{Name: s.Name + " belt", Kind: KindAsteroidBelt, IceFraction: s.Resources.Volatile * 0.5}
		if s.Resources.RareEarth > 0.55 {
			belt.Resources = []string{"rare_earths"}
		}
		bodies = append(bodies, belt)
	}
	if s.Resources.Volatile > 0.7 {
		bodies = append(bodies, Body{Name: s.Name + " d", Kind: KindIceWorld, MassKg: 5e23, IceFraction: 0.9})
	}
	return bodies
}

// octaveNoise samples multi-octave simplex noise, normalized to [0,1].
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxAmp := 0.0
	freq := frequency

	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxAmp += amplitude
		amplitude *= persistence
		freq *= 2.0
	}

	return total / maxAmp
}

func originCoords(id string) (float64, float64) {
	h := fnv.New64a()
	h.Write([]byte(id))
	v := h.Sum64()
	return float64(v%10000) / 10, float64((v/10000)%10000) / 10
}

func hashFloat(x, y float64) float64 {
	h := fnv.New32a()
	fmt.Fprintf(h, "%.3f:%.3f", x, y)
	return float64(h.Sum32()%1000) / 1000
}

var namePrefixes = []string{"Kepler", "Gliese", "Tau", "Ross", "Wolf", "Lacaille", "Luyten", "Barnard"}

func systemName(x, y float64) string {
	h := fnv.New32a()
	fmt.Fprintf(h, "%.2f/%.2f", x, y)
	v := h.Sum32()
	return fmt.Sprintf("%s-%d", namePrefixes[v%uint32(len(namePrefixes))], v%997)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
