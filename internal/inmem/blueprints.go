package inmem

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/talgya/colony-ai/internal/colony"
)

// Blueprints is a BlueprintLookup keyed by blueprint id and name.
type Blueprints struct {
	byKey map[string]colony.Blueprint
}

type blueprintFile struct {
	Blueprints []colony.Blueprint `yaml:"blueprints"`
}

// NewBlueprints indexes the given blueprints.
func NewBlueprints(bps ...colony.Blueprint) *Blueprints {
	b := &Blueprints{byKey: make(map[string]colony.Blueprint, len(bps)*2)}
	for _, bp := range bps {
		b.byKey[bp.ID] = bp
		if bp.Name != "" {
			b.byKey[bp.Name] = bp
		}
	}
	return b
}

// DecodeBlueprints reads a YAML document with a top-level blueprints list.
func DecodeBlueprints(r io.Reader) (*Blueprints, error) {
	var f blueprintFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding blueprints: %w", err)
	}
	for i, bp := range f.Blueprints {
		if bp.ID == "" {
			return nil, fmt.Errorf("blueprint %d: missing id", i)
		}
	}
	return NewBlueprints(f.Blueprints...), nil
}

// LoadBlueprints reads blueprints from a YAML file.
func LoadBlueprints(path string) (*Blueprints, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening blueprints: %w", err)
	}
	defer f.Close()
	return DecodeBlueprints(f)
}

func (b *Blueprints) Blueprint(name string) (colony.Blueprint, bool) {
	bp, ok := b.byKey[name]
	return bp, ok
}

// DefaultBlueprints covers the units the bundled missions deploy.
func DefaultBlueprints() *Blueprints {
	return NewBlueprints(
		colony.Blueprint{ID: "regolith_excavator", Name: "Regolith Excavator", Category: "isru", PowerKW: 12, MassKg: 850},
		colony.Blueprint{ID: "isru_processor", Name: "ISRU Processor", Category: "isru", PowerKW: 40, MassKg: 2200},
		colony.Blueprint{ID: "solar_array", Name: "Solar Array", Category: "power", PowerKW: -10, MassKg: 300},
		colony.Blueprint{ID: "printer_3d", Name: "Regolith 3D Printer", Category: "fabrication", PowerKW: 25, MassKg: 1400},
		colony.Blueprint{ID: "rover", Name: "Utility Rover", Category: "mobility", PowerKW: 2, MassKg: 600},
		colony.Blueprint{ID: "habitat_module", Name: "Habitat Module", Category: "habitation", PowerKW: 8, MassKg: 9000,
			Cost: map[string]float64{"steel": 400, "aluminum": 150}},
		colony.Blueprint{ID: "storage_module", Name: "Storage Module", Category: "storage", PowerKW: 1, MassKg: 2500,
			Cost: map[string]float64{"steel": 200}},
	)
}
