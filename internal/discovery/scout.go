package discovery

import "slices"

// Characteristic is the dominant pattern a scout recognizes in a system.
type Characteristic string

const (
	LargeMoonWithResources     Characteristic = "large_moon_with_resources"
	SmallMoonsWithBelt         Characteristic = "small_moons_with_belt"
	AtmosphericNoSurfaceAccess Characteristic = "atmospheric_planet_no_surface_access"
	GasGiantWithMoons          Characteristic = "gas_giant_with_moons"
	GenericSystem              Characteristic = "generic_system"
)

// Report is a scout's assessment of one system.
type Report struct {
	SystemID              string         `json:"system_id"`
	PrimaryCharacteristic Characteristic `json:"primary_characteristic"`
	TargetBody            string         `json:"target_body"`
	TerraformableBodies   []string       `json:"terraformable_bodies"`
	ResourceRichBodies    []string       `json:"resource_rich_bodies"`
	WaterSources          []string       `json:"water_sources"`
	EMSignatures          int            `json:"em_signatures"`
	BodyCount             int            `json:"body_count"`
	EstimatedValue        string         `json:"estimated_value"`
	Confidence            float64        `json:"confidence"`
}

// Clone returns a copy with detached slices.
func (r Report) Clone() Report {
	r.TerraformableBodies = slices.Clone(r.TerraformableBodies)
	r.ResourceRichBodies = slices.Clone(r.ResourceRichBodies)
	r.WaterSources = slices.Clone(r.WaterSources)
	return r
}

// ScoutLogic analyzes systems without survey data.
type ScoutLogic struct{}

// Analyze inspects a system's bodies and produces a report.
func (ScoutLogic) Analyze(s System) Report {
	r := Report{
		SystemID:              s.ID,
		PrimaryCharacteristic: primaryCharacteristic(s.Bodies),
		BodyCount:             len(s.Bodies),
		Confidence:            0.5,
	}
	for _, b := range s.Bodies {
		if b.Kind == KindTerrestrial && b.Terraformable {
			r.TerraformableBodies = append(r.TerraformableBodies, b.Name)
		}
		if len(b.Resources) > 0 || b.Kind == KindMoon || b.Kind == KindAsteroidBelt {
			r.ResourceRichBodies = append(r.ResourceRichBodies, b.Name)
		}
		if b.Kind == KindGasGiant || b.Kind == KindIceWorld || b.IceFraction > 0.3 {
			r.WaterSources = append(r.WaterSources, b.Name)
		}
	}
	r.TargetBody = targetBody(s.Bodies, r)
	r.EMSignatures = s.Wormholes
	r.EstimatedValue = estimatedValue(s)
	return r
}

func primaryCharacteristic(bodies []Body) Characteristic {
	var smallMoons, belts, giants, richMoons int
	for _, b := range bodies {
		switch {
		case b.Kind == KindMoon && b.MassKg > 1e22 && len(b.Resources) > 0:
			return LargeMoonWithResources
		case b.Kind == KindMoon && b.MassKg >= 1e18 && b.MassKg <= 1e20:
			smallMoons++
		case b.Kind == KindAsteroidBelt:
			belts++
		case b.Kind == KindGasGiant:
			giants++
		}
		if b.Kind == KindMoon && len(b.Resources) > 0 {
			richMoons++
		}
	}
	if smallMoons >= 2 && belts > 0 {
		return SmallMoonsWithBelt
	}
	for _, b := range bodies {
		if b.Kind == KindTerrestrial && b.AtmosphereDense && !b.SurfaceAccess {
			return AtmosphericNoSurfaceAccess
		}
	}
	if giants > 0 && richMoons > 0 {
		return GasGiantWithMoons
	}
	return GenericSystem
}

func targetBody(bodies []Body, r Report) string {
	switch r.PrimaryCharacteristic {
	case LargeMoonWithResources:
		for _, b := range bodies {
			if b.Kind == KindMoon && b.MassKg > 1e22 {
				return b.Name
			}
		}
	case AtmosphericNoSurfaceAccess:
		for _, b := range bodies {
			if b.AtmosphereDense && !b.SurfaceAccess {
				return b.Name
			}
		}
	case GasGiantWithMoons:
		best, most := "", 0
		for _, b := range bodies {
			if b.Kind == KindMoon && len(b.Resources) > most {
				best, most = b.Name, len(b.Resources)
			}
		}
		return best
	}
	if len(r.TerraformableBodies) > 0 {
		return r.TerraformableBodies[0]
	}
	if len(r.ResourceRichBodies) > 0 {
		return r.ResourceRichBodies[0]
	}
	for _, b := range bodies {
		if b.Kind == KindTerrestrial {
			return b.Name
		}
	}
	return ""
}

func estimatedValue(s System) string {
	switch {
	case s.TEI > 80 || s.Resources.Sum() > 1.5:
		return "high"
	case s.StrategicValue > 0.5 || s.Resources.Sum() > 1.0:
		return "medium"
	}
	return "low"
}
