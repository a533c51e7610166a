package scenario

import (
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Preset categories.
const (
	CategoryWeather     = "weather"
	CategoryOperational = "operational"
	CategoryCarrier     = "carrier"
	CategorySeasonal    = "seasonal"
	CategoryNetwork     = "network"
	CategoryCompliance  = "compliance"
)

var presets = []domain.Preset{
	{
		Name:        "Heavy Rain Season Q3",
		Category:    CategoryWeather,
		Description: "Monsoon rainfall in the third quarter slows port operations and inland legs.",
		Adjustments: domain.Adjustments{"weather_hazard": 0.25, "port_congestion": 0.10, "delay": 0.15},
	},
	{
		Name:        "Port Strike",
		Category:    CategoryOperational,
		Description: "Labour action closes terminals and pushes cargo onto congested alternatives.",
		Adjustments: domain.Adjustments{"port_congestion": 0.40, "network": 0.25, "delay": 0.30, "carrier_reliability": -0.15},
	},
	{
		Name:        "Equipment Shortage",
		Category:    CategoryOperational,
		Description: "Empty container imbalance leaves bookings without suitable equipment.",
		Adjustments: domain.Adjustments{"equipment_shortage": 0.35, "delay": 0.15, "port_congestion": 0.10},
	},
	{
		Name:        "Carrier Reliability Drop",
		Category:    CategoryCarrier,
		Description: "Blank sailings and schedule slips from the contracted carrier.",
		Adjustments: domain.Adjustments{"carrier_reliability": -0.30, "delay": 0.20},
	},
	{
		Name:        "Holiday Peak Season",
		Category:    CategorySeasonal,
		Description: "Pre-holiday volume surge fills vessels and yards.",
		Adjustments: domain.Adjustments{"port_congestion": 0.25, "delay": 0.20, "equipment_shortage": 0.15},
	},
	{
		Name:        "Extreme Weather Event",
		Category:    CategoryWeather,
		Description: "Typhoon or hurricane landfall along the lane.",
		Adjustments: domain.Adjustments{"weather_hazard": 0.45, "delay": 0.25, "port_congestion": 0.15, "network": 0.10},
	},
	{
		Name:        "Trade Route Disruption",
		Category:    CategoryNetwork,
		Description: "A chokepoint closure forces long diversions.",
		Adjustments: domain.Adjustments{"network": 0.35, "delay": 0.30, "port_congestion": 0.20},
	},
	{
		Name:        "ESG Compliance Pressure",
		Category:    CategoryCompliance,
		Description: "New emissions or due-diligence rules tighten carrier selection.",
		Adjustments: domain.Adjustments{"esg_pressure": 0.35, "carrier_reliability": -0.05},
	},
}

// Presets returns a copy of the preset catalogue.
func Presets() []domain.Preset {
	out := make([]domain.Preset, len(presets))
	for i, p := range presets {
		out[i] = clonePreset(p)
	}
	return out
}

// PresetsByCategory returns the presets tagged with category.
func PresetsByCategory(category string) []domain.Preset {
	var out []domain.Preset
	for _, p := range presets {
		if strings.EqualFold(p.Category, category) {
			out = append(out, clonePreset(p))
		}
	}
	return out
}

// LookupPreset finds a preset by name, ignoring case.
func LookupPreset(name string) (domain.Preset, bool) {
	name = strings.TrimSpace(name)
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return clonePreset(p), true
		}
	}
	return domain.Preset{}, false
}

func clonePreset(p domain.Preset) domain.Preset {
	p.Adjustments = p.Adjustments.Clone()
	return p
}
