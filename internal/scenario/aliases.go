package scenario

import (
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// target is where an adjustment key lands. sign flips keys phrased as a
// quality ("reliability") rather than a risk.
type target struct {
	name string
	sign float64
}

var aliases = map[string]target{
	"delay":               {string(domain.FactorDelay), 1},
	"transit_delay":       {string(domain.FactorDelay), 1},
	"port":                {string(domain.FactorPort), 1},
	"port_congestion":     {string(domain.FactorPort), 1},
	"climate":             {string(domain.FactorClimate), 1},
	"weather":             {string(domain.FactorClimate), 1},
	"weather_hazard":      {string(domain.FactorClimate), 1},
	"carrier":             {string(domain.FactorCarrier), 1},
	"carrier_reliability": {string(domain.FactorCarrier), -1},
	"esg":                 {string(domain.FactorESG), 1},
	"esg_pressure":        {string(domain.FactorESG), 1},
	"compliance":          {string(domain.FactorESG), 1},
	"equipment":           {string(domain.FactorEquipment), 1},
	"equipment_shortage":  {string(domain.FactorEquipment), 1},
	"network":             {domain.NetworkAdjustment, 1},
	"network_disruption":  {domain.NetworkAdjustment, 1},
}

// Resolve maps an adjustment key to a canonical factor name or
// domain.NetworkAdjustment, plus the sign applied to its delta.
func Resolve(key string) (name string, sign float64, ok bool) {
	t, ok := aliases[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return "", 0, false
	}
	return t.name, t.sign, true
}

// AdjustmentKeys lists every accepted key.
func AdjustmentKeys() []string {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	return keys
}
