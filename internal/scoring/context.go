// Package scoring holds the fused stages of the pipeline: the seed risk
// context, unified scoring and the profile builder.
package scoring

import (
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Seed factor values that are not derived from the shipment.
const (
	seedClimate = 0.5
	seedESG     = 0.3
)

// majorHubs elevate the port factor. LOCODEs are matched alongside names.
var majorHubs = []string{"SINGAPORE", "ROTTERDAM", "SHANGHAI", "SGSIN", "NLRTM", "CNSHA"}

// Context derives the seed risk vector from a parsed shipment. The climate
// entry is a placeholder that the climate sub-model overwrites.
func Context(s domain.Shipment) domain.RiskFactors {
	delay := domain.DefaultFactorValue
	if s.TransitTime != nil {
		delay = domain.Clamp01(*s.TransitTime / 30)
	}

	return domain.RiskFactors{
		domain.FactorDelay:     delay,
		domain.FactorPort:      portRisk(s.POL, s.POD),
		domain.FactorClimate:   seedClimate,
		domain.FactorCarrier:   domain.Clamp01(1 - s.CarrierRating),
		domain.FactorESG:       seedESG,
		domain.FactorEquipment: domain.Clamp01(1 - s.ContainerMatch),
	}
}

func portRisk(pol, pod string) float64 {
	if strings.TrimSpace(pol) == "" && strings.TrimSpace(pod) == "" {
		return 0.5
	}
	ports := strings.ToUpper(pol + " " + pod)
	for _, hub := range majorHubs {
		if strings.Contains(ports, hub) {
			return 0.6
		}
	}
	return 0.4
}
