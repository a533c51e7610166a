package scoring

import (
	"math"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Mix weights of the base score.
const (
	MixFAHP        = 0.45
	MixClimate     = 0.20
	MixNetwork     = 0.20
	MixOperational = 0.15
)

// OperationalFallback is used when neither transit time nor cargo value is
// known.
const OperationalFallback = 0.5

// strikeFactor has no shipment-level source and is held at its default.
const strikeFactor = 0.3

var priorityFactor = map[domain.Priority]float64{
	domain.PriorityCritical: 1.3,
	domain.PriorityHigh:     1.1,
	domain.PriorityStandard: 1.0,
	domain.PriorityLow:      0.9,
}

// criticalFields are counted by the missing-data penalty.
var criticalFields = []string{"route", "pol", "pod", "cargo_value"}

// Operational computes the operational risk component.
func Operational(s domain.Shipment) float64 {
	if s.TransitTime == nil && s.CargoValue == nil {
		return OperationalFallback
	}

	risk := 0.0
	if s.TransitTime != nil {
		risk += math.Min(1, *s.TransitTime/30) * 0.3
	}
	if s.CargoValue != nil {
		risk += math.Min(1, *s.CargoValue/1e6) * 0.2
	}
	risk += (1 - s.ContainerMatch) * 0.2
	risk += math.Max(0, 0.5-s.PackagingQuality) * 0.3

	pf, ok := priorityFactor[s.Priority]
	if !ok {
		pf = 1
	}
	return domain.Clamp01(risk * pf)
}

// MissingPenalty returns the multiplicative penalty for absent critical
// fields and the names of those fields.
func MissingPenalty(s domain.Shipment) (float64, []string) {
	missing := make([]string, 0, len(criticalFields))
	for _, f := range criticalFields {
		var absent bool
		switch f {
		case "route":
			absent = s.Route == ""
		case "pol":
			absent = s.POL == ""
		case "pod":
			absent = s.POD == ""
		case "cargo_value":
			absent = s.CargoValue == nil
		}
		if absent {
			missing = append(missing, f)
		}
	}
	return PenaltyFor(len(missing)), missing
}

// PenaltyFor is 1 - 0.1 per missing field, floored at 0.
func PenaltyFor(missing int) float64 {
	return math.Max(0, 1-0.1*float64(missing))
}

// FuseInput is everything unified scoring consumes.
type FuseInput struct {
	Factors     domain.RiskFactors
	Closeness   float64
	Climate     float64
	Network     float64
	Operational float64
	Penalty     float64
	Profile     domain.RegionProfile
}

// Fused is the unified scoring output.
type Fused struct {
	Score      float64
	BaseScore  float64
	Scaled     float64
	Components domain.Components
}

// Fuse mixes the components, applies non-linear scaling and the missing-data
// penalty, then the region adjustment. The returned Score is final.
func Fuse(in FuseInput) Fused {
	closeness := domain.Clamp01(in.Closeness)
	climate := domain.Clamp01(in.Climate)
	network := domain.Clamp01(in.Network)
	operational := domain.Clamp01(in.Operational)
	penalty := domain.Clamp01(in.Penalty)

	b := MixFAHP*closeness + MixClimate*climate + MixNetwork*network + MixOperational*operational
	s := Scale(b)
	b100 := s * penalty * 100

	p := in.Profile
	final := 0.5*b100 +
		p.CongestionWeight*in.Factors.Get(domain.FactorPort)*25 +
		p.ClimateWeight*in.Factors.Get(domain.FactorClimate)*15 +
		p.StrikeWeight*strikeFactor*5 +
		p.ESGWeight*in.Factors.Get(domain.FactorESG)*5

	return Fused{
		Score:     domain.Clamp(final, 0, 100),
		BaseScore: b,
		Scaled:    b100,
		Components: domain.Components{
			FAHPWeighted:       closeness,
			ClimateRisk:        climate,
			NetworkRisk:        network,
			OperationalRisk:    operational,
			MissingDataPenalty: penalty,
		},
	}
}

// Scale is the non-linear transform: b^0.9 below 0.5, b^0.7 from 0.5 up.
func Scale(b float64) float64 {
	b = domain.Clamp01(b)
	if b < 0.5 {
		return math.Pow(b, 0.9)
	}
	return math.Pow(b, 0.7)
}
