package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DriverCount is the number of top factors reported as drivers.
const DriverCount = 3

var levelRecommendations = map[domain.Level][]string{
	domain.LevelLow: {
		"recommendation.standard_monitoring",
		"recommendation.routine_documentation",
	},
	domain.LevelMedium: {
		"recommendation.enhanced_monitoring",
		"recommendation.schedule_buffer",
	},
	domain.LevelHigh: {
		"recommendation.daily_tracking",
		"recommendation.contingency_plan",
		"recommendation.insurance_review",
	},
	domain.LevelCritical: {
		"recommendation.escalate",
		"recommendation.contingency_plan",
		"recommendation.insurance_review",
		"recommendation.alternative_routing",
	},
}

var driverRecommendations = map[domain.Factor][]string{
	domain.FactorClimate:   {"recommendation.weather_monitoring"},
	domain.FactorPort:      {"recommendation.congestion_buffer", "recommendation.alternative_port"},
	domain.FactorCarrier:   {"recommendation.alternative_carrier"},
	domain.FactorDelay:     {"recommendation.schedule_buffer"},
	domain.FactorEquipment: {"recommendation.equipment_booking"},
	domain.FactorESG:       {"recommendation.esg_review"},
}

// ProfileBuilder turns a final score and factor vector into a risk profile.
type ProfileBuilder struct {
	tr domain.Translator
}

// NewProfileBuilder creates a builder that words its output through tr.
func NewProfileBuilder(tr domain.Translator) *ProfileBuilder {
	return &ProfileBuilder{tr: tr}
}

// Build places the score on the probability/severity matrix and derives
// drivers and recommendations.
func (b *ProfileBuilder) Build(score float64, factors domain.RiskFactors, cargoValue *float64, lang domain.Language) domain.RiskProfile {
	level := domain.LevelForScore(score)
	matrix := Matrix(score, factors, cargoValue)
	matrix.Description = b.tr.Translate(fmt.Sprintf("matrix.quadrant.%d", matrix.Quadrant), lang, nil)

	drivers := Drivers(factors)

	keys := RecommendationKeys(level, drivers)
	recs := make([]string, len(keys))
	for i, k := range keys {
		recs[i] = b.tr.Translate(k, lang, nil)
	}

	names := make([]string, len(drivers))
	for i, d := range drivers {
		names[i] = b.tr.Translate("factor."+string(d), lang, nil)
	}
	explanation := b.tr.Translate("profile.explanation", lang, map[string]any{
		"level":   b.tr.Translate("risk.level."+strings.ToLower(string(level)), lang, nil),
		"score":   fmt.Sprintf("%.1f", score),
		"drivers": strings.Join(names, ", "),
	})

	return domain.RiskProfile{
		Level:           level,
		Matrix:          matrix,
		Drivers:         drivers,
		Recommendations: recs,
		Explanation:     explanation,
	}
}

// Matrix computes probability, severity and the 3x3 quadrant. The
// description is left for the caller to word.
func Matrix(score float64, factors domain.RiskFactors, cargoValue *float64) domain.RiskMatrix {
	prob := domain.Clamp01(score / 100 * (1 - variance(factors.Clone().Vector())))

	sev := score
	if cargoValue != nil {
		switch {
		case *cargoValue > 5e5:
			sev *= 1.1
		case *cargoValue > 1e5:
			sev *= 1.05
		}
	}
	sev = domain.Clamp(sev, 0, 100)

	pb, pi := probabilityBucket(prob)
	sb, si := severityBucket(sev)

	return domain.RiskMatrix{
		Probability:      prob,
		ProbabilityLevel: pb,
		Severity:         sev,
		SeverityLevel:    sb,
		Quadrant:         (pi-1)*3 + si,
	}
}

// Drivers returns the top factors by value, ties in canonical order.
func Drivers(factors domain.RiskFactors) []domain.Factor {
	ordered := make([]domain.Factor, len(domain.Factors))
	copy(ordered, domain.Factors)
	sort.SliceStable(ordered, func(i, j int) bool {
		return factors.Get(ordered[i]) > factors.Get(ordered[j])
	})
	return ordered[:DriverCount]
}

// RecommendationKeys merges the level base set with driver addenda, keeping
// first-seen order.
func RecommendationKeys(level domain.Level, drivers []domain.Factor) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(keys []string) {
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}

	add(levelRecommendations[level])
	for _, d := range drivers {
		add(driverRecommendations[d])
	}
	return out
}

func probabilityBucket(p float64) (domain.Bucket, int) {
	switch {
	case p < 0.4:
		return domain.BucketLow, 1
	case p < 0.7:
		return domain.BucketMedium, 2
	default:
		return domain.BucketHigh, 3
	}
}

func severityBucket(s float64) (domain.Bucket, int) {
	switch {
	case s < 40:
		return domain.BucketLow, 1
	case s < 70:
		return domain.BucketMedium, 2
	default:
		return domain.BucketHigh, 3
	}
}

func variance(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	mean := 0.0
	for _, x := range v {
		mean += x
	}
	mean /= float64(len(v))

	sum := 0.0
	for _, x := range v {
		sum += (x - mean) * (x - mean)
	}
	return sum / float64(len(v))
}
