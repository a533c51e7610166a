package scenario

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/rules"
)

// Dominant change selection.
const (
	dominantThreshold = 0.01
	dominantLimit     = 5
)

// band is one step of the finer-grained delta banding.
type band struct {
	upper float64
	label string
}

var deltaBands = []band{
	{30, "Low"},
	{50, "Low-Medium"},
	{70, "Medium"},
	{85, "Medium-High"},
	{95, "High"},
}

// BandLabel places a 0-100 score on the delta banding
// (0,30,50,70,85,95,100).
func BandLabel(score float64) string {
	for _, b := range deltaBands {
		if score < b.upper {
			return b.label
		}
	}
	return "Critical"
}

// Shift renders the band transition between two scores.
func Shift(baseline, scenario float64) string {
	from, to := BandLabel(baseline), BandLabel(scenario)
	if from == to {
		return from + " (No change)"
	}
	return from + " → " + to
}

// Delta compares a scenario result against its baseline and asks the
// mitigation rules for recommendations, worded in lang.
func (s *Simulator) Delta(ctx context.Context, baseline, scenario *domain.ScoredResult, lang domain.Language) (*domain.DeltaRecord, error) {
	if baseline == nil || scenario == nil {
		return nil, ErrNoBaseline
	}

	abs := scenario.Score - baseline.Score
	pct := 0.0
	if baseline.Score > 0 {
		pct = abs / baseline.Score * 100
	}

	rec := &domain.DeltaRecord{
		AbsoluteDelta:         abs,
		PercentageChange:      pct,
		BaselineLevel:         BandLabel(baseline.Score),
		ScenarioLevel:         BandLabel(scenario.Score),
		RiskLevelShift:        Shift(baseline.Score, scenario.Score),
		DominantFactorChanges: DominantChanges(baseline.Factors, scenario.Factors),
		ComponentDeltas:       ComponentDeltas(baseline.Components, scenario.Components),
	}

	factorDeltas := make(map[string]float64, len(domain.Factors)+1)
	for _, f := range domain.Factors {
		factorDeltas[string(f)] = scenario.Factors.Get(f) - baseline.Factors.Get(f)
	}
	factorDeltas[domain.NetworkAdjustment] = scenario.Components.NetworkRisk - baseline.Components.NetworkRisk

	matches, err := s.rules.Evaluate(ctx, rules.DeltaInput{
		ScoreDelta:    abs,
		FactorDeltas:  factorDeltas,
		RiskShift:     rec.RiskLevelShift,
		BaselineLevel: rec.BaselineLevel,
		ScenarioLevel: rec.ScenarioLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate mitigation rules: %w", err)
	}

	seen := make(map[string]bool, len(matches))
	rec.RecommendedMitigations = make([]string, 0, len(matches))
	for _, m := range matches {
		text := s.tr.Translate(m.MessageKey, lang, nil)
		if !seen[text] {
			seen[text] = true
			rec.RecommendedMitigations = append(rec.RecommendedMitigations, text)
		}
	}
	return rec, nil
}

// DominantChanges returns the factors whose value moved by more than 0.01,
// largest move first, at most five.
func DominantChanges(baseline, scenario domain.RiskFactors) []domain.FactorChange {
	changes := make([]domain.FactorChange, 0, len(domain.Factors))
	for _, f := range domain.Factors {
		b, s := baseline.Get(f), scenario.Get(f)
		d := s - b
		if math.Abs(d) <= dominantThreshold {
			continue
		}
		pct := 0.0
		if b > 0 {
			pct = d / b * 100
		}
		changes = append(changes, domain.FactorChange{
			Factor:       string(f),
			Baseline:     b,
			Scenario:     s,
			Delta:        d,
			DeltaPercent: pct,
		})
	}

	sort.SliceStable(changes, func(i, j int) bool {
		return math.Abs(changes[i].Delta) > math.Abs(changes[j].Delta)
	})
	if len(changes) > dominantLimit {
		changes = changes[:dominantLimit]
	}
	return changes
}

// ComponentDeltas reports component movements on the 0-100 scale.
func ComponentDeltas(baseline, scenario domain.Components) map[string]float64 {
	return map[string]float64{
		"fahp_weighted":        (scenario.FAHPWeighted - baseline.FAHPWeighted) * 100,
		"climate_risk":         (scenario.ClimateRisk - baseline.ClimateRisk) * 100,
		"network_risk":         (scenario.NetworkRisk - baseline.NetworkRisk) * 100,
		"operational_risk":     (scenario.OperationalRisk - baseline.OperationalRisk) * 100,
		"missing_data_penalty": (scenario.MissingDataPenalty - baseline.MissingDataPenalty) * 100,
	}
}
