package reasoner

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Region one-liner thresholds on the factor value.
const (
	asiaPortThreshold    = 0.5
	asiaClimateThreshold = 0.5
	westPortThreshold    = 0.4
)

// Deterministic words explanations from the translation tables. It never
// fails and never blocks.
type Deterministic struct {
	tr domain.Translator
}

// NewDeterministic creates the deterministic reasoner.
func NewDeterministic(tr domain.Translator) *Deterministic {
	return &Deterministic{tr: tr}
}

// Explain builds the rationale for a scored shipment.
func (d *Deterministic) Explain(_ context.Context, req domain.ExplainRequest) (domain.Reasoning, error) {
	lang := req.Language
	level := domain.LevelForScore(req.Score)
	levelKey := strings.ToLower(string(level))

	drivers := req.Profile.Drivers
	keyDrivers := make([]string, len(drivers))
	for i, f := range drivers {
		keyDrivers[i] = d.tr.Translate("factor."+string(f), lang, nil)
	}

	parts := []string{
		d.tr.Translate("reasoning.level."+levelKey, lang, map[string]any{"score": fmt.Sprintf("%.1f", req.Score)}),
	}
	if len(keyDrivers) > 0 {
		parts = append(parts, d.tr.Translate("reasoning.drivers", lang, map[string]any{
			"drivers": strings.Join(keyDrivers, ", "),
		}))
	}
	for _, key := range RegionNotes(req.RegionCode, req.Factors) {
		parts = append(parts, d.tr.Translate(key, lang, nil))
	}

	suggestions := make([]string, len(req.Profile.Recommendations))
	copy(suggestions, req.Profile.Recommendations)

	return domain.Reasoning{
		Explanation:           strings.Join(parts, " "),
		KeyDrivers:            keyDrivers,
		Confidence:            Confidence(len(req.Factors), req.Score),
		Suggestions:           suggestions,
		BusinessJustification: d.tr.Translate("reasoning.justification."+levelKey, lang, nil),
		Source:                domain.ReasoningDeterministic,
	}, nil
}

// ExplainScenario summarizes a simulation against its baseline.
func (d *Deterministic) ExplainScenario(_ context.Context, req domain.ExplainScenarioRequest) (domain.ScenarioExplanation, error) {
	lang := req.Language
	out := domain.ScenarioExplanation{Source: domain.ReasoningDeterministic}
	if req.Deltas == nil {
		return out, nil
	}
	delta := req.Deltas

	baseline, scenario := 0.0, 0.0
	if req.Baseline != nil {
		baseline = req.Baseline.Score
	}
	if req.Scenario != nil {
		scenario = req.Scenario.SimulationScore
	}

	out.Summary = d.tr.Translate("scenario.summary", lang, map[string]any{
		"baseline": fmt.Sprintf("%.1f", baseline),
		"scenario": fmt.Sprintf("%.1f", scenario),
		"change":   fmt.Sprintf("%+.1f", delta.AbsoluteDelta),
	})

	impact := "neutral"
	switch {
	case delta.AbsoluteDelta > 0.01:
		impact = "increase"
	case delta.AbsoluteDelta < -0.01:
		impact = "decrease"
	}
	out.Impact = d.tr.Translate("scenario.impact."+impact, lang, nil)

	for _, c := range delta.DominantFactorChanges {
		out.Drivers = append(out.Drivers, d.tr.Translate("scenario.driver_change", lang, map[string]any{
			"factor":   d.tr.Translate("factor."+c.Factor, lang, nil),
			"baseline": fmt.Sprintf("%.2f", c.Baseline),
			"scenario": fmt.Sprintf("%.2f", c.Scenario),
			"delta":    fmt.Sprintf("%+.2f", c.Delta),
		}))
	}

	out.Recommendations = append([]string(nil), delta.RecommendedMitigations...)
	out.RiskLevelShift = delta.RiskLevelShift
	out.ScoreChange = delta.AbsoluteDelta
	out.PercentageChange = delta.PercentageChange
	return out, nil
}

// Confidence starts at 0.8 and is reduced for sparse factor vectors and for
// scores near either end of the scale.
func Confidence(factorCount int, score float64) float64 {
	c := 0.8
	if factorCount < 4 {
		c *= 0.9
	}
	if score < 20 || score > 90 {
		c *= 0.95
	}
	return math.Round(domain.Clamp01(c)*1e6) / 1e6
}

// RegionNotes returns the translation keys of region one-liners that apply.
func RegionNotes(code domain.RegionCode, f domain.RiskFactors) []string {
	port := f.Get(domain.FactorPort)
	climate := f.Get(domain.FactorClimate)

	var notes []string
	switch code {
	case domain.RegionSEA, domain.RegionVN:
		if code == domain.RegionSEA && port >= asiaPortThreshold {
			notes = append(notes, "reasoning.region.sea_port")
		}
		if climate >= asiaClimateThreshold {
			notes = append(notes, "reasoning.region.sea_climate")
		}
	case domain.RegionCN:
		if port >= asiaPortThreshold {
			notes = append(notes, "reasoning.region.cn_port")
		}
	case domain.RegionUS:
		if port >= westPortThreshold {
			notes = append(notes, "reasoning.region.us_port")
		}
	case domain.RegionEU:
		if port >= westPortThreshold {
			notes = append(notes, "reasoning.region.eu_port")
		}
	}
	return notes
}
