package domain

import "time"

// Adjustments maps an adjustment key (canonical factor, sub-model name or
// alias) to an additive delta.
type Adjustments map[string]float64

// Clone returns an independent copy.
func (a Adjustments) Clone() Adjustments {
	out := make(Adjustments, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// NetworkAdjustment is the adjustment key that shifts the network sub-model
// instead of a factor.
const NetworkAdjustment = "network"

// DriverChange records one adjusted driver in a simulation.
type DriverChange struct {
	Driver   string  `json:"driver"`
	Baseline float64 `json:"baseline"`
	Scenario float64 `json:"scenario"`
	Delta    float64 `json:"delta"`
}

// SimulationResult is the outcome of re-scoring a baseline under adjustments.
// The embedded ScoredResult is complete, so a simulation can itself serve as
// the baseline of a further simulation.
type SimulationResult struct {
	ScoredResult

	SimulationScore     float64        `json:"simulation_score"`
	BaselineScore       float64        `json:"baseline_score"`
	DeltaFromBaseline   float64        `json:"delta_from_baseline"`
	DriversChanged      []DriverChange `json:"drivers_changed"`
	Adjustments         Adjustments    `json:"adjustments"`
	IgnoredAdjustments  []string       `json:"ignored_adjustments,omitempty"`
	KeepBaselineWeights bool           `json:"keep_baseline_weights"`
}

// FactorChange is one entry of a delta record's dominant changes.
type FactorChange struct {
	Factor       string  `json:"factor"`
	Baseline     float64 `json:"baseline"`
	Scenario     float64 `json:"scenario"`
	Delta        float64 `json:"delta"`
	DeltaPercent float64 `json:"delta_percent"`
}

// DeltaRecord compares a scenario against its baseline.
type DeltaRecord struct {
	AbsoluteDelta          float64            `json:"absolute_delta"`
	PercentageChange       float64            `json:"percentage_change"`
	BaselineLevel          string             `json:"baseline_level"`
	ScenarioLevel          string             `json:"scenario_level"`
	RiskLevelShift         string             `json:"risk_level_shift"`
	DominantFactorChanges  []FactorChange     `json:"dominant_factor_changes"`
	RecommendedMitigations []string           `json:"recommended_mitigations"`
	ComponentDeltas        map[string]float64 `json:"component_deltas"`
}

// ScenarioRunSummary is the last-run snapshot kept with a stored scenario.
type ScenarioRunSummary struct {
	SimulationScore   float64 `json:"simulation_score"`
	DeltaFromBaseline float64 `json:"delta_from_baseline"`
	RiskLevel         string  `json:"risk_level"`
}

// Scenario is a named, stored adjustment set.
type Scenario struct {
	Name          string              `json:"name"`
	Adjustments   Adjustments         `json:"adjustments"`
	BaselineScore *float64            `json:"baseline_score"`
	Description   string              `json:"description"`
	Created       time.Time           `json:"created"`
	LastRun       *time.Time          `json:"last_run"`
	LastResult    *ScenarioRunSummary `json:"last_result,omitempty"`
}

// ScenarioSummary is the list view of a stored scenario.
type ScenarioSummary struct {
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	AdjustmentsCount int        `json:"adjustments_count"`
	Created          time.Time  `json:"created"`
	LastRun          *time.Time `json:"last_run"`
}

// Preset is a catalogued adjustment set.
type Preset struct {
	Name        string      `json:"name"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Adjustments Adjustments `json:"adjustments"`
}

// MitigationRule is a CEL expression over delta variables that, when it
// evaluates true, contributes its message to the recommended mitigations.
type MitigationRule struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Expression string `json:"expression"`
	MessageKey string `json:"message_key"`
	Priority   int    `json:"priority"`
	Enabled    bool   `json:"enabled"`
}

// ScenarioExplanation is the reasoner's account of a simulation.
type ScenarioExplanation struct {
	Summary          string   `json:"summary"`
	Drivers          []string `json:"drivers"`
	Impact           string   `json:"impact"`
	Recommendations  []string `json:"recommendations"`
	RiskLevelShift   string   `json:"risk_level_shift"`
	ScoreChange      float64  `json:"score_change"`
	PercentageChange float64  `json:"percentage_change"`
	Source           string   `json:"source"`
}
