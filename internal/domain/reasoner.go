package domain

import "context"

// ExplainRequest is what the pipeline hands to a reasoner. It carries only
// business-facing factor names and rounded values.
type ExplainRequest struct {
	Factors    RiskFactors        `json:"factors"`
	Weights    map[Factor]float64 `json:"weights"`
	Score      float64            `json:"score"`
	Profile    RiskProfile        `json:"profile"`
	RegionCode RegionCode         `json:"region_code"`
	Language   Language           `json:"language"`
}

// ExplainScenarioRequest describes a simulation to be explained.
type ExplainScenarioRequest struct {
	Baseline *ScoredResult     `json:"baseline"`
	Scenario *SimulationResult `json:"scenario"`
	Deltas   *DeltaRecord      `json:"deltas"`
	Language Language          `json:"language"`
}

// Reasoner produces textual rationales for scores and simulations.
// The deterministic implementation never fails; delegates may.
type Reasoner interface {
	Explain(ctx context.Context, req ExplainRequest) (Reasoning, error)
	ExplainScenario(ctx context.Context, req ExplainScenarioRequest) (ScenarioExplanation, error)
}

// ReasonerConfig holds reasoner delegate settings.
type ReasonerConfig struct {
	// Provider is "deterministic" or "llm"
	Provider string

	Endpoint string
	Model    string
	APIKey   string

	// Timeout for a single delegate call in seconds
	Timeout int
}
