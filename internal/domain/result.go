package domain

import "time"

// Level is the deterministic banding of the 0-100 score.
type Level string

const (
	LevelLow      Level = "Low"
	LevelMedium   Level = "Medium"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// LevelForScore bands a 0-100 score: [0,30) Low, [30,60) Medium,
// [60,80) High, [80,100] Critical.
func LevelForScore(score float64) Level {
	switch {
	case score >= 80:
		return LevelCritical
	case score >= 60:
		return LevelHigh
	case score >= 30:
		return LevelMedium
	default:
		return LevelLow
	}
}

// Bucket is a three-step probability or severity class.
type Bucket string

const (
	BucketLow    Bucket = "low"
	BucketMedium Bucket = "medium"
	BucketHigh   Bucket = "high"
)

// Components holds the fused sub-scores, each in [0,1].
type Components struct {
	FAHPWeighted       float64 `json:"fahp_weighted"`
	ClimateRisk        float64 `json:"climate_risk"`
	NetworkRisk        float64 `json:"network_risk"`
	OperationalRisk    float64 `json:"operational_risk"`
	MissingDataPenalty float64 `json:"missing_data_penalty"`
}

// RiskMatrix is the probability/severity placement of a result.
type RiskMatrix struct {
	Probability      float64 `json:"probability"`
	ProbabilityLevel Bucket  `json:"probability_level"`
	Severity         float64 `json:"severity"`
	SeverityLevel    Bucket  `json:"severity_level"`
	Quadrant         int     `json:"quadrant"`
	Description      string  `json:"description"`
}

// RiskProfile is the profile builder output.
type RiskProfile struct {
	Level           Level      `json:"level"`
	Matrix          RiskMatrix `json:"matrix"`
	Drivers         []Factor   `json:"drivers"`
	Recommendations []string   `json:"recommendations"`
	Explanation     string     `json:"explanation"`
}

// Reasoning is the textual rationale attached to a result.
type Reasoning struct {
	Explanation           string   `json:"explanation"`
	KeyDrivers            []string `json:"key_drivers"`
	Confidence            float64  `json:"confidence"`
	Suggestions           []string `json:"suggestions"`
	BusinessJustification string   `json:"business_justification"`
	Source                string   `json:"source"`
}

// Reasoning sources.
const (
	ReasoningDeterministic = "deterministic"
	ReasoningDelegate      = "delegate"
)

// ClimateRisk is the climate sub-model breakdown.
type ClimateRisk struct {
	Ocean                string  `json:"ocean"`
	Month                int     `json:"month"`
	ENSOState            string  `json:"enso_state"`
	Storm                float64 `json:"storm"`
	Rainfall             float64 `json:"rainfall"`
	Wind                 float64 `json:"wind"`
	TemperatureDeviation float64 `json:"temperature_deviation"`
	Volatility           float64 `json:"volatility"`
	ENSOMultiplier       float64 `json:"enso_multiplier"`
	ENSOInfluence        float64 `json:"enso_influence"`
	Overall              float64 `json:"overall"`
}

// NetworkRisk is the network sub-model breakdown.
type NetworkRisk struct {
	PortCentrality    float64 `json:"port_centrality"`
	CarrierRedundancy float64 `json:"carrier_redundancy"`
	Upstream          float64 `json:"upstream"`
	Downstream        float64 `json:"downstream"`
	Propagation       float64 `json:"propagation"`
	Overall           float64 `json:"overall"`
}

// WeightSet is the FAHP solver output.
type WeightSet struct {
	Weights              map[Factor]float64 `json:"weights"`
	ConsistencyRatio     float64            `json:"consistency_ratio"`
	Inconsistent         bool               `json:"inconsistent"`
	EigenFailed          bool               `json:"eigen_failed"`
	SubstitutedTriangles int                `json:"substituted_triangles"`
}

// Warning reports whether the consistency check needs attention.
func (w WeightSet) Warning() bool {
	return w.Inconsistent || w.EigenFailed
}

// Details carries the intermediate values behind a score.
type Details struct {
	FAHP          WeightSet          `json:"fahp"`
	Weights       map[Factor]float64 `json:"weights"`
	Closeness     float64            `json:"closeness"`
	Climate       ClimateRisk        `json:"climate"`
	Network       NetworkRisk        `json:"network"`
	RegionProfile RegionProfile      `json:"region_profile"`
	BaseScore     float64            `json:"base_score"`
	ScaledScore   float64            `json:"scaled_score"`
	MissingFields []string           `json:"missing_fields"`
	EngineVersion string             `json:"engine_version"`
}

// ScoredResult is the deterministic output of one pipeline run.
type ScoredResult struct {
	Score           float64     `json:"score"`
	Level           Level       `json:"level"`
	Confidence      float64     `json:"confidence"`
	Factors         RiskFactors `json:"factors"`
	Components      Components  `json:"components"`
	Matrix          RiskMatrix  `json:"matrix"`
	Drivers         []Factor    `json:"drivers"`
	Recommendations []string    `json:"recommendations"`
	Reasoning       Reasoning   `json:"reasoning"`
	Region          RegionCode  `json:"region"`
	Details         Details     `json:"details"`
	Input           Shipment    `json:"input"`
	Language        Language    `json:"language"`
}

// Profile returns the profile view of the result.
func (r *ScoredResult) Profile() RiskProfile {
	return RiskProfile{
		Level:           r.Level,
		Matrix:          r.Matrix,
		Drivers:         r.Drivers,
		Recommendations: r.Recommendations,
		Explanation:     r.Reasoning.Explanation,
	}
}

// Assessment is a stored, identified scoring run.
type Assessment struct {
	ID            string        `json:"id"`
	CreatedAt     time.Time     `json:"created_at"`
	EngineVersion string        `json:"engine_version"`
	Cached        bool          `json:"cached"`
	Result        *ScoredResult `json:"result"`
}
