package domain

// RegionCode identifies a trade region with its own weight profile.
type RegionCode string

const (
	RegionVN     RegionCode = "VN"
	RegionSEA    RegionCode = "SEA"
	RegionCN     RegionCode = "CN"
	RegionEU     RegionCode = "EU"
	RegionUS     RegionCode = "US"
	RegionGlobal RegionCode = "GLOBAL"
)

// RegionProfile is an immutable per-region weight tuple.
//
// ClimateWeight and CongestionWeight multiply the FAHP weights of the climate
// and port factors before renormalization, and the same weights drive the
// additive final-score adjustment. Both applications are intentional: the
// first changes ranking, the second injects region severity into the score.
type RegionProfile struct {
	Code                     RegionCode `json:"code"`
	Name                     string     `json:"name"`
	Description              string     `json:"description"`
	ClimateWeight            float64    `json:"climate_weight"`
	CongestionWeight         float64    `json:"congestion_weight"`
	StrikeWeight             float64    `json:"strike_weight"`
	ESGWeight                float64    `json:"esg_weight"`
	NetworkPropagationFactor float64    `json:"network_propagation_factor"`
	KeyPorts                 []string   `json:"key_ports,omitempty"`
}

// RegionMatch is the detector output.
type RegionMatch struct {
	Code        RegionCode    `json:"code"`
	Profile     RegionProfile `json:"profile"`
	Origin      RegionCode    `json:"origin,omitempty"`
	Destination RegionCode    `json:"destination,omitempty"`
}
