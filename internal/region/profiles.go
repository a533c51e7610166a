package region

import "github.com/opensource-finance/harrier/internal/domain"

// profiles are the fixed per-region weight tuples.
var profiles = map[domain.RegionCode]domain.RegionProfile{
	domain.RegionVN: {
		Code:                     domain.RegionVN,
		Name:                     "Vietnam",
		Description:              "Vietnamese ports with monsoon exposure and growing congestion at Cai Mep and Hai Phong",
		ClimateWeight:            1.2,
		CongestionWeight:         1.1,
		StrikeWeight:             0.6,
		ESGWeight:                0.9,
		NetworkPropagationFactor: 1.0,
		KeyPorts:                 []string{"VNSGN", "VNHPH", "VNCMP", "VNDAD"},
	},
	domain.RegionSEA: {
		Code:                     domain.RegionSEA,
		Name:                     "Southeast Asia",
		Description:              "Intra-Asia corridors through the Singapore and Malacca hubs, monsoon dominated",
		ClimateWeight:            1.3,
		CongestionWeight:         1.2,
		StrikeWeight:             0.7,
		ESGWeight:                0.9,
		NetworkPropagationFactor: 1.1,
		KeyPorts:                 []string{"SGSIN", "MYPKG", "MYTPP", "THLCH", "IDJKT"},
	},
	domain.RegionCN: {
		Code:                     domain.RegionCN,
		Name:                     "China",
		Description:              "Mainland China and Hong Kong export gateways with holiday-driven capacity swings",
		ClimateWeight:            1.0,
		CongestionWeight:         1.3,
		StrikeWeight:             0.5,
		ESGWeight:                1.1,
		NetworkPropagationFactor: 1.2,
		KeyPorts:                 []string{"CNSHA", "CNNGB", "CNSZX", "CNTAO", "HKHKG"},
	},
	domain.RegionEU: {
		Code:                     domain.RegionEU,
		Name:                     "Europe",
		Description:              "North-range and Mediterranean ports with labour action and ESG reporting exposure",
		ClimateWeight:            0.8,
		CongestionWeight:         1.0,
		StrikeWeight:             1.3,
		ESGWeight:                1.4,
		NetworkPropagationFactor: 1.0,
		KeyPorts:                 []string{"NLRTM", "BEANR", "DEHAM", "FRLEH", "ESVLC"},
	},
	domain.RegionUS: {
		Code:                     domain.RegionUS,
		Name:                     "United States",
		Description:              "West and East Coast gateways with hurricane season and longshore labour risk",
		ClimateWeight:            1.1,
		CongestionWeight:         1.2,
		StrikeWeight:             1.2,
		ESGWeight:                1.0,
		NetworkPropagationFactor: 1.1,
		KeyPorts:                 []string{"USLAX", "USLGB", "USNYC", "USSAV", "USSEA"},
	},
	domain.RegionGlobal: {
		Code:                     domain.RegionGlobal,
		Name:                     "Global",
		Description:              "Fallback profile for lanes outside the modelled regions",
		ClimateWeight:            1.0,
		CongestionWeight:         1.0,
		StrikeWeight:             1.0,
		ESGWeight:                1.0,
		NetworkPropagationFactor: 1.0,
	},
}

// Profile returns the profile for code, falling back to GLOBAL.
func Profile(code domain.RegionCode) domain.RegionProfile {
	if p, ok := profiles[code]; ok {
		return p
	}
	return profiles[domain.RegionGlobal]
}

// Profiles returns every profile in a fixed order.
func Profiles() []domain.RegionProfile {
	order := []domain.RegionCode{
		domain.RegionVN, domain.RegionSEA, domain.RegionCN,
		domain.RegionEU, domain.RegionUS, domain.RegionGlobal,
	}
	out := make([]domain.RegionProfile, len(order))
	for i, c := range order {
		out[i] = profiles[c]
	}
	return out
}

// Continent groups region codes for cross-continent checks. Unknown codes
// return "".
func Continent(code domain.RegionCode) string {
	switch code {
	case domain.RegionVN, domain.RegionSEA, domain.RegionCN:
		return "asia"
	case domain.RegionEU:
		return "europe"
	case domain.RegionUS:
		return "americas"
	default:
		return ""
	}
}
