package rules

import "github.com/opensource-finance/harrier/internal/domain"

// BuiltinMitigations returns the default mitigation catalogue. Message keys
// resolve through the translator, so the catalogue is language neutral.
func BuiltinMitigations() []*domain.MitigationRule {
	return []*domain.MitigationRule{
		{
			ID:         "mitigation-score-jump",
			Name:       "Score increase above 10 points",
			Expression: "score_delta > 10.0",
			MessageKey: "mitigation.alternative_routing",
			Priority:   1,
			Enabled:    true,
		},
		{
			ID:         "mitigation-climate",
			Name:       "Climate exposure rising",
			Expression: "climate_delta > 0.1",
			MessageKey: "mitigation.weather_contingency",
			Priority:   2,
			Enabled:    true,
		},
		{
			ID:         "mitigation-port",
			Name:       "Port congestion rising",
			Expression: "port_delta > 0.1",
			MessageKey: "mitigation.alternative_ports",
			Priority:   3,
			Enabled:    true,
		},
		{
			ID:         "mitigation-carrier",
			Name:       "Carrier reliability falling",
			Expression: "carrier_delta > 0.05",
			MessageKey: "mitigation.backup_carrier",
			Priority:   4,
			Enabled:    true,
		},
		{
			ID:         "mitigation-network",
			Name:       "Network disruption rising",
			Expression: "network_delta > 0.05",
			MessageKey: "mitigation.alternative_paths",
			Priority:   5,
			Enabled:    true,
		},
		{
			ID:         "mitigation-high-shift",
			Name:       "Shift touching a high band",
			Expression: `risk_shift.contains("High")`,
			MessageKey: "mitigation.contingency_plan",
			Priority:   6,
			Enabled:    true,
		},
		{
			ID:         "mitigation-reduction",
			Name:       "Risk reduced",
			Expression: "score_delta < 0.0",
			MessageKey: "mitigation.risk_reduction",
			Priority:   7,
			Enabled:    true,
		},
	}
}
