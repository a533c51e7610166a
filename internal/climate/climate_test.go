package climate

import (
	"math"
	"testing"
	"time"

	"github.com/opensource-finance/harrier/internal/domain"
)

func inRange(v float64) bool {
	return v >= 0 && v <= 1
}

func TestAssess(t *testing.T) {
	m := NewModel(ENSONeutral)

	t.Run("PeakSeasonTranspacific", func(t *testing.T) {
		r := m.Assess(Lane{Route: "VN_US", POD: "LAX", Region: domain.RegionUS, Month: 8})
		if r.Ocean != OceanPacific {
			t.Errorf("ocean = %q", r.Ocean)
		}
		if math.Abs(r.Overall-0.5825) > 1e-9 {
			t.Errorf("overall = %v, want 0.5825", r.Overall)
		}
		if r.Overall < 0.5 {
			t.Error("peak storm season should be in the upper half")
		}
	})

	t.Run("ArcticVolatility", func(t *testing.T) {
		r := m.Assess(Lane{Route: "ARCTIC_NORTHERN", Region: domain.RegionGlobal, Month: 3})
		if r.Volatility != 0.7 {
			t.Errorf("volatility = %v", r.Volatility)
		}
		if r.Ocean != "" || r.Storm != defaultStorm*seasonal[2] {
			t.Errorf("unattributed lane: ocean=%q storm=%v", r.Ocean, r.Storm)
		}
	})

	t.Run("WindKeywords", func(t *testing.T) {
		r := m.Assess(Lane{Route: "GULF_EAST_COAST", Region: domain.RegionUS, Month: 9})
		if math.Abs(r.Wind-0.96) > 1e-9 {
			t.Errorf("wind = %v, want 0.96", r.Wind)
		}
		if r.Ocean != OceanAtlantic {
			t.Errorf("east coast lane should be atlantic, got %q", r.Ocean)
		}
	})

	t.Run("MonsoonRainfall", func(t *testing.T) {
		wet := m.Assess(Lane{POL: "VNSGN", POD: "SGSIN", Region: domain.RegionSEA, Month: 6})
		dry := m.Assess(Lane{POL: "NLRTM", POD: "DEHAM", Region: domain.RegionEU, Month: 6})
		if wet.Rainfall <= dry.Rainfall {
			t.Errorf("monsoon rainfall %v should exceed %v", wet.Rainfall, dry.Rainfall)
		}
	})

	t.Run("AllComponentsBounded", func(t *testing.T) {
		for _, enso := range []string{ENSOElNino, ENSOLaNina, ENSONeutral} {
			model := NewModel(enso)
			for month := 1; month <= 12; month++ {
				for _, region := range []domain.RegionCode{domain.RegionVN, domain.RegionSEA, domain.RegionCN, domain.RegionEU, domain.RegionUS, domain.RegionGlobal} {
					r := model.Assess(Lane{Route: "CARIBBEAN_ARCTIC", Region: region, Month: month})
					for _, v := range []float64{r.Storm, r.Rainfall, r.Wind, r.TemperatureDeviation, r.Volatility, r.Overall} {
						if !inRange(v) {
							t.Fatalf("%s/%d/%s: component %v out of range: %+v", enso, month, region, v, r)
						}
					}
				}
			}
		}
	})

	t.Run("Deterministic", func(t *testing.T) {
		l := Lane{Route: "CN_VN", Region: domain.RegionCN, Month: 2}
		if m.Assess(l) != m.Assess(l) {
			t.Error("assessment should be deterministic")
		}
	})
}

func TestENSO(t *testing.T) {
	lane := Lane{Route: "VN_CN", Region: domain.RegionSEA, Month: 8}

	neutral := NewModel(ENSONeutral).Assess(lane)
	nino := NewModel(ENSOElNino).Assess(lane)

	if nino.ENSOMultiplier != 1.2 {
		t.Errorf("el nino pacific multiplier = %v", nino.ENSOMultiplier)
	}
	if math.Abs(nino.ENSOInfluence-0.2) > 1e-12 {
		t.Errorf("influence = %v", nino.ENSOInfluence)
	}
	if nino.Overall < neutral.Overall {
		t.Errorf("el nino should raise pacific risk: %v < %v", nino.Overall, neutral.Overall)
	}
	if NewModel("sunny").ENSOState() != ENSONeutral {
		t.Error("unknown state should map to neutral")
	}
}

func TestOcean(t *testing.T) {
	tests := []struct {
		text   string
		region domain.RegionCode
		want   string
	}{
		{"VN_CN", domain.RegionSEA, OceanPacific},
		{"NLRTM", domain.RegionEU, OceanAtlantic},
		{"USNYC", domain.RegionUS, OceanAtlantic},
		{"USLAX", domain.RegionUS, OceanPacific},
		{"DUBAI_MUMBAI", domain.RegionGlobal, OceanIndian},
		{"NORTH ATLANTIC", domain.RegionGlobal, OceanAtlantic},
		{"ARCTIC", domain.RegionGlobal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Ocean(tt.text, tt.region); got != tt.want {
				t.Errorf("Ocean(%q, %s) = %q, want %q", tt.text, tt.region, got, tt.want)
			}
		})
	}
}

func TestMonthOf(t *testing.T) {
	now := func() time.Time { return time.Date(2025, time.November, 3, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		etd  string
		want int
	}{
		{"2025-02-10", 2},
		{"2025-08-01T09:30:00Z", 8},
		{"2025/07/15", 7},
		{"15/03/2025", 3},
		{"2025-06", 6},
		{"next tuesday", 11},
		{"", 11},
	}
	for _, tt := range tests {
		t.Run(tt.etd, func(t *testing.T) {
			if got := MonthOf(tt.etd, now); got != tt.want {
				t.Errorf("MonthOf(%q) = %d, want %d", tt.etd, got, tt.want)
			}
		})
	}
}
