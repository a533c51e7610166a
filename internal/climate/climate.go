// Package climate is the deterministic climate sub-model: a storm, rainfall,
// wind, temperature and volatility composite derived from the lane and the
// departure month, scaled by the ENSO phase.
package climate

import (
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode"

	"github.com/opensource-finance/harrier/internal/domain"
)

// ENSO phases.
const (
	ENSOElNino  = "el_nino"
	ENSOLaNina  = "la_nina"
	ENSONeutral = "neutral"
)

// Ocean basins.
const (
	OceanPacific  = "pacific"
	OceanAtlantic = "atlantic"
	OceanIndian   = "indian"
)

// defaultStorm is used when no ocean basin can be attributed to the lane.
const defaultStorm = 0.20

var baseStorm = map[string]float64{
	OceanPacific:  0.35,
	OceanAtlantic: 0.25,
	OceanIndian:   0.30,
}

// seasonal is indexed by month-1.
var seasonal = [12]float64{0.5, 0.5, 0.6, 0.7, 0.9, 1.1, 1.3, 1.5, 1.5, 1.2, 0.9, 0.6}

var ensoTable = map[string]map[string]float64{
	ENSOElNino:  {OceanPacific: 1.2, OceanAtlantic: 0.9, OceanIndian: 1.1},
	ENSOLaNina:  {OceanPacific: 1.1, OceanAtlantic: 1.2, OceanIndian: 0.95},
	ENSONeutral: {OceanPacific: 1.0, OceanAtlantic: 1.0, OceanIndian: 1.0},
}

var (
	monsoonTokens   = []string{"VN", "VIETNAM", "SEA", "SINGAPORE", "TH", "THAILAND", "MY", "MALAYSIA", "ID", "INDONESIA", "PH", "PHILIPPINES", "IN", "INDIA", "BD", "BANGLADESH", "MM", "MYANMAR"}
	windKeywords    = []string{"CARIBBEAN", "GULF", "EAST_COAST", "EAST COAST"}
	volatileKeyword = []string{"ARCTIC", "NORTHERN", "BALTIC"}
	eastCoast       = []string{"NEW YORK", "NYC", "USNYC", "SAVANNAH", "USSAV", "CHARLESTON", "USCHS", "HOUSTON", "USHOU", "MIAMI", "NORFOLK", "BALTIMORE", "EAST_COAST", "EAST COAST", "GULF", "ATLANTIC"}
	indianKeywords  = []string{"INDIAN", "INDIA", "DUBAI", "ARABIAN"}
)

// Lane is the climate sub-model input.
type Lane struct {
	Route  string
	POL    string
	POD    string
	Region domain.RegionCode
	Month  int
}

// Model evaluates lanes under a fixed ENSO phase.
type Model struct {
	enso string
}

// NewModel creates a model for the given ENSO phase. Unknown phases are
// treated as neutral.
func NewModel(ensoState string) *Model {
	s := strings.ToLower(strings.TrimSpace(ensoState))
	if _, ok := ensoTable[s]; !ok {
		if s != "" {
			slog.Warn("unknown ENSO state, using neutral", "enso_state", ensoState)
		}
		s = ENSONeutral
	}
	return &Model{enso: s}
}

// ENSOState returns the configured phase.
func (m *Model) ENSOState() string {
	return m.enso
}

// Assess computes the climate breakdown for a lane.
func (m *Model) Assess(l Lane) domain.ClimateRisk {
	month := l.Month
	if month < 1 || month > 12 {
		month = int(time.Now().Month())
	}
	text := laneText(l)
	ocean := Ocean(text, l.Region)

	storm := defaultStorm
	if b, ok := baseStorm[ocean]; ok {
		storm = b
	}
	storm = domain.Clamp01(storm * seasonal[month-1])

	rain := 0.3
	if monsoonMonth(month) && (l.Region == domain.RegionVN || l.Region == domain.RegionSEA || hasToken(text, monsoonTokens)) {
		rain = 0.7
	}
	rain = domain.Clamp01(rain * (0.5 + 0.5*math.Sin(float64(month-3)*math.Pi/6)))

	wind := 0.4
	if month >= 7 && month <= 10 {
		wind = 0.8
	}
	if containsAny(text, windKeywords) {
		wind *= 1.2
	}
	wind = domain.Clamp01(wind)

	temp := 0.3
	switch month {
	case 1, 2, 7, 8:
		temp = 0.6
	}

	vol := 0.4
	if containsAny(text, volatileKeyword) {
		vol = 0.7
	}

	mult := 1.0
	if v, ok := ensoTable[m.enso][ocean]; ok {
		mult = v
	}

	overall := domain.Clamp01((0.30*storm + 0.25*wind + 0.20*rain + 0.10*temp + 0.15*vol) * mult)

	return domain.ClimateRisk{
		Ocean:                ocean,
		Month:                month,
		ENSOState:            m.enso,
		Storm:                storm,
		Rainfall:             rain,
		Wind:                 wind,
		TemperatureDeviation: temp,
		Volatility:           vol,
		ENSOMultiplier:       mult,
		ENSOInfluence:        mult - 1,
		Overall:              overall,
	}
}

// Ocean attributes a lane to a basin, or "" when none applies.
func Ocean(text string, region domain.RegionCode) string {
	switch region {
	case domain.RegionVN, domain.RegionSEA, domain.RegionCN:
		return OceanPacific
	case domain.RegionEU:
		return OceanAtlantic
	case domain.RegionUS:
		if containsAny(text, eastCoast) {
			return OceanAtlantic
		}
		return OceanPacific
	}

	switch {
	case containsAny(text, indianKeywords):
		return OceanIndian
	case strings.Contains(text, "ATLANTIC"):
		return OceanAtlantic
	case strings.Contains(text, "PACIFIC"):
		return OceanPacific
	}
	return ""
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2006-01",
}

// MonthOf derives the month from an ETD string, falling back to the month
// of now() when the date is absent or unparsable.
func MonthOf(etd string, now func() time.Time) int {
	etd = strings.TrimSpace(etd)
	if etd != "" {
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, etd); err == nil {
				return int(t.Month())
			}
		}
		slog.Debug("unparsable etd, using current month", "etd", etd)
	}
	if now == nil {
		now = time.Now
	}
	return int(now().UTC().Month())
}

func monsoonMonth(m int) bool {
	return m >= 5 && m <= 10
}

func laneText(l Lane) string {
	return strings.ToUpper(strings.Join([]string{l.Route, l.POL, l.POD}, " "))
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// hasToken matches whole words, or the country prefix of a five-letter
// UN/LOCODE.
func hasToken(text string, tokens []string) bool {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		for _, tok := range tokens {
			if w == tok || (len(tok) == 2 && len(w) == 5 && strings.HasPrefix(w, tok)) {
				return true
			}
		}
	}
	return false
}
