package domain

// Priority is the shipment's service priority.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityStandard Priority = "standard"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Language is a supported output language.
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageVietnamese Language = "vi"
	LanguageChinese    Language = "zh"
)

// Languages lists the supported languages, default first.
var Languages = []Language{LanguageEnglish, LanguageVietnamese, LanguageChinese}

// NormalizeLanguage coerces unknown values to English.
func NormalizeLanguage(lang string) Language {
	for _, l := range Languages {
		if string(l) == lang {
			return l
		}
	}
	return LanguageEnglish
}

// Shipment is the canonical shipment input after sanitizing and parsing.
// Numeric fields that may be absent are pointers so that absence can be
// counted by the missing-data penalty.
type Shipment struct {
	Route   string `json:"route,omitempty"`
	POL     string `json:"pol,omitempty"`
	POD     string `json:"pod,omitempty"`
	Carrier string `json:"carrier,omitempty"`
	ETD     string `json:"etd,omitempty"`
	ETA     string `json:"eta,omitempty"`

	CargoValue  *float64 `json:"cargo_value,omitempty"`
	TransitTime *float64 `json:"transit_time,omitempty"`

	CargoType     string   `json:"cargo_type,omitempty"`
	ContainerType string   `json:"container_type,omitempty"`
	Priority      Priority `json:"priority"`

	PackagingQuality float64 `json:"packaging_quality"`
	ContainerMatch   float64 `json:"container_match"`
	CarrierRating    float64 `json:"carrier_rating"`

	Language Language `json:"language"`
}

// Float returns a pointer to v. Handy for building shipments in code.
func Float(v float64) *float64 {
	return &v
}
