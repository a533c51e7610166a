// Package input projects sanitized request mappings onto the canonical
// shipment record.
package input

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/opensource-finance/harrier/internal/domain"
)

// DefaultQuality is used for packaging_quality, container_match and
// carrier_rating when they are absent or unparsable.
const DefaultQuality = 0.5

// aliases maps accepted alternate field names to canonical ones.
var aliases = map[string]string{
	"trade_route":       "route",
	"port_of_loading":   "pol",
	"port_of_discharge": "pod",
	"departure_date":    "etd",
	"arrival_date":      "eta",
	"shipment_value":    "cargo_value",
}

// Canonical returns the canonical name for key, resolving aliases.
func Canonical(key string) string {
	k := strings.ToLower(strings.TrimSpace(key))
	if c, ok := aliases[k]; ok {
		return c
	}
	return k
}

// Parse projects a sanitized mapping onto the canonical shipment. It never
// fails: malformed values fall back to defaults or absence, unknown keys are
// ignored, and a canonical key wins over its alias.
func Parse(raw map[string]any) domain.Shipment {
	fields := resolve(raw)

	s := domain.Shipment{
		Route:         stringField(fields, "route"),
		POL:           stringField(fields, "pol"),
		POD:           stringField(fields, "pod"),
		Carrier:       stringField(fields, "carrier"),
		ETD:           stringField(fields, "etd"),
		ETA:           stringField(fields, "eta"),
		CargoType:     stringField(fields, "cargo_type"),
		ContainerType: stringField(fields, "container_type"),

		CargoValue:  nonNegative(fields["cargo_value"]),
		TransitTime: nonNegative(fields["transit_time"]),

		Priority: parsePriority(stringField(fields, "priority")),

		PackagingQuality: quality(fields["packaging_quality"]),
		ContainerMatch:   quality(fields["container_match"]),
		CarrierRating:    quality(fields["carrier_rating"]),

		Language: domain.NormalizeLanguage(strings.ToLower(stringField(fields, "language"))),
	}

	return s
}

func resolve(raw map[string]any) map[string]any {
	fields := make(map[string]any, len(raw))
	// aliases first so canonical keys overwrite them
	for k, v := range raw {
		if c := Canonical(k); c != strings.ToLower(strings.TrimSpace(k)) {
			fields[c] = v
		}
	}
	for k, v := range raw {
		if c := strings.ToLower(strings.TrimSpace(k)); Canonical(c) == c {
			fields[c] = v
		}
	}
	return fields
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// ParseFloat is the safe numeric coercion: it returns nil for anything that
// is not a finite number.
func ParseFloat(v any) *float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case string:
		clean := strings.ReplaceAll(strings.TrimSpace(t), ",", "")
		if clean == "" {
			return nil
		}
		parsed, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func nonNegative(v any) *float64 {
	f := ParseFloat(v)
	if f == nil || *f < 0 {
		return nil
	}
	return f
}

func quality(v any) float64 {
	f := ParseFloat(v)
	if f == nil {
		return DefaultQuality
	}
	return domain.Clamp01(*f)
}

func parsePriority(p string) domain.Priority {
	switch domain.Priority(strings.ToLower(p)) {
	case domain.PriorityLow:
		return domain.PriorityLow
	case domain.PriorityHigh:
		return domain.PriorityHigh
	case domain.PriorityCritical:
		return domain.PriorityCritical
	default:
		return domain.PriorityStandard
	}
}
