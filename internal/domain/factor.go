// Package domain defines the core interfaces and types for Harrier.
package domain

import "math"

// Factor names one dimension of the shipment risk vector.
type Factor string

const (
	FactorDelay     Factor = "delay"
	FactorPort      Factor = "port"
	FactorClimate   Factor = "climate"
	FactorCarrier   Factor = "carrier"
	FactorESG       Factor = "esg"
	FactorEquipment Factor = "equipment"
)

// DefaultFactorValue is used for any factor missing from a vector.
const DefaultFactorValue = 0.5

// Factors is the fixed, ordered factor set. Every matrix row, TOPSIS column
// and weight slice in the pipeline follows this order.
var Factors = []Factor{
	FactorDelay,
	FactorPort,
	FactorClimate,
	FactorCarrier,
	FactorESG,
	FactorEquipment,
}

// IsFactor reports whether name is one of the canonical factors.
func IsFactor(name string) bool {
	for _, f := range Factors {
		if string(f) == name {
			return true
		}
	}
	return false
}

// RiskFactors maps each factor to a risk value in [0,1].
type RiskFactors map[Factor]float64

// Get returns the value for f, or DefaultFactorValue when absent.
func (rf RiskFactors) Get(f Factor) float64 {
	if v, ok := rf[f]; ok {
		return v
	}
	return DefaultFactorValue
}

// Clone returns a complete copy containing every canonical factor.
// Missing keys are filled with DefaultFactorValue and values are clamped.
func (rf RiskFactors) Clone() RiskFactors {
	out := make(RiskFactors, len(Factors))
	for _, f := range Factors {
		out[f] = Clamp01(rf.Get(f))
	}
	return out
}

// Vector returns the values in canonical factor order.
func (rf RiskFactors) Vector() []float64 {
	v := make([]float64, len(Factors))
	for i, f := range Factors {
		v[i] = rf.Get(f)
	}
	return v
}

// Clamp01 clamps v into [0,1]. NaN maps to 0.
func Clamp01(v float64) float64 {
	return Clamp(v, 0, 1)
}

// Clamp clamps v into [lo,hi]. NaN maps to lo.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
