package fahp

import "math"

// Triangle is a triangular fuzzy number (L, M, U) with L <= M <= U.
type Triangle struct {
	L float64 `json:"l"`
	M float64 `json:"m"`
	U float64 `json:"u"`
}

// One is the crisp identity triangle.
var One = Triangle{1, 1, 1}

// Valid reports whether the bounds are finite, positive and ordered.
func (t Triangle) Valid() bool {
	for _, v := range []float64{t.L, t.M, t.U} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return t.L <= t.M && t.M <= t.U
}

// Add is element-wise addition.
func (t Triangle) Add(o Triangle) Triangle {
	return Triangle{t.L + o.L, t.M + o.M, t.U + o.U}
}

// Mul is element-wise (tensor) multiplication.
func (t Triangle) Mul(o Triangle) Triangle {
	return Triangle{t.L * o.L, t.M * o.M, t.U * o.U}
}

// Scale multiplies every bound by k.
func (t Triangle) Scale(k float64) Triangle {
	return Triangle{t.L * k, t.M * k, t.U * k}
}

// Pow raises every bound to p.
func (t Triangle) Pow(p float64) Triangle {
	return Triangle{math.Pow(t.L, p), math.Pow(t.M, p), math.Pow(t.U, p)}
}

// Reciprocal returns (1/U, 1/M, 1/L).
func (t Triangle) Reciprocal() Triangle {
	return Triangle{1 / t.U, 1 / t.M, 1 / t.L}
}

// Centroid defuzzifies as (L + 2M + U) / 4.
func (t Triangle) Centroid() float64 {
	return (t.L + 2*t.M + t.U) / 4
}

// Scale is a Saaty level to triangle table.
type Scale map[int]Triangle

// SaatyScale is the standard 1-9 fuzzification.
var SaatyScale = Scale{
	1: {1, 1, 1},
	2: {1, 2, 3},
	3: {2, 3, 4},
	4: {3, 4, 5},
	5: {4, 5, 6},
	6: {5, 6, 7},
	7: {6, 7, 8},
	8: {7, 8, 9},
	9: {8, 9, 9},
}

// RandomIndex is Saaty's random consistency index by matrix order.
var RandomIndex = map[int]float64{
	1:  0,
	2:  0,
	3:  0.58,
	4:  0.90,
	5:  1.12,
	6:  1.24,
	7:  1.32,
	8:  1.41,
	9:  1.45,
	10: 1.49,
}

// Fuzzify maps a crisp comparison value to the level whose middle is closest,
// using the reciprocal triangle for values below 1. The returned bool is
// false when the selected level is not a valid triangle.
func (s Scale) Fuzzify(x float64) (Triangle, bool) {
	bestLevel, bestRecip := 1, false
	bestDist := math.Inf(1)

	// levels visited in ascending order so ties resolve to the lower level
	for k := 1; k <= 9; k++ {
		t, ok := s[k]
		if !ok {
			continue
		}
		if d := math.Abs(x - t.M); d < bestDist {
			bestLevel, bestRecip, bestDist = k, false, d
		}
		if t.M != 0 {
			if d := math.Abs(x - 1/t.M); d < bestDist {
				bestLevel, bestRecip, bestDist = k, true, d
			}
		}
	}

	t, ok := s[bestLevel]
	if !ok || !t.Valid() {
		return One, false
	}
	if bestRecip {
		t = t.Reciprocal()
	}
	return t, true
}
