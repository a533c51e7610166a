// Package fahp derives factor weights with the Fuzzy Analytic Hierarchy
// Process.
package fahp

import (
	"log/slog"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/opensource-finance/harrier/internal/domain"
)

const (
	// ConsistencyThreshold is the CR above which a matrix is flagged.
	ConsistencyThreshold = 0.1

	// imagTolerance is the largest imaginary part still read as real.
	imagTolerance = 1e-9
)

// Solver computes FAHP weights. It is stateless apart from its scale table.
type Solver struct {
	scale Scale
}

// Option configures a Solver.
type Option func(*Solver)

// WithScale replaces the fuzzification table.
func WithScale(s Scale) Option {
	return func(sv *Solver) {
		sv.scale = s
	}
}

// NewSolver creates a solver over the Saaty scale.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{scale: SaatyScale}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Solve derives weights over the canonical factor order from a risk context.
func (s *Solver) Solve(factors domain.RiskFactors) domain.WeightSet {
	m := ComparisonMatrix(factors.Vector())
	weights, substituted := s.weights(m)

	ws := domain.WeightSet{
		Weights:              make(map[domain.Factor]float64, len(domain.Factors)),
		SubstitutedTriangles: substituted,
	}
	for i, f := range domain.Factors {
		ws.Weights[f] = weights[i]
	}

	cr, ok := ConsistencyRatio(m)
	if !ok {
		slog.Warn("fahp eigenvalue did not converge, reporting CR=0")
		ws.EigenFailed = true
		cr = 0
	}
	ws.ConsistencyRatio = cr
	if cr > ConsistencyThreshold {
		ws.Inconsistent = true
		slog.Warn("fahp comparison matrix inconsistent", "consistency_ratio", cr)
	}

	return ws
}

// ComparisonMatrix builds the crisp pairwise matrix from factor values using
// s = 1 + 8v and M[i][j] = s_i / s_j clamped into [1/9, 9].
func ComparisonMatrix(values []float64) [][]float64 {
	n := len(values)
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
		m[i][i] = 1
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			si := 1 + 8*domain.Clamp01(values[i])
			sj := 1 + 8*domain.Clamp01(values[j])
			r := domain.Clamp(si/sj, 1.0/9, 9)
			m[i][j] = r
			m[j][i] = 1 / r
		}
	}
	return m
}

// Weights fuzzifies m and returns crisp weights summing to 1.
func (s *Solver) Weights(m [][]float64) []float64 {
	w, _ := s.weights(m)
	return w
}

func (s *Solver) weights(m [][]float64) ([]float64, int) {
	n := len(m)
	if n == 0 {
		return nil, 0
	}

	substituted := 0
	geo := make([]Triangle, n)
	for i := 0; i < n; i++ {
		prod := One
		for j := 0; j < n; j++ {
			t, ok := s.scale.Fuzzify(m[i][j])
			if !ok {
				substituted++
				slog.Warn("fahp invalid fuzzy triangle substituted",
					"row", i,
					"col", j,
					"value", m[i][j],
				)
			}
			prod = prod.Mul(t)
		}
		geo[i] = prod.Pow(1 / float64(n))
	}

	var sumL, sumM, sumU float64
	for _, g := range geo {
		sumL += g.L
		sumM += g.M
		sumU += g.U
	}

	crisp := make([]float64, n)
	total := 0.0
	for i, g := range geo {
		// lower bound over the upper sum and upper over the lower sum keeps the spread
		w := Triangle{g.L / sumU, g.M / sumM, g.U / sumL}
		crisp[i] = w.Centroid()
		total += crisp[i]
	}

	if total <= 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		for i := range crisp {
			crisp[i] = 1 / float64(n)
		}
		return crisp, substituted
	}
	for i := range crisp {
		crisp[i] /= total
	}
	return crisp, substituted
}

// ConsistencyRatio returns CR = ((lambda_max - n)/(n - 1)) / RI[n]. The bool
// is false when the principal eigenvalue could not be found.
func ConsistencyRatio(m [][]float64) (float64, bool) {
	n := len(m)
	lambda, ok := PrincipalEigenvalue(m)
	if !ok {
		return 0, false
	}
	ri := RandomIndex[n]
	if n < 3 || ri == 0 {
		return 0, true
	}
	ci := (lambda - float64(n)) / float64(n-1)
	return math.Max(0, ci/ri), true
}

// PrincipalEigenvalue returns the largest real eigenvalue of a positive
// square matrix. The bool is false for ragged or non-positive input and when
// the factorization fails.
func PrincipalEigenvalue(m [][]float64) (float64, bool) {
	n := len(m)
	if n == 0 {
		return 0, false
	}

	data := make([]float64, 0, n*n)
	for _, row := range m {
		if len(row) != n {
			return 0, false
		}
		for _, v := range row {
			if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, false
			}
		}
		data = append(data, row...)
	}

	var eig mat.Eigen
	if !eig.Factorize(mat.NewDense(n, n, data), mat.EigenNone) {
		return 0, false
	}

	lambda, found := 0.0, false
	for _, v := range eig.Values(nil) {
		if math.Abs(imag(v)) > imagTolerance*math.Max(1, cmplx.Abs(v)) {
			continue
		}
		if !found || real(v) > lambda {
			lambda, found = real(v), true
		}
	}
	return lambda, found
}

// ApplyRegion scales the port and climate weights by the profile's
// congestion and climate weights and renormalizes.
func ApplyRegion(weights map[domain.Factor]float64, p domain.RegionProfile) map[domain.Factor]float64 {
	out := make(map[domain.Factor]float64, len(domain.Factors))
	total := 0.0
	for _, f := range domain.Factors {
		w := weights[f]
		switch f {
		case domain.FactorPort:
			w *= p.CongestionWeight
		case domain.FactorClimate:
			w *= p.ClimateWeight
		}
		out[f] = w
		total += w
	}

	if total <= 0 {
		for _, f := range domain.Factors {
			out[f] = 1 / float64(len(domain.Factors))
		}
		return out
	}
	for _, f := range domain.Factors {
		out[f] /= total
	}
	return out
}
