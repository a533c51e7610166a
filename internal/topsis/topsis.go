// Package topsis ranks alternatives by relative closeness to the ideal
// solution.
package topsis

import (
	"errors"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/opensource-finance/harrier/internal/domain"
)

// Epsilon keeps the closeness denominator non-zero.
const Epsilon = 1e-10

// Direction tells whether a criterion is better when larger or smaller.
type Direction int

const (
	Maximize Direction = iota
	Minimize
)

// ErrShape is returned when the matrix, weights and directions disagree.
var ErrShape = errors.New("topsis: matrix, weights and directions must have matching dimensions")

// Result is the per-alternative output of a ranking.
type Result struct {
	Closeness     []float64 `json:"closeness"`
	DistanceBest  []float64 `json:"distance_best"`
	DistanceWorst []float64 `json:"distance_worst"`
}

// Rank scores every alternative (row) of matrix against the ideal points.
func Rank(matrix [][]float64, weights []float64, directions []Direction) (Result, error) {
	c := len(weights)
	if len(directions) != c {
		return Result{}, ErrShape
	}
	for _, row := range matrix {
		if len(row) != c {
			return Result{}, ErrShape
		}
	}

	a := len(matrix)
	res := Result{
		Closeness:     make([]float64, a),
		DistanceBest:  make([]float64, a),
		DistanceWorst: make([]float64, a),
	}
	if a == 0 || c == 0 {
		return res, nil
	}

	data := make([]float64, 0, a*c)
	for _, row := range matrix {
		data = append(data, row...)
	}
	m := mat.NewDense(a, c, data)

	// vector normalization, then weighting
	norms := make([]float64, c)
	for j := range norms {
		norms[j] = floats.Norm(mat.Col(nil, j, m), 2)
		if norms[j] == 0 {
			norms[j] = 1
		}
	}
	var v mat.Dense
	v.Apply(func(_, j int, x float64) float64 {
		return weights[j] * x / norms[j]
	}, m)

	best := make([]float64, c)
	worst := make([]float64, c)
	for j := 0; j < c; j++ {
		col := mat.Col(nil, j, &v)
		lo, hi := floats.Min(col), floats.Max(col)
		if directions[j] == Minimize {
			best[j], worst[j] = lo, hi
		} else {
			best[j], worst[j] = hi, lo
		}
	}

	for i := 0; i < a; i++ {
		row := mat.Row(nil, i, &v)
		res.DistanceBest[i] = floats.Distance(row, best, 2)
		res.DistanceWorst[i] = floats.Distance(row, worst, 2)
		res.Closeness[i] = domain.Clamp01(res.DistanceWorst[i] / (res.DistanceBest[i] + res.DistanceWorst[i] + Epsilon))
	}
	return res, nil
}

// Closeness scores a single shipment's risk vector. The vector is ranked
// together with an all-zero and an all-one anchor so that its closeness is
// measured against absolute ideals. Every criterion is a risk to maximize,
// so higher closeness means higher risk.
func Closeness(factors domain.RiskFactors, weights map[domain.Factor]float64) float64 {
	n := len(domain.Factors)
	w := make([]float64, n)
	dirs := make([]Direction, n)
	lo := make([]float64, n)
	hi := make([]float64, n)
	for i, f := range domain.Factors {
		w[i] = weights[f]
		dirs[i] = Maximize
		hi[i] = 1
	}

	matrix := [][]float64{factors.Clone().Vector(), lo, hi}
	res, err := Rank(matrix, w, dirs)
	if err != nil {
		return 0
	}
	return res.Closeness[0]
}
