package topsis

import (
	"errors"
	"math"
	"testing"

	"github.com/opensource-finance/harrier/internal/domain"
)

func equalWeights() map[domain.Factor]float64 {
	w := make(map[domain.Factor]float64)
	for _, f := range domain.Factors {
		w[f] = 1.0 / float64(len(domain.Factors))
	}
	return w
}

func uniform(v float64) domain.RiskFactors {
	rf := domain.RiskFactors{}
	for _, f := range domain.Factors {
		rf[f] = v
	}
	return rf
}

func TestRank(t *testing.T) {
	t.Run("OrdersAlternatives", func(t *testing.T) {
		matrix := [][]float64{
			{0.9, 0.2},
			{0.5, 0.5},
			{0.1, 0.9},
		}
		res, err := Rank(matrix, []float64{0.5, 0.5}, []Direction{Maximize, Minimize})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !(res.Closeness[0] > res.Closeness[1] && res.Closeness[1] > res.Closeness[2]) {
			t.Errorf("unexpected ordering: %v", res.Closeness)
		}
		if !(math.Abs(res.Closeness[0]-1) < 1e-6) {
			t.Errorf("dominant alternative should reach 1, got %v", res.Closeness[0])
		}
		for i, c := range res.Closeness {
			if c < 0 || c > 1 {
				t.Errorf("closeness[%d] = %v out of range", i, c)
			}
		}
	})

	t.Run("ZeroColumn", func(t *testing.T) {
		res, err := Rank([][]float64{{0, 1}, {0, 0.5}}, []float64{0.5, 0.5}, []Direction{Maximize, Maximize})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, c := range res.Closeness {
			if math.IsNaN(c) {
				t.Fatal("zero column produced NaN")
			}
		}
	})

	t.Run("ShapeMismatch", func(t *testing.T) {
		_, err := Rank([][]float64{{1, 2}}, []float64{1}, []Direction{Maximize})
		if !errors.Is(err, ErrShape) {
			t.Errorf("expected ErrShape, got %v", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		res, err := Rank(nil, []float64{1}, []Direction{Maximize})
		if err != nil || len(res.Closeness) != 0 {
			t.Errorf("empty matrix: %v %v", res, err)
		}
	})
}

func TestCloseness(t *testing.T) {
	w := equalWeights()

	t.Run("Anchors", func(t *testing.T) {
		if c := Closeness(uniform(0), w); math.Abs(c) > 1e-9 {
			t.Errorf("all-zero closeness = %v", c)
		}
		if c := Closeness(uniform(1), w); math.Abs(c-1) > 1e-9 {
			t.Errorf("all-one closeness = %v", c)
		}
		if c := Closeness(uniform(0.5), w); math.Abs(c-0.5) > 1e-9 {
			t.Errorf("midpoint closeness = %v", c)
		}
	})

	t.Run("MonotoneInEachFactor", func(t *testing.T) {
		base := uniform(0.4)
		c0 := Closeness(base, w)
		for _, f := range domain.Factors {
			up := base.Clone()
			up[f] = 0.7
			if c := Closeness(up, w); c < c0 {
				t.Errorf("raising %s lowered closeness %v -> %v", f, c0, c)
			}
		}
	})

	t.Run("Range", func(t *testing.T) {
		rf := domain.RiskFactors{domain.FactorDelay: 0.9, domain.FactorESG: 0.05}
		c := Closeness(rf, w)
		if c < 0 || c > 1 {
			t.Errorf("closeness = %v", c)
		}
	})
}
