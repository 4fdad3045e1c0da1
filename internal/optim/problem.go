package optim

import (
	"fmt"
	"math"

	"github.com/FrankErrickson/Utilitarianism/internal/objective"
	"gonum.org/v1/gonum/mat"
)

// Problem is the box an optimization vector is searched in.
type Problem struct {
	Dim   int
	Lower []float64
	Upper []float64
	// Start is the midpoint of the box, the same for every regime.
	Start []float64
}

func NewProblem(regime objective.Regime, nOpt int, backstop *mat.Dense) (*Problem, error) {
	lower, upper, err := regime.Bounds(nOpt, backstop)
	if err != nil {
		return nil, err
	}
	_, regions := backstop.Dims()
	dim := regime.Dim(nOpt, regions)
	if len(lower) != dim || len(upper) != dim {
		return nil, fmt.Errorf("optim: %s bounds have %d/%d entries, want %d", regime.Name(), len(lower), len(upper), dim)
	}

	start := make([]float64, dim)
	for i := range start {
		start[i] = upper[i] / 2
	}
	return &Problem{Dim: dim, Lower: lower, Upper: upper, Start: start}, nil
}

// box maps an unconstrained search point z onto [lo, hi] with
// x = lo + (hi-lo)(1+sin z)/2, so gonum's unconstrained methods never leave
// the bounds. z = 0 is the midpoint.
type box struct {
	lo, hi []float64
}

func newBox(p *Problem) box {
	return box{lo: p.Lower, hi: p.Upper}
}

func (b box) toBox(z []float64) []float64 {
	x := make([]float64, len(z))
	for i, v := range z {
		x[i] = b.lo[i] + (b.hi[i]-b.lo[i])*(1+math.Sin(v))/2
	}
	return x
}

func (b box) fromBox(x []float64) []float64 {
	z := make([]float64, len(x))
	for i, v := range x {
		width := b.hi[i] - b.lo[i]
		if width <= 0 {
			continue
		}
		s := 2*(v-b.lo[i])/width - 1
		z[i] = math.Asin(math.Max(-1, math.Min(1, s)))
	}
	return z
}
