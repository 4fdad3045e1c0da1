package policy

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultTheta is the abatement-cost exponent of the standard model. The
// cost-minimization regime always translates taxes with it.
const DefaultTheta = 2.8

// MaxBackstop returns, per period, the highest backstop price across regions.
// That price is the tax at which every region abates fully.
func MaxBackstop(backstop *mat.Dense) []float64 {
	periods, _ := backstop.Dims()
	out := make([]float64, periods)
	for t := range out {
		out[t] = floats.Max(backstop.RawRowView(t))
	}
	return out
}

// FullTaxPath extends an optimized tax sub-path to the full horizon. Period 0
// carries no tax, periods 1..len(tax) carry the sub-path and every later
// period defaults to the full-decarbonization price from [MaxBackstop].
func FullTaxPath(tax []float64, backstop *mat.Dense) ([]float64, error) {
	if err := checkBackstop(backstop); err != nil {
		return nil, err
	}
	periods, _ := backstop.Dims()
	if len(tax) > periods-1 {
		return nil, fmt.Errorf("%w: %d tax periods for %d-period horizon", ErrHorizon, len(tax), periods)
	}
	for i, v := range tax {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return nil, &DomainError{Op: "tax path", Period: i + 1, Region: -1, Value: v, Err: ErrDomain}
		}
	}

	full := MaxBackstop(backstop)
	full[0] = 0
	copy(full[1:], tax)
	return full, nil
}

// MitigationFromTax converts a tax sub-path into a T×R mitigation matrix
// using backstop prices and the abatement-cost exponent theta. Every entry of
// the result lies in [0,1] and row 0 is zero. A zero backstop price after the
// base period is a precondition violation, not a case to paper over.
func MitigationFromTax(tax []float64, backstop *mat.Dense, theta float64) (*mat.Dense, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}
	full, err := FullTaxPath(tax, backstop)
	if err != nil {
		return nil, err
	}

	periods, regions := backstop.Dims()
	exp := 1 / (theta - 1)
	out := mat.NewDense(periods, regions, nil)
	for t := 1; t < periods; t++ {
		for r := 0; r < regions; r++ {
			v := math.Pow(full[t]/backstop.At(t, r), exp)
			if math.IsNaN(v) {
				return nil, &DomainError{Op: "mitigation from tax", Period: t, Region: r, Value: full[t], Err: ErrDomain}
			}
			out.Set(t, r, clamp01(v))
		}
	}
	return out, nil
}

// EmbedMitigation places a flattened nOpt×regions block of mitigation rates
// (row-major) into a full periods×regions matrix. Row 0 is forced to zero and
// rows past nOpt are forced to one.
func EmbedMitigation(x []float64, nOpt, periods, regions int) (*mat.Dense, error) {
	if periods < 1 || regions < 1 {
		return nil, fmt.Errorf("%w: %dx%d horizon", ErrDimension, periods, regions)
	}
	if nOpt < 0 || nOpt > periods-1 {
		return nil, fmt.Errorf("%w: %d optimized periods for %d-period horizon", ErrHorizon, nOpt, periods)
	}
	if len(x) != nOpt*regions {
		return nil, fmt.Errorf("%w: got %d values, want %d×%d", ErrDimension, len(x), nOpt, regions)
	}

	out := mat.NewDense(periods, regions, nil)
	for i, v := range x {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return nil, &DomainError{Op: "embed mitigation", Period: i/regions + 1, Region: i % regions, Value: v, Err: ErrDomain}
		}
		out.Set(i/regions+1, i%regions, v)
	}
	for t := nOpt + 1; t < periods; t++ {
		row := out.RawRowView(t)
		for r := range row {
			row[r] = 1
		}
	}
	return out, nil
}

// TaxFromMitigation is the inverse direction: the regional carbon price
// B[t,r]·M[t,r]^(θ-1) implied by a mitigation matrix.
func TaxFromMitigation(mitigation, backstop *mat.Dense, theta float64) (*mat.Dense, error) {
	if err := checkTheta(theta); err != nil {
		return nil, err
	}
	if err := checkBackstop(backstop); err != nil {
		return nil, err
	}
	mp, mr := mitigation.Dims()
	bp, br := backstop.Dims()
	if mp != bp || mr != br {
		return nil, fmt.Errorf("%w: mitigation %dx%d, backstop %dx%d", ErrDimension, mp, mr, bp, br)
	}

	var out mat.Dense
	var bad *DomainError
	out.Apply(func(t, r int, m float64) float64 {
		v := backstop.At(t, r) * math.Pow(m, theta-1)
		if math.IsNaN(v) && bad == nil {
			bad = &DomainError{Op: "tax from mitigation", Period: t, Region: r, Value: m, Err: ErrDomain}
		}
		return v
	}, mitigation)
	if bad != nil {
		return nil, bad
	}
	return &out, nil
}

func checkTheta(theta float64) error {
	if theta == 1 || math.IsNaN(theta) || math.IsInf(theta, 0) {
		return fmt.Errorf("%w: got %g", ErrTheta, theta)
	}
	return nil
}

func checkBackstop(backstop *mat.Dense) error {
	if backstop == nil || backstop.IsEmpty() {
		return fmt.Errorf("%w: empty backstop matrix", ErrDimension)
	}
	periods, regions := backstop.Dims()
	for t := 0; t < periods; t++ {
		for r := 0; r < regions; r++ {
			v := backstop.At(t, r)
			if math.IsNaN(v) || v < 0 || (t > 0 && v == 0) {
				return &DomainError{Op: "backstop", Period: t, Region: r, Value: v, Err: ErrBackstop}
			}
		}
	}
	return nil
}

func clamp01(v float64) float64 {
	return math.Min(math.Max(v, 0), 1)
}
