package objective

import (
	"fmt"
	"strings"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"github.com/FrankErrickson/Utilitarianism/internal/policy"
	"gonum.org/v1/gonum/mat"
)

// Regime is the social objective a policy vector is read under. It is a
// closed set: [CostMin] and [Utilitarian].
type Regime interface {
	Name() string

	// Dim is the length of the optimization vector for nOpt periods.
	Dim(nOpt, regions int) int

	// Bounds returns the box the optimization vector lives in.
	Bounds(nOpt int, backstop *mat.Dense) (lower, upper []float64, err error)

	// Embed turns an optimization vector into the full T×R mitigation matrix.
	Embed(x []float64, backstop *mat.Dense) (*mat.Dense, error)

	// Prices reconstructs the full-horizon tax path (nil when the regime has
	// no global tax) and the T×R carbon price, after m ran under Embed(x).
	Prices(x []float64, backstop *mat.Dense, m model.Model) ([]float64, *mat.Dense, error)

	regime()
}

// CostMin optimizes a single global tax path; x holds the tax for periods
// 1..N.
type CostMin struct {
	Theta float64
}

// Utilitarian optimizes regional mitigation rates directly; x holds an N×R
// block flattened row-major.
type Utilitarian struct{}

const (
	CostMinName     = "costmin"
	UtilitarianName = "utilitarian"
)

// ParseRegime selects a regime by name. Cost minimization always uses
// policy.DefaultTheta.
func ParseRegime(name string) (Regime, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case CostMinName, "cost-min", "cost_min", "costminimization":
		return CostMin{Theta: policy.DefaultTheta}, nil
	case UtilitarianName, "util":
		return Utilitarian{}, nil
	}
	return nil, fmt.Errorf("unknown regime: %s (available: %s, %s)", name, CostMinName, UtilitarianName)
}

func (CostMin) regime()      {}
func (CostMin) Name() string { return CostMinName }

func (CostMin) Dim(nOpt, _ int) int { return nOpt }

// Bounds caps each optimized tax at the highest regional backstop price of
// its period.
func (CostMin) Bounds(nOpt int, backstop *mat.Dense) ([]float64, []float64, error) {
	periods, _ := backstop.Dims()
	if nOpt < 1 || nOpt > periods-1 {
		return nil, nil, fmt.Errorf("%w: %d optimized periods for %d-period horizon", policy.ErrHorizon, nOpt, periods)
	}
	maxB := policy.MaxBackstop(backstop)
	upper := make([]float64, nOpt)
	copy(upper, maxB[1:nOpt+1])
	return make([]float64, nOpt), upper, nil
}

func (c CostMin) Embed(x []float64, backstop *mat.Dense) (*mat.Dense, error) {
	return policy.MitigationFromTax(x, backstop, c.Theta)
}

func (CostMin) Prices(x []float64, backstop *mat.Dense, _ model.Model) ([]float64, *mat.Dense, error) {
	tax, err := policy.FullTaxPath(x, backstop)
	if err != nil {
		return nil, nil, err
	}
	periods, regions := backstop.Dims()
	prices := mat.NewDense(periods, regions, nil)
	for t, v := range tax {
		row := prices.RawRowView(t)
		for r := range row {
			row[r] = v
		}
	}
	return tax, prices, nil
}

func (Utilitarian) regime()      {}
func (Utilitarian) Name() string { return UtilitarianName }

func (Utilitarian) Dim(nOpt, regions int) int { return nOpt * regions }

func (Utilitarian) Bounds(nOpt int, backstop *mat.Dense) ([]float64, []float64, error) {
	periods, regions := backstop.Dims()
	if nOpt < 1 || nOpt > periods-1 {
		return nil, nil, fmt.Errorf("%w: %d optimized periods for %d-period horizon", policy.ErrHorizon, nOpt, periods)
	}
	n := nOpt * regions
	upper := make([]float64, n)
	for i := range upper {
		upper[i] = 1
	}
	return make([]float64, n), upper, nil
}

// Embed infers N from len(x); a length that is not a multiple of the region
// count is a dimension error.
func (Utilitarian) Embed(x []float64, backstop *mat.Dense) (*mat.Dense, error) {
	periods, regions := backstop.Dims()
	if regions == 0 || len(x)%regions != 0 {
		return nil, fmt.Errorf("%w: %d values for %d regions", policy.ErrDimension, len(x), regions)
	}
	return policy.EmbedMitigation(x, len(x)/regions, periods, regions)
}

// Prices reads the carbon price the model derived from the installed rates;
// utilitarian optimization never produces a tax path of its own.
func (Utilitarian) Prices(_ []float64, _ *mat.Dense, m model.Model) ([]float64, *mat.Dense, error) {
	prices, err := m.Output(model.ComponentEmissions, model.VarCarbonPrice)
	if err != nil {
		return nil, nil, &model.RunError{Op: "read carbon price", Err: err}
	}
	return nil, prices, nil
}
