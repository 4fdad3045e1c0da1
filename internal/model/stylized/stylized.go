// Package stylized is a small deterministic regional welfare model that
// satisfies [model.Model]. It is a stand-in for smoke runs of the optimizer
// and for tests, not a calibrated climate-economy model: output grows
// exponentially, abatement costs follow the backstop price and a single
// saturating damage term responds to cumulative emissions.
package stylized

import (
	"context"
	"fmt"
	"math"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"github.com/FrankErrickson/Utilitarianism/internal/policy"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

type Options struct {
	StepYears  float64
	Theta      float64
	Growth     float64
	Intensity  float64
	Decarb     float64
	DamageCoef float64
}

func DefaultOptions() Options {
	return Options{
		StepYears:  10,
		Theta:      policy.DefaultTheta,
		Growth:     0.02,
		Intensity:  0.5,
		Decarb:     0.01,
		DamageCoef: 2.5e-7,
	}
}

type Model struct {
	params   model.Params
	opts     Options
	backstop *mat.Dense

	pop     []float64
	income  []float64
	weights []float64

	mitigation *mat.Dense
	prices     *mat.Dense
	utility    float64
	ran        bool
}

// Factory binds a backstop matrix so the optimizer can build one model per
// search.
func Factory(backstop *mat.Dense, opts Options) model.Factory {
	return func(p model.Params) (model.Model, error) {
		return New(backstop, p, opts)
	}
}

func New(backstop *mat.Dense, p model.Params, opts Options) (*Model, error) {
	if backstop == nil || backstop.IsEmpty() {
		return nil, fmt.Errorf("stylized: empty backstop matrix")
	}
	if p.Eta <= 0 || p.Rho <= -1 {
		return nil, fmt.Errorf("stylized: invalid discounting rho=%g eta=%g", p.Rho, p.Eta)
	}
	_, regions := backstop.Dims()

	m := &Model{
		params:   p,
		opts:     opts,
		backstop: mat.DenseCopyOf(backstop),
		pop:      make([]float64, regions),
		income:   make([]float64, regions),
		weights:  make([]float64, regions),
	}
	for r := 0; r < regions; r++ {
		m.pop[r] = 1 + 0.5*float64(r)
		m.income[r] = 40 / (1 + float64(r))
		m.weights[r] = 1
	}
	if p.UseNegishi {
		for r := range m.weights {
			m.weights[r] = math.Pow(m.income[r], p.Eta)
		}
		floats.Scale(float64(regions)/floats.Sum(m.weights), m.weights)
	}
	return m, nil
}

func (m *Model) SetPolicy(component, parameter string, policyMatrix *mat.Dense) error {
	if component != model.ComponentEmissions || parameter != model.ParamMitigation {
		return fmt.Errorf("%w: %s.%s", model.ErrUnknownOutput, component, parameter)
	}
	pr, pc := policyMatrix.Dims()
	br, bc := m.backstop.Dims()
	if pr != br || pc != bc {
		return fmt.Errorf("%w: got %dx%d, want %dx%d", model.ErrPolicyShape, pr, pc, br, bc)
	}
	m.mitigation = mat.DenseCopyOf(policyMatrix)
	m.ran = false
	return nil
}

func (m *Model) Run(ctx context.Context) error {
	if m.mitigation == nil {
		return model.ErrNoPolicy
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.ran = false

	periods, regions := m.backstop.Dims()
	step := m.opts.StepYears
	cumulative := 0.0
	welfare := 0.0
	gross := make([]float64, regions)
	abate := make([]float64, regions)

	for t := 0; t < periods; t++ {
		years := step * float64(t)
		sigma := m.opts.Intensity * math.Pow(1-m.opts.Decarb, years)
		for r := 0; r < regions; r++ {
			mu := m.mitigation.At(t, r)
			gross[r] = m.pop[r] * m.income[r] * math.Pow(1+m.opts.Growth, years)
			abate[r] = m.backstop.At(t, r) * sigma / (m.opts.Theta * 1000) * math.Pow(mu, m.opts.Theta)
			cumulative += sigma * gross[r] * (1 - mu) * step
		}

		retained := 1 / (1 + m.opts.DamageCoef*cumulative*cumulative)
		discount := math.Pow(1+m.params.Rho, -years)
		for r := 0; r < regions; r++ {
			perCapita := gross[r] * (1 - abate[r]) * retained / m.pop[r]
			if perCapita <= 0 || math.IsNaN(perCapita) {
				return fmt.Errorf("%w: consumption %g in period %d region %d", model.ErrUnstable, perCapita, t, r)
			}
			welfare += discount * m.weights[r] * m.pop[r] * utility(perCapita, m.params.Eta)
		}
	}
	if math.IsNaN(welfare) || math.IsInf(welfare, 0) {
		return fmt.Errorf("%w: welfare %g", model.ErrUnstable, welfare)
	}

	prices, err := policy.TaxFromMitigation(m.mitigation, m.backstop, m.opts.Theta)
	if err != nil {
		return err
	}
	m.prices = prices
	m.utility = welfare
	m.ran = true
	return nil
}

func (m *Model) Output(component, variable string) (*mat.Dense, error) {
	if !m.ran {
		return nil, model.ErrNotRun
	}
	switch {
	case component == model.ComponentWelfare && variable == model.VarUtility:
		return mat.NewDense(1, 1, []float64{m.utility}), nil
	case component == model.ComponentEmissions && variable == model.VarCarbonPrice:
		return mat.DenseCopyOf(m.prices), nil
	case component == model.ComponentEmissions && variable == model.ParamMitigation:
		return mat.DenseCopyOf(m.mitigation), nil
	}
	return nil, fmt.Errorf("%w: %s.%s", model.ErrUnknownOutput, component, variable)
}

// SyntheticBackstop builds a backstop price matrix that declines over time,
// with a fixed markup pattern across regions.
func SyntheticBackstop(periods, regions int) *mat.Dense {
	b := mat.NewDense(periods, regions, nil)
	for t := 0; t < periods; t++ {
		base := 550 * math.Pow(0.95, float64(t))
		for r := 0; r < regions; r++ {
			b.Set(t, r, base*(1+0.1*float64(r%4)))
		}
	}
	return b
}

func utility(c, eta float64) float64 {
	if eta == 1 {
		return math.Log(c)
	}
	return (math.Pow(c, 1-eta) - 1) / (1 - eta)
}
