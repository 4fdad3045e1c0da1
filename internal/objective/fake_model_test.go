package objective_test

import (
	"context"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"gonum.org/v1/gonum/mat"
)

// recordingModel scores a policy by its total mitigation and remembers every
// installed matrix.
type recordingModel struct {
	params    model.Params
	installed []*mat.Dense
	runs      int
	runErr    error
	welfare   float64
	prices    *mat.Dense
}

func (m *recordingModel) SetPolicy(component, parameter string, p *mat.Dense) error {
	if component != model.ComponentEmissions || parameter != model.ParamMitigation {
		return model.ErrUnknownOutput
	}
	m.installed = append(m.installed, mat.DenseCopyOf(p))
	return nil
}

func (m *recordingModel) Run(ctx context.Context) error {
	m.runs++
	if m.runErr != nil {
		return m.runErr
	}
	last := m.installed[len(m.installed)-1]
	m.welfare = mat.Sum(last)
	m.prices = mat.DenseCopyOf(last)
	m.prices.Scale(100, m.prices)
	return nil
}

func (m *recordingModel) Output(component, variable string) (*mat.Dense, error) {
	switch variable {
	case model.VarUtility:
		return mat.NewDense(1, 1, []float64{m.welfare}), nil
	case model.VarCarbonPrice:
		return m.prices, nil
	}
	return nil, model.ErrUnknownOutput
}

type factoryRecorder struct {
	built []*recordingModel
	err   error
}

func (f *factoryRecorder) factory(p model.Params) (model.Model, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := &recordingModel{params: p}
	f.built = append(f.built, m)
	return m, nil
}
