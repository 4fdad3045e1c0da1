// Package objective builds the welfare function the optimizer maximizes.
//
// An [Objective] owns exactly one model instance. Each evaluation embeds the
// policy vector under the [Regime], installs the resulting mitigation matrix,
// re-runs the model and reads aggregate utility back:
//
//	obj, _ := objective.Build(objective.CostMin{Theta: policy.DefaultTheta}, params, backstop, factory, logger)
//	welfare, err := obj.Evaluate(ctx, tax)
//
// # Thread Safety
//
// Evaluate mutates the shared model in place and is NOT safe for concurrent
// use. Evaluations of one Objective must be strictly sequential; parallel
// searches build one Objective each.
package objective

import (
	"context"
	"fmt"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type Objective struct {
	regime   Regime
	params   model.Params
	backstop *mat.Dense
	model    model.Model
	evals    int
	logger   *zap.Logger
}

// Build creates the single model instance for a run. Parameters go through
// [model.Params.Effective], so Negishi weights override the caller's Rho and
// Eta.
func Build(regime Regime, params model.Params, backstop *mat.Dense, factory model.Factory, logger *zap.Logger) (*Objective, error) {
	if regime == nil {
		return nil, fmt.Errorf("objective: regime is required")
	}
	if factory == nil {
		return nil, fmt.Errorf("objective: model factory is required")
	}
	if backstop == nil || backstop.IsEmpty() {
		return nil, fmt.Errorf("objective: backstop matrix is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	effective := params.Effective()
	if effective != params {
		logger.Info("negishi weights override discounting",
			zap.Float64("rho", effective.Rho), zap.Float64("eta", effective.Eta),
			zap.Float64("requested_rho", params.Rho), zap.Float64("requested_eta", params.Eta))
	}

	m, err := factory(effective)
	if err != nil {
		return nil, fmt.Errorf("objective: create model: %w", err)
	}

	return &Objective{
		regime:   regime,
		params:   effective,
		backstop: backstop,
		model:    m,
		logger:   logger,
	}, nil
}

// Evaluate returns the welfare of policy vector x. Any translation or model
// failure is returned as is; there is no fallback welfare value.
func (o *Objective) Evaluate(ctx context.Context, x []float64) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	o.evals++

	mitigation, err := o.regime.Embed(x, o.backstop)
	if err != nil {
		return 0, fmt.Errorf("evaluation %d: %w", o.evals, err)
	}
	w, err := o.Install(ctx, mitigation)
	if err != nil {
		return 0, fmt.Errorf("evaluation %d: %w", o.evals, err)
	}
	return w, nil
}

// Install pushes a full mitigation matrix into the model, runs it and reads
// welfare.
func (o *Objective) Install(ctx context.Context, mitigation *mat.Dense) (float64, error) {
	if err := o.model.SetPolicy(model.ComponentEmissions, model.ParamMitigation, mitigation); err != nil {
		return 0, &model.RunError{Op: "set policy", Err: err}
	}
	if err := o.model.Run(ctx); err != nil {
		return 0, &model.RunError{Op: "run", Err: err}
	}
	out, err := o.model.Output(model.ComponentWelfare, model.VarUtility)
	if err != nil {
		return 0, &model.RunError{Op: "read welfare", Err: err}
	}
	if r, c := out.Dims(); r != 1 || c != 1 {
		return 0, &model.RunError{Op: "read welfare", Err: fmt.Errorf("%w: welfare is %dx%d", model.ErrPolicyShape, r, c)}
	}
	return out.At(0, 0), nil
}

func (o *Objective) Regime() Regime       { return o.regime }
func (o *Objective) Params() model.Params { return o.params }
func (o *Objective) Model() model.Model   { return o.model }
func (o *Objective) Evaluations() int     { return o.evals }
