package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/FrankErrickson/Utilitarianism/internal/objective"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"
)

// search runs one bounded maximization from x0 against obj. It is the only
// caller of obj.Evaluate while it runs.
func (o *Optimizer) search(ctx context.Context, obj *objective.Objective, p *Problem, x0 []float64, log *zap.Logger) (*outcome, error) {
	if o.cfg.Algorithm == Grid {
		g := NewGridSearch(o.cfg.GridPoints, o.cfg.StopTime, o.cfg.MaxEvaluations)
		return g.Search(ctx, obj.Evaluate, p.Lower, p.Upper)
	}

	alg, err := lookupAlgorithm(o.cfg.Algorithm)
	if err != nil {
		return nil, err
	}
	b := newBox(p)

	// gonum's Func cannot fail, so the first evaluation error is parked here
	// and the recorder stops the run on its next call.
	var evalErr error
	f := func(z []float64) float64 {
		if evalErr != nil {
			return math.NaN()
		}
		w, err := obj.Evaluate(ctx, b.toBox(z))
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return -w
	}

	prob := optimize.Problem{Func: f}
	if alg.gradient {
		prob.Grad = func(grad, z []float64) {
			fd.Gradient(grad, f, z, &fd.Settings{Formula: fd.Central, Step: 1e-4})
		}
	}

	settings := &optimize.Settings{
		Runtime:         o.cfg.StopTime,
		FuncEvaluations: o.cfg.MaxEvaluations,
		Converger: &optimize.FunctionConverge{
			Relative:   o.cfg.RelTolerance,
			Iterations: o.cfg.StallIterations,
		},
		Recorder: &abortRecorder{err: &evalErr, log: log},
	}

	res, err := optimize.Minimize(prob, b.fromBox(x0), settings, alg.build(o.cfg.Seed))
	if evalErr != nil {
		return nil, evalErr
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", o.cfg.Algorithm, err)
	}
	if math.IsInf(res.F, 0) || math.IsNaN(res.F) {
		return nil, fmt.Errorf("%s: no finite welfare found (status %v)", o.cfg.Algorithm, res.Status)
	}

	return &outcome{
		x:           b.toBox(res.X),
		welfare:     -res.F,
		termination: classify(res.Status),
		status:      res.Status.String(),
		evaluations: obj.Evaluations(),
	}, nil
}

// abortRecorder ends a gonum run as soon as an evaluation has failed and
// traces major iterations.
type abortRecorder struct {
	err *error
	log *zap.Logger
}

func (r *abortRecorder) Init() error { return nil }

func (r *abortRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if *r.err != nil {
		return *r.err
	}
	if op == optimize.MajorIteration {
		r.log.Debug("iteration",
			zap.Int("iteration", stats.MajorIterations),
			zap.Int("evaluations", stats.FuncEvaluations),
			zap.Float64("welfare", -loc.F),
			zap.Duration("runtime", stats.Runtime))
	}
	return nil
}
