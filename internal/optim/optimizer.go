// Package optim searches for the welfare-maximizing policy vector.
//
// A run goes through configured → evaluating → converged | timed_out |
// exhausted → finalized. Evaluations are driven by a gonum optimize.Method
// (or the built-in grid search) and are strictly sequential within one
// search. Finalization re-runs the model once under the winning policy so the
// returned model reflects it.
package optim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"github.com/FrankErrickson/Utilitarianism/internal/objective"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type Config struct {
	Algorithm   string
	NOptPeriods int
	// StopTime is advisory: it is checked between evaluations, never inside
	// a model run.
	StopTime        time.Duration
	RelTolerance    float64
	StallIterations int
	MaxEvaluations  int
	Starts          int
	Seed            uint64
	GridPoints      int
}

func DefaultConfig() Config {
	return Config{
		Algorithm:       NelderMead,
		NOptPeriods:     10,
		StopTime:        time.Minute,
		RelTolerance:    1e-6,
		StallIterations: 20,
		Starts:          1,
		Seed:            1,
		GridPoints:      5,
	}
}

func (c Config) Validate() error {
	var errs []error
	if _, err := lookupAlgorithm(c.Algorithm); err != nil {
		errs = append(errs, err)
	}
	if c.NOptPeriods < 1 {
		errs = append(errs, fmt.Errorf("optimized periods must be positive, got %d", c.NOptPeriods))
	}
	if c.StopTime <= 0 {
		errs = append(errs, fmt.Errorf("stop time must be positive, got %v", c.StopTime))
	}
	if c.RelTolerance < 0 {
		errs = append(errs, fmt.Errorf("relative tolerance must be non-negative, got %g", c.RelTolerance))
	}
	if c.StallIterations < 1 {
		errs = append(errs, fmt.Errorf("stall iterations must be at least 1, got %d", c.StallIterations))
	}
	if c.MaxEvaluations < 0 {
		errs = append(errs, fmt.Errorf("max evaluations must be non-negative, got %d", c.MaxEvaluations))
	}
	if c.Algorithm == Grid && c.GridPoints < 2 {
		errs = append(errs, fmt.Errorf("grid search needs at least 2 points per dimension, got %d", c.GridPoints))
	}
	return errors.Join(errs...)
}

type Result struct {
	RunID  string `json:"run_id"`
	Regime string `json:"regime"`

	// Raw is the winning optimization vector as the optimizer returned it.
	Raw     []float64 `json:"raw"`
	Welfare float64   `json:"welfare"`

	Mitigation *mat.Dense `json:"-"`
	// TaxPath is the full-horizon global tax; nil for the utilitarian regime.
	TaxPath []float64 `json:"tax_path,omitempty"`
	// CarbonPrice is T×R: the broadcast tax, or the model's implied regional
	// prices for the utilitarian regime.
	CarbonPrice *mat.Dense `json:"-"`

	Termination Termination   `json:"termination"`
	Status      string        `json:"status"`
	Evaluations int           `json:"evaluations"`
	Starts      int           `json:"starts"`
	Elapsed     time.Duration `json:"elapsed"`

	// Model is the instance after the final authoritative run.
	Model model.Model `json:"-"`
}

type Optimizer struct {
	cfg    Config
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Optimizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Optimizer{cfg: cfg, logger: logger}
}

// outcome is the best point a single search found.
type outcome struct {
	x           []float64
	welfare     float64
	termination Termination
	status      string
	evaluations int
}

// Optimize maximizes welfare over the regime's policy vector. Hitting the
// stop time or exhausting the algorithm still yields a result; evaluation
// failures abort the run and are returned.
func (o *Optimizer) Optimize(ctx context.Context, backstop *mat.Dense, regime objective.Regime, params model.Params, factory model.Factory) (*Result, error) {
	if err := o.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("optim: invalid config: %w", err)
	}
	problem, err := NewProblem(regime, o.cfg.NOptPeriods, backstop)
	if err != nil {
		return nil, fmt.Errorf("optim: %w", err)
	}

	runID := uuid.NewString()
	log := o.logger.With(
		zap.String("run_id", runID),
		zap.String("regime", regime.Name()),
		zap.String("algorithm", o.cfg.Algorithm),
	)
	log.Info("configured",
		zap.Int("dim", problem.Dim),
		zap.Int("periods", o.cfg.NOptPeriods),
		zap.Duration("stop_time", o.cfg.StopTime),
		zap.Float64("rel_tolerance", o.cfg.RelTolerance),
		zap.Int("starts", o.cfg.Starts))

	start := time.Now()
	var (
		best *outcome
		obj  *objective.Objective
		evs  int
	)
	if o.cfg.Starts <= 1 {
		obj, err = objective.Build(regime, params, backstop, factory, log)
		if err != nil {
			return nil, err
		}
		log.Debug("evaluating")
		best, err = o.search(ctx, obj, problem, problem.Start, log)
		if err != nil {
			return nil, fmt.Errorf("optim: run %s: %w", runID, err)
		}
		evs = best.evaluations
	} else {
		best, obj, evs, err = o.multiStart(ctx, problem, regime, params, backstop, factory, log)
		if err != nil {
			return nil, fmt.Errorf("optim: run %s: %w", runID, err)
		}
	}
	log.Info(best.termination.String(),
		zap.String("status", best.status),
		zap.Float64("welfare", best.welfare),
		zap.Int("evaluations", evs))

	res, err := o.finalize(ctx, obj, best, backstop)
	if err != nil {
		return nil, fmt.Errorf("optim: run %s: finalize: %w", runID, err)
	}
	res.RunID = runID
	res.Evaluations = evs
	res.Starts = max(o.cfg.Starts, 1)
	res.Elapsed = time.Since(start)
	log.Info("finalized", zap.Float64("welfare", res.Welfare), zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

// finalize rebuilds the full-horizon policy from the winning vector and runs
// the model once more under it.
func (o *Optimizer) finalize(ctx context.Context, obj *objective.Objective, best *outcome, backstop *mat.Dense) (*Result, error) {
	regime := obj.Regime()
	mitigation, err := regime.Embed(best.x, backstop)
	if err != nil {
		return nil, err
	}
	welfare, err := obj.Install(ctx, mitigation)
	if err != nil {
		return nil, err
	}
	tax, prices, err := regime.Prices(best.x, backstop, obj.Model())
	if err != nil {
		return nil, err
	}
	return &Result{
		Regime:      regime.Name(),
		Raw:         best.x,
		Welfare:     welfare,
		Mitigation:  mitigation,
		TaxPath:     tax,
		CarbonPrice: prices,
		Termination: best.termination,
		Status:      best.status,
		Model:       obj.Model(),
	}, nil
}
