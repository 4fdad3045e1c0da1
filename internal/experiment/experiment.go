// Package experiment assembles a run from configuration: it resolves the
// backstop matrix, the regime and the model, then hands them to the
// optimizer.
package experiment

import (
	"context"
	"fmt"

	"github.com/FrankErrickson/Utilitarianism/internal/config"
	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"github.com/FrankErrickson/Utilitarianism/internal/objective"
	"github.com/FrankErrickson/Utilitarianism/internal/optim"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

type Experiment struct {
	cfg      *config.Config
	registry *Registry
	logger   *zap.Logger

	backstop  *mat.Dense
	regime    objective.Regime
	factory   model.Factory
	optimizer *optim.Optimizer
}

func New(cfg *config.Config, registry *Registry, logger *zap.Logger) *Experiment {
	if registry == nil {
		registry = NewRegistry()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Experiment{cfg: cfg, registry: registry, logger: logger}
}

// OptimConfig maps the file configuration onto the optimizer's.
func OptimConfig(c config.OptimizerConfig) optim.Config {
	return optim.Config{
		Algorithm:       c.Algorithm,
		NOptPeriods:     c.Periods,
		StopTime:        c.StopTime,
		RelTolerance:    c.RelTolerance,
		StallIterations: c.StallIterations,
		MaxEvaluations:  c.MaxEvaluations,
		Starts:          c.Starts,
		Seed:            c.Seed,
		GridPoints:      c.GridPoints,
	}
}

func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	oc := OptimConfig(e.cfg.Optimizer)
	if err := oc.Validate(); err != nil {
		return fmt.Errorf("invalid optimizer config: %w", err)
	}

	backstop, err := LoadBackstop(e.cfg.Backstop)
	if err != nil {
		return err
	}
	regime, err := objective.ParseRegime(e.cfg.Regime)
	if err != nil {
		return err
	}
	factory, err := e.registry.GetModel(e.cfg.Model, backstop)
	if err != nil {
		return err
	}

	rows, cols := backstop.Dims()
	e.logger.Debug("experiment ready",
		zap.String("model", e.cfg.Model),
		zap.Int("periods", rows),
		zap.Int("regions", cols),
	)
	e.backstop = backstop
	e.regime = regime
	e.factory = factory
	e.optimizer = optim.New(oc, e.logger)
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*optim.Result, error) {
	if e.optimizer == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.optimizer.Optimize(ctx, e.backstop, e.regime, e.Params(), e.factory)
}

func (e *Experiment) Params() model.Params {
	return model.Params{Rho: e.cfg.Rho, Eta: e.cfg.Eta, UseNegishi: e.cfg.UseNegishi}
}

// Backstop returns the resolved matrix; nil before Setup.
func (e *Experiment) Backstop() *mat.Dense {
	return e.backstop
}
