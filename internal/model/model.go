// Package model defines the contract with the economic simulation model that
// turns a mitigation policy into welfare.
//
// The model itself is a black box owned elsewhere. This package only fixes
// how a policy is installed, how the model is executed and how outputs are
// read back, plus the discounting parameters it is built with.
//
// # Thread Safety
//
// A [Model] is a single-owner mutable handle. Every SetPolicy/Run pair
// rewrites its internal simulation state, so one instance must never be
// driven from two goroutines. Parallel searches build one instance each via
// a [Factory].
package model

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Component, parameter and variable names understood by regional models.
const (
	ComponentEmissions = "emissions"
	ComponentWelfare   = "welfare"

	// ParamMitigation is the T×R emission control rate.
	ParamMitigation = "MIU"

	// VarCarbonPrice is the T×R carbon price implied by the installed policy.
	VarCarbonPrice = "CPRICE"
	// VarUtility is the aggregate discounted utility, read as a 1×1 matrix.
	VarUtility = "UTILITY"
)

// Discounting used whenever Negishi weights are on.
const (
	NegishiRho = 0.015
	NegishiEta = 1.5
)

var (
	ErrUnknownOutput = errors.New("model: unknown component or variable")
	ErrNoPolicy      = errors.New("model: no policy installed")
	ErrNotRun        = errors.New("model: outputs read before a completed run")
	ErrPolicyShape   = errors.New("model: policy matrix has wrong shape")
	ErrUnstable      = errors.New("model: simulation produced non-finite or infeasible values")
)

// Params parameterizes model construction.
type Params struct {
	Rho        float64 `json:"rho"`
	Eta        float64 `json:"eta"`
	UseNegishi bool    `json:"use_negishi"`
}

// Effective returns the parameters a model is actually built with.
//
// With Negishi weights on, the model runs with its calibrated discounting
// (ρ=0.015, η=1.5) and the caller's Rho and Eta are ignored. This is a
// modeling convention: Negishi weights are only meaningful against the
// calibration they were computed for.
func (p Params) Effective() Params {
	if p.UseNegishi {
		p.Rho = NegishiRho
		p.Eta = NegishiEta
	}
	return p
}

type Model interface {
	// SetPolicy installs a matrix as parameter of a component.
	SetPolicy(component, parameter string, m *mat.Dense) error
	// Run executes the full simulation under the installed parameters.
	Run(ctx context.Context) error
	// Output reads a scalar (1×1) or time-series output.
	Output(component, variable string) (*mat.Dense, error)
}

// Factory creates a fresh model instance for already-effective parameters.
type Factory func(p Params) (Model, error)

// RunError wraps a failure raised while installing a policy into, executing,
// or reading from a model.
type RunError struct {
	Op  string
	Err error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Op, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
