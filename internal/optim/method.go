package optim

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/optimize"
)

// Termination is how a search ended. None of the values is an error.
type Termination int

const (
	// Converged: relative improvement fell below the tolerance (or the
	// method reached its own optimality test).
	Converged Termination = iota
	// TimedOut: the wall-clock stop time was reached first.
	TimedOut
	// Exhausted: the algorithm ran out of moves or evaluations.
	Exhausted
)

func (t Termination) String() string {
	switch t {
	case Converged:
		return "converged"
	case TimedOut:
		return "timed_out"
	case Exhausted:
		return "exhausted"
	}
	return fmt.Sprintf("termination(%d)", int(t))
}

func (t Termination) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func classify(s optimize.Status) Termination {
	switch s {
	case optimize.Success, optimize.FunctionConvergence, optimize.GradientThreshold,
		optimize.StepConvergence, optimize.FunctionThreshold:
		return Converged
	case optimize.RuntimeLimit:
		return TimedOut
	}
	return Exhausted
}

const (
	NelderMead      = "nelder-mead"
	CMAES           = "cmaes"
	LBFGS           = "lbfgs"
	BFGS            = "bfgs"
	GradientDescent = "gradient-descent"
	Grid            = "grid"
)

type algorithm struct {
	gradient bool
	build    func(seed uint64) optimize.Method
}

// Simplex and step sizes are in the sine-transformed space, where the whole
// box spans [-π/2, π/2].
var algorithms = map[string]algorithm{
	NelderMead: {build: func(uint64) optimize.Method {
		return &optimize.NelderMead{SimplexSize: 0.5}
	}},
	CMAES: {build: func(seed uint64) optimize.Method {
		return &optimize.CmaEsChol{InitStepSize: 0.5, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	}},
	LBFGS:           {gradient: true, build: func(uint64) optimize.Method { return &optimize.LBFGS{} }},
	BFGS:            {gradient: true, build: func(uint64) optimize.Method { return &optimize.BFGS{} }},
	GradientDescent: {gradient: true, build: func(uint64) optimize.Method { return &optimize.GradientDescent{} }},
}

// Algorithms lists every accepted algorithm id.
func Algorithms() []string {
	names := make([]string, 0, len(algorithms)+1)
	for name := range algorithms {
		names = append(names, name)
	}
	names = append(names, Grid)
	sort.Strings(names)
	return names
}

func lookupAlgorithm(name string) (algorithm, error) {
	a, ok := algorithms[name]
	if !ok && name != Grid {
		return algorithm{}, fmt.Errorf("unknown algorithm: %s (available: %v)", name, Algorithms())
	}
	return a, nil
}
