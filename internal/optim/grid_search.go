package optim

import (
	"context"
	"fmt"
	"math"
	"time"
)

// maxGridEvaluations keeps an exhaustive grid from being started on a
// problem it could never finish.
const maxGridEvaluations = 1_000_000

// GridSearch evaluates every point of a regular grid over the box and keeps
// the best. It finishes as Exhausted, or TimedOut once the stop time passes.
type GridSearch struct {
	points   int
	stopTime time.Duration
	maxEvals int
}

func NewGridSearch(points int, stopTime time.Duration, maxEvals int) *GridSearch {
	return &GridSearch{points: points, stopTime: stopTime, maxEvals: maxEvals}
}

type gridState struct {
	eval     func(context.Context, []float64) (float64, error)
	deadline time.Time
	best     float64
	bestX    []float64
	evals    int
	timedOut bool
}

func (g *GridSearch) Search(
	ctx context.Context,
	eval func(context.Context, []float64) (float64, error),
	lower, upper []float64,
) (*outcome, error) {
	total := math.Pow(float64(g.points), float64(len(lower)))
	if total > maxGridEvaluations || (g.maxEvals > 0 && total > float64(g.maxEvals)) {
		return nil, fmt.Errorf("grid: %d^%d points exceed the evaluation budget", g.points, len(lower))
	}

	st := &gridState{
		eval:     eval,
		deadline: time.Now().Add(g.stopTime),
		best:     math.Inf(-1),
	}
	if err := g.searchRecursive(ctx, 0, make([]float64, len(lower)), lower, upper, st); err != nil {
		return nil, err
	}

	term, status := Exhausted, "GridExhausted"
	if st.timedOut {
		term, status = TimedOut, "RuntimeLimit"
	}
	return &outcome{
		x:           st.bestX,
		welfare:     st.best,
		termination: term,
		status:      status,
		evaluations: st.evals,
	}, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current []float64,
	lower, upper []float64,
	st *gridState,
) error {
	if st.timedOut {
		return nil
	}
	if depth == len(current) {
		// At least one point is always scored so a result exists.
		if st.evals > 0 && time.Now().After(st.deadline) {
			st.timedOut = true
			return nil
		}
		val, err := st.eval(ctx, current)
		if err != nil {
			return err
		}
		st.evals++
		if val > st.best {
			st.best = val
			st.bestX = append(st.bestX[:0], current...)
		}
		return nil
	}

	step := (upper[depth] - lower[depth]) / float64(g.points-1)
	for k := 0; k < g.points; k++ {
		current[depth] = lower[depth] + float64(k)*step
		if k == g.points-1 {
			current[depth] = upper[depth]
		}
		if err := g.searchRecursive(ctx, depth+1, current, lower, upper, st); err != nil {
			return err
		}
	}
	return nil
}
