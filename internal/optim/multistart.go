package optim

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/FrankErrickson/Utilitarianism/internal/model"
	"github.com/FrankErrickson/Utilitarianism/internal/objective"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// startPoints returns the midpoint followed by Starts-1 points drawn
// uniformly in the box from Seed.
func (o *Optimizer) startPoints(p *Problem) [][]float64 {
	n := max(o.cfg.Starts, 1)
	points := make([][]float64, n)
	points[0] = append([]float64(nil), p.Start...)
	for i := 1; i < n; i++ {
		src := rand.NewPCG(o.cfg.Seed, uint64(i))
		x := make([]float64, p.Dim)
		for d := range x {
			if p.Upper[d] <= p.Lower[d] {
				x[d] = p.Lower[d]
				continue
			}
			x[d] = distuv.Uniform{Min: p.Lower[d], Max: p.Upper[d], Src: src}.Rand()
		}
		points[i] = x
	}
	return points
}

// multiStart runs one search per start point concurrently. Every worker owns
// its own Objective and therefore its own model instance; nothing mutable is
// shared between them. The first failure cancels the remaining workers.
func (o *Optimizer) multiStart(
	ctx context.Context,
	p *Problem,
	regime objective.Regime,
	params model.Params,
	backstop *mat.Dense,
	factory model.Factory,
	log *zap.Logger,
) (*outcome, *objective.Objective, int, error) {
	starts := o.startPoints(p)
	outcomes := make([]*outcome, len(starts))
	objs := make([]*objective.Objective, len(starts))

	g, gctx := errgroup.WithContext(ctx)
	for i := range starts {
		g.Go(func() error {
			wlog := log.With(zap.Int("start", i))
			obj, err := objective.Build(regime, params, backstop, factory, wlog)
			if err != nil {
				return err
			}
			objs[i] = obj
			wlog.Debug("evaluating")
			out, err := o.search(gctx, obj, p, starts[i], wlog)
			if err != nil {
				return fmt.Errorf("start %d: %w", i, err)
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}

	best, total := 0, 0
	for i, out := range outcomes {
		total += out.evaluations
		if out.welfare > outcomes[best].welfare {
			best = i
		}
	}
	return outcomes[best], objs[best], total, nil
}
