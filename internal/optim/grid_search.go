package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("pkg", "optim")

// Evaluator scores one parameter assignment; higher is better. An error
// marks the point as rejected (scored -Inf), mirroring how the host
// inference framework classifies failed simulations.
type Evaluator func(ctx context.Context, params map[string]float64) (float64, error)

// Progress is a snapshot of a running search, delivered to the
// progress callback after every evaluation.
type Progress struct {
	Evaluations int
	Total       int
	Params      map[string]float64
	LLH         float64
	Best        map[string]float64
	BestLLH     float64
}

// GridSearch exhaustively evaluates the cartesian product of per-parameter
// grids and keeps the best-scoring point.
type GridSearch struct {
	paramNames []string
	grids      [][]float64
	onProgress func(Progress)
}

func NewGridSearch(params []string, grids [][]float64) (*GridSearch, error) {
	if len(params) != len(grids) {
		return nil, fmt.Errorf("optim: %d parameters but %d grids", len(params), len(grids))
	}
	for i, g := range grids {
		if len(g) == 0 {
			return nil, fmt.Errorf("optim: empty grid for parameter %q", params[i])
		}
	}
	return &GridSearch{paramNames: params, grids: grids}, nil
}

// OnProgress registers a callback invoked after every evaluation.
func (g *GridSearch) OnProgress(fn func(Progress)) { g.onProgress = fn }

// Total returns the number of grid points.
func (g *GridSearch) Total() int {
	total := 1
	for _, grid := range g.grids {
		total *= len(grid)
	}
	return total
}

// Search runs the full grid and returns the best parameters and score.
func (g *GridSearch) Search(ctx context.Context, eval Evaluator) (map[string]float64, float64, error) {
	best := math.Inf(-1)
	var bestParams map[string]float64
	evals := 0
	total := g.Total()

	var walk func(depth int, current map[string]float64) error
	walk = func(depth int, current map[string]float64) error {
		if depth == len(g.paramNames) {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			llh, err := eval(ctx, current)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.WithError(err).WithField("params", current).Debug("point rejected")
				llh = math.Inf(-1)
			}
			evals++

			if llh > best {
				best = llh
				bestParams = cloneParams(current)
			}
			if g.onProgress != nil {
				g.onProgress(Progress{
					Evaluations: evals,
					Total:       total,
					Params:      cloneParams(current),
					LLH:         llh,
					Best:        cloneParams(bestParams),
					BestLLH:     best,
				})
			}
			return nil
		}

		name := g.paramNames[depth]
		for _, val := range g.grids[depth] {
			current[name] = val
			if err := walk(depth+1, current); err != nil {
				return err
			}
		}
		delete(current, name)
		return nil
	}

	if err := walk(0, make(map[string]float64)); err != nil {
		return nil, 0, err
	}
	return bestParams, best, nil
}

// Range returns n evenly spaced values across [lo, hi].
func Range(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	vals := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range vals {
		vals[i] = lo + float64(i)*step
	}
	return vals
}

func cloneParams(m map[string]float64) map[string]float64 {
	if m == nil {
		return nil
	}
	c := make(map[string]float64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
