// Package analysis provides post-fit diagnostics built on repeated
// model evaluations.
package analysis

import (
	"context"
	"math"

	"github.com/mhelwig/odefit/internal/optim"
)

// ProfilePoint is one point of a likelihood profile.
type ProfilePoint struct {
	Value float64
	LLH   float64
}

// ProfileLikelihood sweeps one parameter across grid while holding the
// others at ref, evaluating the model at each point. Failed evaluations
// score -Inf, like everywhere else in the estimation stack.
func ProfileLikelihood(ctx context.Context, eval optim.Evaluator, ref map[string]float64,
	param string, grid []float64) ([]ProfilePoint, error) {

	points := make([]ProfilePoint, 0, len(grid))
	for _, v := range grid {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		params := make(map[string]float64, len(ref))
		for k, rv := range ref {
			params[k] = rv
		}
		params[param] = v

		llh, err := eval(ctx, params)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			llh = math.Inf(-1)
		}
		points = append(points, ProfilePoint{Value: v, LLH: llh})
	}
	return points, nil
}

// Peak returns the index of the highest-likelihood point, or -1 for an
// empty profile.
func Peak(points []ProfilePoint) int {
	best := -1
	bestLLH := math.Inf(-1)
	for i, p := range points {
		if p.LLH > bestLLH {
			bestLLH = p.LLH
			best = i
		}
	}
	return best
}
