package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/mhelwig/odefit/internal/dynamo"
	"github.com/mhelwig/odefit/internal/petab"
)

// Status of a single condition simulation.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ConditionResult holds the raw output of one simulated condition:
// observable trajectories at the measurement timepoints, the underlying
// states, and goodness-of-fit numbers against the condition's data.
type ConditionResult struct {
	ConditionID string
	Status      string
	Times       []float64
	Observables [][]float64 // rows follow Times, columns follow problem observable order
	States      []dynamo.State
	LLH         float64
	Chi2        float64
	RMSE        float64
}

// Result is the output of one Simulate call.
type Result struct {
	LLH        float64
	Conditions []*ConditionResult
}

// Simulate runs every condition of the problem with the given parameter
// values and accumulates the Gaussian log-likelihood against the
// measurement table. With scaled set, values are on each parameter's
// estimation scale and are transformed back before being applied.
//
// Solver non-convergence (a diverging trajectory) is reported as a
// failed condition with LLH -Inf, not as an error; structural problems
// (unknown parameter ids, dimension mismatches, bad solver settings)
// are errors.
func Simulate(ctx context.Context, problem *petab.Problem, model *Model, solver *Solver,
	params map[string]float64, scaled bool) (*Result, error) {

	if err := solver.validate(); err != nil {
		return nil, err
	}
	if solver.SensitivityOrder != 0 {
		return nil, fmt.Errorf("engine: sensitivity order %d not supported", solver.SensitivityOrder)
	}

	linear := make(map[string]float64, len(params))
	for id, v := range params {
		if scaled {
			lv, err := problem.UnscaleValue(id, v)
			if err != nil {
				return nil, err
			}
			linear[id] = lv
		} else {
			linear[id] = v
		}
	}

	result := &Result{Conditions: make([]*ConditionResult, 0, len(problem.Conditions))}

	for i := range problem.Conditions {
		cond := &problem.Conditions[i]

		cr, err := simulateCondition(ctx, problem, model, solver, cond, linear)
		if err != nil {
			return nil, err
		}
		result.Conditions = append(result.Conditions, cr)
		result.LLH += cr.LLH
	}

	log.WithFields(logrus.Fields{
		"problem":    problem.Name,
		"conditions": len(result.Conditions),
		"llh":        result.LLH,
	}).Debug("simulation finished")

	return result, nil
}

func simulateCondition(ctx context.Context, problem *petab.Problem, model *Model, solver *Solver,
	cond *petab.Condition, linear map[string]float64) (*ConditionResult, error) {

	if err := model.applyParams(linear, cond.Overrides); err != nil {
		return nil, fmt.Errorf("condition %q: %w", cond.ID, err)
	}
	x0, err := model.initialState(cond)
	if err != nil {
		return nil, err
	}

	meas := problem.ConditionMeasurements(cond.ID)
	times := measurementTimes(meas)

	cr := &ConditionResult{
		ConditionID: cond.ID,
		Status:      StatusOK,
		Times:       times,
		Observables: make([][]float64, 0, len(times)),
		States:      make([]dynamo.State, 0, len(times)),
	}

	states, ok, err := sampleTrajectory(ctx, model.sys, solver, x0, times)
	if err != nil {
		return nil, err
	}
	if !ok {
		cr.Status = StatusFailed
		cr.LLH = math.Inf(-1)
		log.WithFields(logrus.Fields{
			"condition": cond.ID,
			"model":     model.name,
		}).Debug("trajectory diverged")
		return cr, nil
	}
	cr.States = states

	timeRow := make(map[float64]int, len(times))
	for i, t := range times {
		row := make([]float64, len(problem.Observables))
		for j, obs := range problem.Observables {
			row[j] = states[i][obs.StateIndex]
		}
		cr.Observables = append(cr.Observables, row)
		timeRow[t] = i
	}

	sumSq := 0.0
	for _, m := range meas {
		col, _ := problem.ObservableIndex(m.ObservableID)
		obs := problem.Observables[col]
		ySim := cr.Observables[timeRow[m.Time]][col]

		res := (ySim - m.Value) / obs.NoiseSD
		cr.LLH += -0.5*math.Log(2*math.Pi*obs.NoiseSD*obs.NoiseSD) - 0.5*res*res
		cr.Chi2 += res * res
		sumSq += (ySim - m.Value) * (ySim - m.Value)
	}
	if len(meas) > 0 {
		cr.RMSE = math.Sqrt(sumSq / float64(len(meas)))
	}

	return cr, nil
}

// sampleTrajectory integrates from t=0 and returns the states at the
// requested timepoints (linearly interpolated between steps). The bool
// is false when the trajectory left the finite domain.
func sampleTrajectory(ctx context.Context, sys dynamo.System, solver *Solver,
	x0 dynamo.State, times []float64) ([]dynamo.State, bool, error) {

	integ, err := solver.integrator()
	if err != nil {
		return nil, false, err
	}
	adaptive, isAdaptive := integ.(dynamo.AdaptiveIntegrator)

	out := make([]dynamo.State, 0, len(times))
	if !x0.IsValid() {
		return nil, false, nil
	}

	next := 0
	for next < len(times) && times[next] <= 0 {
		out = append(out, x0.Clone())
		next++
	}

	x := x0
	t := 0.0
	dt := solver.Dt

	for step := 0; next < len(times); step++ {
		if step >= solver.MaxSteps {
			return nil, false, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		default:
		}

		var xNew dynamo.State
		h := dt
		if isAdaptive {
			var stepErr error
			xNew, dt, stepErr = adaptive.StepAdaptive(sys, x, t, h, solver.RelTol)
			if stepErr != nil {
				return nil, false, nil
			}
		} else {
			xNew = integ.Step(sys, x, t, h)
		}
		if !xNew.IsValid() {
			return nil, false, nil
		}

		tNew := t + h
		for next < len(times) && times[next] <= tNew {
			frac := (times[next] - t) / h
			sample := make(dynamo.State, len(x))
			for i := range x {
				sample[i] = x[i] + frac*(xNew[i]-x[i])
			}
			out = append(out, sample)
			next++
		}

		x = xNew
		t = tNew
	}

	return out, true, nil
}

func measurementTimes(meas []petab.Measurement) []float64 {
	seen := make(map[float64]bool, len(meas))
	times := make([]float64, 0, len(meas))
	for _, m := range meas {
		if !seen[m.Time] {
			seen[m.Time] = true
			times = append(times, m.Time)
		}
	}
	sort.Float64s(times)
	return times
}
