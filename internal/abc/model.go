package abc

import (
	"context"
	"fmt"

	"github.com/mhelwig/odefit/internal/engine"
	"github.com/mhelwig/odefit/internal/petab"
)

// Result is the mapping a model evaluation hands back to the host
// inference framework.
type Result map[string]any

// Keys of a Result.
const (
	// LLHKey holds the scalar log-likelihood; always present.
	LLHKey = "llh"
	// RawResultsKey holds the full per-condition result objects.
	// Large, and not meant to be persisted in a run store.
	RawResultsKey = "raw_results"
)

// SimulationKey names the simulated observable trajectory of the i-th
// condition.
func SimulationKey(i int) string { return fmt.Sprintf("y_%d", i) }

// Seams to the engine; tests substitute these to observe or fail calls.
var (
	simulateProblem     = engine.Simulate
	importProblem       = engine.ImportProblem
	writeSolverSettings = engine.WriteSolverSettings
	readSolverSettings  = engine.ReadSolverSettings
)

// SimulatorModel is the unary model callable handed to the inference
// framework: parameters in, log-likelihood (and optional trajectories)
// out. It owns its engine model and solver exclusively; the problem is
// shared and read-only.
//
// A SimulatorModel is not safe for concurrent use. Hosts that evaluate
// in parallel must give each worker its own copy via Snapshot/
// RestoreModel.
type SimulatorModel struct {
	problem *petab.Problem
	model   *engine.Model
	solver  *engine.Solver

	freeIDs     []string
	fixedIDs    []string
	fixedValues []float64

	returnSimulations bool
	returnRawResults  bool
}

// FreeParameterIDs returns the ids a Vector input is zipped against,
// in order.
func (m *SimulatorModel) FreeParameterIDs() []string {
	return append([]string(nil), m.freeIDs...)
}

// Evaluate simulates the problem at the given free-parameter values and
// returns the result mapping. Fixed parameters are merged in before
// simulating; their problem-defined values silently overwrite any
// caller-supplied value for the same id. Values are on the parameters'
// estimation scale.
//
// Engine failures propagate unchanged: a failing parameter set is for
// the host framework to classify, not for this layer to translate.
func (m *SimulatorModel) Evaluate(ctx context.Context, in ParameterInput) (Result, error) {
	par, err := in.assignment(m.freeIDs)
	if err != nil {
		return nil, err
	}

	// fixed parameters come from the problem, not the caller
	for i, id := range m.fixedIDs {
		par[id] = m.fixedValues[i]
	}

	sim, err := simulateProblem(ctx, m.problem, m.model, m.solver, par, true)
	if err != nil {
		return nil, err
	}

	ret := Result{LLHKey: sim.LLH}
	if m.returnSimulations {
		for i, cr := range sim.Conditions {
			ret[SimulationKey(i)] = cr.Observables
		}
	}
	if m.returnRawResults {
		ret[RawResultsKey] = sim.Conditions
	}
	return ret, nil
}
