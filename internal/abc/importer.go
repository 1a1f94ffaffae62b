package abc

import (
	"github.com/sirupsen/logrus"

	"github.com/mhelwig/odefit/internal/engine"
	"github.com/mhelwig/odefit/internal/petab"
)

var log = logrus.WithField("pkg", "abc")

// Importer builds inference-facing callables from a problem
// description. It compiles the simulation model once (expensive) and
// hands out model callables and acceptance kernels that share it.
type Importer struct {
	problem *petab.Problem
	model   *engine.Model
	solver  *engine.Solver

	freeParameters  bool
	fixedParameters bool
}

type ImporterOption func(*Importer)

// WithModel injects an already compiled model, skipping ImportProblem.
func WithModel(m *engine.Model) ImporterOption {
	return func(imp *Importer) { imp.model = m }
}

// WithSolver injects a pre-configured solver instead of the model default.
func WithSolver(s *engine.Solver) ImporterOption {
	return func(imp *Importer) { imp.solver = s }
}

// WithFreeParameters controls whether ESTIMATE=1 parameters are
// estimated (default true).
func WithFreeParameters(v bool) ImporterOption {
	return func(imp *Importer) { imp.freeParameters = v }
}

// WithFixedParameters controls whether ESTIMATE=0 parameters are
// estimated (default false).
func WithFixedParameters(v bool) ImporterOption {
	return func(imp *Importer) { imp.fixedParameters = v }
}

func NewImporter(problem *petab.Problem, opts ...ImporterOption) (*Importer, error) {
	imp := &Importer{
		problem:        problem,
		freeParameters: true,
	}
	for _, opt := range opts {
		opt(imp)
	}

	if imp.model == nil {
		model, err := importProblem(problem)
		if err != nil {
			return nil, err
		}
		imp.model = model
	}
	if imp.solver == nil {
		imp.solver = imp.model.NewSolver()
	}

	log.WithFields(logrus.Fields{
		"problem": problem.Name,
		"model":   imp.model.Name(),
	}).Debug("importer ready")

	return imp, nil
}

// ModelOptions select which fields an evaluation result carries beyond
// the log-likelihood.
type ModelOptions struct {
	// ReturnSimulations adds the simulated observable trajectories,
	// one entry per condition (large, can be persisted).
	ReturnSimulations bool
	// ReturnRawResults adds the full per-condition result objects
	// (large, cannot be persisted).
	ReturnRawResults bool
}

// CreateModel builds the model callable. Since simulations are
// deterministic ODE solutions, storing them is usually unnecessary:
// they can be reproduced from the parameters.
func (imp *Importer) CreateModel(opts ModelOptions) *SimulatorModel {
	freeIDs := imp.problem.ParameterIDs(imp.freeParameters, imp.fixedParameters)
	fixedIDs := imp.problem.ParameterIDs(!imp.freeParameters, !imp.fixedParameters)
	fixedVals := imp.problem.NominalValues(true, !imp.freeParameters, !imp.fixedParameters)

	// no gradients in ABC
	imp.solver.SetSensitivityOrder(0)

	return &SimulatorModel{
		problem:           imp.problem,
		model:             imp.model,
		solver:            imp.solver,
		freeIDs:           freeIDs,
		fixedIDs:          fixedIDs,
		fixedValues:       fixedVals,
		returnSimulations: opts.ReturnSimulations,
		returnRawResults:  opts.ReturnRawResults,
	}
}
