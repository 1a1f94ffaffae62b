package engine

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mhelwig/odefit/internal/dynamo"
	"github.com/mhelwig/odefit/internal/models"
	"github.com/mhelwig/odefit/internal/petab"
)

var log = logrus.WithField("pkg", "engine")

// Model is a compiled simulation model: instantiated dynamics bound to a
// problem's observables and conditions. Models hold live state, are not
// serializable, and must be rebuilt from the problem descriptor when
// crossing a process boundary.
type Model struct {
	name     string
	sys      dynamo.System
	par      dynamo.Parametric
	baseline map[string]float64
}

// ImportProblem compiles a problem into a Model. This is the expensive
// construction step: registry lookup, parameter binding and structural
// validation all happen here.
func ImportProblem(p *petab.Problem) (*Model, error) {
	sys, err := models.Default().Build(p.ModelName)
	if err != nil {
		return nil, fmt.Errorf("import problem %q: %w", p.Name, err)
	}
	par, ok := sys.(dynamo.Parametric)
	if !ok {
		return nil, fmt.Errorf("import problem %q: model %q has no settable parameters", p.Name, p.ModelName)
	}

	known := make(map[string]bool, len(par.ParamNames()))
	for _, name := range par.ParamNames() {
		known[name] = true
	}
	for _, param := range p.Parameters {
		if !known[param.ID] {
			return nil, fmt.Errorf("import problem %q: parameter %q not declared by model %q",
				p.Name, param.ID, p.ModelName)
		}
	}
	for _, cond := range p.Conditions {
		for id := range cond.Overrides {
			if !known[id] {
				return nil, fmt.Errorf("import problem %q: condition %q overrides unknown parameter %q",
					p.Name, cond.ID, id)
			}
		}
		if len(cond.InitialState) > 0 && len(cond.InitialState) != sys.StateDim() {
			return nil, fmt.Errorf("import problem %q: condition %q initial state has dim %d, model wants %d: %w",
				p.Name, cond.ID, len(cond.InitialState), sys.StateDim(), dynamo.ErrDimensionMismatch)
		}
	}
	for _, obs := range p.Observables {
		if obs.StateIndex >= sys.StateDim() {
			return nil, fmt.Errorf("import problem %q: observable %q state index %d out of range (dim %d)",
				p.Name, obs.ID, obs.StateIndex, sys.StateDim())
		}
	}

	m := &Model{
		name:     p.ModelName,
		sys:      sys,
		par:      par,
		baseline: par.Params(),
	}

	log.WithFields(logrus.Fields{
		"problem": p.Name,
		"model":   p.ModelName,
		"dim":     sys.StateDim(),
	}).Debug("compiled simulation model")

	return m, nil
}

func (m *Model) Name() string { return m.name }

func (m *Model) StateDim() int { return m.sys.StateDim() }

// NewSolver returns a solver with default numerical settings for this model.
func (m *Model) NewSolver() *Solver {
	return &Solver{
		Method:           MethodRK4,
		Dt:               0.01,
		AbsTol:           1e-8,
		RelTol:           1e-6,
		MaxSteps:         1_000_000,
		SensitivityOrder: 0,
	}
}

// applyParams resets the dynamics to the import-time baseline, then
// applies the given linear-scale values, then the condition overrides.
// Overrides win; the baseline keeps one condition's overrides from
// leaking into the next.
func (m *Model) applyParams(linear map[string]float64, overrides map[string]float64) error {
	for name, v := range m.baseline {
		if err := m.par.SetParam(name, v); err != nil {
			return err
		}
	}
	for name, v := range linear {
		if err := m.par.SetParam(name, v); err != nil {
			return err
		}
	}
	for name, v := range overrides {
		if err := m.par.SetParam(name, v); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) initialState(cond *petab.Condition) (dynamo.State, error) {
	if len(cond.InitialState) > 0 {
		return dynamo.State(cond.InitialState).Clone(), nil
	}
	if is, ok := m.sys.(dynamo.InitialStater); ok {
		return is.DefaultState(), nil
	}
	return nil, fmt.Errorf("condition %q has no initial state and model %q has no default", cond.ID, m.name)
}
