package engine

import (
	"fmt"

	"github.com/mhelwig/odefit/internal/dynamo"
	"github.com/mhelwig/odefit/internal/integrators"
)

// Method selects the numerical integration scheme.
type Method string

const (
	MethodEuler Method = "euler"
	MethodRK4   Method = "rk4"
	MethodRK45  Method = "rk45"
)

// Solver holds the mutable numerical configuration of a simulation run.
// It is cheap to copy and, unlike Model, fully serializable through
// WriteSolverSettings/ReadSolverSettings.
type Solver struct {
	Method           Method
	Dt               float64
	AbsTol           float64
	RelTol           float64
	MaxSteps         int
	SensitivityOrder int
}

// SetSensitivityOrder configures forward sensitivity computation.
// Only order 0 (no sensitivities) is currently simulatable.
func (s *Solver) SetSensitivityOrder(order int) { s.SensitivityOrder = order }

func (s *Solver) Clone() *Solver {
	c := *s
	return &c
}

func (s *Solver) validate() error {
	if s.Dt <= 0 {
		return fmt.Errorf("solver: dt must be positive, got %v", s.Dt)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("solver: max steps must be positive, got %d", s.MaxSteps)
	}
	if s.Method == MethodRK45 && s.RelTol <= 0 {
		return fmt.Errorf("solver: rel tol must be positive for adaptive stepping, got %v", s.RelTol)
	}
	switch s.Method {
	case MethodEuler, MethodRK4, MethodRK45:
		return nil
	default:
		return fmt.Errorf("solver: unknown method %q", s.Method)
	}
}

func (s *Solver) integrator() (dynamo.Integrator, error) {
	switch s.Method {
	case MethodEuler:
		return integrators.NewEuler(), nil
	case MethodRK4:
		return integrators.NewRK4(), nil
	case MethodRK45:
		return integrators.NewRK45(), nil
	default:
		return nil, fmt.Errorf("solver: unknown method %q", s.Method)
	}
}
