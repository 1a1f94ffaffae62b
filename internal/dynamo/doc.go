// Package dynamo provides core primitives for dynamical systems.
//
// The package defines the fundamental interfaces and types for numerical
// simulation of ordinary differential equations (ODEs):
//
//   - [State]: vector representing system state
//   - [System]: interface for ODE systems (dX/dt = f(X, t))
//   - [Parametric]: systems with named, settable rate constants
//   - [Integrator]: numerical stepper interface
//
// # Example
//
//	sys := models.NewLotkaVolterra()
//	integ := integrators.NewRK4()
//	x := sys.DefaultState()
//	x = integ.Step(sys, x, 0, 0.01)
//
// # Thread Safety
//
// Systems and integrators are NOT thread-safe; integrators reuse scratch
// buffers and parametric systems mutate in place. Parallel callers must
// construct their own instances.
package dynamo
