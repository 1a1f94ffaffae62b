// Package engine turns problem descriptions into runnable simulations.
//
// A [Model] is the compiled form of a petab.Problem: live dynamics plus
// parameter bindings. It is expensive to build (ImportProblem) and not
// serializable. A [Solver] is the numerical configuration; it is plain
// data and can round-trip through the engine's structured-binary
// settings format. [Simulate] runs all conditions and scores them
// against the measurement table with a Gaussian log-likelihood.
//
// Neither Model nor Solver is safe for concurrent use; parallel callers
// need their own instances.
package engine
