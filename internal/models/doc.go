// Package models provides the built-in parameterized ODE systems that
// estimation problems can reference by name.
//
// Each model implements dynamo.System, dynamo.Parametric and
// dynamo.InitialStater. The Registry resolves problem model names to
// fresh instances; engine.ImportProblem is the only caller that
// should need it directly.
package models
