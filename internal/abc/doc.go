// Package abc adapts engine simulations to the shape an
// approximate-Bayesian-computation host framework expects.
//
// An [Importer] takes a parameter-estimation problem and produces two
// things: a [SimulatorModel], the unary callable the framework invokes
// once per candidate parameter set, and a [StochasticKernel] that
// exposes the precomputed log-likelihood as a log-scaled acceptance
// weight.
//
// The adapter contains no inference logic and no numerics of its own.
// Its one hard responsibility is crossing process boundaries: the
// compiled simulation model cannot be serialized, so
// [SimulatorModel.Snapshot] and [RestoreModel] split the callable into
// plain data (problem, id bookkeeping, a solver-settings byte blob) and
// a rebuild procedure.
package abc
