// Package petab describes parameter-estimation problems as plain data:
// a model reference, a parameter table (free/fixed, nominal values,
// estimation scale), observables, simulation conditions and measured
// data. Problems are loaded from a single YAML file and are read-only
// after validation.
package petab
