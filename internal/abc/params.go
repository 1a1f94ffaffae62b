package abc

import (
	"errors"
	"fmt"
)

// ErrParameterCount indicates a parameter vector whose length does not
// match the number of free parameters.
var ErrParameterCount = errors.New("abc: parameter vector length mismatch")

// ParameterInput is the caller-facing parameter representation: either
// an ordered Vector zipped positionally against the free-parameter id
// list, or an explicit Assignment by id. Normalization always returns a
// fresh map, so Evaluate never mutates caller-owned data.
type ParameterInput interface {
	assignment(freeIDs []string) (map[string]float64, error)
}

// Vector is an ordered parameter input; position i belongs to the i-th
// free parameter id.
type Vector []float64

func (v Vector) assignment(freeIDs []string) (map[string]float64, error) {
	if len(v) != len(freeIDs) {
		return nil, fmt.Errorf("%w: got %d values for %d free parameters",
			ErrParameterCount, len(v), len(freeIDs))
	}
	par := make(map[string]float64, len(v))
	for i, id := range freeIDs {
		par[id] = v[i]
	}
	return par, nil
}

// Assignment maps parameter ids to values.
type Assignment map[string]float64

func (a Assignment) assignment([]string) (map[string]float64, error) {
	par := make(map[string]float64, len(a))
	for id, v := range a {
		par[id] = v
	}
	return par, nil
}
