package petab

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ParameterScale is the scale on which a parameter is estimated.
type ParameterScale string

const (
	ScaleLin   ParameterScale = "lin"
	ScaleLog10 ParameterScale = "log10"
)

// Parameter is one row of the parameter table. Nominal and the bounds are
// on the linear scale; scaling applies when values cross the estimation
// boundary.
type Parameter struct {
	ID         string         `yaml:"id"`
	Scale      ParameterScale `yaml:"scale"`
	Nominal    float64        `yaml:"nominal"`
	Estimate   bool           `yaml:"estimate"`
	LowerBound float64        `yaml:"lower_bound"`
	UpperBound float64        `yaml:"upper_bound"`
}

// Observable maps a state component to measured data with Gaussian noise.
type Observable struct {
	ID         string  `yaml:"id"`
	StateIndex int     `yaml:"state_index"`
	NoiseSD    float64 `yaml:"noise_sd"`
}

// Condition is one simulation condition: an optional initial state and
// parameter overrides that win over estimated values.
type Condition struct {
	ID           string             `yaml:"id"`
	InitialState []float64          `yaml:"initial_state,omitempty"`
	Overrides    map[string]float64 `yaml:"overrides,omitempty"`
}

// Measurement is one observed data point.
type Measurement struct {
	ObservableID string  `yaml:"observable"`
	ConditionID  string  `yaml:"condition"`
	Time         float64 `yaml:"time"`
	Value        float64 `yaml:"value"`
}

// Problem is a complete, immutable parameter-estimation problem
// description. Consumers must treat it as read-only.
type Problem struct {
	Name         string        `yaml:"name"`
	ModelName    string        `yaml:"model"`
	Integrator   string        `yaml:"integrator,omitempty"`
	Parameters   []Parameter   `yaml:"parameters"`
	Observables  []Observable  `yaml:"observables"`
	Conditions   []Condition   `yaml:"conditions"`
	Measurements []Measurement `yaml:"measurements"`
}

// Load reads and validates a problem file.
func Load(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p := &Problem{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse problem %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid problem %s: %w", path, err)
	}
	return p, nil
}

func Save(path string, p *Problem) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// ParameterIDs returns parameter identifiers filtered by estimation
// status, in table order. A parameter is free iff Estimate is set; the
// free and fixed sets partition the table.
func (p *Problem) ParameterIDs(free, fixed bool) []string {
	ids := make([]string, 0, len(p.Parameters))
	for _, par := range p.Parameters {
		if (par.Estimate && free) || (!par.Estimate && fixed) {
			ids = append(ids, par.ID)
		}
	}
	return ids
}

// NominalValues returns nominal parameter values with the same filtering
// as ParameterIDs. With scaled set, values are transformed to the
// parameter's estimation scale.
func (p *Problem) NominalValues(scaled, free, fixed bool) []float64 {
	vals := make([]float64, 0, len(p.Parameters))
	for _, par := range p.Parameters {
		if (par.Estimate && free) || (!par.Estimate && fixed) {
			v := par.Nominal
			if scaled {
				v = scaleValue(par.Scale, v)
			}
			vals = append(vals, v)
		}
	}
	return vals
}

// Parameter looks up a parameter row by id.
func (p *Problem) Parameter(id string) (*Parameter, bool) {
	for i := range p.Parameters {
		if p.Parameters[i].ID == id {
			return &p.Parameters[i], true
		}
	}
	return nil, false
}

// ScaleValue transforms a linear-scale value to the parameter's
// estimation scale.
func (p *Problem) ScaleValue(id string, v float64) (float64, error) {
	par, ok := p.Parameter(id)
	if !ok {
		return 0, fmt.Errorf("petab: unknown parameter %q", id)
	}
	return scaleValue(par.Scale, v), nil
}

// UnscaleValue transforms a value from the parameter's estimation scale
// back to the linear scale.
func (p *Problem) UnscaleValue(id string, v float64) (float64, error) {
	par, ok := p.Parameter(id)
	if !ok {
		return 0, fmt.Errorf("petab: unknown parameter %q", id)
	}
	return unscaleValue(par.Scale, v), nil
}

func scaleValue(scale ParameterScale, v float64) float64 {
	if scale == ScaleLog10 {
		return math.Log10(v)
	}
	return v
}

func unscaleValue(scale ParameterScale, v float64) float64 {
	if scale == ScaleLog10 {
		return math.Pow(10, v)
	}
	return v
}

// ConditionMeasurements returns the measurements of one condition, in
// table order.
func (p *Problem) ConditionMeasurements(conditionID string) []Measurement {
	ms := make([]Measurement, 0)
	for _, m := range p.Measurements {
		if m.ConditionID == conditionID {
			ms = append(ms, m)
		}
	}
	return ms
}

// ObservableIndex returns the position of an observable in table order.
func (p *Problem) ObservableIndex(id string) (int, bool) {
	for i, o := range p.Observables {
		if o.ID == id {
			return i, true
		}
	}
	return 0, false
}

// Validate checks internal consistency of the tables.
func (p *Problem) Validate() error {
	if p.ModelName == "" {
		return fmt.Errorf("model name is required")
	}
	if len(p.Parameters) == 0 {
		return fmt.Errorf("at least one parameter is required")
	}
	if len(p.Conditions) == 0 {
		return fmt.Errorf("at least one condition is required")
	}

	seen := make(map[string]bool)
	for _, par := range p.Parameters {
		if par.ID == "" {
			return fmt.Errorf("parameter with empty id")
		}
		if seen[par.ID] {
			return fmt.Errorf("duplicate parameter id %q", par.ID)
		}
		seen[par.ID] = true
		switch par.Scale {
		case ScaleLin, ScaleLog10, "":
		default:
			return fmt.Errorf("parameter %q: unsupported scale %q", par.ID, par.Scale)
		}
		if par.Scale == ScaleLog10 && par.Nominal <= 0 {
			return fmt.Errorf("parameter %q: log10 scale requires positive nominal, got %v", par.ID, par.Nominal)
		}
	}

	obs := make(map[string]bool)
	for _, o := range p.Observables {
		if obs[o.ID] {
			return fmt.Errorf("duplicate observable id %q", o.ID)
		}
		obs[o.ID] = true
		if o.NoiseSD <= 0 {
			return fmt.Errorf("observable %q: noise sd must be positive, got %v", o.ID, o.NoiseSD)
		}
		if o.StateIndex < 0 {
			return fmt.Errorf("observable %q: negative state index", o.ID)
		}
	}

	conds := make(map[string]bool)
	for _, c := range p.Conditions {
		if conds[c.ID] {
			return fmt.Errorf("duplicate condition id %q", c.ID)
		}
		conds[c.ID] = true
	}

	for i, m := range p.Measurements {
		if !obs[m.ObservableID] {
			return fmt.Errorf("measurement %d references unknown observable %q", i, m.ObservableID)
		}
		if !conds[m.ConditionID] {
			return fmt.Errorf("measurement %d references unknown condition %q", i, m.ConditionID)
		}
		if m.Time < 0 {
			return fmt.Errorf("measurement %d has negative time %v", i, m.Time)
		}
	}

	return nil
}
