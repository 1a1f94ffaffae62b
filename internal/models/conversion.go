package models

import (
	"fmt"

	"github.com/mhelwig/odefit/internal/dynamo"
)

// Conversion is a reversible two-species conversion reaction A <-> B
// with forward rate k1 and backward rate k2.
type Conversion struct{ k1, k2 float64 }

func NewConversion() *Conversion { return &Conversion{0.08, 0.6} }

func (c *Conversion) StateDim() int { return 2 }

func (c *Conversion) Derive(s dynamo.State, _ float64) dynamo.State {
	flux := c.k1*s[0] - c.k2*s[1]
	return dynamo.State{-flux, flux}
}

func (c *Conversion) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

func (c *Conversion) ParamNames() []string { return []string{"k1", "k2"} }

func (c *Conversion) Params() map[string]float64 {
	return map[string]float64{"k1": c.k1, "k2": c.k2}
}

func (c *Conversion) SetParam(name string, v float64) error {
	switch name {
	case "k1":
		c.k1 = v
	case "k2":
		c.k2 = v
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
	return nil
}
