package models

import (
	"fmt"

	"github.com/mhelwig/odefit/internal/dynamo"
)

// Logistic is single-species logistic growth with rate r and capacity k.
type Logistic struct{ r, k float64 }

func NewLogistic() *Logistic { return &Logistic{1.0, 10.0} }

func (l *Logistic) StateDim() int { return 1 }

func (l *Logistic) Derive(s dynamo.State, _ float64) dynamo.State {
	return dynamo.State{l.r * s[0] * (1.0 - s[0]/l.k)}
}

func (l *Logistic) DefaultState() dynamo.State { return dynamo.State{0.1} }

func (l *Logistic) ParamNames() []string { return []string{"r", "k"} }

func (l *Logistic) Params() map[string]float64 {
	return map[string]float64{"r": l.r, "k": l.k}
}

func (l *Logistic) SetParam(name string, v float64) error {
	switch name {
	case "r":
		l.r = v
	case "k":
		l.k = v
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
	return nil
}
