package models

import (
	"fmt"

	"github.com/mhelwig/odefit/internal/dynamo"
)

// LotkaVolterra is the classic predator-prey system. State is
// (prey, predator).
type LotkaVolterra struct{ alpha, beta, gamma, delta float64 }

func NewLotkaVolterra() *LotkaVolterra { return &LotkaVolterra{1.1, 0.4, 0.4, 0.1} }

func (l *LotkaVolterra) StateDim() int { return 2 }

func (l *LotkaVolterra) Derive(s dynamo.State, _ float64) dynamo.State {
	prey, pred := s[0], s[1]
	return dynamo.State{
		l.alpha*prey - l.beta*prey*pred,
		l.delta*prey*pred - l.gamma*pred,
	}
}

func (l *LotkaVolterra) DefaultState() dynamo.State { return dynamo.State{10.0, 5.0} }

func (l *LotkaVolterra) ParamNames() []string {
	return []string{"alpha", "beta", "gamma", "delta"}
}

func (l *LotkaVolterra) Params() map[string]float64 {
	return map[string]float64{"alpha": l.alpha, "beta": l.beta, "gamma": l.gamma, "delta": l.delta}
}

func (l *LotkaVolterra) SetParam(name string, v float64) error {
	switch name {
	case "alpha":
		l.alpha = v
	case "beta":
		l.beta = v
	case "gamma":
		l.gamma = v
	case "delta":
		l.delta = v
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
	return nil
}
