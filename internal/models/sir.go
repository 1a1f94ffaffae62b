package models

import (
	"fmt"

	"github.com/mhelwig/odefit/internal/dynamo"
)

// SIR is the susceptible-infected-recovered epidemic model with contact
// rate beta, recovery rate gamma and population size n.
type SIR struct{ beta, gamma, n float64 }

func NewSIR() *SIR { return &SIR{0.3, 0.1, 1000.0} }

func (m *SIR) StateDim() int { return 3 }

func (m *SIR) Derive(s dynamo.State, _ float64) dynamo.State {
	sus, inf := s[0], s[1]
	newInf := m.beta * sus * inf / m.n
	rec := m.gamma * inf
	return dynamo.State{-newInf, newInf - rec, rec}
}

func (m *SIR) DefaultState() dynamo.State { return dynamo.State{990.0, 10.0, 0.0} }

func (m *SIR) ParamNames() []string { return []string{"beta", "gamma", "n"} }

func (m *SIR) Params() map[string]float64 {
	return map[string]float64{"beta": m.beta, "gamma": m.gamma, "n": m.n}
}

func (m *SIR) SetParam(name string, v float64) error {
	switch name {
	case "beta":
		m.beta = v
	case "gamma":
		m.gamma = v
	case "n":
		m.n = v
	default:
		return fmt.Errorf("%w: %q", dynamo.ErrUnknownParam, name)
	}
	return nil
}
