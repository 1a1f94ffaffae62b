package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhelwig/odefit/internal/petab"
)

func conversionProblem() *petab.Problem {
	return &petab.Problem{
		Name:      "conversion-test",
		ModelName: "conversion",
		Parameters: []petab.Parameter{
			{ID: "k1", Scale: petab.ScaleLog10, Nominal: 0.08, Estimate: true, LowerBound: 1e-3, UpperBound: 1},
			{ID: "k2", Scale: petab.ScaleLog10, Nominal: 0.6, Estimate: false, LowerBound: 1e-3, UpperBound: 1},
		},
		Observables: []petab.Observable{
			{ID: "obs_b", StateIndex: 1, NoiseSD: 0.02},
		},
		Conditions: []petab.Condition{
			{ID: "c0", InitialState: []float64{1, 0}},
		},
		Measurements: []petab.Measurement{
			{ObservableID: "obs_b", ConditionID: "c0", Time: 1.0, Value: 0.07},
			{ObservableID: "obs_b", ConditionID: "c0", Time: 2.0, Value: 0.12},
			{ObservableID: "obs_b", ConditionID: "c0", Time: 5.0, Value: 0.11},
		},
	}
}

func TestImportProblem(t *testing.T) {
	p := conversionProblem()

	model, err := ImportProblem(p)
	require.NoError(t, err)
	assert.Equal(t, "conversion", model.Name())
	assert.Equal(t, 2, model.StateDim())
}

func TestImportProblem_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*petab.Problem)
	}{
		{"unknown model", func(p *petab.Problem) { p.ModelName = "warp_drive" }},
		{"unknown parameter", func(p *petab.Problem) { p.Parameters[0].ID = "k9" }},
		{"unknown override", func(p *petab.Problem) {
			p.Conditions[0].Overrides = map[string]float64{"k9": 1}
		}},
		{"bad initial state dim", func(p *petab.Problem) {
			p.Conditions[0].InitialState = []float64{1, 0, 0}
		}},
		{"observable out of range", func(p *petab.Problem) { p.Observables[0].StateIndex = 7 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := conversionProblem()
			tt.mutate(p)
			_, err := ImportProblem(p)
			assert.Error(t, err)
		})
	}
}

func TestSimulate_Deterministic(t *testing.T) {
	p := conversionProblem()
	model, err := ImportProblem(p)
	require.NoError(t, err)
	solver := model.NewSolver()

	params := map[string]float64{"k1": 0.08, "k2": 0.6}

	r1, err := Simulate(context.Background(), p, model, solver, params, false)
	require.NoError(t, err)
	r2, err := Simulate(context.Background(), p, model, solver, params, false)
	require.NoError(t, err)

	require.Len(t, r1.Conditions, 1)
	assert.Equal(t, StatusOK, r1.Conditions[0].Status)
	assert.False(t, math.IsInf(r1.LLH, 0), "llh should be finite at nominal")
	assert.Equal(t, r1.LLH, r2.LLH, "simulation must be deterministic")
}

func TestSimulate_ResultShape(t *testing.T) {
	p := conversionProblem()
	model, err := ImportProblem(p)
	require.NoError(t, err)

	res, err := Simulate(context.Background(), p, model, model.NewSolver(),
		map[string]float64{"k1": 0.08, "k2": 0.6}, false)
	require.NoError(t, err)

	cr := res.Conditions[0]
	assert.Equal(t, []float64{1, 2, 5}, cr.Times)
	require.Len(t, cr.Observables, 3)
	for _, row := range cr.Observables {
		assert.Len(t, row, 1)
	}
	assert.Len(t, cr.States, 3)
	assert.Greater(t, cr.Chi2, 0.0)
	assert.Greater(t, cr.RMSE, 0.0)
}

func TestSimulate_MatchesClosedForm(t *testing.T) {
	p := conversionProblem()
	model, err := ImportProblem(p)
	require.NoError(t, err)
	solver := model.NewSolver()
	solver.Dt = 0.001

	k1, k2 := 0.08, 0.6
	res, err := Simulate(context.Background(), p, model, solver,
		map[string]float64{"k1": k1, "k2": k2}, false)
	require.NoError(t, err)

	// x_b(t) = k1/(k1+k2) * (1 - exp(-(k1+k2) t)) for x0 = (1, 0)
	cr := res.Conditions[0]
	for i, tp := range cr.Times {
		want := k1 / (k1 + k2) * (1 - math.Exp(-(k1+k2)*tp))
		assert.InDelta(t, want, cr.Observables[i][0], 1e-6, "t=%v", tp)
	}
}

func TestSimulate_ScaledParameters(t *testing.T) {
	p := conversionProblem()
	model, err := ImportProblem(p)
	require.NoError(t, err)
	solver := model.NewSolver()

	linear, err := Simulate(context.Background(), p, model, solver,
		map[string]float64{"k1": 0.08, "k2": 0.6}, false)
	require.NoError(t, err)

	scaled, err := Simulate(context.Background(), p, model, solver,
		map[string]float64{"k1": math.Log10(0.08), "k2": math.Log10(0.6)}, true)
	require.NoError(t, err)

	assert.InDelta(t, linear.LLH, scaled.LLH, 1e-12)
}

func TestSimulate_ConditionOverrideWins(t *testing.T) {
	p := conversionProblem()
	// with k1 forced to zero, no B is ever produced
	p.Conditions = append(p.Conditions, petab.Condition{
		ID:           "c_blocked",
		InitialState: []float64{1, 0},
		Overrides:    map[string]float64{"k1": 0},
	})
	p.Measurements = append(p.Measurements,
		petab.Measurement{ObservableID: "obs_b", ConditionID: "c_blocked", Time: 5.0, Value: 0.0})

	model, err := ImportProblem(p)
	require.NoError(t, err)

	res, err := Simulate(context.Background(), p, model, model.NewSolver(),
		map[string]float64{"k1": 0.08, "k2": 0.6}, false)
	require.NoError(t, err)

	require.Len(t, res.Conditions, 2)
	blocked := res.Conditions[1]
	assert.InDelta(t, 0.0, blocked.Observables[0][0], 1e-12,
		"override k1=0 must beat the caller-supplied k1")

	// and the override must not leak back into the first condition
	res2, err := Simulate(context.Background(), p, model, model.NewSolver(),
		map[string]float64{"k1": 0.08, "k2": 0.6}, false)
	require.NoError(t, err)
	assert.Equal(t, res.Conditions[0].LLH, res2.Conditions[0].LLH)
}

func TestSimulate_DivergenceIsFailedCondition(t *testing.T) {
	p := &petab.Problem{
		Name:      "blowup",
		ModelName: "logistic",
		Parameters: []petab.Parameter{
			{ID: "r", Scale: petab.ScaleLin, Nominal: 1, Estimate: true},
			{ID: "k", Scale: petab.ScaleLin, Nominal: 10, Estimate: false},
		},
		Observables:  []petab.Observable{{ID: "obs_x", StateIndex: 0, NoiseSD: 0.1}},
		Conditions:   []petab.Condition{{ID: "c0", InitialState: []float64{0.1}}},
		Measurements: []petab.Measurement{{ObservableID: "obs_x", ConditionID: "c0", Time: 10, Value: 5}},
	}
	model, err := ImportProblem(p)
	require.NoError(t, err)
	solver := model.NewSolver()
	solver.Method = MethodEuler

	res, err := Simulate(context.Background(), p, model, solver,
		map[string]float64{"r": 1e8}, false)
	require.NoError(t, err, "divergence is not a simulation error")

	assert.Equal(t, StatusFailed, res.Conditions[0].Status)
	assert.True(t, math.IsInf(res.LLH, -1), "diverged run scores -Inf")
}

func TestSimulate_StructuralErrors(t *testing.T) {
	p := conversionProblem()
	model, err := ImportProblem(p)
	require.NoError(t, err)

	t.Run("unknown scaled parameter id", func(t *testing.T) {
		_, err := Simulate(context.Background(), p, model, model.NewSolver(),
			map[string]float64{"k9": 1}, true)
		assert.Error(t, err)
	})

	t.Run("sensitivities unsupported", func(t *testing.T) {
		solver := model.NewSolver()
		solver.SetSensitivityOrder(1)
		_, err := Simulate(context.Background(), p, model, solver,
			map[string]float64{"k1": 0.08}, false)
		assert.Error(t, err)
	})

	t.Run("bad dt", func(t *testing.T) {
		solver := model.NewSolver()
		solver.Dt = 0
		_, err := Simulate(context.Background(), p, model, solver,
			map[string]float64{"k1": 0.08}, false)
		assert.Error(t, err)
	})
}

func TestSimulate_ContextCancel(t *testing.T) {
	p := conversionProblem()
	model, err := ImportProblem(p)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = Simulate(ctx, p, model, model.NewSolver(),
		map[string]float64{"k1": 0.08, "k2": 0.6}, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSimulate_AdaptiveMethod(t *testing.T) {
	p := conversionProblem()
	model, err := ImportProblem(p)
	require.NoError(t, err)

	fixed := model.NewSolver()
	fixed.Dt = 0.001

	adaptive := model.NewSolver()
	adaptive.Method = MethodRK45
	adaptive.RelTol = 1e-9

	rFixed, err := Simulate(context.Background(), p, model, fixed,
		map[string]float64{"k1": 0.08, "k2": 0.6}, false)
	require.NoError(t, err)
	rAdaptive, err := Simulate(context.Background(), p, model, adaptive,
		map[string]float64{"k1": 0.08, "k2": 0.6}, false)
	require.NoError(t, err)

	assert.InDelta(t, rFixed.LLH, rAdaptive.LLH, 1e-4)
}
