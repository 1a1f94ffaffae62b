package abc

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhelwig/odefit/internal/engine"
)

// isolateTempDir points temporary-file creation at a fresh directory so
// the tests can assert nothing is left behind.
func isolateTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TMPDIR", dir)
	return dir
}

func requireEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary files must not survive")
}

func TestSnapshotRestore_RoundTrip(t *testing.T) {
	dir := isolateTempDir(t)

	p := conversionProblem()
	model, err := engine.ImportProblem(p)
	require.NoError(t, err)
	solver := model.NewSolver()
	solver.Method = engine.MethodRK45
	solver.RelTol = 1e-9

	imp, err := NewImporter(p, WithModel(model), WithSolver(solver))
	require.NoError(t, err)
	m := imp.CreateModel(ModelOptions{ReturnSimulations: true})

	in := Vector{math.Log10(0.1)}
	want, err := m.Evaluate(context.Background(), in)
	require.NoError(t, err)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	requireEmpty(t, dir)
	require.NotEmpty(t, snap.SolverSettings)

	restored, err := RestoreModel(snap)
	require.NoError(t, err)
	requireEmpty(t, dir)

	got, err := restored.Evaluate(context.Background(), in)
	require.NoError(t, err)

	assert.InDelta(t, want[LLHKey].(float64), got[LLHKey].(float64), 1e-12)
	assert.Equal(t, want[SimulationKey(0)], got[SimulationKey(0)])
}

func TestSnapshotRestore_SolverConfigurationSurvives(t *testing.T) {
	p := conversionProblem()
	model, err := engine.ImportProblem(p)
	require.NoError(t, err)

	// deliberately coarse solver: its llh differs measurably from the
	// default, so a restore that silently fell back to defaults would
	// show up here
	coarse := model.NewSolver()
	coarse.Method = engine.MethodEuler
	coarse.Dt = 0.5

	imp, err := NewImporter(p, WithModel(model), WithSolver(coarse))
	require.NoError(t, err)
	m := imp.CreateModel(ModelOptions{})

	in := Vector{math.Log10(0.1)}
	coarseRes, err := m.Evaluate(context.Background(), in)
	require.NoError(t, err)

	snap, err := m.Snapshot()
	require.NoError(t, err)
	restored, err := RestoreModel(snap)
	require.NoError(t, err)

	got, err := restored.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, coarseRes[LLHKey], got[LLHKey])

	defImp, err := NewImporter(p)
	require.NoError(t, err)
	defRes, err := defImp.CreateModel(ModelOptions{}).Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.NotEqual(t, defRes[LLHKey], got[LLHKey],
		"restored solver must carry the coarse settings, not defaults")
}

func TestSnapshot_ExportFailureCleansUp(t *testing.T) {
	dir := isolateTempDir(t)
	m := newTestModel(t, ModelOptions{})

	diskFull := errors.New("disk full")
	saved := writeSolverSettings
	writeSolverSettings = func(s *engine.Solver, path string) error { return diskFull }
	t.Cleanup(func() { writeSolverSettings = saved })

	_, err := m.Snapshot()
	assert.ErrorIs(t, err, diskFull)
	requireEmpty(t, dir)
}

func TestSnapshot_MissingCapabilityHint(t *testing.T) {
	dir := isolateTempDir(t)
	m := newTestModel(t, ModelOptions{})

	saved := writeSolverSettings
	writeSolverSettings = func(s *engine.Solver, path string) error {
		return engine.ErrSettingsCodecUnavailable
	}
	t.Cleanup(func() { writeSolverSettings = saved })

	_, err := m.Snapshot()
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrSettingsCodecUnavailable,
		"original failure preserved as context")
	assert.Contains(t, err.Error(), "solver settings support",
		"hint names the missing capability")
	assert.Contains(t, err.Error(), engine.ErrSettingsCodecUnavailable.Error(),
		"original message still present")
	requireEmpty(t, dir)
}

func TestRestore_MissingCapabilityHint(t *testing.T) {
	dir := isolateTempDir(t)
	m := newTestModel(t, ModelOptions{})

	snap, err := m.Snapshot()
	require.NoError(t, err)

	saved := readSolverSettings
	readSolverSettings = func(path string, s *engine.Solver) error {
		return engine.ErrSettingsCodecUnavailable
	}
	t.Cleanup(func() { readSolverSettings = saved })

	_, err = RestoreModel(snap)
	require.Error(t, err)
	assert.ErrorIs(t, err, engine.ErrSettingsCodecUnavailable)
	assert.Contains(t, err.Error(), "solver settings support")
	requireEmpty(t, dir)
}

func TestRestore_ImportFailureCleansUp(t *testing.T) {
	dir := isolateTempDir(t)
	m := newTestModel(t, ModelOptions{})

	snap, err := m.Snapshot()
	require.NoError(t, err)
	snap.Problem.ModelName = "no_such_model"

	_, err = RestoreModel(snap)
	assert.Error(t, err)
	requireEmpty(t, dir)
}

func TestSnapshot_EncodeDecode(t *testing.T) {
	m := newTestModel(t, ModelOptions{ReturnSimulations: true})

	snap, err := m.Snapshot()
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, snap.Encode(&buf))

	decoded, err := DecodeSnapshot(&buf)
	require.NoError(t, err)
	assert.Equal(t, snap, decoded)

	restored, err := RestoreModel(decoded)
	require.NoError(t, err)

	in := Vector{math.Log10(0.08)}
	want, err := m.Evaluate(context.Background(), in)
	require.NoError(t, err)
	got, err := restored.Evaluate(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, want[LLHKey], got[LLHKey])
}
