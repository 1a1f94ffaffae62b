package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhelwig/odefit/internal/abc"
)

func testResult() abc.Result {
	return abc.Result{
		abc.LLHKey:           -42.5,
		abc.SimulationKey(0): [][]float64{{0.1}, {0.2}, {0.3}},
		abc.RawResultsKey:    "opaque live objects",
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())

	params := map[string]float64{"k1": 0.08}
	runID, err := s.SaveResult("conversion-test", "conversion", "evaluate", params,
		map[string]float64{"chi2": 1.5}, testResult())
	require.NoError(t, err)

	meta, err := s.Load(runID)
	require.NoError(t, err)
	assert.Equal(t, "conversion-test", meta.Problem)
	assert.Equal(t, "conversion", meta.Model)
	assert.Equal(t, "evaluate", meta.Kind)
	assert.Equal(t, -42.5, meta.LLH)
	assert.Equal(t, params, meta.Params)
	assert.Equal(t, 1.5, meta.Metrics["chi2"])
}

func TestStore_TrajectoryRoundTrip(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())

	runID, err := s.SaveResult("p", "m", "evaluate", nil, nil, testResult())
	require.NoError(t, err)

	traj, err := s.Trajectory(runID, abc.SimulationKey(0))
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1}, {0.2}, {0.3}}, traj)
}

func TestStore_RawResultsNeverPersisted(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Init())

	runID, err := s.SaveResult("p", "m", "evaluate", nil, nil, testResult())
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(dir, runID))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), abc.RawResultsKey)
	}
}

func TestStore_List(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())

	_, err := s.SaveResult("first", "m", "evaluate", nil, nil, testResult())
	require.NoError(t, err)
	_, err = s.SaveResult("second", "m", "fit", nil, nil, testResult())
	require.NoError(t, err)

	runs, err := s.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "second", runs[0].Problem, "newest first")
}

func TestStore_ListEmptyBaseDir(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "never-created"))
	runs, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestStore_ExportJSON(t *testing.T) {
	s := New(t.TempDir())
	require.NoError(t, s.Init())

	runID, err := s.SaveResult("p", "m", "evaluate", nil, nil, testResult())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, s.ExportJSON(runID, &buf))
	assert.Contains(t, buf.String(), `"llh": -42.5`)
}

func TestStore_LoadUnknownRun(t *testing.T) {
	s := New(t.TempDir())
	_, err := s.Load("nope")
	assert.Error(t, err)
}
