package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolverSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "solver.bin")

	src := &Solver{
		Method:           MethodRK45,
		Dt:               0.005,
		AbsTol:           1e-10,
		RelTol:           1e-7,
		MaxSteps:         42,
		SensitivityOrder: 0,
	}
	require.NoError(t, WriteSolverSettings(src, path))

	dst := &Solver{Method: MethodEuler, Dt: 1}
	require.NoError(t, ReadSolverSettings(path, dst))

	assert.Equal(t, src, dst)
}

func TestReadSolverSettings_BadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bin")
	require.NoError(t, os.WriteFile(path, []byte("definitely not solver settings"), 0o644))

	err := ReadSolverSettings(path, &Solver{})
	assert.ErrorContains(t, err, "not a solver settings file")
}

func TestReadSolverSettings_Truncated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.bin")
	require.NoError(t, os.WriteFile(path, []byte("OD"), 0o644))

	err := ReadSolverSettings(path, &Solver{})
	assert.Error(t, err)
}

func TestSolverSettings_CodecUnavailable(t *testing.T) {
	saved := activeCodec
	activeCodec = nil
	defer func() { activeCodec = saved }()

	path := filepath.Join(t.TempDir(), "solver.bin")

	err := WriteSolverSettings(&Solver{}, path)
	assert.ErrorIs(t, err, ErrSettingsCodecUnavailable)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be created without a codec")

	err = ReadSolverSettings(path, &Solver{})
	assert.ErrorIs(t, err, ErrSettingsCodecUnavailable)
}
