package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhelwig/odefit/internal/optim"
)

func TestProfileLikelihood(t *testing.T) {
	eval := func(ctx context.Context, params map[string]float64) (float64, error) {
		d := params["a"] - 0.5
		return -d * d, nil
	}

	grid := optim.Range(0, 1, 11)
	points, err := ProfileLikelihood(context.Background(), eval, map[string]float64{"a": 0, "b": 7}, "a", grid)
	require.NoError(t, err)
	require.Len(t, points, 11)

	peak := Peak(points)
	assert.InDelta(t, 0.5, points[peak].Value, 1e-12)
	assert.InDelta(t, 0.0, points[peak].LLH, 1e-12)

	// profile is unimodal around the peak
	for i := 1; i <= peak; i++ {
		assert.GreaterOrEqual(t, points[i].LLH, points[i-1].LLH)
	}
	for i := peak + 1; i < len(points); i++ {
		assert.LessOrEqual(t, points[i].LLH, points[i-1].LLH)
	}
}

func TestProfileLikelihood_HoldsOthersAtRef(t *testing.T) {
	var sawB float64
	eval := func(ctx context.Context, params map[string]float64) (float64, error) {
		sawB = params["b"]
		return 0, nil
	}

	_, err := ProfileLikelihood(context.Background(), eval,
		map[string]float64{"a": 0, "b": 7}, "a", []float64{1})
	require.NoError(t, err)
	assert.Equal(t, 7.0, sawB)
}

func TestProfileLikelihood_FailedPointIsNegInf(t *testing.T) {
	eval := func(ctx context.Context, params map[string]float64) (float64, error) {
		if params["a"] == 1 {
			return 0, errors.New("diverged")
		}
		return 0, nil
	}

	points, err := ProfileLikelihood(context.Background(), eval, nil, "a", []float64{0, 1, 2})
	require.NoError(t, err)
	assert.True(t, math.IsInf(points[1].LLH, -1))
	assert.Equal(t, 0.0, points[0].LLH)
}

func TestPeak_Empty(t *testing.T) {
	assert.Equal(t, -1, Peak(nil))
}
