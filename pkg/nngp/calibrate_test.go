package nngp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/lawlerem/staRVe/pkg/covariance"
	"github.com/lawlerem/staRVe/pkg/interpolation"
)

// TestCalibrationAverageForecastSd checks that after construction the
// average conditional sd reproduces the scale the kernel was built with
func TestCalibrationAverageForecastSd(t *testing.T) {
	for _, model := range []covariance.Model{covariance.Exponential, covariance.Matern32, covariance.Matern52} {
		kern := newKernel(t, model, 2, 1.5)
		inputScale := kern.Scale()

		// Single-member root: the marginal step leaves the range alone
		e, err := New(kern, lineField, lineMean, lineGraph(t, lineXs, 1, 2))
		require.NoError(t, err)

		avg, err := e.AverageForecastSd()
		require.NoError(t, err)
		assert.InDelta(t, inputScale, avg, 1e-9, "model %v", model)
		assert.InDelta(t, 2, kern.Range(), 1e-9, "model %v", model)
	}
}

// TestCalibrationSteps replays both calibration steps by hand
func TestCalibrationSteps(t *testing.T) {
	g := lineGraph(t, lineXs, 3, 2)
	kern := newKernel(t, covariance.Matern32, 1.2, 0.8)
	manual := kern.Clone()
	inputScale := kern.Scale()

	_, err := New(kern, lineField, lineMean, g)
	require.NoError(t, err)

	ref, err := New(manual, lineField, lineMean, g, WithCalibration(false))
	require.NoError(t, err)
	avg, err := ref.AverageForecastSd()
	require.NoError(t, err)
	manual.SetScale(inputScale / (avg / inputScale))

	// Right after the scale step the invariant is exact
	afterScale, err := ref.AverageForecastSd()
	require.NoError(t, err)
	assert.InDelta(t, inputScale, afterScale, 1e-9)

	// First root member conditioned on the remaining members
	means := make([]float64, 3)
	values := []float64{lineField[1], lineField[2]}
	pred, err := interpolation.Krige(manual.Covariance(g.Root.Dists), means, values, false)
	require.NoError(t, err)
	manual.SetMarginalSd(pred.Sd)

	assert.InDelta(t, manual.MarginalSd(), kern.MarginalSd(), 1e-12)
	assert.InDelta(t, manual.Range(), kern.Range(), 1e-12)
	assert.InDelta(t, manual.Scale(), kern.Scale(), 1e-12)
}

func TestCalibrationSkippedForRootOnlyGraph(t *testing.T) {
	g, err := NewGraph([][]int{{0, 1, 2}}, []mat.Symmetric{distMatrix([]float64{0, 1, 3})})
	require.NoError(t, err)

	kern := newKernel(t, covariance.Exponential, 1.5, 0.9)
	e, err := New(kern, []float64{1, 2, 3}, []float64{0, 0, 0}, g)
	require.NoError(t, err)

	assert.Equal(t, 1.5, kern.Range())
	assert.Equal(t, 0.9, kern.MarginalSd())

	_, err = e.AverageForecastSd()
	assert.ErrorIs(t, err, ErrInvalidGraph)

	ll, err := e.LogLikelihood()
	require.NoError(t, err)
	assert.False(t, math.IsNaN(ll))
}
