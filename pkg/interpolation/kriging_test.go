package interpolation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// threePoint is a 1 target + 2 parent covariance with hand-computable inverse
func threePoint() *mat.SymDense {
	return mat.NewSymDense(3, []float64{
		2, 1, 0.5,
		1, 2, 0.3,
		0.5, 0.3, 1,
	})
}

func TestKrigeClosedForm(t *testing.T) {
	// Sigma = [[2, 0.3], [0.3, 1]], det = 1.91, c = [1, 0.5]
	// Sigma^-1 c = [0.85, 0.7] / 1.91
	pred, err := Krige(threePoint(), []float64{1, 0, 2}, []float64{1, 3}, false)
	require.NoError(t, err)

	assert.InDelta(t, 1+(0.85*1+0.7*1)/1.91, pred.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(2-(0.85*1+0.7*0.5)/1.91), pred.Sd, 1e-12)
}

func TestKrigeSingleParent(t *testing.T) {
	r := math.Exp(-0.5)
	cov := mat.NewSymDense(2, []float64{1, r, r, 1})

	pred, err := Krige(cov, []float64{0.2, -0.1}, []float64{0.7}, false)
	require.NoError(t, err)
	assert.InDelta(t, 0.2+r*(0.7+0.1), pred.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(1-r*r), pred.Sd, 1e-12)
}

func TestKrigeNoParents(t *testing.T) {
	pred, err := Krige(mat.NewSymDense(1, []float64{4}), []float64{1.5}, nil, true)
	require.NoError(t, err)
	assert.Equal(t, Prediction{Mean: 1.5, Sd: 2}, pred)
}

// The local mean moves the mean only
func TestInterpolatedMean(t *testing.T) {
	values := []float64{1, 3}

	simple, err := Krige(threePoint(), []float64{1, 0, 2}, values, false)
	require.NoError(t, err)
	local, err := Krige(threePoint(), []float64{1, 0, 2}, values, true)
	require.NoError(t, err)
	ignored, err := Krige(threePoint(), []float64{-50, 10, 20}, values, true)
	require.NoError(t, err)

	assert.InDelta(t, simple.Sd, local.Sd, 1e-15)
	assert.Equal(t, local, ignored, "supplied means must not matter")

	// GLS mean: Sigma^-1 1 = [0.7, 1.7] / 1.91
	mu := (0.7*1 + 1.7*3) / (0.7 + 1.7)
	assert.InDelta(t, mu+(0.85*(1-mu)+0.7*(3-mu))/1.91, local.Mean, 1e-12)
}

func TestInterpolatedMeanConstantField(t *testing.T) {
	pred, err := Krige(threePoint(), []float64{0, 0, 0}, []float64{4, 4}, true)
	require.NoError(t, err)
	assert.InDelta(t, 4, pred.Mean, 1e-12)
}

func TestKrigeNotPositiveDefinite(t *testing.T) {
	testCases := []struct {
		name string
		cov  *mat.SymDense
	}{
		{"indefinite parents", mat.NewSymDense(3, []float64{
			1, 0.5, 0.5,
			0.5, 1, 2,
			0.5, 2, 1,
		})},
		{"duplicated parents", mat.NewSymDense(3, []float64{
			1, 0.5, 0.5,
			0.5, 1, 1,
			0.5, 1, 1,
		})},
		{"target equals parent", mat.NewSymDense(2, []float64{
			1, 1,
			1, 1,
		})},
		{"negative marginal", mat.NewSymDense(1, []float64{-1})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := tc.cov.SymmetricDim()
			_, err := Krige(tc.cov, make([]float64, n), make([]float64, n-1), false)
			assert.ErrorIs(t, err, ErrNotPositiveDefinite)
		})
	}
}

func TestKrigeSizeMismatch(t *testing.T) {
	_, err := Krige(threePoint(), []float64{0, 0}, []float64{1, 2}, false)
	assert.Error(t, err, "short mean vector")

	_, err = Krige(threePoint(), []float64{0, 0, 0}, []float64{1}, false)
	assert.Error(t, err, "short value vector")
}
