// Package gaussian wraps the Gaussian density and sampling primitives used
// by the engine: a small joint (multivariate) block and univariate
// conditionals. Joint blocks are always mean-zero; callers centre the
// values or add the mean back themselves.
package gaussian

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrNotPositiveDefinite is returned when a joint covariance cannot be
// Cholesky factorised.
var ErrNotPositiveDefinite = errors.New("gaussian: covariance is not positive definite")

func factorize(cov mat.Symmetric) (*mat.Cholesky, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(cov); !ok {
		return nil, fmt.Errorf("%w (dimension %d)", ErrNotPositiveDefinite, cov.SymmetricDim())
	}
	return &chol, nil
}

// JointLogDensity returns the log-density of a mean-zero multivariate normal
// with covariance cov evaluated at the centred vector x.
func JointLogDensity(cov mat.Symmetric, x []float64) (float64, error) {
	if n := cov.SymmetricDim(); n != len(x) {
		return 0, fmt.Errorf("gaussian: covariance dimension %d does not match vector length %d", n, len(x))
	}
	chol, err := factorize(cov)
	if err != nil {
		return 0, err
	}
	return distmv.NormalLogProb(x, make([]float64, len(x)), chol), nil
}

// JointSample draws one mean-zero sample with covariance cov. A nil src uses
// the package-level source of golang.org/x/exp/rand.
func JointSample(cov mat.Symmetric, src rand.Source) ([]float64, error) {
	chol, err := factorize(cov)
	if err != nil {
		return nil, err
	}
	n := cov.SymmetricDim()
	return distmv.NormalRand(nil, make([]float64, n), chol, src), nil
}

// LogDensity returns the univariate normal log-density of x.
func LogDensity(x, mean, sd float64) float64 {
	return distuv.Normal{Mu: mean, Sigma: sd}.LogProb(x)
}

// Sample draws one univariate normal value.
func Sample(mean, sd float64, src rand.Source) float64 {
	return distuv.Normal{Mu: mean, Sigma: sd, Src: src}.Rand()
}

// Entropy returns the differential entropy of a univariate normal with the
// given standard deviation.
func Entropy(sd float64) float64 {
	return 0.5*math.Log(2*math.Pi*math.E) + math.Log(sd)
}
