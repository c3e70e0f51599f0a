// Package interpolation implements the kriging block used by the
// nearest-neighbour engine: Gaussian conditioning of one target location on
// a small set of parent locations.
package interpolation

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNotPositiveDefinite is returned when the parent covariance cannot be
// factorised or the conditional variance is not strictly positive.
var ErrNotPositiveDefinite = errors.New("interpolation: covariance is not positive definite")

// Prediction is the conditional distribution of a target location.
type Prediction struct {
	Mean float64
	Sd   float64
}

// Krige computes the conditional mean and standard deviation of the target
// (row/column 0 of cov) given observed values at its parents (rows/columns
// 1..p of cov).
//
// With interpolateMean false the standard simple kriging formulas are used:
//
//	mean = means[0] + c' Sigma^-1 (values - means[1:])
//	var  = cov[0][0] - c' Sigma^-1 c
//
// With interpolateMean true the supplied means are ignored and replaced by a
// generalised least squares estimate of a constant local mean,
// mu = (1' Sigma^-1 values) / (1' Sigma^-1 1), which is used for the target
// and the parents alike. The same weights c' Sigma^-1 apply, so the result
// is the ordinary kriging predictor and the variance does not change.
//
// means has one entry per row of cov, target first, and values one per
// parent. A parent covariance that cannot be factorised, or a conditional
// variance that is not strictly positive, yields ErrNotPositiveDefinite.
func Krige(cov mat.Symmetric, means, values []float64, interpolateMean bool) (Prediction, error) {
	n := cov.SymmetricDim()
	p := n - 1
	if n < 1 {
		return Prediction{}, fmt.Errorf("interpolation: empty covariance matrix")
	}
	if len(means) != n {
		return Prediction{}, fmt.Errorf("interpolation: %d means for %d locations", len(means), n)
	}
	if len(values) != p {
		return Prediction{}, fmt.Errorf("interpolation: %d parent values for %d parents", len(values), p)
	}

	// No parents: the conditional is the marginal
	if p == 0 {
		return marginal(cov.At(0, 0), means[0])
	}

	sigma := mat.NewSymDense(p, nil)
	cross := mat.NewVecDense(p, nil)
	for i := 0; i < p; i++ {
		cross.SetVec(i, cov.At(0, i+1))
		for j := i; j < p; j++ {
			sigma.SetSym(i, j, cov.At(i+1, j+1))
		}
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(sigma); !ok {
		return Prediction{}, fmt.Errorf("%w: parent covariance (%d parents)", ErrNotPositiveDefinite, p)
	}

	// Kriging weights w = Sigma^-1 c
	var weights mat.VecDense
	if err := chol.SolveVecTo(&weights, cross); err != nil {
		return Prediction{}, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}

	variance := cov.At(0, 0) - mat.Dot(cross, &weights)
	if math.IsNaN(variance) || variance <= 0 {
		return Prediction{}, fmt.Errorf("%w: conditional variance %g", ErrNotPositiveDefinite, variance)
	}

	targetMean := means[0]
	parentMeans := means[1:]
	if interpolateMean {
		mu, err := localMean(&chol, values)
		if err != nil {
			return Prediction{}, err
		}
		targetMean = mu
		parentMeans = make([]float64, p)
		for i := range parentMeans {
			parentMeans[i] = mu
		}
	}

	residuals := make([]float64, p)
	floats.SubTo(residuals, values, parentMeans)

	return Prediction{
		Mean: targetMean + floats.Dot(weights.RawVector().Data, residuals),
		Sd:   math.Sqrt(variance),
	}, nil
}

func marginal(variance, mean float64) (Prediction, error) {
	if math.IsNaN(variance) || variance <= 0 {
		return Prediction{}, fmt.Errorf("%w: marginal variance %g", ErrNotPositiveDefinite, variance)
	}
	return Prediction{Mean: mean, Sd: math.Sqrt(variance)}, nil
}

// localMean is the generalised least squares estimate of a constant mean
// shared by the parents.
func localMean(chol *mat.Cholesky, values []float64) (float64, error) {
	p := len(values)
	ones := make([]float64, p)
	for i := range ones {
		ones[i] = 1
	}

	var u mat.VecDense
	if err := chol.SolveVecTo(&u, mat.NewVecDense(p, ones)); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotPositiveDefinite, err)
	}
	denom := floats.Sum(u.RawVector().Data)
	if !(denom > 0) {
		return 0, fmt.Errorf("%w: local mean precision %g", ErrNotPositiveDefinite, denom)
	}
	return floats.Dot(u.RawVector().Data, values) / denom, nil
}
