// Package covariance provides the stationary covariance kernels used by the
// nearest-neighbour Gaussian process engine. A kernel maps a matrix of
// pairwise distances to the matching covariance matrix.
package covariance

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidParameter is returned when a kernel parameter is out of range.
var ErrInvalidParameter = errors.New("covariance: invalid parameter")

// Kernel is the contract the engine needs from a covariance function.
//
// Scale is the spatial scale parameter, defined so that it is independent of
// the range at small distances: tau = marginalSd / range^nu. SetScale holds
// the range fixed and recomputes the marginal standard deviation, while
// SetMarginalSd holds the scale fixed and recomputes the range.
type Kernel interface {
	Covariance(dists mat.Symmetric) *mat.SymDense
	Scale() float64
	SetScale(tau float64)
	SetMarginalSd(sd float64)
}

// Model is the Matérn smoothness class of a kernel.
type Model int

const (
	Exponential Model = iota // Matérn nu = 1/2
	Matern32                 // Matérn nu = 3/2
	Matern52                 // Matérn nu = 5/2
)

// String returns the configuration name of the model.
func (m Model) String() string {
	switch m {
	case Exponential:
		return "exponential"
	case Matern32:
		return "matern32"
	case Matern52:
		return "matern52"
	default:
		return fmt.Sprintf("Model(%d)", int(m))
	}
}

// Smoothness returns the Matérn nu of the model.
func (m Model) Smoothness() float64 {
	switch m {
	case Matern32:
		return 1.5
	case Matern52:
		return 2.5
	default:
		return 0.5
	}
}

// ParseModel converts a configuration name into a Model.
func ParseModel(name string) (Model, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "exponential", "exp", "matern12":
		return Exponential, nil
	case "matern32":
		return Matern32, nil
	case "matern52":
		return Matern52, nil
	}
	return 0, fmt.Errorf("%w: unknown kernel model %q", ErrInvalidParameter, name)
}

// Matern is a Matérn covariance with closed-form half-integer smoothness.
type Matern struct {
	model      Model
	rng        float64 // Range parameter rho
	marginalSd float64 // Marginal standard deviation sigma
}

var _ Kernel = (*Matern)(nil)

// NewMatern creates a Matérn kernel with the given range and marginal
// standard deviation.
func NewMatern(model Model, rng, marginalSd float64) (*Matern, error) {
	if model < Exponential || model > Matern52 {
		return nil, fmt.Errorf("%w: unknown kernel model %d", ErrInvalidParameter, int(model))
	}
	if !(rng > 0) || math.IsInf(rng, 0) {
		return nil, fmt.Errorf("%w: range must be positive and finite, got %g", ErrInvalidParameter, rng)
	}
	if !(marginalSd > 0) || math.IsInf(marginalSd, 0) {
		return nil, fmt.Errorf("%w: marginal sd must be positive and finite, got %g", ErrInvalidParameter, marginalSd)
	}
	return &Matern{model: model, rng: rng, marginalSd: marginalSd}, nil
}

// Model returns the smoothness class.
func (k *Matern) Model() Model { return k.model }

// Range returns rho.
func (k *Matern) Range() float64 { return k.rng }

// MarginalSd returns sigma.
func (k *Matern) MarginalSd() float64 { return k.marginalSd }

// Clone returns an independent copy of the kernel.
func (k *Matern) Clone() *Matern {
	c := *k
	return &c
}

// Scale returns tau = sigma / rho^nu.
func (k *Matern) Scale() float64 {
	return k.marginalSd / math.Pow(k.rng, k.model.Smoothness())
}

// SetScale updates tau with the range held constant.
func (k *Matern) SetScale(tau float64) {
	k.marginalSd = tau * math.Pow(k.rng, k.model.Smoothness())
}

// SetMarginalSd updates sigma with tau held constant, so the range moves.
func (k *Matern) SetMarginalSd(sd float64) {
	tau := k.Scale()
	k.rng = math.Pow(sd/tau, 1/k.model.Smoothness())
	k.marginalSd = sd
}

// At returns the covariance between two locations at distance h.
func (k *Matern) At(h float64) float64 {
	v := k.marginalSd * k.marginalSd
	r := math.Abs(h) / k.rng
	switch k.model {
	case Matern32:
		s := math.Sqrt(3) * r
		return v * (1 + s) * math.Exp(-s)
	case Matern52:
		s := math.Sqrt(5) * r
		return v * (1 + s + s*s/3) * math.Exp(-s)
	default:
		return v * math.Exp(-r)
	}
}

// Covariance applies the kernel elementwise to a distance matrix.
func (k *Matern) Covariance(dists mat.Symmetric) *mat.SymDense {
	n := dists.SymmetricDim()
	cov := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cov.SetSym(i, j, k.At(dists.At(i, j)))
		}
	}
	return cov
}
