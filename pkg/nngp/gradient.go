package nngp

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/diff/fd"
)

// FieldGradient estimates the gradient of LogLikelihood with respect to the
// field values by central finite differences. The field is restored before
// returning.
func (e *Engine) FieldGradient() ([]float64, error) {
	base := e.field
	work := slices.Clone(base)
	e.field = work
	defer func() { e.field = base }()

	var firstErr error
	f := func(w []float64) float64 {
		copy(work, w)
		ll, err := e.LogLikelihood()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return math.NaN()
		}
		return ll
	}

	grad := fd.Gradient(nil, f, base, &fd.Settings{Formula: fd.Central})
	if firstErr != nil {
		return nil, firstErr
	}
	return grad, nil
}
