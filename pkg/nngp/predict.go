package nngp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/lawlerem/staRVe/pkg/gaussian"
)

// Predict scores observed values at auxiliary locations. Each location is
// kriged from its persistent parents with a locally interpolated mean, and
// its log-density is subtracted from *nll. The persistent field is not
// touched and observed is returned as is.
func (e *Engine) Predict(aux []AuxLocation, observed []float64, nll *float64) ([]float64, error) {
	if nll == nil {
		return nil, fmt.Errorf("nngp: nil likelihood accumulator")
	}
	if len(observed) != len(aux) {
		return nil, fmt.Errorf("%w: %d auxiliary locations but %d observed values", ErrLengthMismatch, len(aux), len(observed))
	}
	if err := validateAux(aux, e.graph.Size()); err != nil {
		return nil, err
	}

	terms := make([]float64, len(aux))
	err := e.forEach(len(aux), func(i int) error {
		a := aux[i]
		// Target mean is replaced by the local estimate
		pred, err := e.krige(e.field, a.Parents, a.Dists, 0, true)
		if err != nil {
			return fmt.Errorf("nngp: auxiliary location %d: %w", i, err)
		}
		terms[i] = gaussian.LogDensity(observed[i], pred.Mean, pred.Sd)
		return nil
	})
	if err != nil {
		return nil, err
	}

	*nll -= floats.Sum(terms)
	return observed, nil
}

// SimulateAux draws one value per auxiliary location from its kriging
// distribution given the current persistent field.
func (e *Engine) SimulateAux(aux []AuxLocation) ([]float64, error) {
	if err := validateAux(aux, e.graph.Size()); err != nil {
		return nil, err
	}

	sim := make([]float64, len(aux))
	for i, a := range aux {
		pred, err := e.krige(e.field, a.Parents, a.Dists, 0, true)
		if err != nil {
			return nil, fmt.Errorf("nngp: auxiliary location %d: %w", i, err)
		}
		sim[i] = gaussian.Sample(pred.Mean, pred.Sd, e.src)
	}
	return sim, nil
}
