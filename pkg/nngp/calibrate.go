package nngp

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// AverageForecastSd returns the mean conditional standard deviation of the
// non-root blocks, computed with the current kernel. Means do not enter the
// conditional variance, so the target mean is fixed at zero.
func (e *Engine) AverageForecastSd() (float64, error) {
	blocks := e.graph.Blocks
	if len(blocks) == 0 {
		return 0, fmt.Errorf("%w: no conditional blocks", ErrInvalidGraph)
	}

	sds := make([]float64, len(blocks))
	err := e.forEach(len(blocks), func(i int) error {
		b := blocks[i]
		pred, err := e.krige(e.field, b.Parents, b.Dists, 0, false)
		if err != nil {
			return fmt.Errorf("nngp: block %d (location %d): %w", i+1, b.Target, err)
		}
		sds[i] = pred.Sd
		return nil
	})
	if err != nil {
		return 0, err
	}
	return floats.Sum(sds) / float64(len(sds)), nil
}

// calibrateKernel rescales the kernel so its scale parameter reads as the
// average forecast standard deviation, holding the range fixed. The root
// block variance is unidentifiable from the conditional structure, so the
// marginal standard deviation is then set to the conditional standard
// deviation of the first root member given the others.
func (e *Engine) calibrateKernel() error {
	if len(e.graph.Blocks) == 0 {
		e.logger.Debug("skipping kernel calibration: graph has no conditional blocks")
		return nil
	}

	avg, err := e.AverageForecastSd()
	if err != nil {
		return err
	}
	scale := e.kernel.Scale()
	e.kernel.SetScale(scale / (avg / scale))

	root := e.graph.Root
	pred, err := e.krige(e.field, root.Members[1:], root.Dists, 0, false)
	if err != nil {
		return fmt.Errorf("nngp: root block: %w", err)
	}
	e.kernel.SetMarginalSd(pred.Sd)

	e.logger.Debug("calibrated kernel",
		"avg_forecast_sd", avg,
		"input_scale", scale,
		"scale", e.kernel.Scale(),
		"marginal_sd", pred.Sd,
		"blocks", len(e.graph.Blocks),
	)
	return nil
}
