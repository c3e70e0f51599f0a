// Package nngp implements a nearest-neighbour Gaussian process: a sparse
// conditional factorisation of a Gaussian random field over a fixed,
// topologically ordered dependency graph.
//
// The engine evaluates the field log-likelihood as one joint root block plus
// one univariate conditional per remaining location, draws exact samples
// from the same factorised distribution by ancestral simulation, and scores
// or simulates auxiliary locations that sit outside the persistent graph.
//
// An Engine is not safe for concurrent use. Per-block work inside
// LogLikelihood, Predict and calibration is spread across goroutines, so the
// kernel's Covariance method must be safe to call concurrently.
package nngp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"slices"

	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/lawlerem/staRVe/pkg/covariance"
	"github.com/lawlerem/staRVe/pkg/gaussian"
	"github.com/lawlerem/staRVe/pkg/interpolation"
)

// ErrLengthMismatch is returned when a field, mean or observation vector
// does not match the size of the graph.
var ErrLengthMismatch = errors.New("nngp: length mismatch")

// Engine owns the field values and means of a nearest-neighbour Gaussian
// process together with its immutable persistent graph.
type Engine struct {
	kernel covariance.Kernel
	graph  *Graph
	field  []float64
	mean   []float64

	workers   int
	calibrate bool
	src       rand.Source
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers bounds the goroutines used for per-block evaluation.
// Values below 1 are treated as 1.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithCalibration toggles the one-time kernel reparameterisation done by New.
// It is on by default.
func WithCalibration(on bool) Option {
	return func(e *Engine) { e.calibrate = on }
}

// WithSource sets the random source used by Simulate and SimulateAux.
// A nil source uses the package-level source of golang.org/x/exp/rand.
func WithSource(src rand.Source) Option {
	return func(e *Engine) { e.src = src }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an engine over graph with initial field values and means.
// The engine takes ownership of kernel: unless calibration is disabled, its
// scale is rescaled so that it equals the average conditional standard
// deviation of the non-root blocks, and its marginal standard deviation is
// set from the root block. Calibration is skipped when the graph has no
// conditional blocks.
func New(kernel covariance.Kernel, field, mean []float64, graph *Graph, opts ...Option) (*Engine, error) {
	if kernel == nil {
		return nil, fmt.Errorf("nngp: nil kernel")
	}
	if graph == nil {
		return nil, fmt.Errorf("%w: nil graph", ErrInvalidGraph)
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		kernel:    kernel,
		graph:     graph,
		workers:   runtime.NumCPU(),
		calibrate: true,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}

	if err := e.Update(field, mean); err != nil {
		return nil, err
	}

	if e.calibrate {
		if err := e.calibrateKernel(); err != nil {
			return nil, fmt.Errorf("nngp: calibration failed: %w", err)
		}
	}
	return e, nil
}

// Update overwrites the field values and means. Both are copied.
func (e *Engine) Update(field, mean []float64) error {
	n := e.graph.Size()
	if len(field) != n || len(mean) != n {
		return fmt.Errorf("%w: graph has %d locations, got %d values and %d means", ErrLengthMismatch, n, len(field), len(mean))
	}
	e.field = slices.Clone(field)
	e.mean = slices.Clone(mean)
	return nil
}

// Field returns a copy of the current field values.
func (e *Engine) Field() []float64 { return slices.Clone(e.field) }

// Mean returns a copy of the current means.
func (e *Engine) Mean() []float64 { return slices.Clone(e.mean) }

// Kernel returns the (calibrated) covariance kernel.
func (e *Engine) Kernel() covariance.Kernel { return e.kernel }

// Graph returns the persistent graph.
func (e *Engine) Graph() *Graph { return e.graph }

// LogLikelihood returns the log-density of the field under the factorised
// distribution: the joint root block plus one Gaussian conditional for
// every other location.
func (e *Engine) LogLikelihood() (float64, error) {
	root := e.graph.Root
	centered := make([]float64, len(root.Members))
	for i, m := range root.Members {
		centered[i] = e.field[m] - e.mean[m]
	}
	ll, err := gaussian.JointLogDensity(e.kernel.Covariance(root.Dists), centered)
	if err != nil {
		return 0, fmt.Errorf("nngp: root block: %w", err)
	}

	blocks := e.graph.Blocks
	terms := make([]float64, len(blocks))
	err = e.forEach(len(blocks), func(i int) error {
		b := blocks[i]
		pred, err := e.krige(e.field, b.Parents, b.Dists, e.mean[b.Target], false)
		if err != nil {
			return fmt.Errorf("nngp: block %d (location %d): %w", i+1, b.Target, err)
		}
		terms[i] = gaussian.LogDensity(e.field[b.Target], pred.Mean, pred.Sd)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return ll + floats.Sum(terms), nil
}

// Simulate draws a new field by ancestral sampling: the root block jointly,
// then every conditional block in graph order given its already simulated
// parents. The engine's field is replaced only if the whole draw succeeds;
// the returned slice is a copy.
func (e *Engine) Simulate() ([]float64, error) {
	next := slices.Clone(e.field)

	root := e.graph.Root
	sample, err := gaussian.JointSample(e.kernel.Covariance(root.Dists), e.src)
	if err != nil {
		return nil, fmt.Errorf("nngp: root block: %w", err)
	}
	for i, m := range root.Members {
		next[m] = sample[i] + e.mean[m]
	}

	for i, b := range e.graph.Blocks {
		pred, err := e.krige(next, b.Parents, b.Dists, e.mean[b.Target], false)
		if err != nil {
			return nil, fmt.Errorf("nngp: block %d (location %d): %w", i+1, b.Target, err)
		}
		next[b.Target] = gaussian.Sample(pred.Mean, pred.Sd, e.src)
	}

	e.field = next
	return slices.Clone(next), nil
}

// krige conditions one location on parents using the values in field.
func (e *Engine) krige(field []float64, parents []int, dists mat.Symmetric, targetMean float64, interpolateMean bool) (interpolation.Prediction, error) {
	means := make([]float64, 1+len(parents))
	values := make([]float64, len(parents))
	means[0] = targetMean
	for i, p := range parents {
		means[i+1] = e.mean[p]
		values[i] = field[p]
	}
	return interpolation.Krige(e.kernel.Covariance(dists), means, values, interpolateMean)
}

// forEach runs fn for every index in [0, n) on at most e.workers goroutines
// and returns the first error.
func (e *Engine) forEach(n int, fn func(i int) error) error {
	var g errgroup.Group
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
