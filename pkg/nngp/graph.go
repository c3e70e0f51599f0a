package nngp

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidGraph is returned for structural problems in a persistent graph
// or in a set of auxiliary locations.
var ErrInvalidGraph = errors.New("nngp: invalid graph")

// RootBlock is the initial set of locations modelled with a full joint
// Gaussian. Dists is the pairwise distance matrix among Members, in the
// same order.
type RootBlock struct {
	Members []int
	Dists   mat.Symmetric
}

// ConditionalBlock is one location conditioned on its parents. Row and
// column 0 of Dists belong to Target, rows 1..p to Parents in order.
type ConditionalBlock struct {
	Target  int
	Parents []int
	Dists   mat.Symmetric
}

// Graph is the persistent, topologically ordered dependency structure of
// the field. The root block holds locations 0..k-1 and Blocks[i] holds
// location k+i.
type Graph struct {
	Root   RootBlock
	Blocks []ConditionalBlock
}

// AuxLocation is a location outside the persistent graph, conditioned on
// persistent locations only.
type AuxLocation struct {
	Parents []int
	Dists   mat.Symmetric
}

// NewGraph builds a Graph from the flat edge-list layout: edges[0] lists the
// root block members and edges[i], i >= 1, lists the parents of location
// i+k-1, where k = len(edges[0]). dists[i] is the distance matrix of block i.
func NewGraph(edges [][]int, dists []mat.Symmetric) (*Graph, error) {
	if len(edges) == 0 {
		return nil, fmt.Errorf("%w: no blocks", ErrInvalidGraph)
	}
	if len(edges) != len(dists) {
		return nil, fmt.Errorf("%w: %d edge lists but %d distance matrices", ErrInvalidGraph, len(edges), len(dists))
	}

	k := len(edges[0])
	g := &Graph{
		Root:   RootBlock{Members: slices.Clone(edges[0]), Dists: dists[0]},
		Blocks: make([]ConditionalBlock, 0, len(edges)-1),
	}
	for i := 1; i < len(edges); i++ {
		g.Blocks = append(g.Blocks, ConditionalBlock{
			Target:  i + k - 1,
			Parents: slices.Clone(edges[i]),
			Dists:   dists[i],
		})
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Size returns the number of locations N covered by the graph.
func (g *Graph) Size() int {
	return len(g.Root.Members) + len(g.Blocks)
}

// Validate checks the structural invariants: matching distance matrix
// sizes, a root block that is a permutation of 0..k-1, consecutive
// targets, and parents that strictly precede their target.
func (g *Graph) Validate() error {
	k := len(g.Root.Members)
	if k == 0 {
		return fmt.Errorf("%w: empty root block", ErrInvalidGraph)
	}
	if err := checkDists(g.Root.Dists, k); err != nil {
		return fmt.Errorf("%w: root block: %v", ErrInvalidGraph, err)
	}
	seen := make([]bool, k)
	for _, m := range g.Root.Members {
		if m < 0 || m >= k {
			return fmt.Errorf("%w: root block member %d outside [0, %d)", ErrInvalidGraph, m, k)
		}
		if seen[m] {
			return fmt.Errorf("%w: root block member %d repeated", ErrInvalidGraph, m)
		}
		seen[m] = true
	}

	for i, b := range g.Blocks {
		if want := k + i; b.Target != want {
			return fmt.Errorf("%w: block %d targets location %d, expected %d", ErrInvalidGraph, i+1, b.Target, want)
		}
		if err := checkParents(b.Parents, b.Target); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrInvalidGraph, i+1, err)
		}
		if err := checkDists(b.Dists, 1+len(b.Parents)); err != nil {
			return fmt.Errorf("%w: block %d: %v", ErrInvalidGraph, i+1, err)
		}
	}
	return nil
}

func validateAux(aux []AuxLocation, n int) error {
	for i, a := range aux {
		if err := checkParents(a.Parents, n); err != nil {
			return fmt.Errorf("%w: auxiliary location %d: %v", ErrInvalidGraph, i, err)
		}
		if err := checkDists(a.Dists, 1+len(a.Parents)); err != nil {
			return fmt.Errorf("%w: auxiliary location %d: %v", ErrInvalidGraph, i, err)
		}
	}
	return nil
}

// checkParents requires distinct parents in [0, limit).
func checkParents(parents []int, limit int) error {
	for j, p := range parents {
		if p < 0 || p >= limit {
			return fmt.Errorf("parent %d outside [0, %d)", p, limit)
		}
		if slices.Contains(parents[:j], p) {
			return fmt.Errorf("parent %d repeated", p)
		}
	}
	return nil
}

func checkDists(d mat.Symmetric, size int) error {
	if d == nil {
		return fmt.Errorf("missing distance matrix")
	}
	if n := d.SymmetricDim(); n != size {
		return fmt.Errorf("distance matrix is %dx%d, expected %dx%d", n, n, size, size)
	}
	for i := 0; i < size; i++ {
		for j := i; j < size; j++ {
			if v := d.At(i, j); v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("distance (%d, %d) = %g", i, j, v)
			}
		}
	}
	return nil
}
