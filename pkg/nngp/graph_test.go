package nngp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestNewGraphLayout(t *testing.T) {
	g := lineGraph(t, lineXs, 2, 2)

	require.Len(t, g.Root.Members, 2)
	require.Len(t, g.Blocks, 4)
	assert.Equal(t, 6, g.Size())
	for i, b := range g.Blocks {
		assert.Equal(t, i+2, b.Target)
		assert.Len(t, b.Parents, 2)
		assert.Equal(t, 3, b.Dists.SymmetricDim())
	}
}

func TestGraphValidation(t *testing.T) {
	d := func(n int) mat.Symmetric { return mat.NewSymDense(n, nil) }

	testCases := []struct {
		name  string
		edges [][]int
		dists []mat.Symmetric
	}{
		{"no blocks", nil, nil},
		{"count mismatch", [][]int{{0}, {0}}, []mat.Symmetric{d(1)}},
		{"empty root", [][]int{{}}, []mat.Symmetric{nil}},
		{"root size mismatch", [][]int{{0, 1}}, []mat.Symmetric{d(3)}},
		{"root member out of range", [][]int{{0, 2}}, []mat.Symmetric{d(2)}},
		{"root member repeated", [][]int{{1, 1}}, []mat.Symmetric{d(2)}},
		{"parent not preceding", [][]int{{0, 1}, {2}}, []mat.Symmetric{d(2), d(2)}},
		{"parent negative", [][]int{{0, 1}, {-1}}, []mat.Symmetric{d(2), d(2)}},
		{"parent repeated", [][]int{{0, 1}, {0, 0}}, []mat.Symmetric{d(2), d(3)}},
		{"block size mismatch", [][]int{{0, 1}, {0, 1}}, []mat.Symmetric{d(2), d(2)}},
		{"missing distances", [][]int{{0, 1}, {0}}, []mat.Symmetric{d(2), nil}},
		{"negative distance", [][]int{{0, 1}}, []mat.Symmetric{mat.NewSymDense(2, []float64{0, -1, -1, 0})}},
		{"nan distance", [][]int{{0}, {0}}, []mat.Symmetric{d(1), mat.NewSymDense(2, []float64{0, math.NaN(), math.NaN(), 0})}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			g, err := NewGraph(tc.edges, tc.dists)
			assert.ErrorIs(t, err, ErrInvalidGraph)
			assert.Nil(t, g)
		})
	}
}

func TestValidateCatchesTargetGaps(t *testing.T) {
	g := lineGraph(t, lineXs, 2, 1)
	g.Blocks[2].Target = 5
	assert.ErrorIs(t, g.Validate(), ErrInvalidGraph)
}

func TestRootMembersMayBePermuted(t *testing.T) {
	g, err := NewGraph(
		[][]int{{1, 0}, {0, 1}},
		[]mat.Symmetric{distMatrix([]float64{1, 0}), distMatrix([]float64{2, 0, 1})},
	)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0}, g.Root.Members)
}
