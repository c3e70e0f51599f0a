package models

import (
	"fmt"
	"math"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/lawlerem/staRVe/pkg/nngp"
)

// Block is one entry of a graph as stored in a problem file
type Block struct {
	// Nodes are the root block members for the first graph block, and the
	// parent locations for every other block or auxiliary location
	Nodes []int `yaml:"nodes"`

	// Dists is the square distance matrix of the block, target first
	Dists [][]float64 `yaml:"dists"`
}

// KernelSpec overrides the configured covariance kernel
type KernelSpec struct {
	Model      string  `yaml:"model"`
	Range      float64 `yaml:"range"`
	MarginalSd float64 `yaml:"marginalSd"`
}

// Problem is a field, its persistent graph and optional auxiliary
// locations, as read from YAML
type Problem struct {
	Kernel *KernelSpec `yaml:"kernel,omitempty"`

	// Field values and marginal means, one per persistent location
	Field []float64 `yaml:"field"`
	Mean  []float64 `yaml:"mean,omitempty"`

	// Graph is the persistent graph in block order
	Graph []Block `yaml:"graph"`

	// Auxiliary locations and their observed values
	Auxiliary []Block   `yaml:"auxiliary,omitempty"`
	Observed  []float64 `yaml:"observed,omitempty"`
}

// LoadProblem reads a problem file
func LoadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading problem file: %w", err)
	}
	p := &Problem{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("error parsing problem file: %w", err)
	}
	return p, nil
}

// SaveProblem writes a problem file
func SaveProblem(p *Problem, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("error marshaling problem: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing problem file: %w", err)
	}
	return nil
}

// Means returns the marginal means, defaulting to zero
func (p *Problem) Means() []float64 {
	if len(p.Mean) == 0 {
		return make([]float64, len(p.Field))
	}
	return p.Mean
}

// PersistentGraph converts the stored graph into an nngp.Graph
func (p *Problem) PersistentGraph() (*nngp.Graph, error) {
	edges := make([][]int, len(p.Graph))
	dists := make([]mat.Symmetric, len(p.Graph))
	for i, b := range p.Graph {
		d, err := symmetric(b.Dists)
		if err != nil {
			return nil, fmt.Errorf("graph block %d: %w", i, err)
		}
		edges[i] = b.Nodes
		dists[i] = d
	}
	return nngp.NewGraph(edges, dists)
}

// AuxLocations converts the stored auxiliary locations
func (p *Problem) AuxLocations() ([]nngp.AuxLocation, error) {
	aux := make([]nngp.AuxLocation, len(p.Auxiliary))
	for i, b := range p.Auxiliary {
		d, err := symmetric(b.Dists)
		if err != nil {
			return nil, fmt.Errorf("auxiliary location %d: %w", i, err)
		}
		aux[i] = nngp.AuxLocation{Parents: b.Nodes, Dists: d}
	}
	return aux, nil
}

// symmetric converts nested rows into a symmetric matrix
func symmetric(rows [][]float64) (*mat.SymDense, error) {
	n := len(rows)
	if n == 0 {
		return nil, fmt.Errorf("empty distance matrix")
	}
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("distance matrix row %d has %d entries, expected %d", i, len(row), n)
		}
	}
	d := mat.NewSymDense(n, nil)
	for i, row := range rows {
		for j := i; j < n; j++ {
			if math.Abs(row[j]-rows[j][i]) > 1e-12 {
				return nil, fmt.Errorf("distance matrix is not symmetric at (%d, %d)", i, j)
			}
			d.SetSym(i, j, row[j])
		}
	}
	return d, nil
}
