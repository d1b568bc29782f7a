package grid

import (
	"gonum.org/v1/gonum/floats"
)

// Mesh is a node-centered scalar field stored row-major by node row.
type Mesh struct {
	NodesX, NodesY int
	Values         []float64
}

// NewMesh allocates a zeroed mesh shaped for d.
func NewMesh(d Descriptor) *Mesh {
	return &Mesh{
		NodesX: d.NodesX(),
		NodesY: d.NodesY(),
		Values: make([]float64, d.NodeCount()),
	}
}

// Reset zeroes every node.
func (m *Mesh) Reset() {
	clear(m.Values)
}

// At returns the value at node (row, col).
func (m *Mesh) At(row, col int) float64 {
	return m.Values[row*m.NodesX+col]
}

// Row returns the values of one node row. The slice aliases the mesh.
func (m *Mesh) Row(row int) []float64 {
	start := row * m.NodesX
	return m.Values[start : start+m.NodesX]
}

// Add accumulates other into m node by node. Shapes must match.
func (m *Mesh) Add(other *Mesh) {
	floats.Add(m.Values, other.Values)
}

// Sum returns the total of all node values.
func (m *Mesh) Sum() float64 {
	return floats.Sum(m.Values)
}

// Max returns the largest node value, or 0 for an empty mesh.
func (m *Mesh) Max() float64 {
	if len(m.Values) == 0 {
		return 0
	}
	return floats.Max(m.Values)
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{NodesX: m.NodesX, NodesY: m.NodesY, Values: make([]float64, len(m.Values))}
	copy(c.Values, m.Values)
	return c
}
