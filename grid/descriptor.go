// Package grid holds the uniform-grid data model: geometry, node fields, and point snapshots.
package grid

import "fmt"

// InvalidGridError reports a non-positive cell count.
type InvalidGridError struct {
	CellsX, CellsY int
}

func (e *InvalidGridError) Error() string {
	return fmt.Sprintf("invalid grid %dx%d: cell counts must be positive", e.CellsX, e.CellsY)
}

// Descriptor is the immutable geometry of a uniform grid over the unit square.
// Cells are dx by dy; nodes sit on cell corners, so there is one more node
// than cells along each axis.
type Descriptor struct {
	cellsX, cellsY int
	dx, dy         float64
}

// New creates a descriptor for cellsX by cellsY cells.
func New(cellsX, cellsY int) (Descriptor, error) {
	if cellsX <= 0 || cellsY <= 0 {
		return Descriptor{}, &InvalidGridError{CellsX: cellsX, CellsY: cellsY}
	}
	return Descriptor{
		cellsX: cellsX,
		cellsY: cellsY,
		dx:     1.0 / float64(cellsX),
		dy:     1.0 / float64(cellsY),
	}, nil
}

// CellsX returns the number of cells along x.
func (d Descriptor) CellsX() int { return d.cellsX }

// CellsY returns the number of cells along y.
func (d Descriptor) CellsY() int { return d.cellsY }

// NodesX returns the number of nodes per row.
func (d Descriptor) NodesX() int { return d.cellsX + 1 }

// NodesY returns the number of node rows.
func (d Descriptor) NodesY() int { return d.cellsY + 1 }

// NodeCount returns the total number of nodes.
func (d Descriptor) NodeCount() int { return d.NodesX() * d.NodesY() }

// DX returns the cell width.
func (d Descriptor) DX() float64 { return d.dx }

// DY returns the cell height.
func (d Descriptor) DY() float64 { return d.dy }

// CellArea returns dx*dy, the total weight one point deposits.
func (d Descriptor) CellArea() float64 { return d.dx * d.dy }

// Node returns the flat index of the node at (row, col).
func (d Descriptor) Node(row, col int) int { return row*d.NodesX() + col }

// String implements fmt.Stringer.
func (d Descriptor) String() string {
	return fmt.Sprintf("%dx%d cells (dx=%g, dy=%g)", d.cellsX, d.cellsY, d.dx, d.dy)
}
