package scatter

import (
	"fmt"
	"strings"

	"github.com/pthm-cable/cicmesh/grid"
)

// Corner positions within a Stencil.
const (
	BottomLeft = iota
	BottomRight
	TopLeft
	TopRight
)

// BoundaryPolicy decides what happens to points whose containing cell lies
// outside the grid, most commonly a coordinate of exactly 1.0.
type BoundaryPolicy int

const (
	// Clamp pins the cell index into the grid. A coordinate of 1.0 lands in the
	// last cell with a local offset of one full cell, so its whole weight goes
	// to the upper/right nodes.
	Clamp BoundaryPolicy = iota
	// Reject fails the scatter call on the first out-of-domain point.
	Reject
)

// ParseBoundaryPolicy parses "clamp" or "reject".
func ParseBoundaryPolicy(s string) (BoundaryPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "clamp", "":
		return Clamp, nil
	case "reject":
		return Reject, nil
	}
	return Clamp, fmt.Errorf("unknown boundary policy %q (want clamp or reject)", s)
}

func (p BoundaryPolicy) String() string {
	switch p {
	case Clamp:
		return "clamp"
	case Reject:
		return "reject"
	}
	return fmt.Sprintf("BoundaryPolicy(%d)", int(p))
}

// OutOfDomainError reports a point rejected under the Reject policy.
type OutOfDomainError struct {
	Index        int
	Point        grid.Point
	CellX, CellY int
}

func (e *OutOfDomainError) Error() string {
	return fmt.Sprintf("point %d at (%g, %g) maps to cell (%d, %d) outside the grid",
		e.Index, e.Point.X, e.Point.Y, e.CellX, e.CellY)
}

// Stencil is the cloud-in-cell footprint of one point: the containing cell,
// the four corner nodes, and the area weight deposited on each.
type Stencil struct {
	CellX, CellY int
	Nodes        [4]int
	Weights      [4]float64
}

// Sum returns the total deposited weight. It equals dx*dy up to rounding.
func (s Stencil) Sum() float64 {
	return s.Weights[BottomLeft] + s.Weights[BottomRight] + s.Weights[TopLeft] + s.Weights[TopRight]
}

// Deposit computes the stencil of p on d. Each corner receives the area of the
// sub-rectangle diagonally opposite to it.
func Deposit(d grid.Descriptor, p grid.Point, policy BoundaryPolicy) (Stencil, error) {
	dx, dy := d.DX(), d.DY()

	gx := int(p.X / dx)
	gy := int(p.Y / dy)

	if !inDomain(d, p, gx, gy) {
		if policy == Reject {
			return Stencil{}, &OutOfDomainError{Index: -1, Point: p, CellX: gx, CellY: gy}
		}
		gx = clampInt(gx, 0, d.CellsX()-1)
		gy = clampInt(gy, 0, d.CellsY()-1)
	}

	lx := p.X - float64(gx)*dx
	ly := p.Y - float64(gy)*dy

	return Stencil{
		CellX: gx,
		CellY: gy,
		Nodes: [4]int{
			d.Node(gy, gx),
			d.Node(gy, gx+1),
			d.Node(gy+1, gx),
			d.Node(gy+1, gx+1),
		},
		Weights: [4]float64{
			(dx - lx) * (dy - ly),
			lx * (dy - ly),
			(dx - lx) * ly,
			lx * ly,
		},
	}, nil
}

// inDomain reports whether p lies in [0,1)x[0,1) and its cell is addressable.
// Coordinates just below 1.0 can still round up to the last node index.
func inDomain(d grid.Descriptor, p grid.Point, gx, gy int) bool {
	if !(p.X >= 0 && p.X < 1 && p.Y >= 0 && p.Y < 1) {
		return false
	}
	return gx >= 0 && gx < d.CellsX() && gy >= 0 && gy < d.CellsY()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
