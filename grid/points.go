package grid

// Point is a position in the unit square. Coordinates are not validated.
type Point struct {
	X, Y float64
}

// PointSet is one step's snapshot of point positions, in source order.
// The backing array is reused across steps; each fill replaces the whole snapshot.
type PointSet struct {
	Points []Point
}

// NewPointSet allocates a snapshot holding n points.
func NewPointSet(n int) *PointSet {
	return &PointSet{Points: make([]Point, n)}
}

// Len returns the number of points.
func (ps *PointSet) Len() int {
	if ps == nil {
		return 0
	}
	return len(ps.Points)
}
