// Package scatter deposits point weights onto grid nodes with cloud-in-cell
// (bilinear area) weighting.
//
// A Scatter call forks one goroutine per worker over contiguous slices of the
// point set. Each worker accumulates into its own full-size mesh buffer, so the
// parallel phase needs no locks. After the join, the buffers are summed into the
// caller's mesh in worker-index order, which makes the result bit-identical for
// a fixed worker count.
package scatter

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/cicmesh/grid"
)

// DefaultParallelThreshold is the minimum point count to fan out across workers.
// Below this, a single worker is faster than goroutine startup.
const DefaultParallelThreshold = 64

// Scatterer is the interpolation engine for one grid. It owns the per-worker
// buffers and is not safe for concurrent Scatter calls.
type Scatterer struct {
	grid      grid.Descriptor
	workers   int
	weighing  float64
	policy    BoundaryPolicy
	threshold int

	buffers []*grid.Mesh
}

// Option configures a Scatterer.
type Option func(*Scatterer)

// WithWeighing sets the per-point scalar multiplier (default 1.0).
func WithWeighing(w float64) Option {
	return func(s *Scatterer) { s.weighing = w }
}

// WithBoundaryPolicy sets how out-of-grid cells are handled (default Clamp).
func WithBoundaryPolicy(p BoundaryPolicy) Option {
	return func(s *Scatterer) { s.policy = p }
}

// WithParallelThreshold sets the point count below which only one worker runs.
func WithParallelThreshold(n int) Option {
	return func(s *Scatterer) { s.threshold = n }
}

// New creates a Scatterer for d with the given number of workers.
func New(d grid.Descriptor, workers int, opts ...Option) (*Scatterer, error) {
	if workers < 1 {
		return nil, fmt.Errorf("scatter: worker count must be at least 1, got %d", workers)
	}
	s := &Scatterer{
		grid:      d,
		workers:   workers,
		weighing:  1.0,
		policy:    Clamp,
		threshold: DefaultParallelThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.buffers = make([]*grid.Mesh, workers)
	for i := range s.buffers {
		s.buffers[i] = grid.NewMesh(d)
	}
	return s, nil
}

// Workers returns the configured worker count.
func (s *Scatterer) Workers() int { return s.workers }

// Policy returns the boundary policy.
func (s *Scatterer) Policy() BoundaryPolicy { return s.policy }

// Scatter adds the weight of every point in ps into m. It does not clear m.
// On error m is left unchanged.
func (s *Scatterer) Scatter(m *grid.Mesh, ps *grid.PointSet) error {
	if len(m.Values) != s.grid.NodeCount() {
		return fmt.Errorf("scatter: mesh has %d nodes, grid %s needs %d",
			len(m.Values), s.grid, s.grid.NodeCount())
	}

	n := ps.Len()
	if n == 0 {
		return nil
	}

	active := s.workers
	if n < s.threshold {
		active = 1
	}

	used, err := s.scatterParallel(ps.Points, active)
	if err != nil {
		return err
	}

	// Reduction: sequential, fixed worker order.
	for w := 0; w < used; w++ {
		m.Add(s.buffers[w])
	}
	return nil
}

// scatterParallel fills the first `used` buffers and returns how many were used.
func (s *Scatterer) scatterParallel(points []grid.Point, active int) (int, error) {
	n := len(points)
	if active == 1 {
		buf := s.buffers[0]
		buf.Reset()
		return 1, s.scatterChunk(buf, points, 0)
	}

	chunkSize := (n + active - 1) / active

	var g errgroup.Group
	used := 0
	for w := 0; w < active; w++ {
		start := w * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		buf := s.buffers[w]
		chunk := points[start:end]
		g.Go(func() error {
			buf.Reset()
			return s.scatterChunk(buf, chunk, start)
		})
		used++
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	return used, nil
}

// scatterChunk deposits points into buf. offset is the index of points[0] in
// the full snapshot, used for error reporting.
func (s *Scatterer) scatterChunk(buf *grid.Mesh, points []grid.Point, offset int) error {
	vals := buf.Values
	for i, p := range points {
		st, err := Deposit(s.grid, p, s.policy)
		if err != nil {
			var oob *OutOfDomainError
			if errors.As(err, &oob) {
				oob.Index = offset + i
			}
			return err
		}
		vals[st.Nodes[BottomLeft]] += st.Weights[BottomLeft] * s.weighing
		vals[st.Nodes[BottomRight]] += st.Weights[BottomRight] * s.weighing
		vals[st.Nodes[TopLeft]] += st.Weights[TopLeft] * s.weighing
		vals[st.Nodes[TopRight]] += st.Weights[TopRight] * s.weighing
	}
	return nil
}
