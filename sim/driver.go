// Package sim runs the fixed-length interpolation loop: clear the mesh, take
// the next snapshot, scatter it, repeat.
package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/cicmesh/grid"
	"github.com/pthm-cable/cicmesh/telemetry"
)

// Source yields one snapshot per iteration, in order.
type Source interface {
	Next(ps *grid.PointSet) error
}

// Scatterer deposits a snapshot onto a mesh without clearing it.
type Scatterer interface {
	Scatter(m *grid.Mesh, ps *grid.PointSet) error
}

// State is the driver's position in the iteration cycle.
type State int

const (
	Idle State = iota
	Clearing
	Scattering
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Clearing:
		return "clearing"
	case Scattering:
		return "scattering"
	case Done:
		return "done"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Result is the outcome of a run. Mesh holds only the last iteration.
type Result struct {
	Mesh       *grid.Mesh
	Elapsed    time.Duration // total scatter time, excluding snapshot reads
	Iterations int
}

// Driver owns the mesh and point buffer for one run.
type Driver struct {
	grid      grid.Descriptor
	source    Source
	scatterer Scatterer
	maxIter   int

	mesh   *grid.Mesh
	points *grid.PointSet
	state  State

	perf    *telemetry.PerfCollector
	metrics *telemetry.Metrics
	output  *telemetry.OutputManager
	logger  *slog.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithPerf records per-iteration phase timings and logs/writes them every window.
func WithPerf(pc *telemetry.PerfCollector) Option {
	return func(d *Driver) { d.perf = pc }
}

// WithMetrics records iteration metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithOutput sends perf window rows to om.
func WithOutput(om *telemetry.OutputManager) Option {
	return func(d *Driver) { d.output = om }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) { d.logger = l }
}

// New creates a driver for maxIter iterations over g.
func New(g grid.Descriptor, src Source, sc Scatterer, maxIter int, opts ...Option) (*Driver, error) {
	if maxIter < 0 {
		return nil, fmt.Errorf("sim: iteration count must be >= 0, got %d", maxIter)
	}
	d := &Driver{
		grid:      g,
		source:    src,
		scatterer: sc,
		maxIter:   maxIter,
		mesh:      grid.NewMesh(g),
		points:    &grid.PointSet{},
		state:     Idle,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// State returns the current state.
func (d *Driver) State() State { return d.state }

// Run executes every iteration and returns the final mesh. Any error aborts
// the run; the returned Result then reflects the iterations completed so far.
func (d *Driver) Run() (Result, error) {
	var elapsed time.Duration
	completed := 0

	for iter := 0; iter < d.maxIter; iter++ {
		if d.perf != nil {
			d.perf.StartIteration()
			d.perf.StartPhase(telemetry.PhaseClear)
		}

		d.state = Clearing
		d.mesh.Reset()

		if d.perf != nil {
			d.perf.StartPhase(telemetry.PhaseAcquire)
		}
		if err := d.source.Next(d.points); err != nil {
			return d.result(elapsed, completed), fmt.Errorf("iteration %d: reading snapshot: %w", iter, err)
		}

		d.state = Scattering
		if d.perf != nil {
			d.perf.StartPhase(telemetry.PhaseScatter)
		}
		start := time.Now()
		err := d.scatterer.Scatter(d.mesh, d.points)
		took := time.Since(start)
		elapsed += took
		if err != nil {
			return d.result(elapsed, completed), fmt.Errorf("iteration %d: scatter: %w", iter, err)
		}

		completed++
		d.metrics.ObserveIteration(d.points.Len(), took)
		d.logger.Debug("iteration complete",
			"iteration", iter,
			"points", d.points.Len(),
			"scatter_us", took.Microseconds(),
		)

		if d.perf != nil {
			d.perf.EndIteration()
			if completed%d.perf.WindowSize() == 0 || completed == d.maxIter {
				if err := d.flushPerf(completed); err != nil {
					return d.result(elapsed, completed), err
				}
			}
		}
	}

	d.state = Done
	d.metrics.SetMeshMass(d.mesh.Sum())
	return d.result(elapsed, completed), nil
}

func (d *Driver) flushPerf(windowEnd int) error {
	stats := d.perf.Stats()
	d.perf.ResetWindow()
	d.logger.Info("perf", "window_end", windowEnd, "stats", stats)
	if err := d.output.WritePerf(stats, windowEnd); err != nil {
		return fmt.Errorf("iteration %d: %w", windowEnd-1, err)
	}
	return nil
}

func (d *Driver) result(elapsed time.Duration, completed int) Result {
	return Result{Mesh: d.mesh, Elapsed: elapsed, Iterations: completed}
}
