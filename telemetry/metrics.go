package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides run observability on a private registry. All methods are
// safe on a nil receiver so callers can leave metrics disabled.
type Metrics struct {
	registry *prometheus.Registry

	Iterations      prometheus.Counter
	PointsScattered prometheus.Counter
	ScatterDuration prometheus.Histogram
	MeshMass        prometheus.Gauge
	Workers         prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all run metrics registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		Iterations: factory.NewCounter(prometheus.CounterOpts{
			Name: "cicmesh_iterations_total",
			Help: "Completed driver iterations",
		}),

		PointsScattered: factory.NewCounter(prometheus.CounterOpts{
			Name: "cicmesh_points_scattered_total",
			Help: "Points deposited onto the mesh across all iterations",
		}),

		ScatterDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "cicmesh_scatter_duration_seconds",
			Help:    "Wall time of one scatter call including the reduction",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),

		MeshMass: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cicmesh_mesh_mass",
			Help: "Sum of all node values in the most recent mesh",
		}),

		Workers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "cicmesh_workers",
			Help: "Scatter worker count",
		}),
	}
}

// ObserveIteration records one completed iteration.
func (m *Metrics) ObserveIteration(points int, scatter time.Duration) {
	if m == nil {
		return
	}
	m.Iterations.Inc()
	m.PointsScattered.Add(float64(points))
	m.ScatterDuration.Observe(scatter.Seconds())
}

// SetMeshMass records the mesh total.
func (m *Metrics) SetMeshMass(v float64) {
	if m != nil {
		m.MeshMass.Set(v)
	}
}

// SetWorkers records the worker count.
func (m *Metrics) SetWorkers(n int) {
	if m != nil {
		m.Workers.Set(float64(n))
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
