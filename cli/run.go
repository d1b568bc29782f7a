package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gonum.org/v1/plot/vg"

	"github.com/pthm-cable/cicmesh/config"
	"github.com/pthm-cable/cicmesh/renderer"
	"github.com/pthm-cable/cicmesh/scatter"
	"github.com/pthm-cable/cicmesh/sim"
	"github.com/pthm-cable/cicmesh/snapshot"
	"github.com/pthm-cable/cicmesh/telemetry"
)

// RunParams holds everything one run needs from the command line.
type RunParams struct {
	InputPath string
	Workers   int
	Options   Options
	Stdout    io.Writer
	Stderr    io.Writer
}

// Run reads the input file, drives every iteration, and writes the outputs.
func Run(p RunParams) error {
	cfg, err := config.Load(p.Options.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if p.Options.OutputDir != "" {
		cfg.Output.Dir = p.Options.OutputDir
	}

	runID := uuid.NewString()
	logger := newLogger(p.Stderr, cfg).With("run_id", runID)
	slog.SetDefault(logger)

	rd, err := snapshot.Open(p.InputPath)
	if err != nil {
		return err
	}
	defer rd.Close()

	h := rd.Header()
	logger.Info("read from binary file",
		"input", p.InputPath,
		"cells_x", h.CellsX,
		"cells_y", h.CellsY,
		"points", h.PointCount,
		"max_iterations", h.MaxIterations,
	)

	g, err := h.Grid()
	if err != nil {
		return err
	}

	policy, err := scatter.ParseBoundaryPolicy(cfg.Scatter.Boundary)
	if err != nil {
		return err
	}
	sc, err := scatter.New(g, p.Workers,
		scatter.WithWeighing(cfg.Scatter.Weighing),
		scatter.WithBoundaryPolicy(policy),
		scatter.WithParallelThreshold(cfg.Scatter.ParallelThreshold),
	)
	if err != nil {
		return err
	}

	om, err := telemetry.NewOutputManager(cfg.Output, runID, cfg.Telemetry.PerfCSV)
	if err != nil {
		return err
	}
	defer om.Close()

	if err := om.WriteConfig(cfg); err != nil {
		return err
	}

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsFile != "" {
		metrics = telemetry.NewMetrics()
		metrics.SetWorkers(p.Workers)
	}

	drv, err := sim.New(g, rd, sc, int(h.MaxIterations),
		sim.WithLogger(logger),
		sim.WithPerf(telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)),
		sim.WithMetrics(metrics),
		sim.WithOutput(om),
	)
	if err != nil {
		return err
	}

	logger.Info("starting interpolation",
		"grid", g.String(),
		"workers", p.Workers,
		"boundary", policy.String(),
	)

	res, err := drv.Run()
	if err != nil {
		return err
	}

	if err := om.WriteMeshFiles(res.Mesh); err != nil {
		return err
	}
	fmt.Fprintf(p.Stdout, "Interpolation execution time = %f seconds\n", res.Elapsed.Seconds())

	if cfg.Plot.Enabled {
		err := renderer.WriteHeatmap(om.Path(cfg.Plot.File), g, res.Mesh, renderer.HeatmapOptions{
			Title:  fmt.Sprintf("%s, %d points, iteration %d", g, h.PointCount, res.Iterations),
			Width:  vg.Length(cfg.Plot.WidthIn) * vg.Inch,
			Height: vg.Length(cfg.Plot.HeightIn) * vg.Inch,
			Colors: cfg.Plot.Colors,
		})
		if err != nil {
			return err
		}
	}

	if err := metrics.WriteTextfile(cfg.Telemetry.MetricsFile); err != nil {
		return err
	}

	logger.Info("run complete",
		"iterations", res.Iterations,
		"elapsed_s", res.Elapsed.Seconds(),
		"mesh_mass", res.Mesh.Sum(),
		"output_dir", om.Dir(),
	)
	return om.Close()
}

func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Derived.LogLevel}
	if strings.EqualFold(cfg.Log.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
