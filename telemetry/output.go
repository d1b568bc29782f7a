package telemetry

import (
	"fmt"
	"os"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/cicmesh/config"
	"github.com/pthm-cable/cicmesh/fsutil"
	"github.com/pthm-cable/cicmesh/grid"
)

// OutputManager handles run output: the mesh files, perf CSV logging, and
// the config snapshot.
type OutputManager struct {
	cfg   config.OutputConfig
	runID string

	perfFile          *os.File
	perfHeaderWritten bool
}

// NewOutputManager creates the output directory and, when perfCSV is set,
// opens perf.csv for window rows.
func NewOutputManager(cfg config.OutputConfig, runID string, perfCSV bool) (*OutputManager, error) {
	if err := fsutil.EnsureDir(cfg.Dir); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{cfg: cfg, runID: runID}

	if perfCSV {
		f, err := fsutil.Create(om.Path("perf.csv"))
		if err != nil {
			return nil, fmt.Errorf("creating perf.csv: %w", err)
		}
		om.perfFile = f
	}

	return om, nil
}

// Path returns name resolved inside the output directory.
func (om *OutputManager) Path(name string) string {
	return fsutil.Join(om.cfg.Dir, name)
}

// WriteConfig saves the run configuration as YAML when enabled.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil || !om.cfg.WriteConfig {
		return nil
	}
	return cfg.WriteYAML(om.Path("config.yaml"))
}

// WriteMeshFiles writes the final mesh to the mesh file and its copy.
func (om *OutputManager) WriteMeshFiles(m *grid.Mesh) error {
	for _, name := range []string{om.cfg.MeshFile, om.cfg.CopyFile} {
		if err := om.writeMeshFile(name, m); err != nil {
			return err
		}
	}
	return nil
}

func (om *OutputManager) writeMeshFile(name string, m *grid.Mesh) error {
	f, err := fsutil.Create(om.Path(name))
	if err != nil {
		return err
	}
	if err := WriteMesh(f, m, om.cfg.Precision); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	return nil
}

// WritePerf writes a performance stats record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, windowEnd int) error {
	if om == nil || om.perfFile == nil {
		return nil
	}

	records := []PerfStatsCSV{stats.ToCSV(om.runID, windowEnd)}

	if !om.perfHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
		om.perfHeaderWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(records, om.perfFile); err != nil {
			return fmt.Errorf("writing perf: %w", err)
		}
	}

	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.cfg.Dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil || om.perfFile == nil {
		return nil
	}
	err := om.perfFile.Close()
	om.perfFile = nil
	return err
}
