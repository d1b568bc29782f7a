package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/cicmesh/fsutil"
	"github.com/pthm-cable/cicmesh/grid"
	"github.com/pthm-cable/cicmesh/snapshot"
)

func writeInput(t *testing.T, h snapshot.Header, snaps ...[]grid.Point) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.bin")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w, err := snapshot.NewWriter(f, h)
	require.NoError(t, err)
	for _, s := range snaps {
		require.NoError(t, w.WriteSnapshot(s))
	}
	require.NoError(t, w.Flush())
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRoot_EndToEnd(t *testing.T) {
	input := writeInput(t,
		snapshot.Header{CellsX: 2, CellsY: 2, PointCount: 1, MaxIterations: 2},
		[]grid.Point{{X: 0.75, Y: 0.75}},
		[]grid.Point{{X: 0.25, Y: 0.25}},
	)
	outDir := filepath.Join(t.TempDir(), "out")

	stdout, stderr, err := execute(t, input, "4", "--output-dir", outDir)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Interpolation execution time = ")
	assert.Contains(t, stderr, `"cells_x":2`)
	assert.Contains(t, stderr, `"run_id"`)

	want := "0.062500 0.062500 0.000000\n0.062500 0.062500 0.000000\n0.000000 0.000000 0.000000\n"
	for _, name := range []string{"Mesh.out", "serial.txt"} {
		data, err := os.ReadFile(filepath.Join(outDir, name))
		require.NoError(t, err)
		assert.Equal(t, want, string(data), name)
	}
}

func TestRoot_ConfigEnablesExtras(t *testing.T) {
	input := writeInput(t,
		snapshot.Header{CellsX: 4, CellsY: 4, PointCount: 2, MaxIterations: 1},
		[]grid.Point{{X: 0.1, Y: 0.2}, {X: 0.6, Y: 0.7}},
	)
	dir := t.TempDir()
	metricsPath := filepath.Join(dir, "cicmesh.prom")
	cfgPath := filepath.Join(dir, "run.yaml")
	body := "output:\n  write_config: true\ntelemetry:\n  perf_csv: true\n  metrics_file: " + metricsPath +
		"\nplot:\n  enabled: true\n  width_in: 2\n  height_in: 2\nlog:\n  format: text\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0644))

	outDir := filepath.Join(dir, "out")
	_, stderr, err := execute(t, input, "1", "--config", cfgPath, "--output-dir", outDir)
	require.NoError(t, err)
	assert.Contains(t, stderr, "msg=\"run complete\"")

	for _, name := range []string{"Mesh.out", "serial.txt", "perf.csv", "config.yaml", "mesh.png"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "cicmesh_points_scattered_total 2")
}

func TestRoot_UsageErrors(t *testing.T) {
	cases := map[string][]string{
		"no args":        {},
		"one arg":        {"input.bin"},
		"three args":     {"input.bin", "2", "extra"},
		"non-numeric":    {"input.bin", "many"},
		"zero workers":   {"input.bin", "0"},
		"unknown flag":   {"input.bin", "2", "--verbose"},
		"negative count": {"input.bin", "-3"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			stdout, stderr, err := execute(t, args...)
			var usage *UsageError
			require.True(t, errors.As(err, &usage), "got %v", err)
			assert.Equal(t, ExitUsage, ExitCode(err))
			assert.Contains(t, stdout+stderr, "Usage:")
		})
	}
}

func TestRoot_MissingInput(t *testing.T) {
	stdout, stderr, err := execute(t, filepath.Join(t.TempDir(), "missing.bin"), "2")

	var openErr *fsutil.FileOpenError
	require.True(t, errors.As(err, &openErr))
	assert.Equal(t, ExitError, ExitCode(err))
	assert.False(t, strings.Contains(stdout+stderr, "Usage:"))
}

func TestRoot_InvalidGrid(t *testing.T) {
	input := writeInput(t, snapshot.Header{CellsX: 0, CellsY: 4, PointCount: 0, MaxIterations: 0})

	_, _, err := execute(t, input, "2", "--output-dir", t.TempDir())
	var gridErr *grid.InvalidGridError
	require.True(t, errors.As(err, &gridErr))
	assert.Equal(t, ExitError, ExitCode(err))
}

func TestRoot_TruncatedInput(t *testing.T) {
	input := writeInput(t,
		snapshot.Header{CellsX: 2, CellsY: 2, PointCount: 1, MaxIterations: 1},
	)

	_, _, err := execute(t, input, "2", "--output-dir", t.TempDir())
	var trunc *snapshot.TruncatedInputError
	require.True(t, errors.As(err, &trunc))
	assert.Equal(t, ExitError, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitUsage, ExitCode(&UsageError{Msg: "x"}))
	assert.Equal(t, ExitError, ExitCode(errors.New("x")))
}
