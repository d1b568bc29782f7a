// Package renderer draws the final mesh as an image.
package renderer

import (
	"fmt"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pthm-cable/cicmesh/fsutil"
	"github.com/pthm-cable/cicmesh/grid"
)

// meshGrid adapts a Mesh to plotter.GridXYZ. Columns are node columns and
// rows are node rows, placed at their unit-square coordinates.
type meshGrid struct {
	d grid.Descriptor
	m *grid.Mesh
}

func (g meshGrid) Dims() (c, r int)   { return g.m.NodesX, g.m.NodesY }
func (g meshGrid) Z(c, r int) float64 { return g.m.At(r, c) }
func (g meshGrid) X(c int) float64    { return float64(c) * g.d.DX() }
func (g meshGrid) Y(r int) float64    { return float64(r) * g.d.DY() }

// HeatmapOptions controls the rendered image.
type HeatmapOptions struct {
	Title  string
	Width  vg.Length
	Height vg.Length
	Colors int
}

// WriteHeatmap renders m as a heat map. The image format follows the file
// extension (png, svg, pdf, ...), defaulting to png.
func WriteHeatmap(path string, d grid.Descriptor, m *grid.Mesh, opts HeatmapOptions) error {
	if opts.Colors < 2 {
		opts.Colors = 64
	}
	if opts.Width <= 0 {
		opts.Width = 6 * vg.Inch
	}
	if opts.Height <= 0 {
		opts.Height = 6 * vg.Inch
	}

	hm := plotter.NewHeatMap(meshGrid{d: d, m: m}, palette.Heat(opts.Colors, 1))
	if hm.Max <= hm.Min {
		// Flat field; widen the range so the palette lookup stays finite.
		hm.Max = hm.Min + 1
	}

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(hm)

	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if format == "" {
		format = "png"
	}
	wt, err := p.WriterTo(opts.Width, opts.Height, format)
	if err != nil {
		return fmt.Errorf("render heat map: %w", err)
	}

	f, err := fsutil.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("save heat map: %w", err)
	}
	return f.Close()
}
