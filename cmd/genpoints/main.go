// Package main writes cicmesh input files filled with uniformly random points.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pthm-cable/cicmesh/fsutil"
	"github.com/pthm-cable/cicmesh/grid"
	"github.com/pthm-cable/cicmesh/snapshot"
)

func main() {
	cellsX := flag.Int("cells-x", 64, "Grid cells along x")
	cellsY := flag.Int("cells-y", 64, "Grid cells along y")
	points := flag.Int("points", 100000, "Points per snapshot")
	iterations := flag.Int("iterations", 10, "Number of snapshots")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = time-based)")
	out := flag.String("out", "", "Output file path")
	flag.Parse()

	if *out == "" {
		log.Fatal("--out is required")
	}
	h, err := newHeader(*cellsX, *cellsY, *points, *iterations)
	if err != nil {
		log.Fatalf("invalid arguments: %v", err)
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = uint64(time.Now().UnixNano())
	}

	f, err := fsutil.Create(*out)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}

	if err := generate(f, h, rngSeed); err != nil {
		f.Close()
		log.Fatalf("failed to write points: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("failed to close output: %v", err)
	}

	log.Printf("wrote %d snapshots of %d points on %dx%d cells to %s (seed %d)",
		*iterations, *points, *cellsX, *cellsY, *out, rngSeed)
}

// newHeader checks that every count fits the file's int32 fields.
func newHeader(cellsX, cellsY, points, iterations int) (snapshot.Header, error) {
	if _, err := grid.New(cellsX, cellsY); err != nil {
		return snapshot.Header{}, err
	}
	for _, f := range []struct {
		name  string
		value int
		min   int
	}{
		{"cells-x", cellsX, 1},
		{"cells-y", cellsY, 1},
		{"points", points, 0},
		{"iterations", iterations, 0},
	} {
		if f.value < f.min || f.value > math.MaxInt32 {
			return snapshot.Header{}, fmt.Errorf("-%s must be in [%d, %d], got %d", f.name, f.min, math.MaxInt32, f.value)
		}
	}
	return snapshot.Header{
		CellsX:        int32(cellsX),
		CellsY:        int32(cellsY),
		PointCount:    int32(points),
		MaxIterations: int32(iterations),
	}, nil
}

// generate writes every snapshot of h with points drawn uniformly from [0,1).
func generate(out io.Writer, h snapshot.Header, seed uint64) error {
	w, err := snapshot.NewWriter(out, h)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(seed, seed>>1|1))
	ps := grid.NewPointSet(int(h.PointCount))
	for it := 0; it < int(h.MaxIterations); it++ {
		for i := range ps.Points {
			ps.Points[i] = grid.Point{X: rng.Float64(), Y: rng.Float64()}
		}
		if err := w.WriteSnapshot(ps.Points); err != nil {
			return err
		}
	}
	return w.Flush()
}
