package snapshot

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/pthm-cable/cicmesh/grid"
)

// Writer produces an input file: the header, then snapshots in order.
type Writer struct {
	w       *bufio.Writer
	header  Header
	written int
}

// NewWriter writes h to w. Call Flush after the last snapshot.
func NewWriter(w io.Writer, h Header) (*Writer, error) {
	if h.PointCount < 0 || h.MaxIterations < 0 {
		return nil, fmt.Errorf("%w: points=%d iterations=%d", ErrInvalidHeader, h.PointCount, h.MaxIterations)
	}
	bw := bufio.NewWriterSize(w, 1<<16)

	var raw [headerSize]byte
	binary.NativeEndian.PutUint32(raw[0:], uint32(h.CellsX))
	binary.NativeEndian.PutUint32(raw[4:], uint32(h.CellsY))
	binary.NativeEndian.PutUint32(raw[8:], uint32(h.PointCount))
	binary.NativeEndian.PutUint32(raw[12:], uint32(h.MaxIterations))
	if _, err := bw.Write(raw[:]); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	return &Writer{w: bw, header: h}, nil
}

// WriteSnapshot appends one snapshot. It must hold exactly PointCount points.
func (sw *Writer) WriteSnapshot(points []grid.Point) error {
	if len(points) != int(sw.header.PointCount) {
		return fmt.Errorf("snapshot %d has %d points, header declares %d",
			sw.written, len(points), sw.header.PointCount)
	}
	if sw.written >= int(sw.header.MaxIterations) {
		return fmt.Errorf("header declares %d snapshots, already wrote %d", sw.header.MaxIterations, sw.written)
	}

	var pair [pairSize]byte
	for _, p := range points {
		binary.NativeEndian.PutUint64(pair[0:], math.Float64bits(p.X))
		binary.NativeEndian.PutUint64(pair[8:], math.Float64bits(p.Y))
		if _, err := sw.w.Write(pair[:]); err != nil {
			return fmt.Errorf("writing snapshot %d: %w", sw.written, err)
		}
	}
	sw.written++
	return nil
}

// Flush writes any buffered data.
func (sw *Writer) Flush() error {
	return sw.w.Flush()
}
