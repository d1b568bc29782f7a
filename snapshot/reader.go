// Package snapshot reads and writes the binary point-snapshot input format.
//
// Layout, native byte order:
//
//	int32 cellsX, cellsY, pointCount, maxIterations
//	maxIterations x pointCount x (float64 x, float64 y)
package snapshot

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/pthm-cable/cicmesh/fsutil"
	"github.com/pthm-cable/cicmesh/grid"
)

const (
	headerSize = 4 * 4
	pairSize   = 2 * 8

	// chunkPairs bounds the decode buffer; a header's point count is not
	// trusted for allocation until the data has arrived.
	chunkPairs = 4096
)

// ErrInvalidHeader is returned for negative point or iteration counts.
var ErrInvalidHeader = errors.New("invalid snapshot header")

// TruncatedInputError reports a file that ends before the header or a
// snapshot is complete.
type TruncatedInputError struct {
	Section   string // "header" or "snapshot"
	Iteration int    // zero-based snapshot index; -1 for the header
	Want, Got int    // values (header) or point pairs (snapshot)
}

func (e *TruncatedInputError) Error() string {
	if e.Section == "header" {
		return fmt.Sprintf("truncated input: header has %d of %d values", e.Got, e.Want)
	}
	return fmt.Sprintf("truncated input: snapshot %d has %d of %d points", e.Iteration, e.Got, e.Want)
}

// Header is the fixed file prelude.
type Header struct {
	CellsX        int32
	CellsY        int32
	PointCount    int32
	MaxIterations int32
}

// Grid builds the descriptor described by the header.
func (h Header) Grid() (grid.Descriptor, error) {
	return grid.New(int(h.CellsX), int(h.CellsY))
}

// Reader consumes snapshots strictly in file order.
type Reader struct {
	r      *bufio.Reader
	closer io.Closer
	header Header
	next   int
	buf    []byte
}

// Open opens path and reads its header.
func Open(path string) (*Reader, error) {
	f, err := fsutil.Open(path)
	if err != nil {
		return nil, err
	}
	rd, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	rd.closer = f
	return rd, nil
}

// NewReader reads the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	rd := &Reader{r: bufio.NewReaderSize(r, 1<<16)}

	var raw [headerSize]byte
	n, err := io.ReadFull(rd.r, raw[:])
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &TruncatedInputError{Section: "header", Iteration: -1, Want: 4, Got: n / 4}
		}
		return nil, fmt.Errorf("reading header: %w", err)
	}

	rd.header = Header{
		CellsX:        int32(binary.NativeEndian.Uint32(raw[0:])),
		CellsY:        int32(binary.NativeEndian.Uint32(raw[4:])),
		PointCount:    int32(binary.NativeEndian.Uint32(raw[8:])),
		MaxIterations: int32(binary.NativeEndian.Uint32(raw[12:])),
	}
	if rd.header.PointCount < 0 || rd.header.MaxIterations < 0 {
		return nil, fmt.Errorf("%w: points=%d iterations=%d",
			ErrInvalidHeader, rd.header.PointCount, rd.header.MaxIterations)
	}

	rd.buf = make([]byte, chunkPairs*pairSize)
	return rd, nil
}

// Header returns the file header.
func (rd *Reader) Header() Header { return rd.header }

// Remaining returns the number of snapshots not yet read.
func (rd *Reader) Remaining() int { return int(rd.header.MaxIterations) - rd.next }

// Next fills ps with the next snapshot, resizing it to the header point count.
// It returns io.EOF once every declared snapshot has been consumed.
func (rd *Reader) Next(ps *grid.PointSet) error {
	if rd.Remaining() <= 0 {
		return io.EOF
	}

	want := int(rd.header.PointCount)
	ps.Points = ps.Points[:0]
	for got := 0; got < want; {
		k := min(want-got, chunkPairs)
		n, err := io.ReadFull(rd.r, rd.buf[:k*pairSize])
		ps.Points = appendPairs(ps.Points, rd.buf[:n-n%pairSize])
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return &TruncatedInputError{Section: "snapshot", Iteration: rd.next, Want: want, Got: got + n/pairSize}
			}
			return fmt.Errorf("reading snapshot %d: %w", rd.next, err)
		}
		got += k
	}

	rd.next++
	return nil
}

func appendPairs(points []grid.Point, raw []byte) []grid.Point {
	for off := 0; off+pairSize <= len(raw); off += pairSize {
		points = append(points, grid.Point{
			X: math.Float64frombits(binary.NativeEndian.Uint64(raw[off:])),
			Y: math.Float64frombits(binary.NativeEndian.Uint64(raw[off+8:])),
		})
	}
	return points
}

// Close releases the underlying file, if any.
func (rd *Reader) Close() error {
	if rd.closer == nil {
		return nil
	}
	return rd.closer.Close()
}
