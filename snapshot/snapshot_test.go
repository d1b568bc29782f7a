package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/cicmesh/fsutil"
	"github.com/pthm-cable/cicmesh/grid"
)

func writeFile(t *testing.T, h Header, snaps ...[]grid.Point) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, h)
	require.NoError(t, err)
	for _, s := range snaps {
		require.NoError(t, w.WriteSnapshot(s))
	}
	require.NoError(t, w.Flush())
	return buf.Bytes()
}

func TestRoundTrip(t *testing.T) {
	h := Header{CellsX: 4, CellsY: 2, PointCount: 2, MaxIterations: 2}
	first := []grid.Point{{X: 0.1, Y: 0.2}, {X: 0.3, Y: 0.4}}
	second := []grid.Point{{X: 0.5, Y: 0.6}, {X: 0.7, Y: 0.8}}
	data := writeFile(t, h, first, second)
	assert.Len(t, data, headerSize+2*2*pairSize)

	rd, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, h, rd.Header())
	assert.Equal(t, 2, rd.Remaining())

	ps := &grid.PointSet{}
	require.NoError(t, rd.Next(ps))
	assert.Equal(t, first, ps.Points)
	require.NoError(t, rd.Next(ps))
	assert.Equal(t, second, ps.Points)

	assert.ErrorIs(t, rd.Next(ps), io.EOF)
	assert.NoError(t, rd.Close())
}

func TestHeader_NativeLayout(t *testing.T) {
	data := writeFile(t, Header{CellsX: 3, CellsY: 5, PointCount: 0, MaxIterations: 1}, nil)

	assert.Equal(t, uint32(3), binary.NativeEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(5), binary.NativeEndian.Uint32(data[4:]))
	assert.Equal(t, uint32(0), binary.NativeEndian.Uint32(data[8:]))
	assert.Equal(t, uint32(1), binary.NativeEndian.Uint32(data[12:]))
}

func TestHeader_Grid(t *testing.T) {
	d, err := Header{CellsX: 8, CellsY: 4}.Grid()
	require.NoError(t, err)
	assert.Equal(t, 9, d.NodesX())

	_, err = Header{CellsX: 0, CellsY: 4}.Grid()
	var gridErr *grid.InvalidGridError
	assert.True(t, errors.As(err, &gridErr))
}

func TestNewReader_TruncatedHeader(t *testing.T) {
	data := writeFile(t, Header{CellsX: 1, CellsY: 1, PointCount: 0, MaxIterations: 0})

	_, err := NewReader(bytes.NewReader(data[:9]))
	var trunc *TruncatedInputError
	require.True(t, errors.As(err, &trunc))
	assert.Equal(t, "header", trunc.Section)
	assert.Equal(t, 2, trunc.Got)

	_, err = NewReader(bytes.NewReader(nil))
	require.True(t, errors.As(err, &trunc))
	assert.Equal(t, 0, trunc.Got)
}

func TestNewReader_NegativeCounts(t *testing.T) {
	raw := make([]byte, headerSize)
	binary.NativeEndian.PutUint32(raw[0:], 2)
	binary.NativeEndian.PutUint32(raw[4:], 2)
	binary.NativeEndian.PutUint32(raw[8:], uint32(0xFFFFFFFF))
	binary.NativeEndian.PutUint32(raw[12:], 1)

	_, err := NewReader(bytes.NewReader(raw))
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestNext_TruncatedSnapshot(t *testing.T) {
	h := Header{CellsX: 2, CellsY: 2, PointCount: 3, MaxIterations: 2}
	snap := []grid.Point{{X: 0.1, Y: 0.1}, {X: 0.2, Y: 0.2}, {X: 0.3, Y: 0.3}}
	data := writeFile(t, h, snap, snap)

	// Cut the second snapshot after one and a half pairs.
	cut := headerSize + 3*pairSize + pairSize + 8
	rd, err := NewReader(bytes.NewReader(data[:cut]))
	require.NoError(t, err)

	ps := &grid.PointSet{}
	require.NoError(t, rd.Next(ps))

	err = rd.Next(ps)
	var trunc *TruncatedInputError
	require.True(t, errors.As(err, &trunc))
	assert.Equal(t, "snapshot", trunc.Section)
	assert.Equal(t, 1, trunc.Iteration)
	assert.Equal(t, 3, trunc.Want)
	assert.Equal(t, 1, trunc.Got)
}

func TestNext_HugePointCountWithoutData(t *testing.T) {
	raw := make([]byte, headerSize)
	binary.NativeEndian.PutUint32(raw[0:], 4)
	binary.NativeEndian.PutUint32(raw[4:], 4)
	binary.NativeEndian.PutUint32(raw[8:], 0x7fffffff)
	binary.NativeEndian.PutUint32(raw[12:], 1)

	rd, err := NewReader(bytes.NewReader(raw))
	require.NoError(t, err)

	err = rd.Next(&grid.PointSet{})
	var trunc *TruncatedInputError
	require.True(t, errors.As(err, &trunc), "got %v", err)
	assert.Equal(t, 0x7fffffff, trunc.Want)
	assert.Zero(t, trunc.Got)
}

func TestNext_SpansDecodeChunks(t *testing.T) {
	n := chunkPairs*2 + 17
	snap := make([]grid.Point, n)
	for i := range snap {
		snap[i] = grid.Point{X: float64(i) / float64(n), Y: 0.5}
	}
	h := Header{CellsX: 2, CellsY: 2, PointCount: int32(n), MaxIterations: 2}
	data := writeFile(t, h, snap, snap)

	rd, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	ps := &grid.PointSet{}
	require.NoError(t, rd.Next(ps))
	assert.Equal(t, snap, ps.Points)

	// Second snapshot cut inside its third chunk.
	rd, err = NewReader(bytes.NewReader(data[:len(data)-10*pairSize]))
	require.NoError(t, err)
	require.NoError(t, rd.Next(ps))
	err = rd.Next(ps)
	var trunc *TruncatedInputError
	require.True(t, errors.As(err, &trunc))
	assert.Equal(t, n-10, trunc.Got)
}

func TestNext_ReusesPointSet(t *testing.T) {
	h := Header{CellsX: 2, CellsY: 2, PointCount: 2, MaxIterations: 1}
	data := writeFile(t, h, []grid.Point{{X: 0.5, Y: 0.5}, {X: 0.25, Y: 0.75}})

	rd, err := NewReader(bytes.NewReader(data))
	require.NoError(t, err)

	ps := grid.NewPointSet(8)
	backing := &ps.Points[0]
	require.NoError(t, rd.Next(ps))
	assert.Equal(t, 2, ps.Len())
	assert.Same(t, backing, &ps.Points[0])
}

func TestWriter_RejectsWrongPointCount(t *testing.T) {
	w, err := NewWriter(io.Discard, Header{CellsX: 1, CellsY: 1, PointCount: 2, MaxIterations: 1})
	require.NoError(t, err)
	assert.Error(t, w.WriteSnapshot([]grid.Point{{X: 0.5, Y: 0.5}}))
}

func TestWriter_RejectsExtraSnapshots(t *testing.T) {
	w, err := NewWriter(io.Discard, Header{CellsX: 1, CellsY: 1, PointCount: 0, MaxIterations: 1})
	require.NoError(t, err)
	require.NoError(t, w.WriteSnapshot(nil))
	assert.Error(t, w.WriteSnapshot(nil))
}

func TestOpen_FileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.bin"))
	var openErr *fsutil.FileOpenError
	assert.True(t, errors.As(err, &openErr))

	path := filepath.Join(dir, "input.bin")
	data := writeFile(t, Header{CellsX: 2, CellsY: 2, PointCount: 1, MaxIterations: 1}, []grid.Point{{X: 0.5, Y: 0.5}})
	require.NoError(t, os.WriteFile(path, data, 0644))

	rd, err := Open(path)
	require.NoError(t, err)
	defer rd.Close()
	assert.Equal(t, int32(1), rd.Header().PointCount)
}
