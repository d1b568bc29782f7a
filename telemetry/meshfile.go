package telemetry

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/pthm-cable/cicmesh/grid"
)

// WriteMesh writes m as text: one line per node row, values separated by a
// single space, fixed-point with the given number of decimals.
func WriteMesh(w io.Writer, m *grid.Mesh, precision int) error {
	bw := bufio.NewWriter(w)
	line := make([]byte, 0, m.NodesX*(precision+8))

	for row := 0; row < m.NodesY; row++ {
		line = line[:0]
		for col, v := range m.Row(row) {
			if col > 0 {
				line = append(line, ' ')
			}
			line = strconv.AppendFloat(line, v, 'f', precision, 64)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("writing mesh row %d: %w", row, err)
		}
	}
	return bw.Flush()
}
