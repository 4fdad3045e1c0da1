package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// WriteMatrix writes m as CSV with a "period" column followed by one column
// per region. Values use the shortest exact representation.
func WriteMatrix(out io.Writer, m mat.Matrix) error {
	rows, cols := m.Dims()
	w := csv.NewWriter(out)

	header := []string{"period"}
	for j := 0; j < cols; j++ {
		header = append(header, fmt.Sprintf("r%d", j))
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		row := []string{strconv.Itoa(i)}
		for j := 0; j < cols; j++ {
			row = append(row, strconv.FormatFloat(m.At(i, j), 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
