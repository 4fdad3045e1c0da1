package experiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/FrankErrickson/Utilitarianism/internal/config"
	"github.com/FrankErrickson/Utilitarianism/internal/model/stylized"
	"gonum.org/v1/gonum/mat"
)

var ErrBackstopShape = errors.New("backstop must be a non-empty rectangular matrix")

// LoadBackstop resolves the configured backstop: a CSV file, inline values,
// or a synthetic matrix.
func LoadBackstop(bc config.BackstopConfig) (*mat.Dense, error) {
	switch {
	case bc.File != "":
		return ReadBackstopCSV(bc.File)
	case len(bc.Values) > 0:
		return denseFromRows(bc.Values)
	default:
		if bc.Periods < 1 || bc.Regions < 1 {
			return nil, fmt.Errorf("%w: synthetic %dx%d", ErrBackstopShape, bc.Periods, bc.Regions)
		}
		return stylized.SyntheticBackstop(bc.Periods, bc.Regions), nil
	}
}

// ReadBackstopCSV reads one row per period and one column per region. A
// non-numeric first row is a header; a leading "period" column is dropped,
// so files written by the run store load back unchanged.
func ReadBackstopCSV(path string) (*mat.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.TrimLeadingSpace = true
	r.Comment = '#'
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("backstop %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrBackstopShape, path)
	}

	skipCol := 0
	if _, err := strconv.ParseFloat(strings.TrimSpace(records[0][0]), 64); err != nil {
		if strings.EqualFold(strings.TrimSpace(records[0][0]), "period") {
			skipCol = 1
		}
		records = records[1:]
	}

	rows := make([][]float64, 0, len(records))
	for i, record := range records {
		row := make([]float64, 0, len(record)-skipCol)
		for j := skipCol; j < len(record); j++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("backstop %s: row %d column %d: %w", path, i, j, err)
			}
			row = append(row, v)
		}
		rows = append(rows, row)
	}
	return denseFromRows(rows)
}

func denseFromRows(rows [][]float64) (*mat.Dense, error) {
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, ErrBackstopShape
	}
	cols := len(rows[0])
	m := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrBackstopShape, i, len(row), cols)
		}
		m.SetRow(i, row)
	}
	return m, nil
}
