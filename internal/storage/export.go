package storage

import (
	"encoding/json"
	"errors"
	"io"

	"gonum.org/v1/gonum/mat"
)

type ExportData struct {
	RunMetadata
	Mitigation [][]float64 `json:"mitigation,omitempty"`
}

// ExportJSON writes a run's metadata and mitigation matrix as one JSON
// document. Runs stored without a matrix export metadata only.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	data := ExportData{RunMetadata: *meta}

	m, err := s.LoadMitigation(runID)
	switch {
	case errors.Is(err, ErrNoMitigation):
	case err != nil:
		return err
	default:
		rows, _ := m.Dims()
		data.Mitigation = make([][]float64, rows)
		for i := range data.Mitigation {
			data.Mitigation[i] = mat.Row(nil, i, m)
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
