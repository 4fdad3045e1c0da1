package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/FrankErrickson/Utilitarianism/internal/optim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func sampleResult(id string) *optim.Result {
	return &optim.Result{
		RunID:       id,
		Regime:      "costmin",
		Raw:         []float64{8.5},
		Welfare:     -12.25,
		Mitigation:  mat.NewDense(3, 2, []float64{0, 0, 0.25, 1.0 / 3, 1, 1}),
		TaxPath:     []float64{0, 8.5, 9},
		Termination: optim.Converged,
		Status:      "FunctionConvergence",
		Evaluations: 42,
		Starts:      1,
		Elapsed:     1500 * time.Millisecond,
	}
}

func TestStore_SaveLoad(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	id, err := st.Save("stylized", "nelder-mead", sampleResult("run-a"))
	require.NoError(t, err)
	assert.Equal(t, "run-a", id)

	meta, err := st.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "stylized", meta.Model)
	assert.Equal(t, "nelder-mead", meta.Algorithm)
	assert.Equal(t, "converged", meta.Termination)
	assert.Equal(t, 42, meta.Evaluations)
	assert.Equal(t, 1500*time.Millisecond, meta.Elapsed)
	assert.Equal(t, 3, meta.Periods)
	assert.Equal(t, 2, meta.Regions)
	assert.Equal(t, []float64{0, 8.5, 9}, meta.TaxPath)

	m, err := st.LoadMitigation(id)
	require.NoError(t, err)
	assert.True(t, mat.Equal(sampleResult("").Mitigation, m), "mitigation must round-trip exactly")
}

func TestStore_SaveGeneratesID(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	id, err := st.Save("stylized", "grid", sampleResult(""))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = st.Load(id)
	assert.NoError(t, err)
}

func TestStore_List(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, st.Init())
	for _, id := range []string{"first", "second"} {
		_, err := st.Save("stylized", "nelder-mead", sampleResult(id))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}
	// Stray entries are ignored.
	require.NoError(t, os.Mkdir(filepath.Join(dir, "junk"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))

	runs, err = st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "first", runs[0].ID)
	assert.Equal(t, "second", runs[1].ID)
}

func TestStore_LoadMitigationMissing(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())

	res := sampleResult("bare")
	res.Mitigation = nil
	_, err := st.Save("stylized", "grid", res)
	require.NoError(t, err)

	_, err = st.LoadMitigation("bare")
	assert.True(t, errors.Is(err, ErrNoMitigation), "got %v", err)
}

func TestWriteMatrix(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, mat.NewDense(2, 2, []float64{0, 0, 0.5, 1})))
	assert.Equal(t, "period,r0,r1\n0,0,0\n1,0.5,1\n", buf.String())
}

func TestStore_ExportJSON(t *testing.T) {
	st := New(t.TempDir())
	require.NoError(t, st.Init())
	_, err := st.Save("stylized", "nelder-mead", sampleResult("run-x"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, st.ExportJSON(&buf, "run-x"))

	var got ExportData
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-x", got.ID)
	assert.Equal(t, "costmin", got.Regime)
	assert.Equal(t, [][]float64{{0, 0}, {0.25, 1.0 / 3}, {1, 1}}, got.Mitigation)

	assert.Error(t, st.ExportJSON(&buf, "missing"))
}
