package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/FrankErrickson/Utilitarianism/internal/optim"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

const (
	metadataFile   = "metadata.json"
	mitigationFile = "mitigation.csv"
)

var ErrNoMitigation = errors.New("storage: run has no mitigation matrix")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string        `json:"id"`
	Model       string        `json:"model"`
	Regime      string        `json:"regime"`
	Algorithm   string        `json:"algorithm"`
	Timestamp   time.Time     `json:"timestamp"`
	Welfare     float64       `json:"welfare"`
	Termination string        `json:"termination"`
	Status      string        `json:"status"`
	Evaluations int           `json:"evaluations"`
	Starts      int           `json:"starts"`
	Elapsed     time.Duration `json:"elapsed"`
	Periods     int           `json:"periods"`
	Regions     int           `json:"regions"`
	Raw         []float64     `json:"raw"`
	TaxPath     []float64     `json:"tax_path,omitempty"`
}

// Save writes the run's metadata and mitigation matrix under its run id and
// returns that id.
func (s *Store) Save(modelName, algorithm string, res *optim.Result) (string, error) {
	runID := res.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	runDir := filepath.Join(s.baseDir, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:          runID,
		Model:       modelName,
		Regime:      res.Regime,
		Algorithm:   algorithm,
		Timestamp:   time.Now().UTC(),
		Welfare:     res.Welfare,
		Termination: res.Termination.String(),
		Status:      res.Status,
		Evaluations: res.Evaluations,
		Starts:      res.Starts,
		Elapsed:     res.Elapsed,
		Raw:         res.Raw,
		TaxPath:     res.TaxPath,
	}
	if res.Mitigation != nil {
		meta.Periods, meta.Regions = res.Mitigation.Dims()
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if res.Mitigation == nil {
		return runID, nil
	}
	csvFile, err := os.Create(filepath.Join(runDir, mitigationFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteMatrix(csvFile, res.Mitigation); err != nil {
		return "", err
	}
	return runID, nil
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadMitigation(runID string) (*mat.Dense, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, mitigationFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoMitigation, runID)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("storage: run %s: %w", runID, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: %s", ErrNoMitigation, runID)
	}

	rows, cols := len(records)-1, len(records[0])-1
	m := mat.NewDense(rows, cols, nil)
	for i, record := range records[1:] {
		for j := 0; j < cols; j++ {
			v, err := strconv.ParseFloat(record[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("storage: run %s: row %d: %w", runID, i, err)
			}
			m.Set(i, j, v)
		}
	}
	return m, nil
}
