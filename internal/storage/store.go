package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/mhelwig/odefit/internal/abc"
)

// Store persists evaluation and fit runs under a base directory, one
// subdirectory per run: metadata.json plus one CSV per stored
// trajectory. Raw per-condition result objects are never written; they
// are explicitly not meant for persistence.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0o755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Problem   string             `json:"problem"`
	Model     string             `json:"model"`
	Kind      string             `json:"kind"`
	Timestamp time.Time          `json:"timestamp"`
	LLH       float64            `json:"llh"`
	Params    map[string]float64 `json:"params"`
	Metrics   map[string]float64 `json:"metrics,omitempty"`
}

// SaveResult stores one evaluation result and returns the run id.
func (s *Store) SaveResult(problem, model, kind string, params map[string]float64,
	metrics map[string]float64, res abc.Result) (string, error) {

	runID := fmt.Sprintf("%s_%d", problem, time.Now().UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	llh, _ := res[abc.LLHKey].(float64)
	meta := RunMetadata{
		ID:        runID,
		Problem:   problem,
		Model:     model,
		Kind:      kind,
		Timestamp: time.Now(),
		LLH:       llh,
		Params:    params,
		Metrics:   metrics,
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	for key, val := range res {
		if key == abc.LLHKey || key == abc.RawResultsKey {
			continue
		}
		traj, ok := val.([][]float64)
		if !ok {
			continue
		}
		if err := writeTrajectory(filepath.Join(runDir, key+".csv"), traj); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeTrajectory(path string, traj [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	for _, row := range traj {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// List returns metadata of all stored runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		meta, err := s.Load(e.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

// Load reads one run's metadata.
func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}
	meta := &RunMetadata{}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return meta, nil
}

// Trajectory reads back a stored trajectory CSV by result key.
func (s *Store) Trajectory(runID, key string) ([][]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, key+".csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	traj := make([][]float64, len(records))
	for i, rec := range records {
		traj[i] = make([]float64, len(rec))
		for j, field := range rec {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("run %s %s row %d: %w", runID, key, i, err)
			}
			traj[i][j] = v
		}
	}
	return traj, nil
}

// ExportJSON writes one run's metadata as indented JSON.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
