package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/lander/internal/mission"
	"github.com/san-kum/lander/internal/regulator"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
	gainsFile      = "gains.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

// Store keeps one directory per mission under baseDir.
type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Integrator string             `json:"integrator"`
	Controller string             `json:"controller"`
	Policy     string             `json:"policy,omitempty"`
	Horizon    int                `json:"horizon,omitempty"`
	Gravity    float64            `json:"gravity"`
	Reason     string             `json:"reason"`
	Steps      int                `json:"steps"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Save writes metadata.json, trajectory.csv and, when schedule is not nil,
// gains.csv into a fresh run directory and returns the run ID. The caller
// fills the configuration fields of meta; the rest is taken from res.
func (s *Store) Save(meta RunMetadata, res *mission.Result, schedule *regulator.GainSchedule) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}
	name := meta.Name
	if name == "" {
		name = "run"
	}
	now := s.now()
	runID, err := s.reserve(fmt.Sprintf("%s_%d", name, now.Unix()))
	if err != nil {
		return "", err
	}
	runDir := filepath.Join(s.baseDir, runID)

	meta.ID = runID
	meta.Name = name
	meta.Timestamp = now
	meta.Reason = string(res.Reason)
	meta.Steps = res.Steps
	meta.Metrics = finiteMetrics(res.Metrics)

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeTrajectory(filepath.Join(runDir, trajectoryFile), res.Records); err != nil {
		return "", err
	}
	if schedule != nil {
		if err := writeGains(filepath.Join(runDir, gainsFile), schedule); err != nil {
			return "", err
		}
	}
	return runID, nil
}

// reserve creates the run directory, suffixing the ID when a run with the
// same name was saved within the same second.
func (s *Store) reserve(base string) (string, error) {
	id := base
	for i := 2; ; i++ {
		err := os.Mkdir(filepath.Join(s.baseDir, id), 0755)
		if err == nil {
			return id, nil
		}
		if !os.IsExist(err) {
			return "", err
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}
}

// JSON has no NaN, so unobserved metrics are dropped.
func finiteMetrics(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[k] = v
		}
	}
	return out
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return err
	}
	return f.Close()
}

// List returns every readable run, newest first.
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
		if runs[i].Timestamp.Equal(runs[j].Timestamp) {
			return runs[i].ID > runs[j].ID
		}
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.path(runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) path(runID, file string) string {
	return filepath.Join(s.baseDir, filepath.Base(runID), file)
}

var trajectoryHeader = []string{
	"step", "t", "y", "h", "v", "h_est", "v_est", "g_est", "u", "innovation", "trace_p",
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeTrajectory(path string, records []mission.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(trajectoryHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{strconv.Itoa(r.Step)}
		for _, v := range []float64{
			r.Time, r.Measurement, r.Height, r.Velocity,
			r.EstHeight, r.EstVelocity, r.EstGravity,
			r.Thrust, r.Innovation, r.CovTrace,
		} {
			row = append(row, formatFloat(v))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// LoadTrajectory reads the trajectory of a stored run.
func (s *Store) LoadTrajectory(runID string) ([]mission.Record, error) {
	rows, err := readCSV(s.path(runID, trajectoryFile))
	if err != nil {
		return nil, err
	}

	records := make([]mission.Record, 0, len(rows))
	for i, row := range rows {
		if len(row) != len(trajectoryHeader) {
			return nil, fmt.Errorf("%s line %d: got %d fields, want %d", trajectoryFile, i+2, len(row), len(trajectoryHeader))
		}
		step, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, i+2, err)
		}
		vals := make([]float64, len(row)-1)
		for j := range vals {
			if vals[j], err = strconv.ParseFloat(row[j+1], 64); err != nil {
				return nil, fmt.Errorf("%s line %d: %w", trajectoryFile, i+2, err)
			}
		}
		records = append(records, mission.Record{
			Step:        step,
			Time:        vals[0],
			Measurement: vals[1],
			Height:      vals[2],
			Velocity:    vals[3],
			EstHeight:   vals[4],
			EstVelocity: vals[5],
			EstGravity:  vals[6],
			Thrust:      vals[7],
			Innovation:  vals[8],
			CovTrace:    vals[9],
		})
	}
	return records, nil
}

// writeGains stores K[i] flattened row-major, one step per line.
func writeGains(path string, schedule *regulator.GainSchedule) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for i := 0; i < schedule.Len(); i++ {
		k, err := schedule.Gain(i)
		if err != nil {
			return err
		}
		p, n := k.Dims()
		if i == 0 {
			header := []string{"step"}
			for r := 0; r < p; r++ {
				for c := 0; c < n; c++ {
					header = append(header, fmt.Sprintf("k%d_%d", r, c))
				}
			}
			if err := w.Write(header); err != nil {
				return err
			}
		}
		row := []string{strconv.Itoa(i)}
		for r := 0; r < p; r++ {
			for c := 0; c < n; c++ {
				row = append(row, formatFloat(k.At(r, c)))
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// LoadGains returns the flattened gains of a stored LQR run, one row per
// step of the horizon.
func (s *Store) LoadGains(runID string) ([][]float64, error) {
	rows, err := readCSV(s.path(runID, gainsFile))
	if err != nil {
		return nil, err
	}
	gains := make([][]float64, 0, len(rows))
	for i, row := range rows {
		k := make([]float64, 0, len(row)-1)
		for _, field := range row[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("%s line %d: %w", gainsFile, i+2, err)
			}
			k = append(k, v)
		}
		gains = append(gains, k)
	}
	return gains, nil
}

// readCSV returns the data rows of a CSV file, without its header.
func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, path)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}
