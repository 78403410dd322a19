package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/pendulum3d/internal/dynamo"
	"github.com/san-kum/pendulum3d/internal/integrators"
	"github.com/san-kum/pendulum3d/internal/sim"
)

const (
	metadataFile  = "metadata.json"
	positionsFile = "positions.csv"
)

var positionsHeader = []string{"step", "time", "x1", "y1", "z1", "x2", "y2", "z2"}

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
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	RunID     uint64             `json:"run_id"`
	Dt        float64            `json:"dt"`
	Steps     int                `json:"steps"`
	Params    ParamsRecord       `json:"params"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Duration is the simulated time covered by the run.
func (m RunMetadata) Duration() float64 {
	return float64(m.Steps) * m.Dt
}

// ParamsRecord is the JSON form of dynamo.Params.
type ParamsRecord struct {
	M1          float64 `json:"m1"`
	M2          float64 `json:"m2"`
	L1          float64 `json:"l1"`
	L2          float64 `json:"l2"`
	G           float64 `json:"g"`
	Theta1      float64 `json:"theta1"`
	Phi1        float64 `json:"phi1"`
	Theta2      float64 `json:"theta2"`
	Phi2        float64 `json:"phi2"`
	TrailLength int     `json:"trail_length"`
}

func recordOf(p dynamo.Params) ParamsRecord {
	return ParamsRecord{
		M1: p.M1, M2: p.M2, L1: p.L1, L2: p.L2, G: p.G,
		Theta1: p.Theta1, Phi1: p.Phi1, Theta2: p.Theta2, Phi2: p.Phi2,
		TrailLength: p.TrailLength,
	}
}

// Params converts the record back, tagged with runID.
func (r ParamsRecord) Params(runID uint64) dynamo.Params {
	return dynamo.Params{
		M1: r.M1, M2: r.M2, L1: r.L1, L2: r.L2, G: r.G,
		Theta1: r.Theta1, Phi1: r.Phi1, Theta2: r.Theta2, Phi2: r.Phi2,
		TrailLength: r.TrailLength,
		RunID:       runID,
	}
}

// Save writes the metadata and every sample of result under a new run
// directory and returns its id, the name plus a short random suffix.
func (s *Store) Save(name string, result *sim.Result) (string, error) {
	name = safeName(name)
	now := time.Now()
	runID := fmt.Sprintf("%s_%s", name, uuid.NewString()[:8])
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:        runID,
		Name:      name,
		Timestamp: now,
		RunID:     result.Params.RunID,
		Dt:        integrators.FixedDt,
		Steps:     result.StepsTaken,
		Params:    recordOf(result.Params),
		Metrics:   result.Metrics,
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeSamples(filepath.Join(runDir, positionsFile), result.Samples); err != nil {
		return "", err
	}
	return runID, nil
}

// safeName turns a user supplied run name into a single path element.
func safeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, ".")
	if name == "" {
		return "run"
	}
	return name
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSamples(path string, samples []sim.Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(positionsHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		if err := w.Write(SampleRecord(smp)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// SampleRecord formats one sample as a CSV row matching the positions
// header. Values use the shortest form that parses back exactly.
func SampleRecord(smp sim.Sample) []string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return []string{
		strconv.FormatUint(smp.Step, 10),
		f(smp.Time),
		f(smp.P1.X), f(smp.P1.Y), f(smp.P1.Z),
		f(smp.P2.X), f(smp.P2.Y), f(smp.P2.Z),
	}
}

// Header returns the CSV header used for positions.
func Header() []string {
	h := make([]string, len(positionsHeader))
	copy(h, positionsHeader)
	return h
}

// List returns all readable runs, oldest first.
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

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode %s metadata: %w", runID, err)
	}

	return &meta, nil
}

// LoadSamples reads the recorded positions of a run.
func (s *Store) LoadSamples(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, positionsFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", runID, dynamo.ErrRunNotFound)
		}
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(positionsHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s positions: %w", runID, err)
	}

	if len(records) < 2 {
		return []sim.Sample{}, nil
	}

	samples := make([]sim.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		smp, err := parseSample(record)
		if err != nil {
			return nil, fmt.Errorf("%s positions line %d: %w", runID, i+2, err)
		}
		samples = append(samples, smp)
	}

	return samples, nil
}

func parseSample(record []string) (sim.Sample, error) {
	step, err := strconv.ParseUint(record[0], 10, 64)
	if err != nil {
		return sim.Sample{}, err
	}
	vals := make([]float64, len(record)-1)
	for j, field := range record[1:] {
		vals[j], err = strconv.ParseFloat(field, 64)
		if err != nil {
			return sim.Sample{}, err
		}
	}
	return sim.Sample{
		Step: step,
		Time: vals[0],
		P1:   dynamo.Vec3{X: vals[1], Y: vals[2], Z: vals[3]},
		P2:   dynamo.Vec3{X: vals[4], Y: vals[5], Z: vals[6]},
	}, nil
}
