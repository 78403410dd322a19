package export

import (
	"encoding/csv"
	"encoding/json"
	"io"

	"github.com/san-kum/pendulum3d/internal/sim"
	"github.com/san-kum/pendulum3d/internal/storage"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type SampleData struct {
	Step uint64  `json:"step"`
	Time float64 `json:"time"`
	P1   Point   `json:"p1"`
	P2   Point   `json:"p2"`
}

type ExportData struct {
	ID      string               `json:"id"`
	Name    string               `json:"name"`
	Dt      float64              `json:"dt"`
	Steps   int                  `json:"steps"`
	Params  storage.ParamsRecord `json:"params"`
	Metrics map[string]float64   `json:"metrics"`
	Samples []SampleData         `json:"samples"`
}

// WriteJSON encodes a stored run with all of its samples.
func WriteJSON(w io.Writer, meta *storage.RunMetadata, samples []sim.Sample) error {
	data := ExportData{
		ID:      meta.ID,
		Name:    meta.Name,
		Dt:      meta.Dt,
		Steps:   meta.Steps,
		Params:  meta.Params,
		Metrics: meta.Metrics,
		Samples: make([]SampleData, len(samples)),
	}

	for i, s := range samples {
		data.Samples[i] = SampleData{
			Step: s.Step,
			Time: s.Time,
			P1:   Point{s.P1.X, s.P1.Y, s.P1.Z},
			P2:   Point{s.P2.X, s.P2.Y, s.P2.Z},
		}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// WriteCSV writes samples in the same layout the store uses on disk.
func WriteCSV(w io.Writer, samples []sim.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(storage.Header()); err != nil {
		return err
	}
	for _, s := range samples {
		if err := cw.Write(storage.SampleRecord(s)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
