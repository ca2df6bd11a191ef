package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/lander/internal/mission"
)

type ExportData struct {
	Run     RunMetadata      `json:"run"`
	Gains   [][]float64      `json:"gains,omitempty"`
	Records []mission.Record `json:"records"`
}

// ExportJSON writes a stored run as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	records, err := s.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	data := ExportData{Run: *meta, Records: records}
	if gains, err := s.LoadGains(runID); err == nil {
		data.Gains = gains
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportJSONFile is ExportJSON into a new file at path.
func (s *Store) ExportJSONFile(path, runID string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := s.ExportJSON(file, runID); err != nil {
		return err
	}
	return file.Close()
}
