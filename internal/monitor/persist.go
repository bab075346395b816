package monitor

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/alanyoungcy/pumpbot/internal/domain"
)

// WriteMetrics encodes the current Metrics as indented JSON.
func (s *System) WriteMetrics(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Metrics()); err != nil {
		return fmt.Errorf("monitor: encode metrics: %w", err)
	}
	return nil
}

// SaveMetrics writes the current Metrics to path.
func (s *System) SaveMetrics(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("monitor: create %s: %w", path, err)
	}
	if err := s.WriteMetrics(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("monitor: close %s: %w", path, err)
	}
	return nil
}

// LoadMetrics replaces the current Metrics with the snapshot at path. A
// missing file is not an error and leaves the Metrics unchanged.
func (s *System) LoadMetrics(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("monitor: read %s: %w", path, err)
	}
	var m domain.Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("monitor: decode %s: %w", path, err)
	}
	s.SetMetrics(m)
	return nil
}
