package snapshot

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"NetSentinel/internal/detector"

	"github.com/goccy/go-json"
)

// Well-known artifact names inside the model directory.
const (
	ScalerFile     = "scaler.gob"
	ClassifierFile = "classifier.gob"
	SummaryFile    = "summary.json"
)

// ErrNoArtifacts is returned by Load when no artifact pair has been written yet.
var ErrNoArtifacts = errors.New("no model artifacts")

// SummaryData holds the metadata written alongside an artifact pair.
type SummaryData struct {
	Samples   int     `json:"samples"`
	Features  int     `json:"features"`
	Trees     int     `json:"trees"`
	Threshold float64 `json:"threshold"`
	Timestamp string  `json:"timestamp"`
}

// Writer persists and reloads the scaler/classifier pair.
type Writer struct {
	dir string
}

// NewWriter creates a writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the model directory.
func (w *Writer) Dir() string { return w.dir }

// Write serializes both artifacts and the summary. Each file is written to a
// temporary name and renamed into place, classifier last among the blobs.
func (w *Writer) Write(scaler *detector.StandardScaler, forest *detector.IsolationForest, samples int) error {
	if scaler == nil || forest == nil {
		return errors.New("artifact pair is incomplete")
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	if err := w.writeGob(ScalerFile, scaler); err != nil {
		return err
	}
	if err := w.writeGob(ClassifierFile, forest); err != nil {
		return err
	}

	summary := SummaryData{
		Samples:   samples,
		Features:  forest.NumFeatures,
		Trees:     len(forest.Trees),
		Threshold: forest.Threshold,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode summary to json: %w", err)
	}
	return w.replace(SummaryFile, func(f *os.File) error {
		_, err := f.Write(data)
		return err
	})
}

func (w *Writer) writeGob(name string, v interface{}) error {
	return w.replace(name, func(f *os.File) error {
		if err := gob.NewEncoder(f).Encode(v); err != nil {
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}
		return nil
	})
}

func (w *Writer) replace(name string, fill func(*os.File) error) error {
	target := filepath.Join(w.dir, name)
	tmp, err := os.CreateTemp(w.dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create '%s': %w", target, err)
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close '%s': %w", target, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("failed to move '%s' into place: %w", target, err)
	}
	return nil
}

// Load decodes the artifact pair. It returns ErrNoArtifacts when either blob
// is missing; a pair is never returned half-loaded.
func (w *Writer) Load() (*detector.StandardScaler, *detector.IsolationForest, error) {
	var scaler detector.StandardScaler
	if err := w.readGob(ScalerFile, &scaler); err != nil {
		return nil, nil, err
	}
	var forest detector.IsolationForest
	if err := w.readGob(ClassifierFile, &forest); err != nil {
		return nil, nil, err
	}
	if len(scaler.Mean) != forest.NumFeatures {
		return nil, nil, fmt.Errorf("artifact mismatch: scaler has %d features, classifier %d",
			len(scaler.Mean), forest.NumFeatures)
	}
	return &scaler, &forest, nil
}

func (w *Writer) readGob(name string, v interface{}) error {
	path := filepath.Join(w.dir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNoArtifacts
	}
	if err != nil {
		return fmt.Errorf("failed to open '%s': %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode '%s': %w", path, err)
	}
	return nil
}

// ReadSummary returns the metadata of the last written pair.
func (w *Writer) ReadSummary() (SummaryData, error) {
	var summary SummaryData
	data, err := os.ReadFile(filepath.Join(w.dir, SummaryFile))
	if errors.Is(err, os.ErrNotExist) {
		return summary, ErrNoArtifacts
	}
	if err != nil {
		return summary, err
	}
	err = json.Unmarshal(data, &summary)
	return summary, err
}
