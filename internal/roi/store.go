// Package roi persists the scan rectangle between runs.
package roi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"readout/pkg/geometry"

	"go.uber.org/zap"
)

const roiFile = "roi.json"

// Default is the rectangle used when nothing valid has been saved.
var Default = geometry.RectInt{X: 100, Y: 200, Width: 300, Height: 100}

// ErrPersistence wraps every read or write failure of the ROI record.
var ErrPersistence = errors.New("roi persistence")

// Store reads and writes the ROI record, a JSON array [x, y, w, h].
type Store struct {
	path string
	log  *zap.Logger
}

// NewStore creates a store backed by path.
func NewStore(path string, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{path: path, log: log}
}

// DefaultPath returns ~/.config/readout/roi.json (or the platform equivalent).
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "readout", roiFile)
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved rectangle, or Default if the record is missing or invalid.
// It never fails.
func (s *Store) Load() geometry.RectInt {
	r, err := s.read()
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.log.Info("no saved roi, using default", zap.String("path", s.path))
		} else {
			s.log.Warn("ignoring saved roi", zap.String("path", s.path), zap.Error(err))
		}
		return Default
	}
	return r
}

func (s *Store) read() (geometry.RectInt, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return geometry.RectInt{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	r, err := Decode(data)
	if err != nil {
		return geometry.RectInt{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return r, nil
}

// Decode parses a record. It accepts exactly four non-negative JSON integers.
func Decode(data []byte) (geometry.RectInt, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var values []any
	if err := dec.Decode(&values); err != nil {
		return geometry.RectInt{}, fmt.Errorf("decode: %w", err)
	}
	if dec.More() {
		return geometry.RectInt{}, errors.New("trailing data after record")
	}
	if len(values) != 4 {
		return geometry.RectInt{}, fmt.Errorf("expected 4 values, got %d", len(values))
	}

	var fields [4]int
	for i, v := range values {
		num, ok := v.(json.Number)
		if !ok {
			return geometry.RectInt{}, fmt.Errorf("value %d is not a number", i)
		}
		n, err := num.Int64()
		if err != nil {
			return geometry.RectInt{}, fmt.Errorf("value %d is not an integer: %s", i, num)
		}
		if n < 0 {
			return geometry.RectInt{}, fmt.Errorf("value %d is negative: %d", i, n)
		}
		fields[i] = int(n)
	}
	return geometry.RectInt{X: fields[0], Y: fields[1], Width: fields[2], Height: fields[3]}, nil
}

// Save writes r to disk, replacing the file atomically.
func (s *Store) Save(r geometry.RectInt) error {
	if !r.Valid() {
		return fmt.Errorf("%w: negative field in %v", ErrPersistence, r)
	}
	data, err := json.Marshal(r.Array())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	tmp, err := os.CreateTemp(dir, roiFile+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.log.Debug("roi saved", zap.String("path", s.path), zap.Stringer("roi", r))
	return nil
}
