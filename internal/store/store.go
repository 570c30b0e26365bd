// Package store persists finished animations and their JSON build records.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fourshot/wigglegram/internal/pipeline"
)

// Store writes animations and build records under a single output directory,
// creating it as needed and avoiding name collisions.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a store rooted at dir. A nil logger falls back to slog.Default().
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, logger: logger}
}

// Record captures the outcome of one pipeline build.
type Record struct {
	CreatedAt time.Time                            `json:"created_at"`
	Output    string                               `json:"output,omitempty"`
	Width     int                                  `json:"width,omitempty"`
	Height    int                                  `json:"height,omitempty"`
	Frames    int                                  `json:"frames,omitempty"`
	Offsets   [pipeline.FrameCount]pipeline.Offset `json:"offsets,omitempty"`
	Error     string                               `json:"error,omitempty"`
}

// SaveAnimation writes GIF bytes as <base>.gif, appending -1, -2, ... when the
// name is taken. It returns the path actually written.
func (s *Store) SaveAnimation(base string, data []byte) (string, error) {
	path, err := s.reserve(base, ".gif")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	s.logger.Info("saved animation", "path", path, "bytes", len(data))
	return path, nil
}

// SaveRecord writes the JSON build record next to the animation.
func (s *Store) SaveRecord(base string, rec Record) (string, error) {
	path, err := s.reserve(base, ".json")
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// reserve picks the first free <base><suffix> name under the store directory.
func (s *Store) reserve(base, suffix string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, base+suffix)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		} else if err != nil {
			return "", err
		}
		path = filepath.Join(s.dir, fmt.Sprintf("%s-%d%s", base, n, suffix))
	}
}
