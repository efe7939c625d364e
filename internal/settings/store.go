package settings

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dictalabs/dicta-core/internal/config"
)

// Store persists the settings blob as a single JSON document on disk.
// Reads are soft: a missing file is the normal first-run state, never an
// error. Writes replace the whole document atomically via a temp file and
// rename, so a crash mid-save leaves the previous document intact.
type Store struct {
	path string
	log  *slog.Logger
}

func NewStore(cfg config.SettingsConfig, log *slog.Logger) (*Store, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create settings dir: %w", err)
		}
	}
	return &Store{
		path: cfg.Path,
		log:  log.With(slog.String("component", "settings.store")),
	}, nil
}

// Read loads the persisted document. present is false when nothing has been
// saved yet. Fields absent from the file keep their default values and
// unknown fields are ignored, so documents written by older or newer builds
// both load.
func (s *Store) Read() (Blob, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Blob{}, false, nil
		}
		return Blob{}, false, fmt.Errorf("read settings: %w", err)
	}
	blob := Default()
	if err := json.Unmarshal(data, &blob); err != nil {
		return Blob{}, false, fmt.Errorf("parse settings: %w", err)
	}
	return blob, true, nil
}

// Write replaces the persisted document. The store does not merge: the last
// writer wins at the granularity of the whole document, so callers re-read
// immediately before writing to avoid clobbering sections they do not own.
func (s *Store) Write(blob Blob) error {
	data, err := json.MarshalIndent(blob, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace settings: %w", err)
	}
	return nil
}
