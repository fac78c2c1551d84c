package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// StateFile persists a small JSON document on disk. It backs the active
// backend preference when Redis is not configured, the server-side analog of
// the browser's localStorage key.
type StateFile struct {
	path string
}

// NewStateFile ensures the parent directory exists and returns a handle.
func NewStateFile(path string) (*StateFile, error) {
	if path == "" {
		path = "./data/active_backend.json"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &StateFile{path: path}, nil
}

// Save marshals and writes the value, replacing any previous content.
func (s *StateFile) Save(value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	if err := os.WriteFile(s.path, payload, 0o644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	return nil
}

// Load reads the file into dest. A missing file is not an error; dest is left
// untouched and ok is false.
func (s *StateFile) Load(dest interface{}) (ok bool, err error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read state file: %w", err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("unmarshal state: %w", err)
	}
	return true, nil
}
