package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/scbrown/pct/internal/model"
)

// JSONFile stores the history as a single indented JSON array of records.
type JSONFile struct {
	path string
}

// NewJSONFile returns a backend for the JSON file at path. Nothing is
// created until the first Save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Path returns the history file path.
func (f *JSONFile) Path() string {
	return f.path
}

// Load reads the history file. A missing file is an empty history; anything
// that is not a JSON array of well-formed records is a *CorruptStoreError.
func (f *JSONFile) Load(ctx context.Context) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading history: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &CorruptStoreError{Path: f.path, Err: errors.New("file is empty")}
	}
	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &CorruptStoreError{Path: f.path, Err: err}
	}
	if err := validate(f.path, records); err != nil {
		return nil, err
	}
	return records, nil
}

// Save writes records to a temporary file next to the history and renames
// it over the target, so an interrupted write never leaves a truncated file.
func (f *JSONFile) Save(ctx context.Context, records []model.Record) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if records == nil {
		records = []model.Record{}
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create history dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp history: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("chmod temp history: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}
