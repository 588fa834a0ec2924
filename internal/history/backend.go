package history

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/scbrown/pct/internal/model"
)

// Backend kinds accepted by Options.Backend and the history_backend config key.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Backend is the durable side of a Store. Load returns an empty slice when
// nothing has been saved yet; Save replaces everything with records.
type Backend interface {
	// Load reads every record in insertion order.
	Load(ctx context.Context) ([]model.Record, error)

	// Save overwrites the durable state with records.
	Save(ctx context.Context, records []model.Record) error

	// Path returns the file backing the history.
	Path() string
}

// NewBackend returns the backend for kind at path. An empty kind is inferred
// from the file extension.
func NewBackend(kind, path string) (Backend, error) {
	if kind == "" {
		kind = inferKind(path)
	}
	switch kind {
	case BackendJSON:
		return NewJSONFile(path), nil
	case BackendSQLite:
		return NewSQLite(path), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q (want %q or %q)", kind, BackendJSON, BackendSQLite)
	}
}

func inferKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return BackendSQLite
	default:
		return BackendJSON
	}
}

// validate rejects loaded records that could not have been written by Append.
func validate(path string, records []model.Record) error {
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return &CorruptStoreError{Path: path, Err: fmt.Errorf("record %d: %w", i, err)}
		}
	}
	return nil
}
