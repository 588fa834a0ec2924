package history

import (
	"errors"
	"fmt"

	"github.com/scbrown/pct/internal/model"
)

// ErrNoHistory is returned when a bare visualize has nothing to fall back on.
var ErrNoHistory = errors.New("no path specified")

// PathNotFoundError reports an explicitly named path that does not exist.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return fmt.Sprintf("path not found: %s", e.Path)
}

// StalePathError reports that every file named by the latest record is gone.
// The history itself is left untouched.
type StalePathError struct {
	Record model.Record
}

func (e *StalePathError) Error() string {
	if e.Record.HasOutput() {
		return fmt.Sprintf("last history entry is stale: neither %s nor %s exists", e.Record.OutputPath(), e.Record.Input)
	}
	return fmt.Sprintf("last history entry is stale: %s no longer exists", e.Record.Input)
}

// CorruptStoreError reports a history file that exists but cannot be read
// back. Callers must not carry on as if the history were empty.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("history file %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}
