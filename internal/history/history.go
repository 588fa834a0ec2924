// Package history keeps the ordered log of processed point-cloud files that
// lets a bare "pct v" reopen the last result across separate invocations.
//
// A Store is loaded once per invocation, mutated at most by one Append or a
// Clear, and persisted back in full.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/scbrown/pct/internal/model"
)

// DefaultPath is the history file used when none is configured, relative to
// the working directory.
const DefaultPath = ".pct_history.json"

// Options controls how Open locates and guards the history.
type Options struct {
	Path    string // History file; DefaultPath when empty.
	Backend string // BackendJSON, BackendSQLite, or "" to infer from Path.

	// Lock holds an advisory lock on Path+".lock" from Open until Close, so a
	// load-append-persist sequence is not interleaved with another process.
	// Read-only callers leave it off and create no files.
	Lock bool

	// Truncate skips loading, so the store starts empty even when the file
	// on disk is unreadable. Used to clear a history.
	Truncate bool
}

// Store is the in-memory history backed by a Backend.
type Store struct {
	backend Backend
	records []model.Record
	lock    *flock.Flock
}

// lockRetry is how often Open re-polls a held lock.
const lockRetry = 50 * time.Millisecond

// Open loads the history described by opts. A missing file yields an empty
// store; a file that cannot be parsed yields a *CorruptStoreError.
func Open(ctx context.Context, opts Options) (*Store, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath
	}
	backend, err := NewBackend(opts.Backend, path)
	if err != nil {
		return nil, err
	}

	s := &Store{backend: backend}
	if opts.Lock {
		if err := s.acquire(ctx, path+".lock"); err != nil {
			return nil, err
		}
	}

	if opts.Truncate {
		return s, nil
	}
	records, err := backend.Load(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.records = records
	return s, nil
}

// New returns an empty store over backend without loading it.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) acquire(ctx context.Context, lockPath string) error {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return fmt.Errorf("create lock dir: %w", err)
	}
	fl := flock.New(lockPath)
	locked, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock history %s: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("history %s is locked by another process", lockPath)
	}
	s.lock = fl
	return nil
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.backend.Path()
}

// Append adds r after every existing record. There is no deduplication and
// no size cap.
func (s *Store) Append(r model.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	s.records = append(s.records, r)
	return nil
}

// Latest returns the most recently appended record. The boolean is false
// when the store is empty.
func (s *Store) Latest() (model.Record, bool) {
	if len(s.records) == 0 {
		return model.Record{}, false
	}
	return s.records[len(s.records)-1], true
}

// Records returns a copy of the history in insertion order.
func (s *Store) Records() []model.Record {
	out := make([]model.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Clear empties the in-memory history. Call Persist to make it durable.
func (s *Store) Clear() {
	s.records = nil
}

// Persist overwrites the backend with the full in-memory history.
func (s *Store) Persist(ctx context.Context) error {
	if err := s.backend.Save(ctx, s.records); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// Close releases the advisory lock, if one is held.
func (s *Store) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.Unlock()
	s.lock = nil
	return err
}
