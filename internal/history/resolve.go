package history

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// CheckPath returns a *PathNotFoundError when path does not exist.
func CheckPath(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return &PathNotFoundError{Path: path}
	}
	return fmt.Errorf("stat %s: %w", path, err)
}

// ResolveLatest picks the file a visualize without an explicit path should
// open: the latest record's output if it still exists, else its input.
// It never modifies the store.
func (s *Store) ResolveLatest() (string, error) {
	r, ok := s.Latest()
	if !ok {
		return "", ErrNoHistory
	}
	if r.HasOutput() && exists(r.OutputPath()) {
		return r.OutputPath(), nil
	}
	if exists(r.Input) {
		return r.Input, nil
	}
	return "", &StalePathError{Record: r}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
