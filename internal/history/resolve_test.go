package history

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/scbrown/pct/internal/model"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("ply\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestResolveLatestEmpty(t *testing.T) {
	s := New(NewJSONFile(filepath.Join(t.TempDir(), "h.json")))
	_, err := s.ResolveLatest()
	if !errors.Is(err, ErrNoHistory) {
		t.Fatalf("got %v, want ErrNoHistory", err)
	}
}

func TestResolveLatest(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ply")
	b := filepath.Join(dir, "b.ply")

	s := New(NewJSONFile(filepath.Join(dir, "h.json")))
	s.Append(model.NewRecord(a, b))

	touch(t, a)
	touch(t, b)
	got, err := s.ResolveLatest()
	if err != nil {
		t.Fatalf("both exist: %v", err)
	}
	if got != b {
		t.Errorf("both exist: got %q, want output %q", got, b)
	}

	os.Remove(b)
	got, err = s.ResolveLatest()
	if err != nil {
		t.Fatalf("output deleted: %v", err)
	}
	if got != a {
		t.Errorf("output deleted: got %q, want input %q", got, a)
	}

	os.Remove(a)
	_, err = s.ResolveLatest()
	var stale *StalePathError
	if !errors.As(err, &stale) {
		t.Fatalf("both deleted: got %v, want *StalePathError", err)
	}
	if stale.Record.Input != a {
		t.Errorf("stale record input = %q, want %q", stale.Record.Input, a)
	}
	if s.Len() != 1 {
		t.Errorf("stale resolution changed history: Len() = %d", s.Len())
	}
}

func TestResolveLatestViewOnly(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.ply")
	touch(t, a)

	s := New(NewJSONFile(filepath.Join(dir, "h.json")))
	s.Append(model.NewRecord(filepath.Join(dir, "old_in.ply"), filepath.Join(dir, "old_out.ply")))
	s.Append(model.ViewRecord(a))

	got, err := s.ResolveLatest()
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Errorf("got %q, want %q", got, a)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestResolveUsesOnlyLatest(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "older.ply")
	touch(t, older)

	s := New(NewJSONFile(filepath.Join(dir, "h.json")))
	s.Append(model.ViewRecord(older))
	s.Append(model.NewRecord(filepath.Join(dir, "gone_in.ply"), filepath.Join(dir, "gone_out.ply")))

	_, err := s.ResolveLatest()
	var stale *StalePathError
	if !errors.As(err, &stale) {
		t.Fatalf("got %v, want *StalePathError", err)
	}
}

func TestStalePathErrorMessage(t *testing.T) {
	withOutput := &StalePathError{Record: model.NewRecord("a.ply", "b.ply")}
	if got, want := withOutput.Error(), "last history entry is stale: neither b.ply nor a.ply exists"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	viewOnly := &StalePathError{Record: model.ViewRecord("a.ply")}
	if got, want := viewOnly.Error(), "last history entry is stale: a.ply no longer exists"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCheckPath(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present.ply")
	touch(t, present)

	if err := CheckPath(present); err != nil {
		t.Errorf("CheckPath(existing) = %v", err)
	}

	missing := filepath.Join(dir, "missing.ply")
	err := CheckPath(missing)
	var nf *PathNotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("got %v, want *PathNotFoundError", err)
	}
	if nf.Path != missing {
		t.Errorf("Path = %q, want %q", nf.Path, missing)
	}
}
