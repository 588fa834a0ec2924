package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scbrown/pct/internal/model"
)

func openTest(t *testing.T, path string, lock bool) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{Path: path, Lock: lock})
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")

	s := openTest(t, path, false)
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
	if _, ok := s.Latest(); ok {
		t.Error("Latest() on empty store reported a record")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("read-only open created files: %v", entries)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, n := range []int{1, 2, 10} {
		t.Run(fmt.Sprintf("%d records", n), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			s := openTest(t, path, true)
			for i := 0; i < n; i++ {
				var r model.Record
				if i%3 == 2 {
					r = model.ViewRecord(fmt.Sprintf("view_%d.ply", i))
				} else {
					r = model.NewRecord(fmt.Sprintf("in_%d.ply", i), fmt.Sprintf("out_%d.ply", i))
				}
				if err := s.Append(r); err != nil {
					t.Fatalf("append: %v", err)
				}
				if err := s.Persist(context.Background()); err != nil {
					t.Fatalf("persist: %v", err)
				}
			}
			want := s.Records()
			s.Close()

			reloaded := openTest(t, path, false)
			if diff := cmp.Diff(want, reloaded.Records()); diff != "" {
				t.Errorf("reloaded records mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLatestIsLastAppended(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	ctx := context.Background()

	s := openTest(t, path, false)
	s.Append(model.NewRecord("a.ply", "b.ply"))
	s.Append(model.ViewRecord("b.ply"))
	s.Append(model.NewRecord("b.ply", "c.ply"))
	if err := s.Persist(ctx); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		s = openTest(t, path, false)
		got, ok := s.Latest()
		if !ok {
			t.Fatalf("reload %d: Latest() absent", i)
		}
		if diff := cmp.Diff(model.NewRecord("b.ply", "c.ply"), got); diff != "" {
			t.Errorf("reload %d: Latest() mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestClearPersistLoadIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	ctx := context.Background()

	s := openTest(t, path, false)
	s.Append(model.NewRecord("a.ply", "b.ply"))
	if err := s.Persist(ctx); err != nil {
		t.Fatal(err)
	}

	s.Clear()
	if err := s.Persist(ctx); err != nil {
		t.Fatal(err)
	}

	s = openTest(t, path, false)
	if s.Len() != 0 {
		t.Errorf("Len() after clear = %d, want 0", s.Len())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]\n" {
		t.Errorf("cleared file = %q, want %q", data, "[]\n")
	}
}

func TestAppendRejectsEmptyInput(t *testing.T) {
	s := New(NewJSONFile(filepath.Join(t.TempDir(), "h.json")))
	if err := s.Append(model.Record{}); err == nil {
		t.Fatal("expected error")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after rejected append", s.Len())
	}
}

func TestRecordsReturnsCopy(t *testing.T) {
	s := New(NewJSONFile(filepath.Join(t.TempDir(), "h.json")))
	s.Append(model.ViewRecord("a.ply"))
	recs := s.Records()
	recs[0].Input = "mutated.ply"
	if got, _ := s.Latest(); got.Input != "a.ply" {
		t.Errorf("store mutated through Records(): %q", got.Input)
	}
}

func TestOpenCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid json", "{invalid"},
		{"object not array", `{"input":"a.ply","output":null}`},
		{"empty file", ""},
		{"whitespace", "  \n"},
		{"missing input", `[{"output":"b.ply"}]`},
		{"wrong type", `[{"input":1,"output":null}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "history.json")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Open(context.Background(), Options{Path: path})
			var corrupt *CorruptStoreError
			if !errors.As(err, &corrupt) {
				t.Fatalf("got %v, want *CorruptStoreError", err)
			}
			if corrupt.Path != path {
				t.Errorf("Path = %q, want %q", corrupt.Path, path)
			}
			data, _ := os.ReadFile(path)
			if string(data) != tt.content {
				t.Errorf("corrupt file was modified: %q", data)
			}
		})
	}
}

func TestOpenAcceptsEmptyArrayAndNull(t *testing.T) {
	for _, content := range []string{"[]", "null", "[]\n"} {
		path := filepath.Join(t.TempDir(), "history.json")
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		s := openTest(t, path, false)
		if s.Len() != 0 {
			t.Errorf("%q: Len() = %d, want 0", content, s.Len())
		}
	}
}

func TestOnDiskFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	s := openTest(t, path, false)
	s.Append(model.NewRecord("house.ply", "filtered_house.ply"))
	s.Append(model.ViewRecord("filtered_house.ply"))
	if err := s.Persist(context.Background()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `[
  {
    "input": "house.ply",
    "output": "filtered_house.ply"
  },
  {
    "input": "filtered_house.ply",
    "output": null
  }
]
`
	if diff := cmp.Diff(want, string(data)); diff != "" {
		t.Errorf("file mismatch (-want +got):\n%s", diff)
	}
}

func TestPersistLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	s := openTest(t, path, false)
	for i := 0; i < 3; i++ {
		s.Append(model.ViewRecord("a.ply"))
		if err := s.Persist(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "history.json" {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("dir contains %v, want only history.json", names)
	}
}

func TestPersistFailureKeepsPreviousFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.json")
	s := openTest(t, path, false)
	s.Append(model.NewRecord("a.ply", "b.ply"))
	if err := s.Persist(context.Background()); err != nil {
		t.Fatal(err)
	}
	before, _ := os.ReadFile(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Append(model.ViewRecord("c.ply"))
	if err := s.Persist(ctx); err == nil {
		t.Fatal("expected error from canceled persist")
	}
	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Errorf("history changed after failed persist:\n%s", after)
	}
}

func TestPersistCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.json")
	s := openTest(t, path, false)
	s.Append(model.ViewRecord("a.ply"))
	if err := s.Persist(context.Background()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("history not written: %v", err)
	}
}

func TestLockExcludesSecondWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	first := openTest(t, path, true)

	ctx, cancel := context.WithTimeout(context.Background(), 3*lockRetry)
	defer cancel()
	if _, err := Open(ctx, Options{Path: path, Lock: true}); err == nil {
		t.Fatal("second locked open succeeded while first holds the lock")
	}

	if err := first.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	second, err := Open(context.Background(), Options{Path: path, Lock: true})
	if err != nil {
		t.Fatalf("open after release: %v", err)
	}
	second.Close()
}

func TestCloseWithoutLock(t *testing.T) {
	s := openTest(t, filepath.Join(t.TempDir(), "h.json"), false)
	if err := s.Close(); err != nil {
		t.Errorf("Close() = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
}

func TestNewBackend(t *testing.T) {
	tests := []struct {
		kind, path string
		want       string
		wantErr    bool
	}{
		{"", "h.json", BackendJSON, false},
		{"", ".pct_history", BackendJSON, false},
		{"", "h.db", BackendSQLite, false},
		{"", "h.SQLITE", BackendSQLite, false},
		{"json", "h.db", BackendJSON, false},
		{"sqlite", "h.json", BackendSQLite, false},
		{"yaml", "h.yaml", "", true},
	}
	for _, tt := range tests {
		b, err := NewBackend(tt.kind, tt.path)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewBackend(%q, %q): expected error", tt.kind, tt.path)
			}
			continue
		}
		if err != nil {
			t.Errorf("NewBackend(%q, %q): %v", tt.kind, tt.path, err)
			continue
		}
		var got string
		switch b.(type) {
		case *JSONFile:
			got = BackendJSON
		case *SQLite:
			got = BackendSQLite
		}
		if got != tt.want {
			t.Errorf("NewBackend(%q, %q) = %s, want %s", tt.kind, tt.path, got, tt.want)
		}
		if b.Path() != tt.path {
			t.Errorf("Path() = %q, want %q", b.Path(), tt.path)
		}
	}
}

func TestTruncateReplacesCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	s, err := Open(ctx, Options{Path: path, Lock: true, Truncate: true})
	if err != nil {
		t.Fatalf("open with truncate: %v", err)
	}
	defer s.Close()
	if s.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", s.Len())
	}
	if err := s.Persist(ctx); err != nil {
		t.Fatalf("persist: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); got != "[]\n" {
		t.Errorf("file = %q, want %q", got, "[]\n")
	}
}
