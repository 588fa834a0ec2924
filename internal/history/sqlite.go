package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/scbrown/pct/internal/model"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

// SQLite stores the history in a local SQLite database. Rows keep the id
// and timestamp they were first written with; Save only inserts the records
// appended since the last Load unless the sequence was rewritten.
type SQLite struct {
	path string
}

// NewSQLite returns a backend for the database at path. The database is
// created on the first Save.
func NewSQLite(path string) *SQLite {
	return &SQLite{path: path}
}

// Path returns the database path.
func (s *SQLite) Path() string {
	return s.path
}

// open opens the database and runs schema migrations. Failures on a file
// that already existed are reported as corruption.
func (s *SQLite) open(ctx context.Context) (*sql.DB, error) {
	_, statErr := os.Stat(s.path)
	existed := statErr == nil

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", s.path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(ctx, db); err != nil {
		db.Close()
		if existed {
			return nil, &CorruptStoreError{Path: s.path, Err: err}
		}
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}

	var ver int
	err := db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&ver)
	if errors.Is(err, sql.ErrNoRows) {
		ver = 0
	} else if err != nil {
		return fmt.Errorf("read version: %w", err)
	}
	if ver > schemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", ver, schemaVersion)
	}

	if ver < 1 {
		stmts := []string{
			`CREATE TABLE IF NOT EXISTS records (
				seq         INTEGER PRIMARY KEY,
				id          TEXT NOT NULL UNIQUE,
				input       TEXT NOT NULL,
				output      TEXT,
				recorded_at TEXT NOT NULL
			)`,
			`DELETE FROM schema_version`,
			`INSERT INTO schema_version (version) VALUES (1)`,
		}
		for _, stmt := range stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate v1: %w", err)
			}
		}
	}
	return nil
}

// Load returns all records ordered by insertion. A missing database is an
// empty history and is not created.
func (s *SQLite) Load(ctx context.Context) ([]model.Record, error) {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	db, err := s.open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	records, err := queryRecords(ctx, db)
	if err != nil {
		return nil, &CorruptStoreError{Path: s.path, Err: err}
	}
	if err := validate(s.path, records); err != nil {
		return nil, err
	}
	return records, nil
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func queryRecords(ctx context.Context, q querier) ([]model.Record, error) {
	rows, err := q.QueryContext(ctx, "SELECT input, output FROM records ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		var (
			input  string
			output sql.NullString
		)
		if err := rows.Scan(&input, &output); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r := model.Record{Input: input}
		if output.Valid {
			r.Output = &output.String
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Save makes the table hold exactly records, in one transaction.
func (s *SQLite) Save(ctx context.Context, records []model.Record) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	existing, err := queryRecords(ctx, tx)
	if err != nil {
		return err
	}
	start := len(existing)
	if !isPrefix(existing, records) {
		if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
			return fmt.Errorf("clear records: %w", err)
		}
		start = 0
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, r := range records[start:] {
		var output sql.NullString
		if r.Output != nil {
			output = sql.NullString{String: *r.Output, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO records (id, input, output, recorded_at) VALUES (?, ?, ?, ?)",
			uuid.New().String(), r.Input, output, now,
		); err != nil {
			return fmt.Errorf("insert record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// isPrefix reports whether old is a leading subsequence of cur.
func isPrefix(old, cur []model.Record) bool {
	if len(old) > len(cur) {
		return false
	}
	for i := range old {
		if old[i].Input != cur[i].Input || old[i].OutputPath() != cur[i].OutputPath() || old[i].HasOutput() != cur[i].HasOutput() {
			return false
		}
	}
	return true
}
