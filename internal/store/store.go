package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/jward/baseliner/internal/issue"
)

// Store is the SQLite result cache for incremental scans.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Open opens dbPath and migrates it.
func Open(dbPath string) (*Store, error) {
	s, err := NewStore(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the results table and its index. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS results (
  path            TEXT NOT NULL,
  hash            TEXT NOT NULL,
  db_version      TEXT NOT NULL,
  level           TEXT NOT NULL,
  rules_hash      TEXT NOT NULL,
  issue_count     INTEGER NOT NULL,
  payload         BLOB NOT NULL,
  scanned_at      TIMESTAMP NOT NULL,
  PRIMARY KEY (path, db_version, level, rules_hash)
);

CREATE INDEX IF NOT EXISTS idx_results_path ON results(path);
`

// Get returns the cached issues for path when its content hash and the
// fingerprint both match. A stale or undecodable entry is a miss.
func (s *Store) Get(path, hash string, fp Fingerprint) ([]issue.Issue, bool, error) {
	var (
		storedHash string
		blob       []byte
	)
	err := s.db.QueryRow(
		`SELECT hash, payload FROM results
		 WHERE path = ? AND db_version = ? AND level = ? AND rules_hash = ?`,
		path, fp.DBVersion, fp.Level, fp.Rules,
	).Scan(&storedHash, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get result %s: %w", path, err)
	}
	if storedHash != hash {
		return nil, false, nil
	}
	issues, ok := decodePayload(blob)
	if !ok {
		return nil, false, nil
	}
	return issues, true, nil
}

// Put stores one file's issues under fp, replacing any previous entry.
func (s *Store) Put(path, hash string, fp Fingerprint, issues []issue.Issue) error {
	return s.PutBatch(fp, []Entry{{Path: path, Hash: hash, Issues: issues, ScannedAt: time.Now()}})
}

// Forget removes every cached entry for the given paths.
func (s *Store) Forget(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	q := "DELETE FROM results WHERE path IN (" + placeholderList(len(paths)) + ")"
	if _, err := s.db.Exec(q, stringsToArgs(paths)...); err != nil {
		return fmt.Errorf("forget results: %w", err)
	}
	return nil
}

// Paths returns every path with at least one cached entry, sorted.
func (s *Store) Paths() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT path FROM results ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("list result paths: %w", err)
	}
	defer rows.Close()
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan result path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Clear drops every cached result.
func (s *Store) Clear() error {
	if _, err := s.db.Exec("DELETE FROM results"); err != nil {
		return fmt.Errorf("clear results: %w", err)
	}
	return nil
}
