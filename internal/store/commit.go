package store

import (
	"fmt"
	"time"
)

// PutBatch writes entries under fp within a single transaction. Parallel
// scans collect results from their workers and commit them here once, so
// SQLite only ever sees one writer.
func (s *Store) PutBatch(fp Fingerprint, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put batch: begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO results
		   (path, hash, db_version, level, rules_hash, issue_count, payload, scanned_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("put batch: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		blob, err := encodePayload(e.Issues)
		if err != nil {
			return fmt.Errorf("put batch: %s: %w", e.Path, err)
		}
		at := e.ScannedAt
		if at.IsZero() {
			at = time.Now()
		}
		if _, err := stmt.Exec(e.Path, e.Hash, fp.DBVersion, fp.Level, fp.Rules, len(e.Issues), blob, at); err != nil {
			return fmt.Errorf("put batch: %s: %w", e.Path, err)
		}
	}
	return tx.Commit()
}
