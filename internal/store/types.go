package store

import (
	"time"

	"github.com/jward/baseliner/internal/issue"
)

// Fingerprint identifies everything besides file content that affects a
// file's issues. A cached entry is only valid for the fingerprint it was
// written under.
type Fingerprint struct {
	DBVersion string // compatibility table version
	Level     string // baseline level
	Rules     string // hash of the rule scripts, "" when disabled
}

// Entry is one cached file result.
type Entry struct {
	Path      string
	Hash      string
	Issues    []issue.Issue
	ScannedAt time.Time
}
