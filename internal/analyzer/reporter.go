package analyzer

import (
	"github.com/jward/baseliner/internal/compat"
	"github.com/jward/baseliner/internal/issue"
	"github.com/jward/baseliner/internal/syntax"
)

type site struct {
	key  string
	line int
	col  int
}

// Reporter filters detected keys through the database and collects issues
// for one file. A (key, line, column) triple is reported once.
type Reporter struct {
	db    *compat.Database
	level compat.Level
	typ   issue.Type
	file  string

	seen   map[site]struct{}
	issues []issue.Issue
}

func newReporter(db *compat.Database, level compat.Level, typ issue.Type, file string) *Reporter {
	return &Reporter{
		db:    db,
		level: level,
		typ:   typ,
		file:  file,
		seen:  make(map[site]struct{}),
	}
}

// Report looks up key and records an issue at n when the feature is known and
// not safe at the scan's level. Unknown keys are ignored.
func (r *Reporter) Report(key string, n *syntax.Node, property, value string) {
	r.reportAt(key, n.Line, n.Column, property, value)
}

func (r *Reporter) reportAt(key string, line, col int, property, value string) {
	if key == "" || r.db == nil {
		return
	}
	s := site{key: key, line: line, col: col}
	if _, dup := r.seen[s]; dup {
		return
	}
	f, ok := r.db.Lookup(key)
	if !ok || !r.level.Reports(f.Tier) {
		return
	}
	r.seen[s] = struct{}{}
	r.issues = append(r.issues, issue.New(issue.Input{
		Type:     r.typ,
		Key:      key,
		Feature:  f,
		Property: property,
		Value:    value,
		File:     r.file,
		Line:     line,
		Column:   col,
	}))
}
