// Package analyzer detects web-platform features in parsed source files and
// turns the ones the compatibility database knows into issues.
//
// Each surface language has a Detector that walks the uniform syntax tree and
// reports lookup keys. A Registry maps file extensions to detectors, runs the
// optional rule scripts, and filters every key through the database and the
// scan's baseline level.
package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jward/baseliner/internal/compat"
	"github.com/jward/baseliner/internal/issue"
	"github.com/jward/baseliner/internal/runtime"
	"github.com/jward/baseliner/internal/syntax"
)

// ErrUnsupported is returned for files no detector handles.
var ErrUnsupported = errors.New("analyzer: unsupported file type")

// ErrSyntax marks a tree that contains parse errors.
var ErrSyntax = errors.New("source has syntax errors")

// errorKind is the node kind tree-sitter gives to unparsable input.
const errorKind = "ERROR"

// ParseError reports a file that could not be analyzed because it failed to
// parse. It is absorbed by callers into a warning.
type ParseError struct {
	Path string
	Lang syntax.Language
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("analyzer: parse %s as %s: %v", e.Path, e.Lang, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Detector walks one language's syntax tree and reports lookup keys.
type Detector interface {
	Detect(root *syntax.Node, r *Reporter)
}

// Config is shared, read-only analysis state.
type Config struct {
	DB    *compat.Database
	Level compat.Level
	// Rules runs detector scripts after the built-in detectors. Nil disables
	// them.
	Rules *runtime.Runtime
}

// Result is the outcome of analyzing one file.
type Result struct {
	Issues []issue.Issue
	// RuleErr holds rule script failures. Issues from the detectors and from
	// scripts that succeeded are still in Issues.
	RuleErr error
}

type entry struct {
	typ issue.Type
	det Detector
	// recovered reports whether a tree with syntax errors still holds enough
	// structure to analyze. Nil rejects any tree with errors.
	recovered func(root *syntax.Node) bool
}

// Registry dispatches files to detectors by language.
type Registry struct {
	cfg    Config
	byLang map[syntax.Language]entry
}

// NewRegistry creates a Registry with the CSS, script and markup detectors.
func NewRegistry(cfg Config) *Registry {
	if cfg.Level == "" {
		cfg.Level = compat.DefaultLevel
	}
	script := entry{typ: issue.TypeJavaScript, det: Script{}}
	return &Registry{
		cfg: cfg,
		byLang: map[syntax.Language]entry{
			syntax.CSS:        {typ: issue.TypeCSS, det: CSS{}, recovered: cssRecovered},
			syntax.JavaScript: script,
			syntax.TypeScript: script,
			syntax.TSX:        script,
			syntax.HTML:       {typ: issue.TypeHTML, det: Markup{}, recovered: func(*syntax.Node) bool { return true }},
		},
	}
}

// Level reports the baseline level the registry filters with.
func (reg *Registry) Level() compat.Level { return reg.cfg.Level }

// Supports reports whether path has an extension a detector handles.
func (reg *Registry) Supports(path string) bool {
	lang, ok := syntax.LanguageForFile(path)
	if !ok {
		return false
	}
	_, ok = reg.byLang[lang]
	return ok
}

// Analyze parses content as the language implied by path and returns the
// issues found. Scripts with syntax errors produce a *ParseError. Style sheets
// are analyzed outside their unparsable regions as long as a declaration
// survived, and markup is analyzed as far as the parser recovered.
func (reg *Registry) Analyze(ctx context.Context, path string, content []byte) (Result, error) {
	lang, ok := syntax.LanguageForFile(path)
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}
	e, ok := reg.byLang[lang]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupported, path)
	}

	tree, err := syntax.Parse(ctx, lang, content)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		return Result{}, &ParseError{Path: path, Lang: lang, Err: err}
	}
	defer tree.Close()

	if tree.HasError && (e.recovered == nil || !e.recovered(tree.Root)) {
		return Result{}, &ParseError{Path: path, Lang: lang, Err: ErrSyntax}
	}

	rep := newReporter(reg.cfg.DB, reg.cfg.Level, e.typ, path)
	e.det.Detect(tree.Root, rep)

	var res Result
	if reg.cfg.Rules != nil {
		found, err := reg.cfg.Rules.Run(ctx, tree, path)
		for _, d := range found {
			rep.reportAt(d.Key, d.Line, d.Column, "", "")
		}
		if len(found) > 0 {
			issue.Sort(rep.issues)
		}
		res.RuleErr = err
	}
	res.Issues = rep.issues
	return res, nil
}
