package baseliner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/jward/baseliner/internal/analyzer"
	"github.com/jward/baseliner/internal/compat"
	"github.com/jward/baseliner/internal/issue"
	rulert "github.com/jward/baseliner/internal/runtime"
	"github.com/jward/baseliner/internal/store"
	"github.com/jward/baseliner/rules"
)

// Engine orchestrates a scan: file discovery, filtering, dispatch to the
// per-language analyzers, optional result caching and aggregation.
// An Engine is safe for concurrent scans.
type Engine struct {
	db     *compat.Database
	logger *slog.Logger
	cache  *store.Store
	rules  *rulert.Runtime

	rulesDir  string
	rulesFS   fs.FS
	noRules   bool
	rulesHash string // identifies the loaded scripts in cache keys

	// useParallel enables the worker pool.
	useParallel bool
	workers     int
}

// Option configures an Engine.
type Option func(*Engine)

// WithDatabase replaces the embedded compatibility table.
func WithDatabase(db *Database) Option {
	return func(e *Engine) {
		e.db = db
	}
}

// WithLogger routes soft warnings and progress to l. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithParallel controls the worker pool. When true (default), files are
// analyzed concurrently; results keep visitation order either way.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers bounds the worker pool. n <= 0 means runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithCache reuses per-file results across scans. Entries are keyed by
// content hash, database version, level and rule scripts.
func WithCache(s *Store) Option {
	return func(e *Engine) {
		e.cache = s
	}
}

// WithRulesFS loads rule scripts from fsys instead of the embedded defaults.
func WithRulesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.rulesFS = fsys
	}
}

// WithRulesDir loads rule scripts from a directory on disk.
func WithRulesDir(dir string) Option {
	return func(e *Engine) {
		e.rulesDir = dir
	}
}

// WithoutRules disables rule scripts; only the built-in detectors run.
func WithoutRules() Option {
	return func(e *Engine) {
		e.noRules = true
	}
}

// New creates an Engine. Without WithDatabase the embedded table is loaded.
// Rule script loading priority:
//  1. WithoutRules disables them
//  2. WithRulesFS
//  3. WithRulesDir
//  4. the embedded rules
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		useParallel: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.workers <= 0 {
		e.workers = runtime.NumCPU()
	}
	if e.db == nil {
		db, err := compat.Load()
		if err != nil {
			return nil, fmt.Errorf("baseliner: load database: %w", err)
		}
		e.db = db
	}

	if !e.noRules {
		rtOpts := []rulert.RuntimeOption{rulert.WithLogger(e.logger)}
		switch {
		case e.rulesFS != nil:
			rtOpts = append(rtOpts, rulert.WithRuntimeFS(e.rulesFS))
		case e.rulesDir != "":
			// NewRuntime reads the directory.
		default:
			rtOpts = append(rtOpts, rulert.WithRuntimeFS(rules.FS))
		}
		e.rules = rulert.NewRuntime(e.rulesDir, rtOpts...)
		// Load eagerly so a broken rules directory fails here, not per file.
		sources, err := e.rules.Sources()
		if err != nil {
			return nil, fmt.Errorf("baseliner: load rules: %w", err)
		}
		e.rulesHash = store.SourcesHash(sources)
	}
	return e, nil
}

// Database returns the compatibility table the Engine classifies with.
func (e *Engine) Database() *Database {
	return e.db
}

// WarningKind classifies a soft per-file failure.
type WarningKind string

const (
	WarningIO    WarningKind = "io"
	WarningParse WarningKind = "parse"
	WarningRule  WarningKind = "rule"
	WarningCache WarningKind = "cache"
)

// Warning is a per-file failure that did not abort the scan.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	File    string      `json:"file"`
	Message string      `json:"message"`
}

// FileCounts counts files in a scan.
type FileCounts struct {
	Scanned    int `json:"scanned"`
	WithIssues int `json:"withIssues"`
}

// ScanResult is the aggregate of one scan. Issues keep visitation order and
// every Summary count is derived from them.
type ScanResult struct {
	Issues    []Issue    `json:"issues"`
	Summary   Summary    `json:"summary"`
	Files     FileCounts `json:"files"`
	Warnings  []Warning  `json:"warnings,omitempty"`
	CacheHits int        `json:"cacheHits,omitempty"`
}

// target is one file selected for analysis.
type target struct {
	path string // path to read
	rel  string // slash path used for filtering and in issues
}

// fileResult is one worker's output slot.
type fileResult struct {
	done      bool
	hit       bool
	hash      string
	issues    []issue.Issue
	warnings  []Warning
	cacheable bool
}

// Scan walks root and analyzes every file selected by opts. Invalid options
// or a missing root return an error wrapping ErrInvalidOptions before any
// file is read. Per-file failures become Warnings. When ctx is cancelled the
// partial result is returned together with ctx.Err().
func (e *Engine) Scan(ctx context.Context, root string, opts ScanOptions) (*ScanResult, error) {
	p, err := opts.compile()
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("%w: root: %v", ErrInvalidOptions, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: root %s is not a directory", ErrInvalidOptions, root)
	}

	targets, warnings, err := e.discover(ctx, root, p)
	if err != nil {
		return &ScanResult{Issues: []Issue{}, Warnings: warnings}, err
	}
	res, err := e.run(ctx, targets, p)
	res.Warnings = append(warnings, res.Warnings...)
	return res, err
}

// ScanFiles analyzes an explicit list of files. Filters apply to the paths
// as given, slash-separated with any leading "./" removed.
func (e *Engine) ScanFiles(ctx context.Context, paths []string, opts ScanOptions) (*ScanResult, error) {
	p, err := opts.compile()
	if err != nil {
		return nil, err
	}
	var targets []target
	for _, path := range paths {
		rel := strings.TrimPrefix(filepath.ToSlash(path), "./")
		if p.selects(rel) {
			targets = append(targets, target{path: path, rel: rel})
		}
	}
	return e.run(ctx, targets, p)
}

// AnalyzeFile analyzes one in-memory file. It only fails for invalid
// options; unsupported files and parse failures yield no issues and are
// logged.
func (e *Engine) AnalyzeFile(ctx context.Context, path string, content []byte, opts ScanOptions) ([]Issue, error) {
	p, err := opts.compile()
	if err != nil {
		return nil, err
	}
	rel := filepath.ToSlash(path)
	res, err := e.registry(p).Analyze(ctx, rel, content)
	switch {
	case errors.Is(err, analyzer.ErrUnsupported):
		e.logger.Debug("unsupported file", "file", rel)
		return []Issue{}, nil
	case err != nil:
		e.logger.Warn("parse failure", "file", rel, "error", err)
		return []Issue{}, nil
	}
	if res.RuleErr != nil {
		e.logger.Warn("rule failure", "file", rel, "error", res.RuleErr)
	}
	if res.Issues == nil {
		return []Issue{}, nil
	}
	return res.Issues, nil
}

func (e *Engine) registry(p *plan) *analyzer.Registry {
	return analyzer.NewRegistry(analyzer.Config{DB: e.db, Level: p.level, Rules: e.rules})
}

// discover walks root without following symlinks. Directories matched by an
// exclude pattern ending in "/**" are pruned. Unreadable subdirectories
// become warnings.
func (e *Engine) discover(ctx context.Context, root string, p *plan) ([]target, []Warning, error) {
	var (
		targets  []target
		warnings []Warning
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if err != nil {
			if path == root {
				return err
			}
			warnings = append(warnings, Warning{Kind: WarningIO, File: rel, Message: err.Error()})
			e.logger.Warn("walk failure", "file", rel, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && p.exclude.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil // symlinks, devices, sockets
		}
		if p.selects(rel) {
			targets = append(targets, target{path: path, rel: rel})
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, warnings, ctxErr
		}
		return nil, warnings, fmt.Errorf("baseliner: walk %s: %w", root, err)
	}
	return targets, warnings, nil
}

// run analyzes targets and aggregates their results in target order.
func (e *Engine) run(ctx context.Context, targets []target, p *plan) (*ScanResult, error) {
	reg := e.registry(p)
	fp := store.Fingerprint{DBVersion: e.db.Version(), Level: string(p.level), Rules: e.rulesHash}

	var selected []target
	for _, t := range targets {
		if reg.Supports(t.rel) {
			selected = append(selected, t)
		}
	}

	slots := make([]fileResult, len(selected))
	if e.useParallel && e.workers > 1 && len(selected) > 1 {
		e.analyzeParallel(ctx, reg, selected, slots, fp, p)
	} else {
		for i, t := range selected {
			if ctx.Err() != nil {
				break
			}
			slots[i] = e.analyzeOne(ctx, reg, t, fp, p)
		}
	}

	res := &ScanResult{Issues: []Issue{}}
	var fresh []store.Entry
	for i, slot := range slots {
		if !slot.done {
			continue
		}
		res.Files.Scanned++
		res.Issues = append(res.Issues, slot.issues...)
		res.Warnings = append(res.Warnings, slot.warnings...)
		if slot.hit {
			res.CacheHits++
		} else if slot.cacheable {
			fresh = append(fresh, store.Entry{Path: selected[i].rel, Hash: slot.hash, Issues: slot.issues})
		}
	}

	if e.cache != nil && len(fresh) > 0 {
		if err := e.cache.PutBatch(fp, fresh); err != nil {
			e.logger.Warn("cache write failure", "error", err)
			res.Warnings = append(res.Warnings, Warning{Kind: WarningCache, Message: err.Error()})
		}
	}

	res.Summary = issue.Summarize(res.Issues)
	res.Files.WithIssues = len(issue.Files(res.Issues))
	return res, ctx.Err()
}

// analyzeOne reads, analyzes and optionally caches one file. A slot left
// with done=false was interrupted by cancellation and is not counted.
func (e *Engine) analyzeOne(ctx context.Context, reg *analyzer.Registry, t target, fp store.Fingerprint, p *plan) fileResult {
	content, err := os.ReadFile(t.path)
	if err != nil {
		e.logger.Warn("read failure", "file", t.rel, "error", err)
		return fileResult{done: true, warnings: []Warning{{Kind: WarningIO, File: t.rel, Message: err.Error()}}}
	}

	out := fileResult{done: true}
	if e.cache != nil {
		out.hash = store.ContentHash(content)
		issues, ok, err := e.cache.Get(t.rel, out.hash, fp)
		if err != nil {
			e.logger.Warn("cache read failure", "file", t.rel, "error", err)
			out.warnings = append(out.warnings, Warning{Kind: WarningCache, File: t.rel, Message: err.Error()})
		} else if ok {
			out.hit = true
			out.issues = issues
			e.progress(p, t.rel, len(issues), true)
			return out
		}
	}

	res, err := reg.Analyze(ctx, t.rel, content)
	if err != nil {
		if ctx.Err() != nil {
			return fileResult{}
		}
		e.logger.Warn("parse failure", "file", t.rel, "error", err)
		out.warnings = append(out.warnings, Warning{Kind: WarningParse, File: t.rel, Message: err.Error()})
		return out
	}
	out.issues = res.Issues
	if res.RuleErr != nil {
		if ctx.Err() != nil {
			return fileResult{}
		}
		e.logger.Warn("rule failure", "file", t.rel, "error", res.RuleErr)
		out.warnings = append(out.warnings, Warning{Kind: WarningRule, File: t.rel, Message: res.RuleErr.Error()})
	}
	out.cacheable = len(out.warnings) == 0
	e.progress(p, t.rel, len(out.issues), false)
	return out
}

func (e *Engine) progress(p *plan, file string, issues int, cached bool) {
	if p.verbose {
		e.logger.Info("analyzed", "file", file, "issues", issues, "cached", cached)
		return
	}
	e.logger.Debug("analyzed", "file", file, "issues", issues, "cached", cached)
}
