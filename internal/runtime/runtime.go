// Package runtime runs Risor rule scripts against parsed source files.
//
// Rule scripts add feature detections that the structural analyzers do not
// derive themselves, typically by running tree-sitter queries. Scripts live
// in one directory per rule language:
//
//	css/*.risor         style sheets
//	javascript/*.risor  JavaScript and TypeScript
//	html/*.risor        markup
//
// Each script sees the globals file_path and language plus the host
// functions query, node_text, report and log.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"

	"github.com/jward/baseliner/internal/syntax"
)

// Runtime loads rule scripts once and evaluates them per file. It holds no
// per-file state and is safe for concurrent use.
type Runtime struct {
	rulesDir string
	fsys     fs.FS
	logger   *slog.Logger

	loadOnce sync.Once
	scripts  map[string][]script // rule language → scripts, sorted by path
	loadErr  error
}

type script struct {
	path   string
	source string
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS loads scripts from an fs.FS instead of from disk. Also
// configures the Risor importer to resolve import statements within it.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		r.fsys = fsys
	}
}

// WithLogger routes the scripts' log object to l.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) {
		r.logger = l
	}
}

// NewRuntime creates a Runtime reading rules from rulesDir, or from the
// fs.FS given with WithRuntimeFS.
func NewRuntime(rulesDir string, opts ...RuntimeOption) *Runtime {
	r := &Runtime{rulesDir: rulesDir}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// RuleLanguage maps a grammar to the directory its rules live in. TypeScript
// shares the JavaScript rules.
func RuleLanguage(lang syntax.Language) string {
	switch lang {
	case syntax.JavaScript, syntax.TypeScript, syntax.TSX:
		return "javascript"
	default:
		return string(lang)
	}
}

// Detection is one feature key reported by a rule script.
type Detection struct {
	Key    string
	Line   int
	Column int
}

// Run evaluates every rule script for the tree's language. A failing script
// does not stop the others; their errors are joined. Detections from scripts
// that ran are returned either way.
func (r *Runtime) Run(ctx context.Context, tree *syntax.Tree, filePath string) ([]Detection, error) {
	scripts, err := r.scriptsFor(RuleLanguage(tree.Lang))
	if err != nil {
		return nil, err
	}
	if len(scripts) == 0 {
		return nil, nil
	}

	var (
		found []Detection
		errs  []error
	)
	for _, s := range scripts {
		sink := &detectionSink{}
		extras := map[string]any{
			"file_path": filePath,
			"language":  string(tree.Lang),
			"query":     makeQueryFn(tree),
			"node_text": makeNodeTextFn(tree.Source),
			"report":    makeReportFn(sink),
		}
		if err := r.eval(ctx, s.source, s.path, extras); err != nil {
			errs = append(errs, err)
			continue
		}
		found = append(found, sink.detections...)
	}
	return found, errors.Join(errs...)
}

// RunSource executes Risor source directly with the standard globals plus
// any extras. Useful for testing without script files.
func (r *Runtime) RunSource(ctx context.Context, source string, extraGlobals map[string]any) error {
	return r.eval(ctx, source, "<inline>", extraGlobals)
}

// RunScript loads and executes one script by path.
func (r *Runtime) RunScript(ctx context.Context, scriptPath string, extraGlobals map[string]any) error {
	src, err := r.LoadScript(scriptPath)
	if err != nil {
		return err
	}
	return r.eval(ctx, src, scriptPath, extraGlobals)
}

func (r *Runtime) eval(ctx context.Context, source, label string, extraGlobals map[string]any) error {
	globals := r.buildGlobals(extraGlobals)

	var opts []risor.Option
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}

	// Wire importer so Risor import statements resolve correctly.
	if imp := r.buildImporter(globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	_, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return fmt.Errorf("runtime: script %s: %w", label, err)
	}
	return nil
}

// buildImporter returns a Risor importer rooted at the rules source, so
// scripts can share helpers from lib/. Returns nil if neither an fs.FS nor a
// rules directory is configured.
func (r *Runtime) buildImporter(globals map[string]any) importer.Importer {
	globalNames := make([]string, 0, len(globals))
	for name := range globals {
		globalNames = append(globalNames, name)
	}

	if r.fsys != nil {
		return importer.NewFSImporter(importer.FSImporterOptions{
			GlobalNames: globalNames,
			SourceFS:    r.fsys,
			Extensions:  []string{".risor"},
		})
	}
	if r.rulesDir != "" {
		return importer.NewLocalImporter(importer.LocalImporterOptions{
			GlobalNames: globalNames,
			SourceDir:   r.rulesDir,
			Extensions:  []string{".risor"},
		})
	}
	return nil
}

func (r *Runtime) buildGlobals(extra map[string]any) map[string]any {
	globals := map[string]any{
		"log": mustProxy(&logObject{logger: r.logger}),
	}
	for k, v := range extra {
		globals[k] = v
	}
	return globals
}

// LoadScript reads a .risor file. With an fs.FS configured the path is
// relative within it; otherwise it is relative to the rules directory.
func (r *Runtime) LoadScript(p string) (string, error) {
	if r.fsys != nil {
		fsPath := strings.TrimPrefix(filepath.ToSlash(p), "/")
		data, err := fs.ReadFile(r.fsys, fsPath)
		if err != nil {
			return "", fmt.Errorf("runtime: loading script %s from fs: %w", fsPath, err)
		}
		return string(data), nil
	}

	fullPath := p
	if !filepath.IsAbs(p) {
		fullPath = filepath.Join(r.rulesDir, p)
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", fullPath, err)
	}
	return string(data), nil
}

// Scripts lists the script paths loaded for a rule language.
func (r *Runtime) Scripts(ruleLang string) ([]string, error) {
	scripts, err := r.scriptsFor(ruleLang)
	if err != nil {
		return nil, err
	}
	paths := make([]string, len(scripts))
	for i, s := range scripts {
		paths[i] = s.path
	}
	return paths, nil
}

// Sources returns every loaded script keyed by path.
func (r *Runtime) Sources() (map[string]string, error) {
	r.loadOnce.Do(r.loadAll)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	out := make(map[string]string)
	for _, scripts := range r.scripts {
		for _, s := range scripts {
			out[s.path] = s.source
		}
	}
	return out, nil
}

func (r *Runtime) scriptsFor(ruleLang string) ([]script, error) {
	r.loadOnce.Do(r.loadAll)
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return r.scripts[ruleLang], nil
}

func (r *Runtime) loadAll() {
	r.scripts = make(map[string][]script)
	for _, lang := range []string{"css", "javascript", "html"} {
		paths, err := r.listScripts(lang)
		if err != nil {
			r.loadErr = err
			return
		}
		for _, p := range paths {
			src, err := r.LoadScript(p)
			if err != nil {
				r.loadErr = err
				return
			}
			r.scripts[lang] = append(r.scripts[lang], script{path: p, source: src})
		}
	}
}

// listScripts returns the slash-separated paths of <lang>/*.risor.
func (r *Runtime) listScripts(lang string) ([]string, error) {
	var (
		paths []string
		err   error
	)
	switch {
	case r.fsys != nil:
		paths, err = fs.Glob(r.fsys, path.Join(lang, "*.risor"))
	case r.rulesDir != "":
		var abs []string
		abs, err = filepath.Glob(filepath.Join(r.rulesDir, lang, "*.risor"))
		for _, a := range abs {
			rel, relErr := filepath.Rel(r.rulesDir, a)
			if relErr != nil {
				return nil, fmt.Errorf("runtime: %w", relErr)
			}
			paths = append(paths, filepath.ToSlash(rel))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("runtime: listing %s rules: %w", lang, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
