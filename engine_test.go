package baseliner

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

// writeTree creates files (slash paths relative to the returned root).
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func keys(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, is := range issues {
		out = append(out, is.Key)
	}
	return out
}

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(t)
	require.NotNil(t, e.Database())
	assert.NotZero(t, e.Database().Len())
	assert.NotNil(t, e.rules)
	assert.True(t, e.useParallel)
	assert.Positive(t, e.workers)
}

func TestNew_WithoutRules(t *testing.T) {
	e := newTestEngine(t, WithoutRules())
	assert.Nil(t, e.rules)
}

func TestNew_BadRulesFS(t *testing.T) {
	// Reading a directory named like a script fails.
	fsys := fstest.MapFS{
		"css/broken.risor/x": &fstest.MapFile{Data: []byte("")},
	}
	_, err := New(WithRulesFS(fsys))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load rules")
}

func TestScan_LimitedDeclaration(t *testing.T) {
	root := writeTree(t, map[string]string{
		"styles/title.css": ".title {\n  word-break: auto-phrase;\n}\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{Level: LevelLimited})
	require.NoError(t, err)

	require.Len(t, res.Issues, 1)
	is := res.Issues[0]
	assert.Equal(t, "css.properties.word-break.auto-phrase", is.Key)
	assert.Equal(t, "styles/title.css", is.File)
	assert.Equal(t, 2, is.Line)
	assert.Equal(t, 3, is.Column)
	assert.Equal(t, Severity("error"), is.Severity)

	assert.Equal(t, 1, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.Errors)
	assert.Equal(t, 1, res.Summary.ByTier.Limited)
	assert.Equal(t, FileCounts{Scanned: 1, WithIssues: 1}, res.Files)
	assert.Empty(t, res.Warnings)
}

func TestScan_WidelyAvailableSuppressedAtLimited(t *testing.T) {
	root := writeTree(t, map[string]string{
		"app.js": "fetch('/api/items').then(r => r.json());\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
	assert.NotNil(t, res.Issues)
	assert.Equal(t, FileCounts{Scanned: 1}, res.Files)

	res, err = e.Scan(context.Background(), root, ScanOptions{Level: LevelWidely})
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "fetch", res.Issues[0].Key)
	assert.Equal(t, 1, res.Summary.Info)
	assert.Equal(t, 1, res.Summary.ByTier.Widely)
}

func TestScan_SummaryDerivedFromIssues(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css":      ".a { word-break: auto-phrase; text-wrap: balance; color: red; }\n",
		"b.js":       "navigator.share({});\nconst g = Object.groupBy(xs, f);\n",
		"index.html": "<dialog open></dialog>\n<search></search>\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{Level: LevelWidely})
	require.NoError(t, err)

	s := res.Summary
	assert.Equal(t, len(res.Issues), s.Total)
	assert.Equal(t, s.Total, s.Errors+s.Warnings+s.Info)
	assert.Equal(t, s.Total, s.ByTier.Limited+s.ByTier.Newly+s.ByTier.Widely)
	assert.Equal(t, s.Errors, s.ByTier.Limited)
	assert.Equal(t, 3, res.Files.Scanned)
	assert.Equal(t, 3, res.Files.WithIssues)
}

func TestScan_Idempotent(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css":  ".a { text-wrap: balance; }\n",
		"b.js":   "navigator.clipboard.writeText(s);\n",
		"c.html": "<search><img src=x fetchpriority=high></search>\n",
	})
	e := newTestEngine(t)
	opts := ScanOptions{Level: LevelNewly}

	first, err := e.Scan(context.Background(), root, opts)
	require.NoError(t, err)
	second, err := e.Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestScan_VisitationOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"b.css":     ".b { word-break: auto-phrase; }\n",
		"a.css":     ".a { word-break: auto-phrase; }\n",
		"sub/c.css": ".c { word-break: auto-phrase; }\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	var files []string
	for _, is := range res.Issues {
		files = append(files, is.File)
	}
	assert.Equal(t, []string{"a.css", "b.css", "sub/c.css"}, files)
}

func TestScan_DefaultExcludes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/app.js":                "navigator.share({});\n",
		"node_modules/lib/index.js": "navigator.share({});\n",
		"dist/app.js":               "navigator.share({});\n",
		"vendor.min.js":             "navigator.share({});\n",
		"README.md":                 "navigator.share\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "src/app.js", res.Issues[0].File)
	assert.Equal(t, 1, res.Files.Scanned)
}

func TestScan_CustomGlobs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css":          ".a { word-break: auto-phrase; }\n",
		"b.js":           "navigator.share({});\n",
		"legacy/c.css":   ".c { word-break: auto-phrase; }\n",
		"legacy/keep.js": "navigator.share({});\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{
		Include: []string{"**/*.css"},
		Exclude: []string{"legacy/**"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"css.properties.word-break.auto-phrase"}, keys(res.Issues))
	assert.Equal(t, "a.css", res.Issues[0].File)

	// Empty non-nil include selects nothing.
	res, err = e.Scan(context.Background(), root, ScanOptions{Include: []string{}})
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
	assert.Zero(t, res.Files.Scanned)
}

func TestScan_UnsupportedIncludedFileIsSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"notes.txt": "word-break: auto-phrase\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{Include: []string{"**"}})
	require.NoError(t, err)
	assert.Zero(t, res.Files.Scanned)
	assert.Empty(t, res.Warnings)
}

func TestScan_PartialFailure(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.js":  "function ( {{{",
		"good.js": "navigator.share({});\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Files.Scanned)
	assert.Equal(t, 1, res.Files.WithIssues)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "good.js", res.Issues[0].File)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningParse, res.Warnings[0].Kind)
	assert.Equal(t, "bad.js", res.Warnings[0].File)
}

func TestScan_PartialFailureCSS(t *testing.T) {
	root := writeTree(t, map[string]string{
		"bad.css":  "@@@ {{{ ;;; }}} :::\n",
		"good.css": ".a { word-break: auto-phrase; }\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, FileCounts{Scanned: 2, WithIssues: 1}, res.Files)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "good.css", res.Issues[0].File)
	assert.Equal(t, "css.properties.word-break.auto-phrase", res.Issues[0].Key)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningParse, res.Warnings[0].Kind)
	assert.Equal(t, "bad.css", res.Warnings[0].File)
}

func TestScan_NewerCSSSyntaxKeepsIssues(t *testing.T) {
	root := writeTree(t, map[string]string{
		"has.css":   ".a { word-break: auto-phrase; }\n.card:has(> img) { }\n",
		"named.css": ".a { word-break: auto-phrase; }\n@container card (min-width: 400px) {\n  .b { color: red; }\n}\n",
	})
	e := newTestEngine(t)

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, FileCounts{Scanned: 2, WithIssues: 2}, res.Files)
	for _, is := range res.Issues {
		assert.Equal(t, "css.properties.word-break.auto-phrase", is.Key)
	}
}

func TestScan_RuleFailureKeepsIssues(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css": ".a { word-break: auto-phrase; }\n",
	})
	fsys := fstest.MapFS{
		"css/boom.risor": &fstest.MapFile{Data: []byte(`report("", nil)`)},
	}
	e := newTestEngine(t, WithRulesFS(fsys))

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	assert.Len(t, res.Issues, 1)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningRule, res.Warnings[0].Kind)
	assert.Equal(t, "a.css", res.Warnings[0].File)
}

func TestScan_InvalidOptions(t *testing.T) {
	root := writeTree(t, map[string]string{"a.css": ".a{}"})
	e := newTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		root string
		opts ScanOptions
	}{
		{"missing root", filepath.Join(root, "nope"), ScanOptions{}},
		{"root is a file", filepath.Join(root, "a.css"), ScanOptions{}},
		{"unknown level", root, ScanOptions{Level: "sometimes"}},
		{"empty include pattern", root, ScanOptions{Include: []string{""}}},
		{"empty exclude pattern", root, ScanOptions{Exclude: []string{" "}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := e.Scan(ctx, tt.root, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidOptions)
			assert.Nil(t, res)
		})
	}
}

func TestScan_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.css": ".a { word-break: auto-phrase; }"})
	e := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := e.Scan(ctx, root, ScanOptions{})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Issues)
}

func TestScan_ParallelMatchesSerial(t *testing.T) {
	files := make(map[string]string)
	for i := range 24 {
		files[fmt.Sprintf("css/f%02d.css", i)] = ".a { word-break: auto-phrase; text-wrap: balance; }\n"
		files[fmt.Sprintf("js/f%02d.js", i)] = "navigator.share({});\nURL.canParse(u);\n"
		files[fmt.Sprintf("html/f%02d.html", i)] = "<search></search>\n"
	}
	root := writeTree(t, files)
	opts := ScanOptions{Level: LevelNewly}

	serial := newTestEngine(t, WithParallel(false))
	parallel := newTestEngine(t, WithWorkers(4))

	want, err := serial.Scan(context.Background(), root, opts)
	require.NoError(t, err)
	got, err := parallel.Scan(context.Background(), root, opts)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 72, got.Files.Scanned)
}

func TestScan_CacheHits(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css": ".a { word-break: auto-phrase; }\n",
		"b.js":  "navigator.share({});\n",
		"c.js":  "const x = 1;\n",
	})
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	e := newTestEngine(t, WithCache(cache))
	ctx := context.Background()

	first, err := e.Scan(ctx, root, ScanOptions{})
	require.NoError(t, err)
	assert.Zero(t, first.CacheHits)

	second, err := e.Scan(ctx, root, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, second.CacheHits)
	assert.Equal(t, first.Issues, second.Issues)
	assert.Equal(t, first.Summary, second.Summary)

	// A different level is a different fingerprint.
	third, err := e.Scan(ctx, root, ScanOptions{Level: LevelNewly})
	require.NoError(t, err)
	assert.Zero(t, third.CacheHits)

	// Changed content misses.
	require.NoError(t, os.WriteFile(filepath.Join(root, "b.js"), []byte("// gone\n"), 0o644))
	fourth, err := e.Scan(ctx, root, ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, fourth.CacheHits)
	assert.Equal(t, []string{"css.properties.word-break.auto-phrase"}, keys(fourth.Issues))
}

func TestScan_FilesWithWarningsAreNotCached(t *testing.T) {
	root := writeTree(t, map[string]string{"bad.js": "function ( {{{"})
	cache, err := OpenCache(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	e := newTestEngine(t, WithCache(cache))

	for range 2 {
		res, err := e.Scan(context.Background(), root, ScanOptions{})
		require.NoError(t, err)
		assert.Zero(t, res.CacheHits)
		assert.Len(t, res.Warnings, 1)
	}
	paths, err := cache.Paths()
	require.NoError(t, err)
	assert.Empty(t, paths)
}

func TestScan_RuleScripts(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css": ".card:has(img) { color: red; }\n",
	})
	ctx := context.Background()

	withRules := newTestEngine(t)
	res, err := withRules.Scan(ctx, root, ScanOptions{Level: LevelNewly})
	require.NoError(t, err)
	assert.Equal(t, []string{"css.selectors.has"}, keys(res.Issues))

	bare := newTestEngine(t, WithoutRules())
	res, err = bare.Scan(ctx, root, ScanOptions{Level: LevelNewly})
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestScan_RulesDir(t *testing.T) {
	rulesDir := writeTree(t, map[string]string{
		"javascript/temporal.risor": `
m := query("((identifier) @id (#eq? @id \"Temporal\"))")
for i := 0; i < len(m); i++ {
  report("Temporal", m[i]["id"])
}
`,
	})
	root := writeTree(t, map[string]string{"a.ts": "const now = Temporal;\n"})
	e := newTestEngine(t, WithRulesDir(rulesDir))

	res, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	// The identifier detector and the rule both see Temporal at 1:13.
	require.Len(t, res.Issues, 1)
	assert.Equal(t, "Temporal", res.Issues[0].Key)
	assert.Equal(t, 13, res.Issues[0].Column)
	assert.Empty(t, res.Warnings)
}

func TestScan_VerboseLogsEveryFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css": ".a{}",
		"b.js":  "x();",
	})
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	e := newTestEngine(t, WithLogger(logger), WithParallel(false))

	quiet, err := e.Scan(context.Background(), root, ScanOptions{})
	require.NoError(t, err)
	assert.NotContains(t, buf.String(), "analyzed")

	loud, err := e.Scan(context.Background(), root, ScanOptions{Verbose: true})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "file=a.css")
	assert.Contains(t, buf.String(), "file=b.js")
	assert.Equal(t, quiet, loud)
}

func TestScanFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.css":             ".a { word-break: auto-phrase; }\n",
		"node_modules/x.js": "navigator.share({});\n",
		"b.js":              "navigator.share({});\n",
	})
	e := newTestEngine(t)

	paths := []string{
		filepath.Join(root, "b.js"),
		filepath.Join(root, "a.css"),
		filepath.Join(root, "node_modules", "x.js"),
		filepath.Join(root, "missing.js"),
	}
	res, err := e.ScanFiles(context.Background(), paths, ScanOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"navigator.share", "css.properties.word-break.auto-phrase"}, keys(res.Issues))
	assert.Equal(t, filepath.ToSlash(paths[0]), res.Issues[0].File)
	assert.Equal(t, 3, res.Files.Scanned)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, WarningIO, res.Warnings[0].Kind)
}

func TestAnalyzeFile(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	got, err := e.AnalyzeFile(ctx, "a.css", []byte(".a { word-break: auto-phrase; }"), ScanOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"css.properties.word-break.auto-phrase"}, keys(got))

	got, err = e.AnalyzeFile(ctx, "notes.txt", []byte("anything"), ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = e.AnalyzeFile(ctx, "bad.js", []byte("function ( {{{"), ScanOptions{})
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = e.AnalyzeFile(ctx, "a.css", nil, ScanOptions{Level: "bogus"})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
