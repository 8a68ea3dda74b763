package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jward/baseliner"
	"github.com/jward/baseliner/internal/compat"
)

type scanFlags struct {
	include  []string
	exclude  []string
	level    string
	jobs     int
	cache    string
	rules    string
	noRules  bool
	features string
	config   string
	verbose  bool
}

func newScanCmd(g *globalFlags) *cobra.Command {
	f := &scanFlags{}
	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory for web-platform features",
		Long:  "Walks the directory, analyzes every selected CSS, JavaScript, TypeScript and HTML file and reports features by Baseline tier.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, g, f, args)
		},
	}
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "glob patterns of files to scan (repeatable)")
	cmd.Flags().StringSliceVar(&f.exclude, "exclude", nil, "glob patterns of files and directories to skip (repeatable)")
	cmd.Flags().StringVar(&f.level, "level", "", "baseline level: limited|newly|widely (default limited)")
	cmd.Flags().IntVar(&f.jobs, "jobs", 0, "number of parallel workers (0 = number of CPUs, 1 = serial)")
	cmd.Flags().StringVar(&f.cache, "cache", "", "path of a SQLite result cache")
	cmd.Flags().StringVar(&f.rules, "rules", "", "load rule scripts from a directory instead of the embedded rules")
	cmd.Flags().BoolVar(&f.noRules, "no-rules", false, "disable rule scripts")
	cmd.Flags().StringVar(&f.features, "features", "", "path of a TOML feature table replacing the embedded one")
	cmd.Flags().StringVar(&f.config, "config", "", "config file (default: .baseliner.toml in the scan root)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "log every analyzed file")
	return cmd
}

func runScan(cmd *cobra.Command, g *globalFlags, f *scanFlags, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError(cmd, g, "scan", err)
	}

	s, err := mergeSettings(cmd, f, targetDir)
	if err != nil {
		return outputError(cmd, g, "scan", err)
	}

	logger := newLogger(cmd, s.Verbose)
	opts, cleanup, err := engineOptions(s, logger)
	if err != nil {
		return outputError(cmd, g, "scan", err)
	}
	defer cleanup()

	engine, err := baseliner.New(opts...)
	if err != nil {
		return outputError(cmd, g, "scan", fmt.Errorf("creating engine: %w", err))
	}

	res, err := engine.Scan(cmd.Context(), targetDir, baseliner.ScanOptions{
		Include: s.Include,
		Exclude: s.Exclude,
		Level:   baseliner.BaselineLevel(s.Level),
		Verbose: s.Verbose,
	})
	if err != nil {
		return outputError(cmd, g, "scan", err)
	}

	logger.Debug("scan finished",
		"root", targetDir,
		"files", res.Files.Scanned,
		"cache_hits", res.CacheHits,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return outputResult(cmd, g, CLIResult{Command: "scan", Results: res})
}

// mergeSettings layers the config file over the defaults and the changed
// flags over both.
func mergeSettings(cmd *cobra.Command, f *scanFlags, root string) (scanSettings, error) {
	var s scanSettings
	path, ok, err := findConfig(f.config, root)
	if err != nil {
		return s, err
	}
	if ok {
		if err := loadConfig(path, &s); err != nil {
			return s, err
		}
	}

	flags := cmd.Flags()
	if flags.Changed("include") {
		s.Include = nonNil(f.include)
	}
	if flags.Changed("exclude") {
		s.Exclude = nonNil(f.exclude)
	}
	if flags.Changed("level") {
		s.Level = f.level
	}
	if flags.Changed("jobs") {
		s.Jobs = f.jobs
	}
	if flags.Changed("cache") {
		s.Cache = f.cache
	}
	if flags.Changed("rules") {
		s.Rules = f.rules
	}
	if flags.Changed("no-rules") {
		s.NoRules = f.noRules
	}
	if flags.Changed("features") {
		s.Features = f.features
	}
	s.Verbose = f.verbose

	if s.Jobs < 0 {
		return s, fmt.Errorf("invalid jobs %d: must be >= 0", s.Jobs)
	}
	if s.NoRules && s.Rules != "" {
		return s, fmt.Errorf("--rules and --no-rules are mutually exclusive")
	}
	return s, nil
}

// engineOptions translates settings into Engine options. cleanup closes the
// cache, if one was opened.
func engineOptions(s scanSettings, logger *slog.Logger) ([]baseliner.Option, func(), error) {
	cleanup := func() {}
	opts := []baseliner.Option{baseliner.WithLogger(logger)}

	switch {
	case s.Jobs == 1:
		opts = append(opts, baseliner.WithParallel(false))
	case s.Jobs > 1:
		opts = append(opts, baseliner.WithWorkers(s.Jobs))
	}

	switch {
	case s.NoRules:
		opts = append(opts, baseliner.WithoutRules())
	case s.Rules != "":
		opts = append(opts, baseliner.WithRulesDir(s.Rules))
	}

	if s.Features != "" {
		db, err := loadFeatureTable(s.Features)
		if err != nil {
			return nil, cleanup, err
		}
		opts = append(opts, baseliner.WithDatabase(db))
	}

	if s.Cache != "" {
		if err := os.MkdirAll(filepath.Dir(s.Cache), 0o755); err != nil {
			return nil, cleanup, fmt.Errorf("creating %s: %w", filepath.Dir(s.Cache), err)
		}
		cache, err := baseliner.OpenCache(s.Cache)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = func() { cache.Close() }
		opts = append(opts, baseliner.WithCache(cache))
	}
	return opts, cleanup, nil
}

func loadFeatureTable(path string) (*compat.Database, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feature table: %w", err)
	}
	defer fh.Close()
	db, err := compat.Parse(fh)
	if err != nil {
		return nil, fmt.Errorf("feature table %s: %w", path, err)
	}
	return db, nil
}

// newLogger writes to stderr. Verbose lowers the level to debug.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// resolveTargetDir returns the absolute path of the directory to scan.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}
