package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// configFileName is looked up in the scan root when --config is not given.
const configFileName = ".baseliner.toml"

// fileConfig is the .baseliner.toml layout.
type fileConfig struct {
	Include  []string `toml:"include"`
	Exclude  []string `toml:"exclude"`
	Level    string   `toml:"level"`
	Jobs     int      `toml:"jobs"`
	Cache    string   `toml:"cache"`
	Rules    string   `toml:"rules"`
	NoRules  bool     `toml:"no_rules"`
	Features string   `toml:"features"`
}

// scanSettings is the merged result of defaults, config file and flags.
// nil Include or Exclude means the library defaults.
type scanSettings struct {
	Include  []string
	Exclude  []string
	Level    string
	Jobs     int
	Cache    string
	Rules    string
	NoRules  bool
	Features string
	Verbose  bool
}

// findConfig returns the config path to load: explicit wins, otherwise
// .baseliner.toml in root if present. ok is false when there is none.
func findConfig(explicit, root string) (path string, ok bool, err error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", false, fmt.Errorf("config %s: %w", explicit, err)
		}
		return explicit, true, nil
	}
	p := filepath.Join(root, configFileName)
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("config %s: %w", p, err)
	}
	return p, true, nil
}

// loadConfig decodes path and applies every key it defines onto s. Relative
// paths in the file are resolved against the file's directory.
func loadConfig(path string, s *scanSettings) error {
	var cfg fileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	dir := filepath.Dir(path)
	rel := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}

	if meta.IsDefined("include") {
		s.Include = nonNil(cfg.Include)
	}
	if meta.IsDefined("exclude") {
		s.Exclude = nonNil(cfg.Exclude)
	}
	if meta.IsDefined("level") {
		s.Level = cfg.Level
	}
	if meta.IsDefined("jobs") {
		s.Jobs = cfg.Jobs
	}
	if meta.IsDefined("cache") {
		s.Cache = rel(cfg.Cache)
	}
	if meta.IsDefined("rules") {
		s.Rules = rel(cfg.Rules)
	}
	if meta.IsDefined("no_rules") {
		s.NoRules = cfg.NoRules
	}
	if meta.IsDefined("features") {
		s.Features = rel(cfg.Features)
	}
	return nil
}

// nonNil keeps an explicitly empty list distinct from "use the defaults".
func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}
