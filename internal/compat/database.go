// Package compat holds the Baseline compatibility table: an immutable
// registry mapping feature keys to tier and browser-support metadata.
//
// A Database is built once (usually with Load) and shared by reference. It is
// never mutated after construction, so concurrent readers need no locking.
package compat

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

//go:embed data/features.toml
var embeddedTable []byte

// FeatureInfo describes one web-platform feature.
type FeatureInfo struct {
	ID          string            `toml:"id" json:"id"`
	Name        string            `toml:"name" json:"name"`
	Description string            `toml:"description" json:"description,omitempty"`
	Group       string            `toml:"group" json:"group,omitempty"`
	Tier        Tier              `toml:"tier" json:"tier"`
	LowDate     string            `toml:"low_date" json:"lowDate,omitempty"`
	HighDate    string            `toml:"high_date" json:"highDate,omitempty"`
	Support     map[string]string `toml:"support" json:"support,omitempty"`
	Keys        []string          `toml:"keys" json:"keys"`
}

// clone returns a deep copy so callers cannot reach the registry's maps.
func (f FeatureInfo) clone() FeatureInfo {
	f.Support = maps.Clone(f.Support)
	f.Keys = slices.Clone(f.Keys)
	return f
}

// Database is the read-only feature registry.
type Database struct {
	version  string
	features []FeatureInfo    // sorted by ID
	byKey    map[string]int   // feature key → index into features
	byGroup  map[string][]int // group → indices, sorted by ID
}

// tableFile is the on-disk TOML layout.
type tableFile struct {
	Version  string        `toml:"version"`
	Features []FeatureInfo `toml:"feature"`
}

// Load builds the Database from the table embedded in the binary.
func Load() (*Database, error) {
	return Parse(bytes.NewReader(embeddedTable))
}

// MustLoad is Load for package-level initialisation in tests and commands.
func MustLoad() *Database {
	db, err := Load()
	if err != nil {
		panic(err)
	}
	return db
}

// Parse decodes a TOML feature table.
func Parse(r io.Reader) (*Database, error) {
	var tf tableFile
	if _, err := toml.NewDecoder(r).Decode(&tf); err != nil {
		return nil, fmt.Errorf("compat: decode table: %w", err)
	}
	return New(tf.Version, tf.Features)
}

// New validates features and builds an immutable Database from them. The
// input slice is copied.
func New(version string, features []FeatureInfo) (*Database, error) {
	if version == "" {
		return nil, fmt.Errorf("compat: table has no version")
	}
	db := &Database{
		version:  version,
		features: make([]FeatureInfo, 0, len(features)),
		byKey:    make(map[string]int),
		byGroup:  make(map[string][]int),
	}
	seenIDs := make(map[string]bool, len(features))
	for _, f := range features {
		switch {
		case f.ID == "":
			return nil, fmt.Errorf("compat: feature with empty id")
		case f.Name == "":
			return nil, fmt.Errorf("compat: feature %s: empty name", f.ID)
		case !f.Tier.Valid():
			return nil, fmt.Errorf("compat: feature %s: invalid tier", f.ID)
		case len(f.Keys) == 0:
			return nil, fmt.Errorf("compat: feature %s: no keys", f.ID)
		case seenIDs[f.ID]:
			return nil, fmt.Errorf("compat: duplicate feature id %s", f.ID)
		}
		seenIDs[f.ID] = true
		db.features = append(db.features, f.clone())
	}
	sort.Slice(db.features, func(i, j int) bool {
		return db.features[i].ID < db.features[j].ID
	})

	for i, f := range db.features {
		for _, key := range f.Keys {
			if prev, ok := db.byKey[key]; ok {
				return nil, fmt.Errorf("compat: key %q mapped by both %s and %s",
					key, db.features[prev].ID, f.ID)
			}
			db.byKey[key] = i
		}
		if f.Group != "" {
			db.byGroup[f.Group] = append(db.byGroup[f.Group], i)
		}
	}
	return db, nil
}

// Version identifies the table revision. Cached results are keyed by it.
func (db *Database) Version() string { return db.version }

// Len returns the number of features.
func (db *Database) Len() int { return len(db.features) }

// Lookup returns the feature a key maps to. A miss is the common case for
// most syntax and is not an error.
func (db *Database) Lookup(key string) (FeatureInfo, bool) {
	i, ok := db.byKey[key]
	if !ok {
		return FeatureInfo{}, false
	}
	return db.features[i].clone(), true
}

// Tier returns only the tier for key, without copying the feature.
func (db *Database) Tier(key string) (Tier, bool) {
	i, ok := db.byKey[key]
	if !ok {
		return 0, false
	}
	return db.features[i].Tier, true
}

// IsAtOrAboveTier reports whether key maps to a feature whose tier is at
// least threshold. Unknown keys report false.
func (db *Database) IsAtOrAboveTier(key string, threshold Tier) bool {
	t, ok := db.Tier(key)
	return ok && t >= threshold
}

// ByGroup returns the features of a group ordered by ID.
func (db *Database) ByGroup(group string) []FeatureInfo {
	idx := db.byGroup[group]
	out := make([]FeatureInfo, 0, len(idx))
	for _, i := range idx {
		out = append(out, db.features[i].clone())
	}
	return out
}

// Groups lists every group name in sorted order.
func (db *Database) Groups() []string {
	return slices.Sorted(maps.Keys(db.byGroup))
}

// Search returns features whose id, name, description or one of whose keys
// contains substr, case-insensitively. An empty substr matches everything.
func (db *Database) Search(substr string) []FeatureInfo {
	needle := strings.ToLower(substr)
	var out []FeatureInfo
	for _, f := range db.features {
		if matches(f, needle) {
			out = append(out, f.clone())
		}
	}
	return out
}

func matches(f FeatureInfo, needle string) bool {
	if strings.Contains(strings.ToLower(f.ID), needle) ||
		strings.Contains(strings.ToLower(f.Name), needle) ||
		strings.Contains(strings.ToLower(f.Description), needle) {
		return true
	}
	for _, k := range f.Keys {
		if strings.Contains(strings.ToLower(k), needle) {
			return true
		}
	}
	return false
}
