package baseliner

import (
	"fmt"

	"github.com/jward/baseliner/internal/compat"
	"github.com/jward/baseliner/internal/issue"
	"github.com/jward/baseliner/internal/store"
)

// Public type aliases for internal types used in the Engine API.
// These are Go type aliases (=), identical to the internal types at compile
// time. External consumers use these names; no conversion is needed.

type Issue = issue.Issue
type IssueType = issue.Type
type Severity = issue.Severity
type Summary = issue.Summary
type TierCounts = issue.TierCounts
type FeatureInfo = compat.FeatureInfo
type Tier = compat.Tier
type BaselineLevel = compat.Level
type Database = compat.Database
type Store = store.Store

const (
	Limited         = compat.Limited
	NewlyAvailable  = compat.NewlyAvailable
	WidelyAvailable = compat.WidelyAvailable

	LevelLimited = compat.LevelLimited
	LevelNewly   = compat.LevelNewly
	LevelWidely  = compat.LevelWidely
)

// OpenCache opens (and migrates) a result cache for use with WithCache.
func OpenCache(path string) (*Store, error) {
	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("baseliner: open cache: %w", err)
	}
	return s, nil
}
