package compat

import "fmt"

// Level is the per-scan reporting level. It names the least compatible tier
// a project still wants to hear about: features whose tier is above the
// level are treated as safe and produce no issue.
//
//	limited  reports Limited features
//	newly    reports Limited and NewlyAvailable features
//	widely   reports every known feature, WidelyAvailable ones as info
type Level string

const (
	LevelLimited Level = "limited"
	LevelNewly   Level = "newly"
	LevelWidely  Level = "widely"
)

// DefaultLevel is used when a scan does not choose one.
const DefaultLevel = LevelLimited

// ParseLevel validates a level name. The empty string means DefaultLevel.
func ParseLevel(s string) (Level, error) {
	switch Level(s) {
	case "":
		return DefaultLevel, nil
	case LevelLimited, LevelNewly, LevelWidely:
		return Level(s), nil
	}
	return "", fmt.Errorf("compat: unknown baseline level %q (want limited, newly or widely)", s)
}

// SafeTier returns the lowest tier that is silently compliant at this level.
// ok is false for LevelWidely, where nothing is safe.
func (l Level) SafeTier() (tier Tier, ok bool) {
	switch l {
	case LevelNewly:
		return WidelyAvailable, true
	case LevelWidely:
		return 0, false
	default:
		return NewlyAvailable, true
	}
}

// Reports reports whether a feature of tier t produces an issue.
func (l Level) Reports(t Tier) bool {
	safe, ok := l.SafeTier()
	return !ok || t < safe
}

// Reports reports whether key is a known feature that produces an issue at
// level l. Misses never report.
func (db *Database) Reports(key string, l Level) bool {
	if _, ok := db.Tier(key); !ok {
		return false
	}
	safe, ok := l.SafeTier()
	return !ok || !db.IsAtOrAboveTier(key, safe)
}
