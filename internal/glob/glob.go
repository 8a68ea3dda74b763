// Package glob implements the restricted path patterns used for include and
// exclude filtering.
//
// Supported syntax:
//
//	**   any run of characters, including path separators
//	*    any run of characters within one path segment
//
// Everything else matches literally, including '?', '[', '{' and a leading
// '!'. Character classes, brace expansion and negation are not supported.
// Paths are matched in slash form.
package glob

import (
	"fmt"
	"regexp"
	"strings"
)

// Pattern is a compiled glob.
type Pattern struct {
	src string
	re  *regexp.Regexp
	// dir matches directories whose whole subtree the pattern covers, set
	// for patterns ending in "/**". Walkers use it to prune.
	dir *regexp.Regexp
}

// Compile translates a glob into an anchored regular expression.
func Compile(pattern string) (*Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("glob: empty pattern")
	}
	if strings.ContainsRune(pattern, 0) {
		return nil, fmt.Errorf("glob: pattern %q contains NUL", pattern)
	}
	p := &Pattern{src: pattern}
	var err error
	if p.re, err = regexp.Compile("^" + translate(pattern) + "$"); err != nil {
		return nil, fmt.Errorf("glob: compile %q: %w", pattern, err)
	}
	if prefix, ok := strings.CutSuffix(pattern, "/**"); ok && prefix != "" {
		if p.dir, err = regexp.Compile("^" + translate(prefix) + "$"); err != nil {
			return nil, fmt.Errorf("glob: compile %q: %w", pattern, err)
		}
	}
	return p, nil
}

// translate converts glob syntax to regexp syntax.
func translate(pattern string) string {
	var b strings.Builder
	for i := 0; i < len(pattern); {
		switch {
		case strings.HasPrefix(pattern[i:], "**/"):
			// Zero or more whole leading segments.
			b.WriteString("(?:.*/)?")
			i += 3
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		default:
			j := i
			for j < len(pattern) && pattern[j] != '*' {
				j++
			}
			b.WriteString(regexp.QuoteMeta(pattern[i:j]))
			i = j
		}
	}
	return b.String()
}

// String returns the source pattern.
func (p *Pattern) String() string { return p.src }

// Match reports whether the slash-separated path matches.
func (p *Pattern) Match(path string) bool {
	return p.re.MatchString(path)
}

// MatchDir reports whether every path below dir is matched, so a walker can
// skip the directory entirely.
func (p *Pattern) MatchDir(dir string) bool {
	return p.dir != nil && p.dir.MatchString(dir)
}

// Set is an OR-combination of patterns.
type Set []*Pattern

// CompileAll compiles every pattern, failing on the first bad one.
func CompileAll(patterns []string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, s := range patterns {
		p, err := Compile(s)
		if err != nil {
			return nil, err
		}
		set = append(set, p)
	}
	return set, nil
}

// Match reports whether any pattern matches. An empty set matches nothing.
func (s Set) Match(path string) bool {
	for _, p := range s {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// MatchDir reports whether any pattern covers the whole directory.
func (s Set) MatchDir(dir string) bool {
	for _, p := range s {
		if p.MatchDir(dir) {
			return true
		}
	}
	return false
}
