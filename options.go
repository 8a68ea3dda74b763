package baseliner

import (
	"errors"
	"fmt"

	"github.com/jward/baseliner/internal/compat"
	"github.com/jward/baseliner/internal/glob"
)

// ErrInvalidOptions is wrapped by every setup failure: a bad root, a glob
// that does not compile or an unknown level.
var ErrInvalidOptions = errors.New("baseliner: invalid options")

// DefaultInclude selects every file type an analyzer handles.
var DefaultInclude = []string{
	"**/*.css",
	"**/*.js",
	"**/*.jsx",
	"**/*.ts",
	"**/*.tsx",
	"**/*.html",
	"**/*.htm",
}

// DefaultExclude skips dependency, build and minified output.
var DefaultExclude = []string{
	"**/node_modules/**",
	"**/dist/**",
	"**/build/**",
	"**/.git/**",
	"**/coverage/**",
	"**/*.min.js",
	"**/*.min.css",
}

// ScanOptions configures one scan. A nil Include or Exclude uses the
// defaults; an empty non-nil slice means no patterns.
type ScanOptions struct {
	Include []string
	Exclude []string
	Level   BaselineLevel
	// Verbose logs every analyzed file at info level. It never changes the
	// returned data.
	Verbose bool
}

// plan is a validated ScanOptions.
type plan struct {
	include glob.Set
	exclude glob.Set
	level   compat.Level
	verbose bool
}

func (o ScanOptions) compile() (*plan, error) {
	include := o.Include
	if include == nil {
		include = DefaultInclude
	}
	exclude := o.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}

	inc, err := glob.CompileAll(include)
	if err != nil {
		return nil, fmt.Errorf("%w: include: %v", ErrInvalidOptions, err)
	}
	exc, err := glob.CompileAll(exclude)
	if err != nil {
		return nil, fmt.Errorf("%w: exclude: %v", ErrInvalidOptions, err)
	}
	level, err := compat.ParseLevel(string(o.Level))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOptions, err)
	}
	return &plan{include: inc, exclude: exc, level: level, verbose: o.Verbose}, nil
}

// selects reports whether the root-relative slash path passes the filters.
func (p *plan) selects(rel string) bool {
	return p.include.Match(rel) && !p.exclude.Match(rel)
}
