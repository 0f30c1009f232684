package filtering

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// PathFilter applies include/exclude glob patterns to repository-relative paths.
// A nil *PathFilter includes every path.
type PathFilter struct {
	include  []compiledPattern
	exclude  []compiledPattern
	patterns []string
}

type compiledPattern struct {
	raw string
	g   glob.Glob
}

// NewPathFilter compiles include and exclude patterns.
// Returns nil when no pattern is given.
func NewPathFilter(include, exclude []string) (*PathFilter, error) {
	if len(include) == 0 && len(exclude) == 0 {
		return nil, nil
	}

	inc, err := compilePatterns(include)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern: %w", err)
	}
	exc, err := compilePatterns(exclude)
	if err != nil {
		return nil, fmt.Errorf("invalid exclude pattern: %w", err)
	}

	return &PathFilter{
		include:  inc,
		exclude:  exc,
		patterns: append(append([]string{}, include...), exclude...),
	}, nil
}

// compilePatterns validates and compiles glob patterns.
// Uses gobwas/glob which supports * matching across path separators, unlike filepath.Match.
func compilePatterns(patterns []string) ([]compiledPattern, error) {
	compiled := make([]compiledPattern, 0, len(patterns))
	for _, pattern := range patterns {
		// filepath.Match catches malformed patterns gobwas accepts silently
		if _, err := filepath.Match(pattern, "test"); err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", pattern, err)
		}
		compiled = append(compiled, compiledPattern{raw: pattern, g: g})
	}
	return compiled, nil
}

// ShouldInclude determines if a repository-relative path should be kept
// Returns (shouldInclude bool, reason string)
func (f *PathFilter) ShouldInclude(relPath string) (bool, string) {
	if f == nil {
		return true, "no path filters specified"
	}

	relPath = filepath.ToSlash(relPath)

	// Check exclude patterns first (exclude takes precedence)
	for _, p := range f.exclude {
		if p.g.Match(relPath) {
			return false, fmt.Sprintf("excluded by pattern '%s'", p.raw)
		}
	}

	// If include patterns are specified, path must match at least one
	if len(f.include) > 0 {
		for _, p := range f.include {
			if p.g.Match(relPath) {
				return true, fmt.Sprintf("included by pattern '%s'", p.raw)
			}
		}
		return false, "no match found in include patterns"
	}

	return true, "no match in exclude patterns"
}

// Patterns returns every configured pattern, include patterns first
func (f *PathFilter) Patterns() []string {
	if f == nil {
		return nil
	}
	return append([]string{}, f.patterns...)
}
