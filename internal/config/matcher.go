package config

import (
	"fmt"
	"path/filepath"

	"github.com/gobwas/glob"
)

// Matcher selects template files by root-relative path. Patterns use '/'
// as separator, so '*' stays within one directory and '**' crosses them.
// Exclude patterns are also tried against the base name.
type Matcher struct {
	include []glob.Glob
	exclude []glob.Glob
}

func NewMatcher(include, exclude []string) (*Matcher, error) {
	inc, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	exc, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}
	return &Matcher{include: inc, exclude: exc}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, g)
	}
	return out, nil
}

// Match reports whether rel is included and not excluded.
func (m *Matcher) Match(rel string) bool {
	rel = filepath.ToSlash(rel)
	base := filepath.Base(rel)
	for _, g := range m.exclude {
		if g.Match(rel) || g.Match(base) {
			return false
		}
	}
	for _, g := range m.include {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Matcher builds the template matcher of cfg.
func (cfg *Config) Matcher() (*Matcher, error) {
	return NewMatcher(cfg.Templates.Include, cfg.Templates.Exclude)
}
