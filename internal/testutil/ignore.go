package testutil

import (
	"path/filepath"
	"strings"

	ifs "inkwell/internal/fs"
)

// ignoreRule is one exclude rule with its matching strategy.
type ignoreRule struct {
	pattern   string
	matchPath bool // match against the relative path rather than the basename
	dirOnly   bool // rule had a trailing '/'
}

// ignoreMatcher approximates rsync's --exclude-from matching closely enough
// for LinkingSyncer:
//   - a leading "- " is an explicit exclude and is stripped
//   - a trailing '/' only matches directories
//   - a leading '/' anchors the rule to the transfer root
//   - rules without '/' match the basename at any depth
type ignoreMatcher struct {
	rules []ignoreRule
}

func newIgnoreMatcher(lines []string) *ignoreMatcher {
	m := &ignoreMatcher{}
	for _, line := range ifs.EffectivePatterns(lines) {
		p := strings.TrimSpace(strings.TrimPrefix(line, "- "))
		dirOnly := strings.HasSuffix(p, "/")
		p = strings.TrimSuffix(p, "/")
		anchored := strings.HasPrefix(p, "/")
		p = strings.TrimPrefix(p, "/")

		m.rules = append(m.rules, ignoreRule{
			pattern:   p,
			matchPath: anchored || strings.Contains(p, "/"),
			dirOnly:   dirOnly,
		})
	}
	return m
}

// match reports whether relativePath, relative to the source root, is excluded.
func (m *ignoreMatcher) match(relativePath string, isDir bool) bool {
	if relativePath == "" {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	basename := filepath.Base(relativePath)

	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		subject := basename
		if r.matchPath {
			subject = normalized
		}
		// A malformed rule never matches.
		if ok, err := filepath.Match(r.pattern, subject); err == nil && ok {
			return true
		}
	}
	return false
}
