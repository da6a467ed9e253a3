package ticket

import (
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

const pathsLinePrefix = "**Paths:**"

// ParseAreaPaths scans an area document for an optional "**Paths:**" line
// declaring the gitignore-pattern globs the area owns, comma-separated.
// Returns nil if the area declares no ownership patterns, in which case
// every path is considered in scope.
func ParseAreaPaths(areaBody string) []string {
	for _, line := range strings.Split(areaBody, "\n") {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, pathsLinePrefix) {
			continue
		}
		raw := strings.TrimSpace(strings.TrimPrefix(trimmed, pathsLinePrefix))
		if raw == "" {
			return nil
		}
		var patterns []string
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				patterns = append(patterns, p)
			}
		}
		return patterns
	}
	return nil
}

// FilesOutsideOwnership filters changedFiles down to those that do not match
// any of the area's declared ownership patterns. An empty patterns list
// means the area claims no exclusive scope, so nothing is ever out of
// bounds.
func FilesOutsideOwnership(patterns, changedFiles []string) []string {
	if len(patterns) == 0 {
		return nil
	}
	matcher := gitignore.CompileIgnoreLines(patterns...)

	var outside []string
	for _, f := range changedFiles {
		if !matcher.MatchesPath(f) {
			outside = append(outside, f)
		}
	}
	return outside
}
