package fs

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// DefaultIgnoreContent is written to .lvc/ignore when a repository is created.
const DefaultIgnoreContent = `# lvc ignore rules
# Patterns without a slash match file and directory names anywhere.
# Patterns with a slash match paths relative to the repository root.
# A trailing slash matches directories only; a leading ! re-includes.

# Temporary files
*.tmp
*.log
*.swp
*.swo
*~

# OS files
.DS_Store
Thumbs.db

# Build output
target/
build/
dist/
out/

# Editors
.vscode/
.idea/
*.iml

# lvc
.lvc/
lvc-rollback/
`

// DefaultPatterns returns DefaultIgnoreContent split into lines.
func DefaultPatterns() []string {
	return strings.Split(DefaultIgnoreContent, "\n")
}

// ignorePattern is a parsed ignore pattern with its matching strategy.
type ignorePattern struct {
	pattern   string
	matchPath bool // true = match against relative path; false = match against basename only
	dirOnly   bool // trailing '/': applies to directories only
	negate    bool // leading '!': re-includes a previously ignored path
}

// IgnoreMatcher checks file paths against a set of ignore patterns.
// Patterns without '/' match against the basename only.
// Patterns with '/' match against the full relative path from the repository root.
// When several patterns match, the last one decides.
type IgnoreMatcher struct {
	patterns []ignorePattern
}

// NewIgnoreMatcher creates an IgnoreMatcher from raw pattern strings.
// Blank lines and lines starting with '#' are skipped.
func NewIgnoreMatcher(rawPatterns []string) *IgnoreMatcher {
	var patterns []ignorePattern
	for _, raw := range rawPatterns {
		raw = strings.TrimSpace(raw)
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		var p ignorePattern
		if strings.HasPrefix(raw, "!") {
			p.negate = true
			raw = raw[1:]
		}
		if strings.HasSuffix(raw, "/") {
			p.dirOnly = true
			raw = strings.TrimRight(raw, "/")
		}
		if strings.HasPrefix(raw, "/") {
			p.matchPath = true
			raw = strings.TrimLeft(raw, "/")
		}
		if raw == "" {
			continue
		}
		if strings.Contains(raw, "/") {
			p.matchPath = true
		}
		p.pattern = raw
		patterns = append(patterns, p)
	}
	return &IgnoreMatcher{patterns: patterns}
}

// Match reports whether the given relative path should be ignored.
// A path is also ignored when any of its parent directories is.
func (m *IgnoreMatcher) Match(relativePath string, isDir bool) bool {
	if len(m.patterns) == 0 {
		return false
	}

	normalized := filepath.ToSlash(relativePath)
	parts := strings.Split(normalized, "/")
	for i := 1; i < len(parts); i++ {
		if m.matchOne(strings.Join(parts[:i], "/"), true) {
			return true
		}
	}
	return m.matchOne(normalized, isDir)
}

func (m *IgnoreMatcher) matchOne(rel string, isDir bool) bool {
	basename := path.Base(rel)
	ignored := false
	for _, p := range m.patterns {
		if p.dirOnly && !isDir {
			continue
		}
		target := basename
		if p.matchPath {
			target = rel
		}
		matched, err := path.Match(p.pattern, target)
		if err != nil || !matched {
			// Bad patterns are skipped rather than failing the scan.
			continue
		}
		ignored = !p.negate
	}
	return ignored
}

// ParseIgnoreFile reads an ignore file and returns the raw pattern strings.
// Returns nil and no error if the file does not exist.
func ParseIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore file: %w", err)
	}
	return patterns, nil
}
