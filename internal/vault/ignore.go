package vault

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// IgnoreFile is the per-vault ignore list, one glob pattern per line.
// Syntax follows the familiar ignore-file rules: blank lines and #
// comments are skipped, a trailing / restricts the pattern to
// directories, a leading ! re-includes matches, and * / ** wildcards
// work as usual.
const IgnoreFile = ".lorekeepignore"

// IgnoreMatcher holds compiled ignore patterns for one vault.
type IgnoreMatcher struct {
	rules []ignoreRule
}

type ignoreRule struct {
	regex    *regexp.Regexp
	negation bool
	dirOnly  bool
}

// LoadIgnore reads the vault's ignore file. A missing file yields an
// empty matcher.
func LoadIgnore(root string) (*IgnoreMatcher, error) {
	m := &IgnoreMatcher{}

	f, err := os.Open(filepath.Join(root, IgnoreFile))
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		m.AddPattern(scanner.Text())
	}
	return m, scanner.Err()
}

// AddPattern compiles and adds one ignore pattern.
func (m *IgnoreMatcher) AddPattern(pattern string) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" || strings.HasPrefix(pattern, "#") {
		return
	}

	r := ignoreRule{}
	if strings.HasPrefix(pattern, "!") {
		r.negation = true
		pattern = pattern[1:]
	}
	if strings.HasSuffix(pattern, "/") {
		r.dirOnly = true
		pattern = strings.TrimSuffix(pattern, "/")
	}

	// A pattern without a slash matches at any depth.
	anchored := strings.HasPrefix(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if !anchored && !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}

	r.regex = regexp.MustCompile("^" + ignorePatternToRegex(pattern) + "$")
	m.rules = append(m.rules, r)
}

// Match reports whether the vault-relative path should be skipped. The
// last matching rule wins, so negations can re-include earlier matches.
func (m *IgnoreMatcher) Match(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)

	ignored := false
	for _, r := range m.rules {
		if r.dirOnly && !isDir && !m.matchParent(relPath, r) {
			continue
		}
		if r.regex.MatchString(relPath) || m.matchParent(relPath, r) {
			ignored = !r.negation
		}
	}
	return ignored
}

// matchParent reports whether any ancestor directory of relPath matches
// the rule, so files under an ignored directory are ignored too.
func (m *IgnoreMatcher) matchParent(relPath string, r ignoreRule) bool {
	parts := strings.Split(relPath, "/")
	for i := 1; i < len(parts); i++ {
		if r.regex.MatchString(strings.Join(parts[:i], "/")) {
			return true
		}
	}
	return false
}

// ignorePatternToRegex converts an ignore glob to a regular expression.
func ignorePatternToRegex(pattern string) string {
	var b strings.Builder
	i := 0
	for i < len(pattern) {
		c := pattern[i]
		switch c {
		case '*':
			if strings.HasPrefix(pattern[i:], "**/") {
				b.WriteString(`(?:[^/]+/)*`)
				i += 3
				continue
			}
			if strings.HasPrefix(pattern[i:], "**") {
				b.WriteString(`.*`)
				i += 2
				continue
			}
			b.WriteString(`[^/]*`)
		case '?':
			b.WriteString(`[^/]`)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
		i++
	}
	return b.String()
}
