package vault

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIgnoreMatcher_Patterns(t *testing.T) {
	tests := []struct {
		name     string
		patterns []string
		path     string
		isDir    bool
		ignored  bool
	}{
		{"plain name any depth", []string{"drafts.md"}, "archive/drafts.md", false, true},
		{"anchored only at root", []string{"/scratch.md"}, "notes/scratch.md", false, false},
		{"anchored at root matches", []string{"/scratch.md"}, "scratch.md", false, true},
		{"star within segment", []string{"daily-*.md"}, "journal/daily-2026-08-29.md", false, true},
		{"star does not cross slash", []string{"daily-*.md"}, "daily-notes/log.md", false, false},
		{"double star crosses dirs", []string{"archive/**/old.md"}, "archive/2024/q1/old.md", false, true},
		{"dir only matches dir", []string{"templates/"}, "templates", true, true},
		{"dir only skips file", []string{"templates/"}, "templates", false, false},
		{"file under ignored dir", []string{"templates/"}, "templates/weekly.md", false, true},
		{"negation re-includes", []string{"archive/**", "!archive/keep.md"}, "archive/keep.md", false, false},
		{"negation leaves others", []string{"archive/**", "!archive/keep.md"}, "archive/toss.md", false, true},
		{"question mark", []string{"v?.md"}, "v1.md", false, true},
		{"comment ignored", []string{"# drafts.md"}, "drafts.md", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &IgnoreMatcher{}
			for _, p := range tt.patterns {
				m.AddPattern(p)
			}
			assert.Equal(t, tt.ignored, m.Match(tt.path, tt.isDir))
		})
	}
}

func TestLoadIgnore_MissingFile(t *testing.T) {
	m, err := LoadIgnore(t.TempDir())
	require.NoError(t, err)
	assert.False(t, m.Match("anything.md", false))
}

func TestLoadIgnore_ReadsPatterns(t *testing.T) {
	root := t.TempDir()
	content := "# editor litter\ntemplates/\n*.tmp.md\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFile), []byte(content), 0o644))

	m, err := LoadIgnore(root)
	require.NoError(t, err)
	assert.True(t, m.Match("templates/weekly.md", false))
	assert.True(t, m.Match("notes/wip.tmp.md", false))
	assert.False(t, m.Match("notes/wip.md", false))
}

func TestScan_HonorsIgnoreFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, IgnoreFile), []byte("templates/\n"), 0o644))
	writeNote(t, root, "inbox.md", "# Inbox")
	writeNote(t, root, "templates/weekly.md", "# Weekly Template")

	notes, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "inbox", notes[0].ID)
}
