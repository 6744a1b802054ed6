package vault

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNote_Frontmatter(t *testing.T) {
	raw := `---
title: Spaced Repetition
tags:
  - learning
  - memory
---

Review intervals grow as recall strengthens. See [[Active Recall]].
`
	note, err := ParseNote("learning/spaced-repetition.md", []byte(raw), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "learning:spaced-repetition", note.ID)
	assert.Equal(t, "Spaced Repetition", note.Title)
	assert.Equal(t, []string{"learning", "memory"}, note.Tags)
	require.Len(t, note.Outgoing, 1)
	assert.Equal(t, "Active Recall", note.Outgoing[0].Target)
	assert.NotContains(t, note.Content, "---")
}

func TestParseNote_TitleFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		title string
	}{
		{"h1 heading", "# Evergreen Notes\n\nbody", "Evergreen Notes"},
		{"filename", "plain body, no heading", "evergreen-notes"},
		{"frontmatter wins", "---\ntitle: From Frontmatter\n---\nx\n# Ignored Heading\n", "From Frontmatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			note, err := ParseNote("evergreen-notes.md", []byte(tt.raw), time.Now())
			require.NoError(t, err)
			assert.Equal(t, tt.title, note.Title)
		})
	}
}

func TestParseNote_WikiLinkVariants(t *testing.T) {
	raw := "See [[Zettelkasten|the method]] and [[Inbox Zero]], plus [a local note](notes/gtd.md)."

	note, err := ParseNote("n.md", []byte(raw), time.Now())
	require.NoError(t, err)

	require.Len(t, note.Outgoing, 3)
	assert.Equal(t, "Zettelkasten", note.Outgoing[0].Target)
	assert.Equal(t, "Inbox Zero", note.Outgoing[1].Target)
	assert.Equal(t, "gtd", note.Outgoing[2].Target)
	assert.Equal(t, "notes/gtd.md", note.Outgoing[2].Path)
}

func TestParseNote_DuplicateLinksCollapse(t *testing.T) {
	raw := "[[Focus]] then [[focus]] again"

	note, err := ParseNote("n.md", []byte(raw), time.Now())
	require.NoError(t, err)
	assert.Len(t, note.Outgoing, 1)
}

func TestParseNote_InlineTags(t *testing.T) {
	raw := `---
tags: [review]
---
x
Working through #deep-work and #review today. Issue #42 is not a tag.
`
	note, err := ParseNote("n.md", []byte(raw), time.Now())
	require.NoError(t, err)
	assert.Equal(t, []string{"deep-work", "review"}, note.Tags)
}

func TestParseNote_MalformedFrontmatter(t *testing.T) {
	raw := "---\ntitle: [unclosed\n---\nbody\n"

	_, err := ParseNote("bad.md", []byte(raw), time.Now())
	assert.Error(t, err)
}

func TestParseNote_NoFrontmatter(t *testing.T) {
	note, err := ParseNote("n.md", []byte("just a body"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, "just a body", note.Content)
	assert.Empty(t, note.Frontmatter)
}

func writeNote(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestScan_WalksVault(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "inbox.md", "# Inbox")
	writeNote(t, root, "projects/garden.md", "# Garden\n\n[[Inbox]]")
	writeNote(t, root, "projects/readme.txt", "not a note")
	writeNote(t, root, ".obsidian/workspace.md", "editor state")

	notes, err := Scan(root)
	require.NoError(t, err)
	require.Len(t, notes, 2)

	byID := make(map[string]bool, len(notes))
	for _, n := range notes {
		byID[n.ID] = true
	}
	assert.True(t, byID["inbox"])
	assert.True(t, byID["projects:garden"])
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestLoad_SingleNote(t *testing.T) {
	root := t.TempDir()
	writeNote(t, root, "daily/today.md", "# Today\n\n#journal")

	note, err := Load(root, "daily/today.md")
	require.NoError(t, err)
	assert.Equal(t, "daily:today", note.ID)
	assert.Equal(t, "Today", note.Title)
	assert.Equal(t, []string{"journal"}, note.Tags)
}
