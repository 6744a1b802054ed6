// Package vault loads markdown notes from a vault directory: YAML
// frontmatter, tags, and wiki-style links are parsed into note records
// ready for indexing.
package vault

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lorekeep/lorekeep/internal/store"
)

var (
	// wikiLinkPattern matches [[Target]] and [[Target|alias]].
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\]|]+)(?:\|[^\]]+)?\]\]`)

	// markdownLinkPattern matches [text](target.md) links to local notes.
	markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\(([^)]+\.md)\)`)

	// inlineTagPattern matches #tag tokens outside frontmatter.
	inlineTagPattern = regexp.MustCompile(`(?:^|\s)#([a-zA-Z][a-zA-Z0-9/_-]*)`)
)

// frontmatterDelimiter separates YAML frontmatter from the note body.
const frontmatterDelimiter = "---"

// ParseNote converts raw markdown into a note record. relPath is the
// note's path relative to the vault root.
func ParseNote(relPath string, raw []byte, modTime time.Time) (*store.Note, error) {
	body, frontmatter, err := splitFrontmatter(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter of %s: %w", relPath, err)
	}

	note := &store.Note{
		ID:          NoteID(relPath),
		Path:        relPath,
		Content:     strings.TrimSpace(body),
		Frontmatter: frontmatter,
		UpdatedAt:   modTime,
	}

	note.Title = frontmatter["title"]
	if note.Title == "" {
		note.Title = titleFromContent(body)
	}
	if note.Title == "" {
		base := filepath.Base(relPath)
		note.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	note.Tags = extractTags(body, frontmatter)
	note.Outgoing = extractLinks(body)
	return note, nil
}

// splitFrontmatter separates YAML frontmatter from the body. Notes
// without a leading delimiter are all body.
func splitFrontmatter(raw string) (body string, frontmatter map[string]string, err error) {
	trimmed := strings.TrimPrefix(raw, "\ufeff")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter+"\n") &&
		trimmed != frontmatterDelimiter {
		return raw, nil, nil
	}

	rest := trimmed[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return raw, nil, nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal([]byte(rest[:end]), &fields); err != nil {
		return "", nil, err
	}

	frontmatter = make(map[string]string, len(fields))
	for k, v := range fields {
		switch value := v.(type) {
		case string:
			frontmatter[k] = value
		case []any:
			parts := make([]string, 0, len(value))
			for _, item := range value {
				parts = append(parts, fmt.Sprint(item))
			}
			frontmatter[k] = strings.Join(parts, ",")
		default:
			frontmatter[k] = fmt.Sprint(v)
		}
	}

	body = rest[end+len(frontmatterDelimiter)+1:]
	if i := strings.Index(body, "\n"); i >= 0 {
		body = body[i+1:]
	} else {
		body = ""
	}
	return body, frontmatter, nil
}

// extractTags merges frontmatter tags with inline #tags, deduplicated
// and sorted.
func extractTags(body string, frontmatter map[string]string) []string {
	seen := make(map[string]struct{})
	for _, t := range strings.Split(frontmatter["tags"], ",") {
		t = strings.TrimSpace(strings.TrimPrefix(t, "#"))
		if t != "" {
			seen[strings.ToLower(t)] = struct{}{}
		}
	}
	for _, m := range inlineTagPattern.FindAllStringSubmatch(body, -1) {
		seen[strings.ToLower(m[1])] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}

// extractLinks collects wiki links and local markdown links in order of
// appearance, deduplicated by target.
func extractLinks(body string) []store.Link {
	var links []store.Link
	seen := make(map[string]struct{})
	add := func(target, path string) {
		target = strings.TrimSpace(target)
		if target == "" {
			return
		}
		key := strings.ToLower(target)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		links = append(links, store.Link{Target: target, Path: path})
	}

	for _, m := range wikiLinkPattern.FindAllStringSubmatch(body, -1) {
		add(m[1], "")
	}
	for _, m := range markdownLinkPattern.FindAllStringSubmatch(body, -1) {
		target := m[1]
		base := filepath.Base(target)
		add(strings.TrimSuffix(base, filepath.Ext(base)), target)
	}
	return links
}

// titleFromContent uses the first H1 heading as the title.
func titleFromContent(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
		if line != "" && !strings.HasPrefix(line, "#") {
			break
		}
	}
	return ""
}

// NoteID derives a stable note ID from the vault-relative path.
func NoteID(relPath string) string {
	id := strings.TrimSuffix(filepath.ToSlash(relPath), ".md")
	return strings.ReplaceAll(id, "/", ":")
}

// Load reads and parses a single note by its vault-relative path.
func Load(root, relPath string) (*store.Note, error) {
	full := filepath.Join(root, relPath)
	raw, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, err
	}
	return ParseNote(relPath, raw, info.ModTime())
}

// Scan walks the vault directory and parses every markdown note.
// Hidden directories and files are skipped, as are paths matched by the
// vault's .lorekeepignore file.
func Scan(root string) ([]*store.Note, error) {
	ignore, err := LoadIgnore(root)
	if err != nil {
		return nil, fmt.Errorf("load ignore file: %w", err)
	}

	var notes []*store.Note
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if path == root {
				return nil
			}
			if strings.HasPrefix(name, ".") || ignore.Match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".md") {
			return nil
		}
		if ignore.Match(rel, false) {
			return nil
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		note, err := ParseNote(rel, raw, info.ModTime())
		if err != nil {
			return err
		}
		notes = append(notes, note)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}
