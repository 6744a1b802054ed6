package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriter_StatusLines(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Success("indexed %d notes", 3)
	w.Warning("degraded")
	w.Error("collection missing")

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Len(t, lines, 3)
	assert.Contains(t, lines[0], "indexed 3 notes")
	assert.Contains(t, lines[1], "degraded")
	assert.Contains(t, lines[2], "collection missing")
}

func TestWriter_KeyValueAlignment(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.KeyValue("Notes", "42")
	w.KeyValuef("Hit rate", "%.1f%%", 87.5)

	out := buf.String()
	assert.Contains(t, out, "Notes:")
	assert.Contains(t, out, "Hit rate:")
	assert.Contains(t, out, "87.5%")
}

func TestWriter_Result(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Result(1, 0.912, "Spaced Repetition", "learning/spaced-repetition.md")

	assert.Contains(t, buf.String(), "  1. [0.912] Spaced Repetition  (learning/spaced-repetition.md)")
}

func TestWriter_DetailIndents(t *testing.T) {
	var buf bytes.Buffer
	w := New(&buf)

	w.Detail("run 'lorekeep index' to rebuild")

	assert.True(t, strings.HasPrefix(buf.String(), "     "))
}
