// Package output provides formatted CLI output for Lorekeep commands.
package output

import (
	"fmt"
	"io"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out io.Writer
}

// New creates a new output Writer.
func New(out io.Writer) *Writer {
	return &Writer{out: out}
}

// Header prints a section heading.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Header(format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, "%s\n\n", fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(format string, args ...any) {
	w.status("✅", format, args...)
}

// Warning prints a warning message.
func (w *Writer) Warning(format string, args ...any) {
	w.status("⚠️ ", format, args...)
}

// Error prints an error message.
func (w *Writer) Error(format string, args ...any) {
	w.status("❌", format, args...)
}

// Detail prints an indented secondary line under the previous message.
func (w *Writer) Detail(msg string) {
	_, _ = fmt.Fprintf(w.out, "     %s\n", msg)
}

// KeyValue prints an aligned key/value line.
func (w *Writer) KeyValue(key, value string) {
	_, _ = fmt.Fprintf(w.out, "  %-16s %s\n", key+":", value)
}

// KeyValuef prints an aligned key/value line with a formatted value.
func (w *Writer) KeyValuef(key, format string, args ...any) {
	w.KeyValue(key, fmt.Sprintf(format, args...))
}

// Result prints one ranked search result line.
func (w *Writer) Result(rank int, score float64, title, path string) {
	_, _ = fmt.Fprintf(w.out, "%3d. [%.3f] %s  (%s)\n", rank, score, title, path)
}

// Blank prints an empty line.
func (w *Writer) Blank() {
	_, _ = fmt.Fprintln(w.out)
}

func (w *Writer) status(icon, format string, args ...any) {
	_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, fmt.Sprintf(format, args...))
}
