// Package term is the user-facing output channel of the warden CLI.
// Operational logging goes through internal/clog instead.
//
// Print, Printf, Println, JSON and Table write to stdout and are muted by
// --silent. Warn and Error write to stderr and are never muted.
package term

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/tabwriter"

	xterm "golang.org/x/term"
)

var (
	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	silent bool
)

// SetSilent mutes or unmutes stdout output.
func SetSilent(s bool) {
	mu.Lock()
	defer mu.Unlock()
	silent = s
}

// IsSilent reports whether stdout output is muted.
func IsSilent() bool {
	mu.Lock()
	defer mu.Unlock()
	return silent
}

// SetOutput replaces the stdout writer; nil restores os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stdout = orDefault(w, os.Stdout)
}

// SetErrOutput replaces the stderr writer; nil restores os.Stderr.
func SetErrOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stderr = orDefault(w, os.Stderr)
}

func orDefault(w io.Writer, def *os.File) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// out runs fn against stdout unless silent.
func out(fn func(w io.Writer)) {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return
	}
	fn(stdout)
}

func Print(a ...any) {
	out(func(w io.Writer) { _, _ = fmt.Fprint(w, a...) })
}

func Printf(format string, a ...any) {
	out(func(w io.Writer) { _, _ = fmt.Fprintf(w, format, a...) })
}

func Println(a ...any) {
	out(func(w io.Writer) { _, _ = fmt.Fprintln(w, a...) })
}

// JSON writes v to stdout as indented JSON followed by a newline.
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	out(func(w io.Writer) { _, _ = fmt.Fprintf(w, "%s\n", data) })
	return nil
}

// Table writes rows under a header with aligned columns.
func Table(header []string, rows [][]string) {
	out(func(w io.Writer) {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, strings.Join(header, "\t"))
		for _, row := range rows {
			_, _ = fmt.Fprintln(tw, strings.Join(row, "\t"))
		}
		_ = tw.Flush()
	})
}

// Warn writes "Warning: <msg>" to stderr.
func Warn(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(stderr, "Warning: %s\n", fmt.Sprintf(format, a...))
}

// Error writes "Error: <msg>" to stderr.
func Error(format string, a ...any) {
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(stderr, "Error: %s\n", fmt.Sprintf(format, a...))
}

// Stdout returns the stdout writer, or io.Discard when silent.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return io.Discard
	}
	return stdout
}

// Stderr returns the stderr writer.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return stderr
}

// IsTerminal reports whether stdout is an interactive terminal.
// Replaced writers are never terminals.
func IsTerminal() bool {
	mu.Lock()
	defer mu.Unlock()
	f, ok := stdout.(*os.File)
	return ok && xterm.IsTerminal(int(f.Fd()))
}

// Reset restores the default writers and unmutes output.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	stdout = os.Stdout
	stderr = os.Stderr
	silent = false
}

// Discard sends all output to io.Discard.
func Discard() {
	mu.Lock()
	defer mu.Unlock()
	stdout = io.Discard
	stderr = io.Discard
}
