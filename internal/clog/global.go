package clog

import (
	"io"
	"os"
)

var std = NewLogger()

// Configure sets up the global logger. An empty logPath disables file
// logging; daemonMode disables stderr mirroring.
func Configure(logPath string, level Level, daemonMode bool) error {
	std.SetLevel(level)
	std.SetDaemonMode(daemonMode)

	if logPath != "" {
		f, err := OpenLogFile(logPath)
		if err != nil {
			return err
		}
		std.SetFileOutput(f)
	}
	return nil
}

// Default returns the global logger.
func Default() *Logger { return std }

func SetLevel(level Level)      { std.SetLevel(level) }
func SetFileOutput(w io.Writer) { std.SetFileOutput(w) }
func SetErrOutput(w io.Writer)  { std.SetErrOutput(w) }
func SetDaemonMode(daemon bool) { std.SetDaemonMode(daemon) }

func Debug(format string, args ...any) { std.Debug(format, args...) }
func Info(format string, args ...any)  { std.Info(format, args...) }
func Warn(format string, args ...any)  { std.Warn(format, args...) }
func Error(format string, args ...any) { std.Error(format, args...) }

// Task returns a global logger view prefixed with task=<id>.
func Task(id string) Scope { return std.Task(id) }

// Close closes the global file writer if it is an io.Closer.
func Close() error {
	std.mu.Lock()
	defer std.mu.Unlock()

	if closer, ok := std.fileWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Reset restores the global logger to its initial state.
func Reset() {
	std = NewLogger()
}

// Discard silences the global logger.
func Discard() {
	std.SetFileOutput(nil)
	std.SetErrOutput(nil)
}

// TestLogger returns a debug-level logger writing everything to w.
func TestLogger(w io.Writer) *Logger {
	l := NewLogger()
	l.SetFileOutput(w)
	l.SetErrOutput(nil)
	l.SetLevel(LevelDebug)
	return l
}

// ReplaceGlobal installs l as the global logger and returns the previous one.
func ReplaceGlobal(l *Logger) *Logger {
	old := std
	std = l
	return old
}

// Writer returns an io.Writer that logs each write at level.
func Writer(level Level) io.Writer {
	return levelWriter(level)
}

type levelWriter Level

func (w levelWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	std.log(Level(w), "", "%s", msg)
	return len(p), nil
}

func init() {
	std.SetErrOutput(os.Stderr)
}
