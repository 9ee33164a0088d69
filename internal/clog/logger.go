package clog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes leveled log lines to a file writer and, outside daemon
// mode, mirrors warnings and errors to stderr.
type Logger struct {
	mu         sync.Mutex
	level      Level
	fileWriter io.Writer
	errWriter  io.Writer
	daemonMode bool
	now        func() time.Time
}

// NewLogger returns a logger at info level writing warnings to stderr.
func NewLogger() *Logger {
	return &Logger{
		level:     LevelInfo,
		errWriter: os.Stderr,
		now:       time.Now,
	}
}

// SetLevel sets the minimum level that is written.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Enabled reports whether messages at level would be written.
func (l *Logger) Enabled(level Level) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return level >= l.level
}

// SetFileOutput sets the file writer. Nil disables file logging.
func (l *Logger) SetFileOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fileWriter = w
}

// SetErrOutput sets the stderr writer. Nil disables stderr logging.
func (l *Logger) SetErrOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errWriter = w
}

// SetDaemonMode stops stderr mirroring when daemon is true.
func (l *Logger) SetDaemonMode(daemon bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.daemonMode = daemon
}

func (l *Logger) Debug(format string, args ...any) { l.log(LevelDebug, "", format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(LevelInfo, "", format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(LevelWarn, "", format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(LevelError, "", format, args...) }

// Task returns a view of l that prefixes every message with task=<id>.
func (l *Logger) Task(id string) Scope {
	return Scope{logger: l, prefix: "task=" + id + " "}
}

func (l *Logger) log(level Level, prefix, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	msg := prefix + fmt.Sprintf(format, args...)

	if l.fileWriter != nil {
		ts := l.now().UTC().Format(time.RFC3339)
		_, _ = fmt.Fprintf(l.fileWriter, "%s [%s] %s\n", ts, level, msg)
	}

	// stderr lines carry no timestamp
	if !l.daemonMode && l.errWriter != nil && level >= LevelWarn {
		_, _ = fmt.Fprintf(l.errWriter, "[%s] %s\n", level, msg)
	}
}

// Scope is a logger view bound to a message prefix.
type Scope struct {
	logger *Logger
	prefix string
}

func (s Scope) Debug(format string, args ...any) { s.logger.log(LevelDebug, s.prefix, format, args...) }
func (s Scope) Info(format string, args ...any)  { s.logger.log(LevelInfo, s.prefix, format, args...) }
func (s Scope) Warn(format string, args ...any)  { s.logger.log(LevelWarn, s.prefix, format, args...) }
func (s Scope) Error(format string, args ...any) { s.logger.log(LevelError, s.prefix, format, args...) }

// OpenLogFile opens path for appending, creating parent directories.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// StateDir returns the warden state directory, following XDG conventions.
// Returns $XDG_STATE_HOME/warden or ~/.local/state/warden.
func StateDir() string {
	stateDir := os.Getenv("XDG_STATE_HOME")
	if stateDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		stateDir = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateDir, "warden")
}

// DefaultLogPath returns StateDir()/warden.log.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "warden.log")
}
