// Package clog provides operational logging for warden.
// It is separate from user-facing output (see internal/term).
//
// Levels:
//   - Debug: every pipeline stage of every request, only with --debug
//   - Info: blocked or denied requests, daemon lifecycle
//   - Warn: sandbox unavailable, cleanup faults
//   - Error: audit append failures and other internal faults
//
// Outputs:
//   - File: all enabled levels
//   - Stderr: warn and error only, never in daemon mode
package clog

import (
	"fmt"
	"strings"
)

// Level represents the severity of a log message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// String returns the uppercase name of the level.
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel parses a level name case-insensitively.
// Unrecognised names fall back to LevelInfo; use LookupLevel to detect them.
func ParseLevel(s string) Level {
	level, err := LookupLevel(s)
	if err != nil {
		return LevelInfo
	}
	return level
}

// LookupLevel is the strict form of ParseLevel. The empty string means info.
func LookupLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error", "err":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}
