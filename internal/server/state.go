package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/xdg/warden/internal/clog"
)

// State describes a running daemon. It is written by "warden serve" and
// read by clients to find the socket and secret.
type State struct {
	PID     int       `json:"pid"`
	Secret  string    `json:"secret"`
	Socket  string    `json:"socket"`
	Started time.Time `json:"started"`
}

// StatePath returns the default state file path.
func StatePath() string {
	return filepath.Join(clog.StateDir(), "daemon.json")
}

// NewSecret returns 32 random bytes as lowercase hex.
func NewSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand.Read failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// SaveState writes st to path, readable only by the owner.
func SaveState(path string, st *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".daemon-*.json")
	if err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// LoadState reads the state file. It returns nil, nil if there is none.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse state %s: %w", path, err)
	}
	return &st, nil
}

// RemoveState deletes the state file if present.
func RemoveState(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove state: %w", err)
	}
	return nil
}

// CleanupStale removes the state file and socket of a daemon that is no
// longer running. It reports whether anything was removed.
func CleanupStale(path string) (bool, error) {
	st, err := LoadState(path)
	if err != nil || st == nil {
		return false, err
	}
	if st.Running() {
		return false, nil
	}
	if st.Socket != "" {
		_ = os.Remove(st.Socket)
	}
	return true, RemoveState(path)
}
