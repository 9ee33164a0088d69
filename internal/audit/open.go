package audit

import (
	"fmt"
	"path/filepath"

	"github.com/xdg/warden/internal/clog"
)

// Store kinds accepted by Open.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config selects and configures the audit backend.
type Config struct {
	Store       string
	Path        string
	Hash        string
	Compression string
	Trail       string
}

// DefaultPath returns the default SQLite audit database location.
func DefaultPath() string {
	return filepath.Join(clog.StateDir(), "audit.db")
}

// Open builds a Recorder from cfg.
func Open(cfg Config) (*Recorder, error) {
	algo, err := ParseAlgorithm(cfg.Hash)
	if err != nil {
		return nil, err
	}

	var store Store
	switch cfg.Store {
	case "", StoreSQLite:
		compression, err := ParseCompression(cfg.Compression)
		if err != nil {
			return nil, err
		}
		path := cfg.Path
		if path == "" {
			path = DefaultPath()
		}
		store, err = OpenSQLite(SQLiteConfig{Path: path, Compression: compression})
		if err != nil {
			return nil, err
		}
	case StoreMemory:
		store = NewMemoryStore()
	default:
		return nil, fmt.Errorf("unknown audit store %q (want memory or sqlite)", cfg.Store)
	}

	var trail *Trail
	if cfg.Trail != "" {
		trail, err = OpenTrail(cfg.Trail)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return NewRecorder(store, Options{Algorithm: algo, Trail: trail}), nil
}
