package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const schema = `
CREATE TABLE IF NOT EXISTS entries (
	seq  INTEGER PRIMARY KEY,
	hash TEXT    NOT NULL UNIQUE,
	raw  BLOB    NOT NULL
);

CREATE TABLE IF NOT EXISTS payloads (
	hash     TEXT    PRIMARY KEY,
	encoding TEXT    NOT NULL,
	size     INTEGER NOT NULL,
	data     BLOB    NOT NULL
);

CREATE TRIGGER IF NOT EXISTS entries_no_update BEFORE UPDATE ON entries
BEGIN SELECT RAISE(ABORT, 'audit log is append-only'); END;

CREATE TRIGGER IF NOT EXISTS entries_no_delete BEFORE DELETE ON entries
BEGIN SELECT RAISE(ABORT, 'audit log is append-only'); END;

CREATE TRIGGER IF NOT EXISTS payloads_no_update BEFORE UPDATE ON payloads
BEGIN SELECT RAISE(ABORT, 'audit log is append-only'); END;

CREATE TRIGGER IF NOT EXISTS payloads_no_delete BEFORE DELETE ON payloads
BEGIN SELECT RAISE(ABORT, 'audit log is append-only'); END;
`

// SQLiteStore is a durable Store. Entries are kept as the canonical bytes
// that were hashed; payloads are compressed.
type SQLiteStore struct {
	pool        *sqlitex.Pool
	path        string
	compression Compression
}

var _ Store = (*SQLiteStore)(nil)

// SQLiteConfig configures OpenSQLite.
type SQLiteConfig struct {
	Path        string
	Compression Compression
	// PoolSize defaults to 4.
	PoolSize int
}

// OpenSQLite opens or creates the audit database at cfg.Path.
func OpenSQLite(cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("audit: sqlite path is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.Compression == "" {
		cfg.Compression = CompressionZstd
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    cfg.PoolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", cfg.Path, err)
	}

	s := &SQLiteStore{pool: pool, path: cfg.Path, compression: cfg.Compression}
	if err := s.migrate(); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

func prepareConn(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=FULL",
		"PRAGMA busy_timeout=5000",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

func (s *SQLiteStore) migrate() error {
	conn, err := s.pool.Take(context.Background())
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("audit: create schema: %w", err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	return nil
}

// Path returns the database file.
func (s *SQLiteStore) Path() string { return s.path }

// Append reads the head and inserts inside one IMMEDIATE transaction, so
// processes sharing the database extend a single chain.
func (s *SQLiteStore) Append(ctx context.Context, link Link) (rec Record, err error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("audit: append: %w", err)
	}
	defer s.pool.Put(conn)

	end, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return Record{}, fmt.Errorf("audit: begin: %w", err)
	}
	defer end(&err)

	last, err := tail(conn, 1)
	if err != nil {
		return Record{}, fmt.Errorf("audit: read chain head: %w", err)
	}
	var head *Record
	if len(last) == 1 {
		head = &last[0]
	}
	rec, err = link(head)
	if err != nil {
		return Record{}, err
	}

	err = sqlitex.Execute(conn,
		"INSERT INTO entries (seq, hash, raw) VALUES (?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{int64(rec.Entry.Seq), string(rec.Hash), rec.Raw}})
	if err != nil {
		return Record{}, fmt.Errorf("audit: append %s: %w", rec.Hash, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Last(ctx context.Context) (Record, bool, error) {
	recs, err := s.Tail(ctx, 1)
	if err != nil || len(recs) == 0 {
		return Record{}, false, err
	}
	return recs[0], true, nil
}

func (s *SQLiteStore) Entry(ctx context.Context, h Hash) (Record, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Record{}, fmt.Errorf("audit: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		rec   Record
		found bool
	)
	err = sqlitex.Execute(conn, "SELECT hash, raw FROM entries WHERE hash = ?", &sqlitex.ExecOptions{
		Args: []any{string(h)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var err error
			rec, err = decodeRecord(Hash(stmt.ColumnText(0)), columnBytes(stmt, 1))
			found = true
			return err
		},
	})
	if err != nil {
		return Record{}, fmt.Errorf("audit: entry %s: %w", h, err)
	}
	if !found {
		return Record{}, fmt.Errorf("entry %s: %w", h, ErrNotFound)
	}
	return rec, nil
}

func (s *SQLiteStore) Tail(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	defer s.pool.Put(conn)

	recs, err := tail(conn, n)
	if err != nil {
		return nil, fmt.Errorf("audit: tail: %w", err)
	}
	return recs, nil
}

// tail returns up to n most recent entries on conn, oldest first.
func tail(conn *sqlite.Conn, n int) ([]Record, error) {
	var recs []Record
	err := sqlitex.Execute(conn, "SELECT hash, raw FROM entries ORDER BY seq DESC LIMIT ?", &sqlitex.ExecOptions{
		Args: []any{n},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rec, err := decodeRecord(Hash(stmt.ColumnText(0)), columnBytes(stmt, 1))
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		},
	})
	if err != nil {
		return nil, err
	}
	slices.Reverse(recs)
	return recs, nil
}

func (s *SQLiteStore) PutPayload(ctx context.Context, h Hash, data []byte) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}
	defer s.pool.Put(conn)

	stored, encoding := compress(data, s.compression)
	err = sqlitex.Execute(conn,
		"INSERT OR IGNORE INTO payloads (hash, encoding, size, data) VALUES (?, ?, ?, ?)",
		&sqlitex.ExecOptions{Args: []any{string(h), string(encoding), len(data), stored}})
	if err != nil {
		return fmt.Errorf("audit: store payload %s: %w", h, err)
	}
	return nil
}

func (s *SQLiteStore) Payload(ctx context.Context, h Hash) ([]byte, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("audit: %w", err)
	}
	defer s.pool.Put(conn)

	var (
		data  []byte
		found bool
	)
	err = sqlitex.Execute(conn, "SELECT encoding, size, data FROM payloads WHERE hash = ?", &sqlitex.ExecOptions{
		Args: []any{string(h)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var err error
			data, err = decompress(columnBytes(stmt, 2), Compression(stmt.ColumnText(0)), stmt.ColumnInt(1))
			found = true
			return err
		},
	})
	if err != nil {
		return nil, fmt.Errorf("audit: payload %s: %w", h, err)
	}
	if !found {
		return nil, fmt.Errorf("payload %s: %w", h, ErrNotFound)
	}
	return data, nil
}

func (s *SQLiteStore) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("audit: close %s: %w", s.path, err)
	}
	return nil
}

func columnBytes(stmt *sqlite.Stmt, col int) []byte {
	buf := make([]byte, stmt.ColumnLen(col))
	stmt.ColumnBytes(col, buf)
	return buf
}
