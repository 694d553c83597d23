package adapter

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/stevemurr/persiston/codec"
	"github.com/stevemurr/persiston/record"
)

// SqliteAdapter stores encoded datasets as rows of a SQLite database.
//
// Tables:
//
//	datasets(name, data, updated_at)  PRIMARY KEY (name)
//
// Several stores can share one database file by using distinct dataset names.
type SqliteAdapter struct {
	db    *sql.DB
	path  string
	name  string
	codec codec.Codec
}

func NewSqliteAdapter(dbPath string, opts ...Option) (*SqliteAdapter, error) {
	o := newOptions(opts)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS datasets (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteAdapter{db: db, path: dbPath, name: o.dataset, codec: o.codec}, nil
}

func (s *SqliteAdapter) Close() error {
	return s.db.Close()
}

func (s *SqliteAdapter) source() string {
	return "sqlite " + s.path + "#" + s.name
}

func (s *SqliteAdapter) Read(ctx context.Context) (record.Dataset, error) {
	var raw []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM datasets WHERE name = ?", s.name).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &ReadError{Source: s.source(), Err: err}
	}
	d, err := decodeDataset(s.codec, raw)
	if err != nil {
		return nil, &ReadError{Source: s.source(), Err: err}
	}
	return d, nil
}

func (s *SqliteAdapter) Write(ctx context.Context, d record.Dataset) error {
	b, err := s.codec.Encode(d.Value())
	if err != nil {
		return &WriteError{Source: s.source(), Err: err}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO datasets (name, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.name, b, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return &WriteError{Source: s.source(), Err: err}
	}
	return nil
}
