// Package sqlite provides a SQLite-backed provider.Provider.
//
// Every record is one row in a single table. The database runs in WAL mode
// with a busy timeout, so several processes can share one cache file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	pr "github.com/unkn0wn-root/kvault/provider"
)

const schema = `CREATE TABLE IF NOT EXISTS kv_records (
	key   TEXT PRIMARY KEY NOT NULL,
	value BLOB NOT NULL
) WITHOUT ROWID`

// Provider persists records in SQLite.
type Provider struct {
	sqlDB *sql.DB
}

var _ pr.Provider = (*Provider)(nil)

// Open opens (creating if needed) the database file at path.
func Open(path string) (*Provider, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := "file:" + cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	return open(dsn)
}

// OpenMemory opens a private in-memory database.
func OpenMemory() (*Provider, error) {
	p, err := open("file::memory:")
	if err != nil {
		return nil, err
	}
	// each pooled connection would otherwise see its own empty database
	p.sqlDB.SetMaxOpenConns(1)
	return p, nil
}

func open(dsn string) (*Provider, error) {
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Provider{sqlDB: sqlDB}, nil
}

func (p *Provider) Read(ctx context.Context, key string) ([]byte, bool, error) {
	var b []byte
	err := p.sqlDB.QueryRowContext(ctx, `SELECT value FROM kv_records WHERE key = ?`, key).Scan(&b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	if b == nil {
		b = []byte{}
	}
	return b, true, nil
}

func (p *Provider) Write(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := p.sqlDB.ExecContext(ctx,
		`INSERT INTO kv_records (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write %q: %w", key, err)
	}
	return nil
}

func (p *Provider) Delete(ctx context.Context, key string) error {
	if _, err := p.sqlDB.ExecContext(ctx, `DELETE FROM kv_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (p *Provider) List(ctx context.Context) ([]string, error) {
	rows, err := p.sqlDB.QueryContext(ctx, `SELECT key FROM kv_records`)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("list: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the SQLite handle.
func (p *Provider) Close(context.Context) error {
	if p == nil || p.sqlDB == nil {
		return nil
	}
	return p.sqlDB.Close()
}
