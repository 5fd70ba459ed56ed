package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Compile-time check that SQLiteTier satisfies Tier.
var _ Tier = (*SQLiteTier)(nil)

// SQLiteTier is the persistent cache tier. Entries survive restarts but
// remain governed by their original TTL: expired rows are discarded on
// read. Values are stored as JSON, so structured values round-trip as
// generic maps and slices; the null sentinel round-trips exactly.
type SQLiteTier struct {
	db *sql.DB
}

// OpenSQLiteTier opens (or creates) the snapshot database at path.
func OpenSQLiteTier(ctx context.Context, path string) (*SQLiteTier, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS cache_entries (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			is_null    INTEGER NOT NULL DEFAULT 0,
			stored_at  INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteTier{db: db}, nil
}

// Load reads the entry for key. Expired rows are deleted and reported
// as absent.
func (t *SQLiteTier) Load(key string) (*Entry, bool, error) {
	var (
		raw       string
		isNull    int
		storedAt  int64
		expiresAt int64
	)
	err := t.db.QueryRow(
		`SELECT value, is_null, stored_at, expires_at FROM cache_entries WHERE key = ?`,
		key,
	).Scan(&raw, &isNull, &storedAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load %q: %w", key, err)
	}

	e := &Entry{
		Key:       key,
		StoredAt:  time.UnixMilli(storedAt),
		ExpiresAt: time.UnixMilli(expiresAt),
	}
	if e.Expired(time.Now()) {
		_ = t.Delete(key)
		return nil, false, nil
	}

	if isNull == 1 {
		e.Value = Null
		return e, true, nil
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		// A row we cannot decode is useless; drop it.
		_ = t.Delete(key)
		return nil, false, nil
	}
	e.Value = v
	return e, true, nil
}

// Store upserts the entry.
func (t *SQLiteTier) Store(e *Entry) error {
	raw := "null"
	isNull := 0
	if IsNull(e.Value) {
		isNull = 1
	} else {
		b, err := json.Marshal(e.Value)
		if err != nil {
			return fmt.Errorf("encode %q: %w", e.Key, err)
		}
		raw = string(b)
	}

	_, err := t.db.Exec(`
		INSERT INTO cache_entries (key, value, is_null, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			is_null = excluded.is_null,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at`,
		e.Key, raw, isNull, e.StoredAt.UnixMilli(), e.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("store %q: %w", e.Key, err)
	}
	return nil
}

// Delete removes the row for key.
func (t *SQLiteTier) Delete(key string) error {
	_, err := t.db.Exec(`DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

// Flush removes all rows.
func (t *SQLiteTier) Flush() error {
	_, err := t.db.Exec(`DELETE FROM cache_entries`)
	return err
}

// Close closes the underlying database.
func (t *SQLiteTier) Close() error {
	return t.db.Close()
}
