// Package cache persists the project snapshot between runs: the field
// catalog, the fetched work items and the pending change ledger. Each is
// stored as a JSON blob in a small sqlite database.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "modernc.org/sqlite"

	"github.com/steveyegge/ghtrack/internal/changes"
	"github.com/steveyegge/ghtrack/internal/fields"
	"github.com/steveyegge/ghtrack/internal/workitems"
)

// Blob names.
const (
	BlobFields    = "fields"
	BlobWorkItems = "work_items"
	BlobChanges   = "changes"
)

// ErrMiss is returned when a blob has never been saved.
var ErrMiss = errors.New("cache: no entry")

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	name TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	saved_at DATETIME NOT NULL
);`

// busyMaxElapsed bounds retries while another process holds the database.
const busyMaxElapsed = 10 * time.Second

func newBusyBackoff() backoff.BackOff {
	// BackOff implementations are stateful; always return a fresh instance.
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxElapsedTime = busyMaxElapsed
	return bo
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Cache is an open snapshot database.
type Cache struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the cache database at path.
func Open(ctx context.Context, path string) (*Cache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	c := &Cache{db: db, path: path}
	if err := c.withRetry(ctx, func() error {
		_, err := db.ExecContext(ctx, schema)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init cache schema: %w", err)
	}
	return c, nil
}

// OpenOrReset opens the cache at path. A database file that exists but
// cannot be opened is moved aside to path+".bad" and a fresh cache is
// created in its place; the snapshot is refetched on the next refresh.
func OpenOrReset(ctx context.Context, path string, log *slog.Logger) (*Cache, error) {
	c, err := Open(ctx, path)
	if err == nil || ctx.Err() != nil {
		return c, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return nil, err
	}
	log.Warn("cache database unreadable, starting a new one", "path", path, "error", err)
	aside := path + ".bad"
	if renameErr := os.Rename(path, aside); renameErr != nil {
		return nil, errors.Join(err, renameErr)
	}
	for _, suffix := range []string{"-wal", "-shm"} {
		_ = os.Rename(path+suffix, aside+suffix)
	}
	return Open(ctx, path)
}

// Path returns the database file.
func (c *Cache) Path() string { return c.path }

// Close closes the database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// withRetry runs op again while the database is busy.
func (c *Cache) withRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && isBusy(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}, backoff.WithContext(newBusyBackoff(), ctx))
}

// Put stores v as JSON under name.
func (c *Cache) Put(ctx context.Context, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	err = c.withRetry(ctx, func() error {
		_, err := c.db.ExecContext(ctx,
			`INSERT INTO blobs (name, data, saved_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`,
			name, data, time.Now().UTC())
		return err
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Get decodes the blob stored under name into v and returns when it was
// saved. It returns ErrMiss when there is none.
func (c *Cache) Get(ctx context.Context, name string, v any) (time.Time, error) {
	var data []byte
	var savedAt time.Time
	err := c.withRetry(ctx, func() error {
		return c.db.QueryRowContext(ctx, `SELECT data, saved_at FROM blobs WHERE name = ?`, name).Scan(&data, &savedAt)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrMiss
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("load %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return savedAt, fmt.Errorf("decode %s: %w", name, err)
	}
	return savedAt, nil
}

// Delete removes the named blobs; all of them when names is empty.
func (c *Cache) Delete(ctx context.Context, names ...string) error {
	return c.withRetry(ctx, func() error {
		if len(names) == 0 {
			_, err := c.db.ExecContext(ctx, `DELETE FROM blobs`)
			return err
		}
		for _, name := range names {
			if _, err := c.db.ExecContext(ctx, `DELETE FROM blobs WHERE name = ?`, name); err != nil {
				return err
			}
		}
		return nil
	})
}

// SavedAt returns when each blob was last written.
func (c *Cache) SavedAt(ctx context.Context) (map[string]time.Time, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name, saved_at FROM blobs ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}
	defer rows.Close()
	out := make(map[string]time.Time)
	for rows.Next() {
		var name string
		var at time.Time
		if err := rows.Scan(&name, &at); err != nil {
			return nil, fmt.Errorf("list blobs: %w", err)
		}
		out[name] = at
	}
	return out, rows.Err()
}

// LoadFields loads the field catalog.
func (c *Cache) LoadFields(ctx context.Context) (*fields.Fields, error) {
	var f fields.Fields
	if _, err := c.Get(ctx, BlobFields, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// SaveFields stores the field catalog.
func (c *Cache) SaveFields(ctx context.Context, f *fields.Fields) error {
	return c.Put(ctx, BlobFields, f)
}

// LoadWorkItems loads the work items.
func (c *Cache) LoadWorkItems(ctx context.Context) (*workitems.WorkItems, error) {
	items := workitems.New()
	if _, err := c.Get(ctx, BlobWorkItems, items); err != nil {
		return nil, err
	}
	return items, nil
}

// SaveWorkItems stores the work items.
func (c *Cache) SaveWorkItems(ctx context.Context, items *workitems.WorkItems) error {
	return c.Put(ctx, BlobWorkItems, items)
}

// LoadChanges loads the pending change ledger into into.
func (c *Cache) LoadChanges(ctx context.Context, into *changes.Changes) error {
	_, err := c.Get(ctx, BlobChanges, into)
	return err
}

// SaveChanges stores the pending change ledger.
func (c *Cache) SaveChanges(ctx context.Context, ch *changes.Changes) error {
	return c.Put(ctx, BlobChanges, ch)
}
