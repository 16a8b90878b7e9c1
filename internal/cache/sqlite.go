package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"ChipSentinel/internal/model"
)

// SQLite keeps series in a local table so a restart inside the TTL does not refetch.
// Rows past their expiry are never served and are purged on write.
type SQLite struct {
	db  *sql.DB
	mu  sync.Mutex
	now func() time.Time
}

// NewSQLite opens (or creates) the cache database and runs migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	c := &SQLite{db: db, now: time.Now}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite cache opened: %s", dbPath)
	return c, nil
}

func (c *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS series_cache (
			cache_key  TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_series_cache_expires ON series_cache(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func (c *SQLite) GetOrCompute(ctx context.Context, key Key, ttl time.Duration, produce Producer) (*model.Series, error) {
	k := key.String()

	if s, err := c.load(ctx, k); err != nil {
		log.Printf("[WARN] sqlite cache get %s: %v", k, err)
	} else if s != nil {
		return s, nil
	}

	s, err := produce(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.store(ctx, k, s, ttl); err != nil {
		log.Printf("[WARN] sqlite cache set %s: %v", k, err)
	}
	return s, nil
}

// load returns nil, nil on a miss.
func (c *SQLite) load(ctx context.Context, k string) (*model.Series, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM series_cache WHERE cache_key = ? AND expires_at > ?`,
		k, c.now().UnixMilli(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeSeries(payload)
}

func (c *SQLite) store(ctx context.Context, k string, s *model.Series, ttl time.Duration) error {
	payload, err := encodeSeries(s)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, err := c.db.ExecContext(ctx, `INSERT INTO series_cache
		(cache_key, payload, created_at, expires_at)
		VALUES (?,?,?,?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		k, payload, now.UnixMilli(), now.Add(ttl).UnixMilli(),
	); err != nil {
		return err
	}

	_, err = c.db.ExecContext(ctx, `DELETE FROM series_cache WHERE expires_at <= ?`, now.UnixMilli())
	return err
}

// DB exposes the handle for health probes.
func (c *SQLite) DB() *sql.DB { return c.db }

func (c *SQLite) Name() string { return "sqlite" }

func (c *SQLite) Close() error {
	log.Println("[INFO] closing sqlite cache")
	return c.db.Close()
}
