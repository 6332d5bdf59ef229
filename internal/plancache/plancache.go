// Package plancache is a host-side cache of compiled statements, keyed
// by the structural hash of their normalized IR. Two statements that
// normalize identically share one cache row, so formatting, conjunct
// order and redundant property-map syntax never cause a recompile.
//
// The cache is read-only metadata over the compiler: evicting or
// deleting it is always safe.
package plancache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS plans (
	hash        TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	snapshot    BLOB NOT NULL,
	session_id  TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	hit_count   INTEGER NOT NULL DEFAULT 0
);
`

const currentSchemaVersion = 1

// ErrMiss is returned by Get when no plan is cached under a hash.
var ErrMiss = errors.New("plancache: miss")

// Entry is one cached compilation.
type Entry struct {
	Hash      uint64
	Source    string // the first statement text that produced the plan
	Snapshot  []byte // canonical IR JSON
	SessionID string
	CreatedAt time.Time
	HitCount  int64
}

// Cache is a SQLite-backed plan cache. Use ":memory:" as the path for
// an ephemeral cache.
type Cache struct {
	db *sql.DB
	// session identifies one cache lifetime; rows written by this
	// process carry it, so stale rows from older sessions are easy to
	// sweep.
	session string
}

// Open creates or opens the cache database at path. The database is
// configured with WAL mode and a busy timeout, and the schema is
// applied idempotently.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open plan cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to plan cache: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Cache{
		db:      db,
		session: uuid.Must(uuid.NewV7()).String(),
	}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// SessionID returns the identifier rows written by this cache carry.
func (c *Cache) SessionID() string {
	return c.session
}

// Get looks up a plan by hash, bumping its hit count. Returns ErrMiss
// when the hash is not cached.
func (c *Cache) Get(ctx context.Context, hash uint64) (*Entry, error) {
	key := hashKey(hash)
	var e Entry
	var created string
	err := c.db.QueryRowContext(ctx, `
		SELECT source, snapshot, session_id, created_at, hit_count
		FROM plans WHERE hash = ?
	`, key).Scan(&e.Source, &e.Snapshot, &e.SessionID, &created, &e.HitCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("plancache get: %w", err)
	}
	e.Hash = hash
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("plancache get: bad created_at: %w", err)
	}

	if _, err := c.db.ExecContext(ctx,
		`UPDATE plans SET hit_count = hit_count + 1 WHERE hash = ?`, key); err != nil {
		return nil, fmt.Errorf("plancache hit count: %w", err)
	}
	e.HitCount++
	return &e, nil
}

// Put stores a plan under its hash. Re-putting an existing hash leaves
// the original row in place: the hash is structural, so the stored
// snapshot is already correct.
func (c *Cache) Put(ctx context.Context, hash uint64, source string, snapshot []byte) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO plans (hash, source, snapshot, session_id, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`, hashKey(hash), source, snapshot, c.session, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("plancache put: %w", err)
	}
	return nil
}

// Sweep deletes rows written by other sessions, returning how many
// were removed.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM plans WHERE session_id != ?`, c.session)
	if err != nil {
		return 0, fmt.Errorf("plancache sweep: %w", err)
	}
	return res.RowsAffected()
}

// Len reports the number of cached plans.
func (c *Cache) Len(ctx context.Context) (int64, error) {
	var n int64
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plans`).Scan(&n); err != nil {
		return 0, fmt.Errorf("plancache len: %w", err)
	}
	return n, nil
}

// hashKey renders a hash as the fixed-width hex key stored in SQLite,
// avoiding uint64/int64 sign trouble in the driver.
func hashKey(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}
