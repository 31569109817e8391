// Package pool implements the connection pool invariants from spec §4.5:
// one shared database handle per absolute path, a bounded pool of
// connections over that handle, a single-writer lease with
// exponential-backoff-plus-full-jitter retry, and LIFO drain on shutdown.
// Grounded on the teacher's internal/storage/sqlite/memory_store.go, which
// opens the handle with WAL mode and a busy_timeout pragma; this package
// generalises that single-connection-only model to the spec's N-reader /
// 1-writer discipline.
package pool

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// registry keeps exactly one *sql.DB per absolute database path for the
// lifetime of the process (spec §4.5 invariant 1), reference-counted so
// the handle is closed only once every Pool built on it has shut down.
var registry = struct {
	mu      sync.Mutex
	handles map[string]*sharedHandle
}{handles: make(map[string]*sharedHandle)}

type sharedHandle struct {
	db       *sql.DB
	refCount int
}

// acquireHandle opens (or reuses) the *sql.DB for absPath, applying the
// WAL + busy_timeout + foreign_keys pragmas the teacher sets on its single
// connection.
func acquireHandle(absPath string, maxOpenConns int) (*sql.DB, error) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	if h, ok := registry.handles[absPath]; ok {
		h.refCount++
		// Each Pool leases all of its connections up front, so the shared
		// handle's limit grows by the new Pool's size.
		h.db.SetMaxOpenConns(h.db.Stats().MaxOpenConnections + maxOpenConns)
		return h.db, nil
	}

	dsn := absPath
	if absPath != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", absPath)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("pool: open %s: %w", absPath, err)
	}
	// One connection beyond the Pool's own stays free for Pool.DB() callers
	// such as storage.Open's schema creation.
	db.SetMaxOpenConns(maxOpenConns + 1)
	db.SetMaxIdleConns(maxOpenConns + 1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pool: %s: %w", pragma, err)
		}
	}

	registry.handles[absPath] = &sharedHandle{db: db, refCount: 1}
	return db, nil
}

// releaseHandle drops a reference to absPath's shared handle, closing the
// underlying *sql.DB once the last Pool referencing it has gone away.
func releaseHandle(absPath string) error {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	h, ok := registry.handles[absPath]
	if !ok {
		return nil
	}
	h.refCount--
	if h.refCount > 0 {
		return nil
	}
	delete(registry.handles, absPath)
	return h.db.Close()
}
