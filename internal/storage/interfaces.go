// Package storage implements the Store component (C6) from spec §4.3: the
// sole owner of persisted Memory rows, exposing the put/get/query/delete
// operations the recall engine, dedup finder, and JSON-RPC server are built
// against. Grounded on the teacher's internal/storage interface
// segregation style, narrowed to the one graph-shaped store the spec
// describes rather than the teacher's pluggable Postgres/SQLite backends.
package storage

import (
	"context"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
)

// Store is every operation spec §4.3 exposes on the embedded graph
// database.
type Store interface {
	Put(ctx context.Context, m *memory.Memory, upsert bool) (string, error)
	Get(ctx context.Context, id string) (*memory.Memory, error)
	QueryByKeywords(ctx context.Context, keywords map[string]float64, limit int, f Filters) ([]Scored, error)
	QueryByEntities(ctx context.Context, entities []string, limit int, f Filters) ([]Scored, error)
	QueryRecent(ctx context.Context, limit int, f Filters) ([]*memory.Memory, error)
	UpdateAccess(ctx context.Context, id string, now time.Time) error
	UpdateImportance(ctx context.Context, id string, importance float64) error
	Delete(ctx context.Context, id string) (bool, error)
	SweepExpired(ctx context.Context, now time.Time) (int, error)
	StoreStats(ctx context.Context) (Stats, error)

	FindByContentHash(ctx context.Context, contentHash, userID string) (*memory.Memory, error)
	FindByTypeAndUser(ctx context.Context, memoryType memory.Type, userID string, limit int) ([]*memory.Memory, error)

	Close() error
}
