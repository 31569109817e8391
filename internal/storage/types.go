package storage

import (
	"errors"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict indicates a put collided with an existing memory and
	// upsert was not requested (spec §4.3 put()).
	ErrConflict = errors.New("storage: conflicting memory already exists")
	// ErrFull indicates the store's configured quota has been exceeded.
	ErrFull = errors.New("storage: quota exceeded")
)

// Filters narrows query_by_keywords/query_by_entities/query_recent (spec
// §4.3) to a user, session, and/or memory type. A zero-value field means
// "no constraint on this dimension".
type Filters struct {
	UserID     string
	SessionID  string
	MemoryType memory.Type
}

// Scored pairs a Memory with a candidate score, the return shape of
// query_by_keywords/query_by_entities (spec §4.3). SQLiteStore leaves Score
// at zero; the recall engine computes each candidate's score itself.
type Scored struct {
	Memory *memory.Memory
	Score  float64
}

// Stats is the result of the stats() operation (spec §4.3).
type Stats struct {
	TotalMemories  int
	ByType         map[memory.Type]int
	ExpiredLive    int
	RecentMemories int
}
