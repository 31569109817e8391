package recall

import (
	"context"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/storage"
)

// DefaultMaxMemories, DefaultCacheCapacity, and DefaultCacheTTL mirror
// spec §4.4's stated defaults.
const (
	DefaultMaxMemories  = 5
	DefaultCacheCapacity = 512
	DefaultCacheTTL      = 60 * time.Second
	DefaultSoftDeadline  = 100 * time.Millisecond
)

// Result is the Recall contract's output (spec §4.4).
type Result struct {
	Memories      []Candidate
	StrategyUsed  Strategy
	Confidence    float64
	ElapsedMillis int64
}

// Engine implements spec §4.4's recall(query, opts) contract.
type Engine struct {
	store        storage.Store
	cache        *TTLCache[string, Result]
	softDeadline time.Duration
}

// NewEngine builds a recall Engine backed by store, with a result cache of
// the given capacity/ttl (pass <=0 for either to use the spec defaults).
func NewEngine(store storage.Store, cacheCapacity int, cacheTTL time.Duration) (*Engine, error) {
	if cacheCapacity <= 0 {
		cacheCapacity = DefaultCacheCapacity
	}
	if cacheTTL <= 0 {
		cacheTTL = DefaultCacheTTL
	}
	cache, err := NewTTLCache[string, Result](cacheCapacity, cacheTTL)
	if err != nil {
		return nil, err
	}
	return &Engine{store: store, cache: cache, softDeadline: DefaultSoftDeadline}, nil
}

// InvalidateCache flushes the recall result cache. Call after any
// successful store write (spec §4.4.5).
func (e *Engine) InvalidateCache() {
	e.cache.Flush()
}

// Recall implements spec §4.4: fingerprint the query, select or honour a
// strategy, generate and rank candidates under a soft 100ms deadline, and
// cache the result.
func (e *Engine) Recall(ctx context.Context, rawQuery string, opts Options) (Result, error) {
	if opts.MaxMemories <= 0 {
		opts.MaxMemories = DefaultMaxMemories
	}
	q := NewQuery(rawQuery, opts)

	if cached, ok := e.cache.Get(q.Fingerprint); ok {
		go e.bumpAccess(cached.Memories)
		return cached, nil
	}

	strategy := opts.Strategy
	if strategy == "" || strategy == StrategyAuto {
		strategy = SelectStrategy(q)
	}

	deadline := time.Now().Add(e.softDeadline)
	deadlineCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	start := time.Now()
	f := storage.Filters{UserID: opts.UserID, SessionID: opts.SessionID, MemoryType: opts.MemoryType}

	candidates, err := generate(deadlineCtx, e.store, q, strategy, opts.MaxMemories, f)
	usedStrategy := strategy
	if err == context.DeadlineExceeded {
		usedStrategy = StrategyPartial
		err = nil
	}
	if err != nil {
		return Result{}, err
	}

	selected, confidence := Rank(candidates, time.Now(), opts.MaxMemories)

	result := Result{
		Memories:      selected,
		StrategyUsed:  usedStrategy,
		Confidence:    confidence,
		ElapsedMillis: time.Since(start).Milliseconds(),
	}
	e.cache.Put(q.Fingerprint, result)
	go e.bumpAccess(selected)
	return result, nil
}

// bumpAccess implements spec §3.1/§4.4.4's access-count bookkeeping: every
// memory returned by recall gets access_count incremented and accessed_at
// refreshed. Run after the response is already on its way back to the
// caller (§5), so a slow store write never adds to recall latency.
func (e *Engine) bumpAccess(selected []Candidate) {
	now := time.Now()
	for _, c := range selected {
		_ = e.store.UpdateAccess(context.Background(), c.Memory.ID, now)
	}
}
