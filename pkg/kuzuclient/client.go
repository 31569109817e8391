// Package kuzuclient wires the classifier, dedup, storage, recall,
// enhance, and queue packages together into a single embeddable client,
// and adapts that client to the two seams the rest of the module depends
// on: queue.Processor (so the async learning queue can run the
// classify-dedup-store pipeline) and rpcserver.Backend (so the JSON-RPC
// server can serve the four tools). Grounded on the teacher's
// internal/services wiring layer, generalised from its LLM-enrichment
// pipeline to this module's deterministic classify+dedup+store pipeline.
package kuzuclient

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/bobmatnyc/kuzu-memory/internal/attribution"
	"github.com/bobmatnyc/kuzu-memory/internal/classifier"
	"github.com/bobmatnyc/kuzu-memory/internal/config"
	"github.com/bobmatnyc/kuzu-memory/internal/dedup"
	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/bobmatnyc/kuzu-memory/internal/pool"
	"github.com/bobmatnyc/kuzu-memory/internal/queue"
	"github.com/bobmatnyc/kuzu-memory/internal/recall"
	"github.com/bobmatnyc/kuzu-memory/internal/storage"
)

// Client is the embeddable kuzu-memory service: every component from
// SPEC_FULL.md's package layout wired into one struct.
type Client struct {
	cfg    *config.Config
	pool   *pool.Pool
	store  storage.Store
	engine *recall.Engine
	finder *dedup.Finder
	filter *dedup.Filter
	queue  *queue.Queue
}

// Open builds and starts a Client rooted at cfg. It opens the connection
// pool and storage schema, but does not start the JSON-RPC transport or
// the git importer's watch loop — callers wire those separately.
func Open(ctx context.Context, cfg *config.Config) (*Client, error) {
	if err := config.EnsureLayout(cfg.ProjectRoot); err != nil {
		return nil, fmt.Errorf("kuzuclient: ensure layout: %w", err)
	}

	backoff := pool.BackoffPolicy{
		Base:        time.Duration(cfg.Performance.WriteRetryBaseMs) * time.Millisecond,
		Factor:      pool.DefaultBackoffPolicy.Factor,
		MaxAttempts: cfg.Performance.WriteRetryMaxAttempts,
		JitterFrac:  pool.DefaultBackoffPolicy.JitterFrac,
	}
	p, err := pool.Open(ctx, cfg.DatabasePath(), cfg.Performance.ConnectionPoolSize, backoff)
	if err != nil {
		return nil, fmt.Errorf("kuzuclient: open pool: %w", err)
	}

	store, err := storage.Open(ctx, p)
	if err != nil {
		_ = p.Shutdown(5 * time.Second)
		return nil, fmt.Errorf("kuzuclient: open store: %w", err)
	}
	if stats, err := store.StoreStats(ctx); err == nil {
		size := "unknown size"
		if info, statErr := os.Stat(cfg.DatabasePath()); statErr == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		log.Printf("kuzuclient: opened store at %s (%s, %d memories)",
			cfg.DatabasePath(), size, stats.TotalMemories)
	}

	engine, err := recall.NewEngine(store, 0, 0)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("kuzuclient: new recall engine: %w", err)
	}

	secretFilter, err := dedup.NewFilter(cfg.Learning.ExcludedPatterns)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("kuzuclient: compile secret filter: %w", err)
	}

	c := &Client{
		cfg:    cfg,
		pool:   p,
		store:  store,
		engine: engine,
		finder: dedup.NewFinder(store, 0),
		filter: secretFilter,
	}
	c.queue = queue.New(c, queue.Config{
		Capacity:    queue.DefaultConfig.Capacity,
		WorkerCount: queue.DefaultConfig.WorkerCount,
		DrainGrace:  queue.DefaultConfig.DrainGrace,
	})
	return c, nil
}

// Close drains the learning queue and releases the store/pool.
func (c *Client) Close() error {
	c.queue.Shutdown()
	return c.store.Close()
}

// buildMemory turns classified content into a memory.Memory ready for
// Validate/ApplyRetention/Put, applying attribution per spec §6.1's
// learning.auto_tag_git_user / user_id_override.
func (c *Client) buildMemory(content, source, sessionID string, metadata map[string]any) *memory.Memory {
	cls := classifier.Classify(content, classifier.Hints{SourceType: memory.Source(source)})

	userID := ""
	if c.cfg.Learning.AutoTagGitUser {
		userID = attribution.DetectUser(c.cfg.Learning.UserIDOverride)
	} else if c.cfg.Learning.UserIDOverride != "" {
		userID = c.cfg.Learning.UserIDOverride
	}

	now := time.Now().UTC()
	m := &memory.Memory{
		ID:          uuid.NewString(),
		Content:     memory.NormalizeContent(content),
		ContentHash: memory.ContentHash(content),
		MemoryType:  cls.MemoryType,
		SourceType:  memory.Source(source),
		SessionID:   sessionID,
		AgentID:     attribution.DetectAgent(),
		UserID:      userID,
		Importance:  cls.Importance,
		Confidence:  cls.Confidence,
		CreatedAt:   now,
		AccessedAt:  now,
		ValidFrom:   now,
		Metadata:    metadata,
		Keywords:    cls.Keywords,
		Entities:    cls.Entities,
	}
	m.ApplyRetention()
	return m
}
