package kuzuclient

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/attribution"
	"github.com/bobmatnyc/kuzu-memory/internal/enhance"
	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/bobmatnyc/kuzu-memory/internal/queue"
	"github.com/bobmatnyc/kuzu-memory/internal/recall"
	"github.com/bobmatnyc/kuzu-memory/internal/rpcserver"
)

var _ rpcserver.Backend = (*Client)(nil)

func toRecallOptions(maxMemories int, strategy string, filters *rpcserver.Filters) recall.Options {
	opts := recall.Options{
		MaxMemories: maxMemories,
		Strategy:    recall.Strategy(strategy),
	}
	if filters != nil {
		opts.UserID = filters.UserID
		opts.SessionID = filters.SessionID
	}
	return opts
}

func memoriesPayload(candidates []recall.Candidate) []map[string]any {
	now := time.Now()
	maxAccess := 0
	for _, c := range candidates {
		if c.Memory.AccessCount > maxAccess {
			maxAccess = c.Memory.AccessCount
		}
	}
	out := make([]map[string]any, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, map[string]any{
			"id":          c.Memory.ID,
			"content":     c.Memory.Content,
			"memory_type": string(c.Memory.MemoryType),
			"score":       recall.Final(c, now, maxAccess),
		})
	}
	return out
}

// Recall implements rpcserver.Backend.
func (c *Client) Recall(ctx context.Context, p rpcserver.RecallParams) (map[string]any, error) {
	max := p.MaxMemories
	if max <= 0 {
		max = recall.DefaultMaxMemories
	}
	strategy := p.Strategy
	if strategy == "" {
		strategy = string(recall.StrategyAuto)
	}
	result, err := c.engine.Recall(ctx, p.Query, toRecallOptions(max, strategy, p.Filters))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"status":        "ok",
		"memories":      memoriesPayload(result.Memories),
		"strategy_used": string(result.StrategyUsed),
		"confidence":    result.Confidence,
		"elapsed_ms":    result.ElapsedMillis,
	}, nil
}

// Enhance implements rpcserver.Backend: recall(prompt) -> enhancer
// (spec §6's data-flow note).
func (c *Client) Enhance(ctx context.Context, p rpcserver.EnhanceParams) (map[string]any, error) {
	max := p.MaxMemories
	if max <= 0 {
		max = recall.DefaultMaxMemories
	}
	strategy := p.Strategy
	if strategy == "" {
		strategy = string(recall.StrategyAuto)
	}
	recallResult, err := c.engine.Recall(ctx, p.Prompt, toRecallOptions(max, strategy, p.Filters))
	if err != nil {
		return nil, err
	}
	composed := enhance.Compose(p.Prompt, recallResult)
	return map[string]any{
		"status":          "ok",
		"enhanced_prompt": composed.EnhancedPrompt,
		"memories":        memoriesPayload(composed.Memories),
		"confidence":      composed.Confidence,
		"elapsed_ms":      composed.ElapsedMillis,
	}, nil
}

const defaultLearnWaitMs = 5000
const maxLearnWaitMs = 30000

// Learn implements rpcserver.Backend: enqueue immediately, optionally
// wait up to wait_ms for the result before returning (spec §4.7/§6.2).
func (c *Client) Learn(ctx context.Context, p rpcserver.LearnParams) (map[string]any, error) {
	source := p.Source
	if source == "" {
		source = "api"
	}
	taskID, err := c.queue.Enqueue(p.Content, memory.ContentHash(p.Content), learnPayload{
		Source:    source,
		SessionID: p.SessionID,
		Metadata:  p.Metadata,
	})
	if err != nil {
		return map[string]any{"status": "error", "error": err.Error()}, nil
	}

	waitMs := p.WaitMs
	if waitMs <= 0 {
		waitMs = defaultLearnWaitMs
	}
	if waitMs > maxLearnWaitMs {
		waitMs = maxLearnWaitMs
	}

	start := time.Now()
	result, err := c.queue.Await(taskID, time.Duration(waitMs)*time.Millisecond)
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return map[string]any{
			"status":     "queued",
			"task_id":    taskID,
			"elapsed_ms": elapsed,
		}, nil
	}
	if result.Status == queue.StatusFailed {
		if errors.Is(result.Err, ErrSecretRejected) {
			return map[string]any{
				"status":     "ok",
				"task_id":    taskID,
				"skipped":    "secret",
				"elapsed_ms": elapsed,
			}, nil
		}
		return map[string]any{
			"status":     "error",
			"task_id":    taskID,
			"elapsed_ms": elapsed,
		}, nil
	}
	return map[string]any{
		"status":     "ok",
		"task_id":    taskID,
		"memory_id":  result.MemoryID,
		"elapsed_ms": elapsed,
	}, nil
}

// Stats implements rpcserver.Backend (spec §6.2 stats()).
func (c *Client) Stats(ctx context.Context, p rpcserver.StatsParams) (map[string]any, error) {
	stats, err := c.store.StoreStats(ctx)
	if err != nil {
		return nil, err
	}
	byType := make(map[string]int, len(stats.ByType))
	for t, n := range stats.ByType {
		byType[string(t)] = n
	}

	var dbSize int64
	if info, err := os.Stat(c.cfg.DatabasePath()); err == nil {
		dbSize = info.Size()
	}

	result := map[string]any{
		"status":              "ok",
		"memory_count":        stats.TotalMemories,
		"by_type":             byType,
		"database_size_bytes": dbSize,
		"recent_memories":     stats.RecentMemories,
	}
	if p.Detailed {
		currentUser := attribution.DetectUser(c.cfg.Learning.UserIDOverride)
		result["user_stats"] = map[string]any{
			"total_users":  1,
			"users":        []string{currentUser},
			"current_user": currentUser,
		}
	}
	return result, nil
}

// Shutdown implements rpcserver.Backend: drain the learning queue and
// close the store.
func (c *Client) Shutdown(ctx context.Context) error {
	return c.Close()
}
