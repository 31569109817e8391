package kuzuclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/bobmatnyc/kuzu-memory/internal/queue"
)

// ErrSecretRejected is returned by Process when the secrets filter rejects
// a task's content (spec §4.2 rule 4). Learn maps this to a successful
// status:"ok" / skipped:"secret" receipt rather than a task failure
// (spec §7 SecretRejected), so callers can distinguish "we deliberately
// didn't store this" from an actual processing error.
var ErrSecretRejected = errors.New("kuzuclient: content rejected by secrets filter")

// importanceBumpOnDuplicate is the fixed increment spec §4.2 rule 3 applies
// to an existing memory's importance each time new content collapses onto
// it as a duplicate, clamped to [0,1].
const importanceBumpOnDuplicate = 0.05

// learnPayload is the queue.Task.Payload shape for a learn() call (spec
// §4.6/§6.2). The git importer constructs its own gitimport.Payload
// instead; Process accepts both via a minimal interface so it doesn't
// import the gitimport package.
type learnPayload struct {
	Source    string
	SessionID string
	Metadata  map[string]any
}

// metadataSource is satisfied by both learnPayload and gitimport.Payload.
type metadataSource interface {
	SourceMetadata() (source string, sessionID string, metadata map[string]any)
}

func (p learnPayload) SourceMetadata() (string, string, map[string]any) {
	return p.Source, p.SessionID, p.Metadata
}

// timestampedSource is an optional extra implemented by gitimport.Payload
// so an imported commit's memory carries the commit time as created_at
// (spec §4.8), rather than the moment the worker happened to process it.
type timestampedSource interface {
	SourceTime() time.Time
}

const gitSyncMinContentLength = 5

// Process implements queue.Processor: classify, dedup, and persist one
// learning task's content. This is the pipeline spec §4.6 describes as
// running "in the foreground of the worker".
func (c *Client) Process(ctx context.Context, task queue.Task) (string, error) {
	source, sessionID, metadata := "api", "", map[string]any(nil)
	if ms, ok := task.Payload.(metadataSource); ok {
		source, sessionID, metadata = ms.SourceMetadata()
	}

	if len(task.Content) < c.minContentLength(source) {
		return "", fmt.Errorf("kuzuclient: content below minimum length")
	}
	if c.filter.ContainsSecret(task.Content) {
		return "", ErrSecretRejected
	}

	m := c.buildMemory(task.Content, source, sessionID, metadata)
	if ts, ok := task.Payload.(timestampedSource); ok {
		t := ts.SourceTime()
		m.CreatedAt = t
		m.AccessedAt = t
		m.ValidFrom = t
		m.ApplyRetention()
	}
	if err := m.Validate(); err != nil {
		return "", fmt.Errorf("kuzuclient: invalid memory: %w", err)
	}

	dup, err := c.finder.FindDuplicate(ctx, m)
	if err != nil {
		return "", fmt.Errorf("kuzuclient: find duplicate: %w", err)
	}
	if dup != nil {
		now := time.Now().UTC()
		if err := c.store.UpdateAccess(ctx, dup.ID, now); err != nil {
			return "", fmt.Errorf("kuzuclient: bump duplicate access: %w", err)
		}
		bumped := memory.Clamp01(dup.Importance + importanceBumpOnDuplicate)
		if err := c.store.UpdateImportance(ctx, dup.ID, bumped); err != nil {
			return "", fmt.Errorf("kuzuclient: bump duplicate importance: %w", err)
		}
		c.engine.InvalidateCache()
		return dup.ID, nil
	}

	id, err := c.store.Put(ctx, m, false)
	if err != nil {
		return "", fmt.Errorf("kuzuclient: put: %w", err)
	}
	c.engine.InvalidateCache()
	return id, nil
}

// minContentLength applies spec §6.1 learning.min_content_length: the
// configured value normally, but the lower git-sync floor (5 chars) for
// commits imported by the git importer, which deliberately allows terse
// commit subjects through.
func (c *Client) minContentLength(source string) int {
	if source == string(memory.SourceGitSync) {
		return gitSyncMinContentLength
	}
	if c.cfg.Learning.MinContentLength > 0 {
		return c.cfg.Learning.MinContentLength
	}
	return 50
}
