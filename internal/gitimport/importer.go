package gitimport

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/config"
)

// Enqueuer is the subset of queue.Queue the importer needs, kept as an
// interface so this package doesn't import queue's concrete type.
type Enqueuer interface {
	Enqueue(content, fingerprint string, payload any) (string, error)
}

// Importer walks a repository's commit log and enqueues accepted commits
// as learning tasks (spec §4.8).
type Importer struct {
	repoDir  string
	filter   FilterConfig
	enqueuer Enqueuer
}

// New builds an Importer over repoDir using gitSync's filter rules.
func New(repoDir string, gitSync config.GitSyncConfig, enqueuer Enqueuer) *Importer {
	return &Importer{
		repoDir:  repoDir,
		filter:   NewFilterConfig(gitSync),
		enqueuer: enqueuer,
	}
}

// Result summarises one Import call.
type Result struct {
	Scanned  int
	Accepted int
	LastSHA  string
}

// Import walks commits since sinceSHA (empty for a full rescan, spec
// §4.8 full mode) and enqueues every accepted one as a learning task.
// Already-imported commits collapse at the dedup layer via content_hash,
// so a full rescan is safe to repeat.
func (im *Importer) Import(ctx context.Context, sinceSHA string) (Result, error) {
	branch := CurrentBranch(ctx, im.repoDir)
	if !im.filter.AcceptBranch(branch) {
		return Result{}, nil
	}

	commits, err := WalkCommits(ctx, im.repoDir, sinceSHA)
	if err != nil {
		return Result{}, err
	}

	var res Result
	res.Scanned = len(commits)
	for _, c := range commits {
		if !im.filter.Accept(c) {
			continue
		}
		if err := im.enqueueCommit(c, branch); err != nil {
			return res, fmt.Errorf("gitimport: enqueue %s: %w", c.SHA, err)
		}
		res.Accepted++
	}
	if len(commits) > 0 {
		res.LastSHA = commits[0].SHA // git log is newest-first
	} else {
		res.LastSHA = sinceSHA
	}
	return res, nil
}

// Payload carries the metadata an EPISODIC memory built from a commit
// should record alongside its content (spec §4.8: "metadata carrying
// author/committer/sha/branch").
type Payload struct {
	Source    string
	CreatedAt time.Time
	Metadata  map[string]any
}

// SourceMetadata lets kuzuclient.Client.Process read a commit's
// attribution without importing this package's Payload type directly.
func (p Payload) SourceMetadata() (source string, sessionID string, metadata map[string]any) {
	return p.Source, "", p.Metadata
}

// SourceTime implements kuzuclient's optional timestampedSource so an
// imported commit's memory carries the commit time as created_at.
func (p Payload) SourceTime() time.Time {
	return p.CreatedAt
}

func (im *Importer) enqueueCommit(c Commit, branch string) error {
	content := fmt.Sprintf("%s | Files: %s", strings.TrimSpace(c.Message), strings.Join(c.Files, ", "))
	fingerprint := fingerprintCommit(c.SHA)

	payload := Payload{
		Source:    "git_sync",
		CreatedAt: c.Time,
		Metadata: map[string]any{
			"author":    c.Author,
			"committer": c.Committer,
			"sha":       c.SHA,
			"branch":    branch,
		},
	}

	_, err := im.enqueuer.Enqueue(content, fingerprint, payload)
	return err
}

func fingerprintCommit(sha string) string {
	sum := sha256.Sum256([]byte("git_sync:" + sha))
	return hex.EncodeToString(sum[:])
}
