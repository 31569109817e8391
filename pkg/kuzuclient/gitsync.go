package kuzuclient

import (
	"context"
	"fmt"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/config"
	"github.com/bobmatnyc/kuzu-memory/internal/gitimport"
)

// RunGitImport implements spec §4.8's one-shot/incremental scan: walks
// repoDir's commit log since the persisted cursor (or from the beginning
// when full is true), enqueues accepted commits through the same learning
// queue as learn(), and persists the new cursor.
func (c *Client) RunGitImport(ctx context.Context, repoDir string, full bool) (gitimport.Result, error) {
	since := c.cfg.GitSync.LastCommitSHA
	if full {
		since = ""
	}
	importer := gitimport.New(repoDir, c.cfg.GitSync, c.queue)
	res, err := importer.Import(ctx, since)
	if err != nil {
		return res, err
	}
	if res.LastSHA != "" && res.LastSHA != c.cfg.GitSync.LastCommitSHA {
		timestamp := time.Now().UTC().Format(time.RFC3339)
		if err := config.SaveGitSyncCursor(c.cfg.ProjectRoot, res.LastSHA, timestamp); err != nil {
			return res, fmt.Errorf("kuzuclient: save git sync cursor: %w", err)
		}
		c.cfg.GitSync.LastCommitSHA = res.LastSHA
		c.cfg.GitSync.LastSyncTimestamp = timestamp
	}
	return res, nil
}

// WatchGitImport starts a background fsnotify watch (SPEC_FULL.md §12
// supplemental feature #2) that incrementally imports new commits as they land. The
// returned Watcher's Stop method must be called before the Client closes.
func (c *Client) WatchGitImport(ctx context.Context, repoDir string) (*gitimport.Watcher, error) {
	importer := gitimport.New(repoDir, c.cfg.GitSync, c.queue)
	w := gitimport.NewWatcher(importer, repoDir, c.cfg.GitSync.LastCommitSHA)
	if err := w.Start(ctx); err != nil {
		return nil, err
	}
	return w, nil
}
