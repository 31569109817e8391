package gitimport

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DetectsNewCommitAfterHeadChange(t *testing.T) {
	dir := initTestRepo(t)
	head, err := HeadSHA(context.Background(), dir)
	require.NoError(t, err)

	enq := &recordingEnqueuer{}
	imp := New(dir, config.Default().GitSync, enq)
	w := NewWatcher(imp, dir, head)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "e.txt"), []byte("five"), 0o644))
	cmd := exec.Command("git", "add", "e.txt")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())
	cmd = exec.Command("git", "commit", "-q", "-m", "fix: add e.txt")
	cmd.Dir = dir
	require.NoError(t, cmd.Run())

	assert.Eventually(t, func() bool {
		return len(enq.contents) == 1
	}, 2*time.Second, 50*time.Millisecond)
}
