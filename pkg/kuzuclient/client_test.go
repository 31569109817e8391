package kuzuclient_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bobmatnyc/kuzu-memory/internal/config"
	"github.com/bobmatnyc/kuzu-memory/internal/rpcserver"
	"github.com/bobmatnyc/kuzu-memory/pkg/kuzuclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *kuzuclient.Client {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(dir)
	require.NoError(t, err)
	cfg.Storage.DatabasePath = filepath.Join(dir, "test.db")
	cfg.Learning.MinContentLength = 1
	cfg.Learning.AutoTagGitUser = false

	c, err := kuzuclient.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_LearnThenRecall(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	learnResult, err := c.Learn(ctx, rpcserver.LearnParams{
		Content: "I prefer tabs over spaces for indentation",
		WaitMs:  2000,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", learnResult["status"])
	require.NotEmpty(t, learnResult["memory_id"])

	recallResult, err := c.Recall(ctx, rpcserver.RecallParams{Query: "tabs spaces indentation"})
	require.NoError(t, err)
	assert.Equal(t, "ok", recallResult["status"])
	memories, ok := recallResult["memories"].([]map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, memories)
}

func TestClient_Enhance_PassthroughWhenNoMemories(t *testing.T) {
	c := newTestClient(t)
	result, err := c.Enhance(context.Background(), rpcserver.EnhanceParams{Prompt: "hello world"})
	require.NoError(t, err)
	assert.Equal(t, "hello world", result["enhanced_prompt"])
}

func TestClient_Stats_ReportsMemoryCount(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Learn(ctx, rpcserver.LearnParams{Content: "the build pipeline runs on every push", WaitMs: 2000})
	require.NoError(t, err)

	stats, err := c.Stats(ctx, rpcserver.StatsParams{Detailed: true})
	require.NoError(t, err)
	assert.Equal(t, 1, stats["memory_count"])
	assert.Contains(t, stats, "user_stats")
}

func TestClient_Learn_DuplicateContentCollapses(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	first, err := c.Learn(ctx, rpcserver.LearnParams{Content: "always run tests before merging", WaitMs: 2000})
	require.NoError(t, err)
	second, err := c.Learn(ctx, rpcserver.LearnParams{Content: "always run tests before merging", WaitMs: 2000})
	require.NoError(t, err)

	assert.Equal(t, first["memory_id"], second["memory_id"])

	recallResult, err := c.Recall(ctx, rpcserver.RecallParams{Query: "always run tests before merging"})
	require.NoError(t, err)
	memories, ok := recallResult["memories"].([]map[string]any)
	require.True(t, ok)
	require.NotEmpty(t, memories)
}

func TestClient_Learn_SecretContentSkipped(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	result, err := c.Learn(ctx, rpcserver.LearnParams{Content: "password: hunter2", WaitMs: 2000})
	require.NoError(t, err)
	assert.Equal(t, "ok", result["status"])
	assert.Equal(t, "secret", result["skipped"])
	assert.Empty(t, result["memory_id"])
}

func TestClient_Shutdown_ClosesCleanly(t *testing.T) {
	c := newTestClient(t)
	require.NoError(t, c.Shutdown(context.Background()))
}
