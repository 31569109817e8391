package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/memory"
	"github.com/bobmatnyc/kuzu-memory/internal/pool"
	"github.com/bobmatnyc/kuzu-memory/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	p, err := pool.Open(context.Background(), dbPath, 4, pool.DefaultBackoffPolicy)
	require.NoError(t, err)
	t.Cleanup(func() { p.Shutdown(time.Second) })

	s, err := storage.Open(context.Background(), p)
	require.NoError(t, err)
	return s
}

func sampleMemory(id string) *memory.Memory {
	now := time.Now().UTC().Truncate(time.Second)
	return &memory.Memory{
		ID:          id,
		Content:     "Team uses PostgreSQL 14 for the main datastore",
		ContentHash: memory.ContentHash("Team uses PostgreSQL 14 for the main datastore"),
		MemoryType:  memory.Semantic,
		SourceType:  memory.SourceConversation,
		UserID:      "u1",
		Importance:  0.6,
		Confidence:  0.7,
		CreatedAt:   now,
		AccessedAt:  now,
		ValidFrom:   now,
		Metadata:    map[string]any{},
		Keywords:    []string{"postgresql", "datastore"},
		Entities:    []string{"PostgreSQL"},
	}
}

func TestPutAndGet_RoundTrips(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m := sampleMemory("m1")
	id, err := s.Put(ctx, m, false)
	require.NoError(t, err)
	assert.Equal(t, "m1", id)

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, m.Content, got.Content)
	assert.Equal(t, m.Keywords, got.Keywords)
	assert.Equal(t, m.Entities, got.Entities)
}

func TestPut_ConflictWithoutUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	_, err = s.Put(ctx, m, false)
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestPut_UpsertUpdatesExistingRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	m.Content = "Team uses PostgreSQL 15 now"
	_, err = s.Put(ctx, m, true)
	require.NoError(t, err)

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, "Team uses PostgreSQL 15 now", got.Content)
}

func TestGet_NotFoundReturnsNilNoError(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindByContentHash(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	found, err := s.FindByContentHash(ctx, m.ContentHash, "u1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "m1", found.ID)
}

func TestQueryByEntities_Matches(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	results, err := s.QueryByEntities(ctx, []string{"PostgreSQL"}, 10, storage.Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "m1", results[0].Memory.ID)
}

func TestQueryByEntities_ExcludesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	past := time.Now().Add(-time.Minute)
	m.ValidTo = &past
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	results, err := s.QueryByEntities(ctx, []string{"PostgreSQL"}, 10, storage.Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryRecent_ExcludesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	past := time.Now().Add(-time.Minute)
	m.ValidTo = &past
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	results, err := s.QueryRecent(ctx, 10, storage.Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestFindByTypeAndUser_ExcludesExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	past := time.Now().Add(-time.Minute)
	m.ValidTo = &past
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	results, err := s.FindByTypeAndUser(ctx, memory.Semantic, "u1", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryRecent_OrdersByCreatedAtDesc(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	m1 := sampleMemory("m1")
	m1.CreatedAt = time.Now().Add(-time.Hour)
	_, err := s.Put(ctx, m1, false)
	require.NoError(t, err)

	m2 := sampleMemory("m2")
	m2.CreatedAt = time.Now()
	_, err = s.Put(ctx, m2, false)
	require.NoError(t, err)

	results, err := s.QueryRecent(ctx, 10, storage.Filters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "m2", results[0].ID)
}

func TestUpdateAccess_IncrementsCountAndRefreshesTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	now := time.Now().Add(time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, s.UpdateAccess(ctx, "m1", now))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.AccessCount)
	assert.Equal(t, now, got.AccessedAt)
}

func TestUpdateImportance_RaisesClampedValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	m.Importance = 0.97
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	require.NoError(t, s.UpdateImportance(ctx, "m1", memory.Clamp01(m.Importance+0.05)))

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got.Importance, 0.0001)
}

func TestDelete_RemovesRow(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	ok, err := s.Delete(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSweepExpired_DeletesPastValidTo(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	m := sampleMemory("m1")
	m.MemoryType = memory.Sensory
	past := time.Now().Add(-time.Hour)
	m.ValidTo = &past
	_, err := s.Put(ctx, m, false)
	require.NoError(t, err)

	n, err := s.SweepExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Get(ctx, "m1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStoreStats_CountsByType(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.Put(ctx, sampleMemory("m1"), false)
	require.NoError(t, err)
	m2 := sampleMemory("m2")
	m2.MemoryType = memory.Episodic
	_, err = s.Put(ctx, m2, false)
	require.NoError(t, err)

	stats, err := s.StoreStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMemories)
	assert.Equal(t, 1, stats.ByType[memory.Semantic])
	assert.Equal(t, 1, stats.ByType[memory.Episodic])
	assert.Equal(t, 2, stats.RecentMemories)
}

func TestStoreStats_RecentMemoriesExcludesExpiredAndStale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	fresh := sampleMemory("m1")
	_, err := s.Put(ctx, fresh, false)
	require.NoError(t, err)

	expired := sampleMemory("m2")
	past := time.Now().Add(-time.Minute)
	expired.ValidTo = &past
	_, err = s.Put(ctx, expired, false)
	require.NoError(t, err)

	stale := sampleMemory("m3")
	stale.CreatedAt = time.Now().Add(-48 * time.Hour)
	_, err = s.Put(ctx, stale, false)
	require.NoError(t, err)

	stats, err := s.StoreStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalMemories)
	assert.Equal(t, 1, stats.RecentMemories)
}
