package pool_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bobmatnyc/kuzu-memory/internal/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_ProvidesConnSizeConnections(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	p, err := pool.Open(context.Background(), dbPath, 3, pool.DefaultBackoffPolicy)
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	conn, release, err := p.AcquireReader(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conn)
	release()
}

func TestAcquireWriter_ExclusiveAcrossGoroutines(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	p, err := pool.Open(context.Background(), dbPath, 2, pool.BackoffPolicy{
		Base: time.Millisecond, Factor: 2, MaxAttempts: 20, JitterFrac: 0,
	})
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	_, release1, err := p.AcquireWriter(context.Background())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		_, release2, err := p.AcquireWriter(context.Background())
		require.NoError(t, err)
		release2()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("second writer acquired lease while first still held it")
	case <-time.After(20 * time.Millisecond):
	}
	release1()
	<-done
}

func TestAcquireWriter_BusyTimeoutAfterMaxAttempts(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	p, err := pool.Open(context.Background(), dbPath, 1, pool.BackoffPolicy{
		Base: time.Millisecond, Factor: 1, MaxAttempts: 2, JitterFrac: 0,
	})
	require.NoError(t, err)
	defer p.Shutdown(time.Second)

	_, release, err := p.AcquireWriter(context.Background())
	require.NoError(t, err)
	defer release()

	_, _, err = p.AcquireWriter(context.Background())
	assert.ErrorIs(t, err, pool.ErrBusyTimeout)
}

func TestShutdown_RejectsFurtherAcquires(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	p, err := pool.Open(context.Background(), dbPath, 1, pool.DefaultBackoffPolicy)
	require.NoError(t, err)

	require.NoError(t, p.Shutdown(time.Second))

	_, _, err = p.AcquireReader(context.Background())
	assert.ErrorIs(t, err, pool.ErrClosed)
}

func TestOpen_SamePathSharesHandle(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "shared.db")
	p1, err := pool.Open(context.Background(), dbPath, 1, pool.DefaultBackoffPolicy)
	require.NoError(t, err)
	defer p1.Shutdown(time.Second)

	p2, err := pool.Open(context.Background(), dbPath, 1, pool.DefaultBackoffPolicy)
	require.NoError(t, err)
	defer p2.Shutdown(time.Second)

	assert.Same(t, p1.DB(), p2.DB())
}
