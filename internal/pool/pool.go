package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"time"
)

// ErrBusyTimeout is returned when the writer lease could not be acquired
// within the backoff policy's attempt budget (spec §4.5).
var ErrBusyTimeout = errors.New("pool: busy timeout acquiring writer lease")

// ErrClosed is returned by Acquire* calls made after Shutdown has begun
// draining the pool.
var ErrClosed = errors.New("pool: closed")

// BackoffPolicy is the exponential-backoff-with-full-jitter schedule
// writers retry under when the writer slot is held (spec §4.5).
type BackoffPolicy struct {
	Base        time.Duration
	Factor      float64
	MaxAttempts int
	JitterFrac  float64
}

// DefaultBackoffPolicy matches spec §4.5: base 100ms, factor 2, max 10
// attempts, full jitter ±25%.
var DefaultBackoffPolicy = BackoffPolicy{
	Base:        100 * time.Millisecond,
	Factor:      2,
	MaxAttempts: 10,
	JitterFrac:  0.25,
}

func (b BackoffPolicy) delay(attempt int) time.Duration {
	d := float64(b.Base) * pow(b.Factor, attempt)
	jitter := 1 + (rand.Float64()*2-1)*b.JitterFrac
	return time.Duration(d * jitter)
}

func pow(base float64, exp int) float64 {
	r := 1.0
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

// Pool is a bounded set of connections sharing one registry handle, with a
// single-writer lease (spec §4.5).
type Pool struct {
	absPath string
	db      *sql.DB

	conns chan *sql.Conn // free-list of reader/writer connections
	all   []*sql.Conn    // all checked-out-at-startup connections, for LIFO close

	writerSem chan struct{} // capacity 1: held while a writer has the lease
	backoff   BackoffPolicy

	closing chan struct{}
	closed  bool
}

// Open builds a Pool of size connSize over the shared handle for dbPath.
func Open(ctx context.Context, dbPath string, connSize int, backoff BackoffPolicy) (*Pool, error) {
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, err
	}
	db, err := acquireHandle(absPath, connSize)
	if err != nil {
		return nil, err
	}

	p := &Pool{
		absPath:   absPath,
		db:        db,
		conns:     make(chan *sql.Conn, connSize),
		writerSem: make(chan struct{}, 1),
		backoff:   backoff,
		closing:   make(chan struct{}),
	}

	for i := 0; i < connSize; i++ {
		conn, err := db.Conn(ctx)
		if err != nil {
			p.closeAll()
			_ = releaseHandle(absPath)
			return nil, fmt.Errorf("pool: acquiring connection %d/%d: %w", i+1, connSize, err)
		}
		p.all = append(p.all, conn)
		p.conns <- conn
	}
	return p, nil
}

// DB exposes the shared *sql.DB for callers (e.g. schema migration) that
// need a plain database/sql handle rather than a leased connection.
func (p *Pool) DB() *sql.DB { return p.db }

// AcquireReader hands out a connection for a read-only operation; readers
// may run concurrently on distinct connections, no backoff required (spec
// §4.5).
func (p *Pool) AcquireReader(ctx context.Context) (*sql.Conn, func(), error) {
	select {
	case <-p.closing:
		return nil, nil, ErrClosed
	default:
	}
	select {
	case conn := <-p.conns:
		return conn, func() { p.conns <- conn }, nil
	case <-ctx.Done():
		return nil, nil, ctx.Err()
	}
}

// AcquireWriter takes the exclusive writer-slot lease, retrying under the
// pool's backoff policy while the slot is held (spec §4.5). It also
// acquires a connection to execute on.
func (p *Pool) AcquireWriter(ctx context.Context) (*sql.Conn, func(), error) {
	select {
	case <-p.closing:
		return nil, nil, ErrClosed
	default:
	}

	var attempt int
	for {
		select {
		case p.writerSem <- struct{}{}:
			conn, release, err := p.AcquireReader(ctx)
			if err != nil {
				<-p.writerSem
				return nil, nil, err
			}
			return conn, func() { release(); <-p.writerSem }, nil
		default:
		}

		if attempt >= p.backoff.MaxAttempts {
			return nil, nil, ErrBusyTimeout
		}
		select {
		case <-time.After(p.backoff.delay(attempt)):
			attempt++
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		case <-p.closing:
			return nil, nil, ErrClosed
		}
	}
}

// Shutdown stops accepting new leases, waits up to grace for in-flight
// operations to finish (approximated here by waiting for all connections
// to return to the free list), then closes connections in LIFO order and
// releases the shared handle (spec §4.5).
func (p *Pool) Shutdown(grace time.Duration) error {
	if p.closed {
		return nil
	}
	close(p.closing)

	deadline := time.After(grace)
	drained := 0
	for drained < len(p.all) {
		select {
		case <-p.conns:
			drained++
		case <-deadline:
			drained = len(p.all) // proceed with forced close
		}
	}

	p.closeAll()
	p.closed = true
	return releaseHandle(p.absPath)
}

func (p *Pool) closeAll() {
	for i := len(p.all) - 1; i >= 0; i-- {
		_ = p.all[i].Close()
	}
}
