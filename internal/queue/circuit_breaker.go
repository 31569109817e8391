package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned when the breaker has tripped and is rejecting
// new tasks (spec §4.6: "a circuit breaker opens the queue ... after 5
// consecutive failures"). Adapted from the teacher's internal/llm
// CircuitBreaker, which protected LLM calls; here it protects the worker
// pool's classify+dedup+put pipeline instead.
var ErrCircuitOpen = errors.New("queue: circuit breaker open")

// CircuitBreakerConfig configures the breaker (spec §4.6 defaults: 5
// consecutive failures trips it, 30s open).
type CircuitBreakerConfig struct {
	MaxFailures uint32
	Timeout     time.Duration
}

// DefaultCircuitBreakerConfig matches spec §4.6.
var DefaultCircuitBreakerConfig = CircuitBreakerConfig{
	MaxFailures: 5,
	Timeout:     30 * time.Second,
}

// CircuitBreaker wraps gobreaker for the worker pool's task execution.
type CircuitBreaker struct {
	breaker *gobreaker.CircuitBreaker
	mu      sync.RWMutex
	metrics CircuitBreakerMetrics
}

// CircuitBreakerMetrics tracks cumulative outcomes for observability.
type CircuitBreakerMetrics struct {
	TotalRequests       uint64
	TotalSuccesses      uint64
	TotalFailures       uint64
	ConsecutiveFailures uint32
}

// NewCircuitBreaker builds a breaker from cfg.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{}
	settings := gobreaker.Settings{
		Name:     "learning-queue",
		Timeout:  cfg.Timeout,
		Interval: 0,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
	}
	cb.breaker = gobreaker.NewCircuitBreaker(settings)
	return cb
}

// Execute runs fn through the breaker, translating an open-circuit
// rejection into ErrCircuitOpen.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func() error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, err := cb.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})

	cb.mu.Lock()
	cb.metrics.TotalRequests++
	if err != nil {
		cb.metrics.TotalFailures++
	} else {
		cb.metrics.TotalSuccesses++
	}
	cb.mu.Unlock()

	if errors.Is(err, gobreaker.ErrOpenState) {
		return ErrCircuitOpen
	}
	return err
}

// State reports "closed", "open", or "half-open".
func (cb *CircuitBreaker) State() string {
	switch cb.breaker.State() {
	case gobreaker.StateOpen:
		return "open"
	case gobreaker.StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Metrics returns a snapshot of cumulative outcomes.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	m := cb.metrics
	m.ConsecutiveFailures = cb.breaker.Counts().ConsecutiveFailures
	return m
}
