// Package queue implements the async learning queue (C9) from spec §4.6: a
// bounded MPSC queue feeding a fixed worker pool that performs
// classification, dedup, and a store write in the foreground of the
// worker, protected by a circuit breaker and coalescing same-fingerprint
// tasks. Grounded on the teacher's internal/engine/enrichment_queue.go
// non-blocking enqueue pattern, generalised from the teacher's
// enrichment-retry model to the spec's enqueue/await contract.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is a task's lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ErrQueueFull is returned by Enqueue when the bounded channel has no
// capacity left (spec §4.6 default capacity 1024).
var ErrQueueFull = errors.New("queue: full")

// ErrPending is returned by Await when timeout elapses before the task
// completes.
var ErrPending = errors.New("queue: pending")

// Task is one unit of learning work (spec §4.6).
type Task struct {
	ID          string
	Content     string
	Fingerprint string
	Payload     any
}

// Result is a task's outcome.
type Result struct {
	TaskID   string
	Status   Status
	MemoryID string
	Err      error
}

// Processor performs the actual classify+dedup+put pipeline for one task.
// Implemented by pkg/kuzuclient so this package has no dependency on
// classifier/dedup/storage.
type Processor interface {
	Process(ctx context.Context, task Task) (memoryID string, err error)
}

// Config configures a Queue (spec §4.6 defaults).
type Config struct {
	Capacity      int
	WorkerCount   int
	DrainGrace    time.Duration
	CircuitConfig CircuitBreakerConfig
}

// DefaultConfig matches spec §4.6.
var DefaultConfig = Config{
	Capacity:      1024,
	WorkerCount:   2,
	DrainGrace:    3 * time.Second,
	CircuitConfig: DefaultCircuitBreakerConfig,
}

// Queue is the bounded MPSC async learning queue.
type Queue struct {
	cfg       Config
	processor Processor
	breaker   *CircuitBreaker

	tasks chan Task

	mu        sync.Mutex
	pending   map[string]string // fingerprint -> task ID, only while unstarted
	states    map[string]*taskState
	closed    bool
	closing   chan struct{}
	workersWG sync.WaitGroup
}

type taskState struct {
	result Result
	done   chan struct{}
}

// New builds and starts a Queue with cfg.WorkerCount workers pulling from
// a channel of cfg.Capacity.
func New(processor Processor, cfg Config) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultConfig.Capacity
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultConfig.WorkerCount
	}
	if cfg.DrainGrace <= 0 {
		cfg.DrainGrace = DefaultConfig.DrainGrace
	}
	q := &Queue{
		cfg:       cfg,
		processor: processor,
		breaker:   NewCircuitBreaker(cfg.CircuitConfig),
		tasks:     make(chan Task, cfg.Capacity),
		pending:   make(map[string]string),
		states:    make(map[string]*taskState),
		closing:   make(chan struct{}),
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		q.startWorker()
	}
	return q
}

// Enqueue implements spec §4.6 enqueue(): returns immediately with a
// task_id. Identical fingerprints are coalesced onto the same task while
// it is still unstarted.
func (q *Queue) Enqueue(content, fingerprint string, payload any) (string, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return "", errors.New("queue: closed")
	}
	if existingID, ok := q.pending[fingerprint]; ok {
		q.mu.Unlock()
		return existingID, nil
	}
	q.mu.Unlock()

	id := uuid.NewString()
	task := Task{ID: id, Content: content, Fingerprint: fingerprint, Payload: payload}
	state := &taskState{done: make(chan struct{})}

	q.mu.Lock()
	q.pending[fingerprint] = id
	q.states[id] = state
	q.mu.Unlock()

	select {
	case q.tasks <- task:
		return id, nil
	default:
		q.mu.Lock()
		delete(q.pending, fingerprint)
		delete(q.states, id)
		q.mu.Unlock()
		return "", ErrQueueFull
	}
}

// Await implements spec §4.6 await(): blocks up to timeout for completion.
func (q *Queue) Await(taskID string, timeout time.Duration) (Result, error) {
	q.mu.Lock()
	state, ok := q.states[taskID]
	q.mu.Unlock()
	if !ok {
		return Result{}, fmt.Errorf("queue: unknown task %s", taskID)
	}

	select {
	case <-state.done:
		return state.result, nil
	case <-time.After(timeout):
		return Result{TaskID: taskID, Status: StatusPending}, ErrPending
	}
}

func (q *Queue) startWorker() {
	q.workersWG.Add(1)
	go q.runWorker()
}

func (q *Queue) runWorker() {
	defer q.workersWG.Done()
	for {
		select {
		case task, ok := <-q.tasks:
			if !ok {
				return
			}
			q.processTask(task)
		case <-q.closing:
			return
		}
	}
}

func (q *Queue) processTask(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.finish(task, Result{TaskID: task.ID, Status: StatusFailed, Err: fmt.Errorf("queue: worker panic: %v", r)})
			q.startWorker() // restart the crashed worker's goroutine slot
		}
	}()

	q.mu.Lock()
	delete(q.pending, task.Fingerprint)
	q.mu.Unlock()

	var memoryID string
	err := q.breaker.Execute(context.Background(), func() error {
		var innerErr error
		memoryID, innerErr = q.processor.Process(context.Background(), task)
		return innerErr
	})

	if err != nil {
		q.finish(task, Result{TaskID: task.ID, Status: StatusFailed, Err: err})
		return
	}
	q.finish(task, Result{TaskID: task.ID, Status: StatusCompleted, MemoryID: memoryID})
}

func (q *Queue) finish(task Task, result Result) {
	q.mu.Lock()
	defer q.mu.Unlock()
	state, ok := q.states[task.ID]
	if !ok {
		return
	}
	select {
	case <-state.done:
		return // already abandoned as Cancelled by Shutdown
	default:
	}
	state.result = result
	close(state.done)
}

// Shutdown implements spec §4.6: stop accepting new tasks, drain within
// grace, then abandon remaining tasks as Cancelled.
func (q *Queue) Shutdown() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		close(q.tasks)
		q.workersWG.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(q.cfg.DrainGrace):
		close(q.closing)
	}

	q.mu.Lock()
	for id, state := range q.states {
		select {
		case <-state.done:
		default:
			state.result = Result{TaskID: id, Status: StatusCancelled}
			close(state.done)
		}
	}
	q.mu.Unlock()
}

// BreakerState exposes the circuit breaker's state for stats/diagnostics.
func (q *Queue) BreakerState() string { return q.breaker.State() }
