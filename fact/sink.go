package fact

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

var (
	// ErrQueueClosed is returned when emitting into a closed queue.
	ErrQueueClosed = errors.New("fact queue closed")
	// ErrQueueFull is returned when the buffer of a queue with no consumer
	// is full.
	ErrQueueFull = errors.New("fact queue full before start")
)

// TransportError reports that a sink or query could not reach its endpoint.
// The core never retries; callers decide on a retry policy.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Sink accepts ordered fact groups.
type Sink interface {
	Append(ctx context.Context, group Group) error
}

// Emitter schedules a group for emission without waiting for the sink.
type Emitter interface {
	Emit(group Group)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, group Group) error

// Append calls f.
func (f SinkFunc) Append(ctx context.Context, group Group) error { return f(ctx, group) }

// MemorySink keeps every group in memory, in arrival order.
type MemorySink struct {
	mu     sync.Mutex
	groups []Group
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Append stores a copy of the group.
func (m *MemorySink) Append(_ context.Context, group Group) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	group.Triples = append(group.Triples[:0:0], group.Triples...)
	m.groups = append(m.groups, group)
	return nil
}

// Groups returns a snapshot of the stored groups.
func (m *MemorySink) Groups() []Group {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Group, len(m.groups))
	copy(out, m.groups)
	return out
}

// Reset drops all stored groups.
func (m *MemorySink) Reset() {
	m.mu.Lock()
	m.groups = nil
	m.mu.Unlock()
}

// Tee fans a group out to several sinks in order. Every sink is tried;
// failures are joined.
type Tee []Sink

// Append forwards the group to each sink.
func (t Tee) Append(ctx context.Context, group Group) error {
	var errs []error
	for _, s := range t {
		if err := s.Append(ctx, group); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type queueItem struct {
	group   Group
	flushed chan error
}

// Queue is the single append queue in front of a Sink. Recording and the
// event log both emit into it; one goroutine appends, so the groups of one
// entity never interleave with another writer's.
type Queue struct {
	sink   Sink
	logger *slog.Logger
	items  chan queueItem

	mu      sync.RWMutex
	started bool
	closed  bool
	done    chan struct{}

	// failures since the last Flush; touched by the consumer goroutine, or
	// under mu before the consumer starts
	failures []error
	dropped  atomic.Int64
}

// NewQueue creates a queue with the given buffer size.
func NewQueue(sink Sink, size int, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	if size <= 0 {
		size = 256
	}
	return &Queue{
		sink:   sink,
		logger: logger,
		items:  make(chan queueItem, size),
		done:   make(chan struct{}),
	}
}

// Start launches the consumer. It runs until Close is called; ctx is passed
// to the sink on every append.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.run(ctx)
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	for item := range q.items {
		q.append(ctx, item)
	}
}

// Emit enqueues a group. A group that cannot be enqueued is logged and
// reported by the next Flush or Close.
func (q *Queue) Emit(group Group) {
	if err := q.enqueue(queueItem{group: group}); err != nil {
		q.dropped.Add(1)
		q.logger.Error("Dropped fact group", "subject", group.Subject, "error", err)
	}
}

// Append enqueues a group; it satisfies Sink so a Queue can stand in for
// the sink it wraps. Delivery errors surface on the next Flush.
func (q *Queue) Append(_ context.Context, group Group) error {
	return q.enqueue(queueItem{group: group})
}

// enqueue blocks on a full buffer only while a consumer is running. Before
// Start a full buffer fails fast with ErrQueueFull.
func (q *Queue) enqueue(item queueItem) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	if !q.started {
		select {
		case q.items <- item:
			return nil
		default:
			return ErrQueueFull
		}
	}
	q.items <- item
	return nil
}

// Flush waits until every group emitted before the call has been appended and
// returns the failures collected since the previous Flush. Before Start the
// buffered groups are appended synchronously.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if !q.started {
		err := q.drain(ctx)
		q.mu.Unlock()
		return err
	}
	q.mu.Unlock()

	flushed := make(chan error, 1)
	if err := q.enqueue(queueItem{flushed: flushed}); err != nil {
		return err
	}
	select {
	case err := <-flushed:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// drain appends the buffered groups without a consumer. Callers hold mu.
func (q *Queue) drain(ctx context.Context) error {
	for {
		select {
		case item, ok := <-q.items:
			if !ok {
				return q.takeFailures()
			}
			q.append(ctx, item)
		default:
			return q.takeFailures()
		}
	}
}

func (q *Queue) append(ctx context.Context, item queueItem) {
	if item.flushed != nil {
		item.flushed <- q.takeFailures()
		return
	}
	if err := q.sink.Append(ctx, item.group); err != nil {
		q.logger.Warn("Failed to append fact group",
			"subject", item.group.Subject,
			"instant", item.group.Instant,
			"error", err)
		q.failures = append(q.failures, fmt.Errorf("append %s: %w", item.group.Subject, err))
	}
}

func (q *Queue) takeFailures() error {
	err := errors.Join(append(q.failures, q.droppedErr())...)
	q.failures = nil
	return err
}

func (q *Queue) droppedErr() error {
	if n := q.dropped.Swap(0); n > 0 {
		return fmt.Errorf("%d fact groups dropped", n)
	}
	return nil
}

// Close stops accepting groups and waits for the consumer to drain. A queue
// that was never started appends its buffered groups before returning. The
// error holds the failures not yet reported by Flush.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.items)
	if !q.started {
		defer q.mu.Unlock()
		return q.drain(context.Background())
	}
	q.mu.Unlock()
	<-q.done
	return errors.Join(append(q.failures, q.droppedErr())...)
}
