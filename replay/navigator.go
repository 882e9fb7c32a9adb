package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/scene"
	"github.com/c360studio/semrec/temporal"
)

var (
	// ErrNotLoaded is returned when seeking before instants are loaded.
	ErrNotLoaded = errors.New("navigator not loaded")

	// ErrUnordered is returned when loaded instants are not strictly ascending.
	ErrUnordered = errors.New("instants not in ascending order")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("navigator closed")
)

// State is the navigator lifecycle state.
type State int

const (
	// Unloaded means no instant sequence is available yet.
	Unloaded State = iota
	// Ready means a sequence is loaded; the selection may be empty.
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "unloaded"
}

// Frame is the answer to the query issued for one selection.
type Frame struct {
	Index   int
	Instant temporal.Instant
	Groups  []fact.Group
	Content *scene.SceneContent
	Err     error

	generation uint64
}

// Navigator maps elapsed time to recorded instants and fetches the facts of
// the selected instant. Only the answer for the current selection is
// delivered; answers that arrive after the selection moved are dropped.
type Navigator struct {
	store   Store
	session string
	logger  *slog.Logger

	mu         sync.Mutex
	state      State
	instants   []temporal.Instant
	index      int
	generation uint64
	stale      int
	closed     bool

	frames chan Frame
	// moved is closed when the selection changes
	moved chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
}

// Option configures a Navigator.
type Option func(*Navigator)

// WithLogger sets the navigator logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Navigator) {
		n.logger = logger
	}
}

// WithFrameBuffer sets the capacity of the frame channel.
func WithFrameBuffer(size int) Option {
	return func(n *Navigator) {
		n.frames = make(chan Frame, size)
	}
}

// NewNavigator creates an unloaded navigator over one session of store.
func NewNavigator(store Store, session string, opts ...Option) *Navigator {
	n := &Navigator{
		store:   store,
		session: session,
		logger:  slog.Default(),
		index:   -1,
		frames:  make(chan Frame, 16),
		moved:   make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Load installs the instant sequence. The sequence is copied and never
// changes afterwards; the selection starts empty.
func (n *Navigator) Load(instants []temporal.Instant) error {
	for i := 1; i < len(instants); i++ {
		if !instants[i].Timestamp.After(instants[i-1].Timestamp) {
			return fmt.Errorf("load: %w at position %d", ErrUnordered, i)
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return ErrClosed
	}
	n.instants = append([]temporal.Instant(nil), instants...)
	n.state = Ready
	n.index = -1
	n.moveLocked()
	return nil
}

// LoadSession loads the session's instants from the store.
func (n *Navigator) LoadSession(ctx context.Context) error {
	instants, err := n.store.Instants(ctx, n.session)
	if err != nil {
		return fmt.Errorf("load session %s: %w", n.session, err)
	}
	return n.Load(instants)
}

// State returns the lifecycle state.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Len returns the number of loaded instants.
func (n *Navigator) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.instants)
}

// Current returns the selected instant and its index.
func (n *Navigator) Current() (temporal.Instant, int, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.index < 0 {
		return temporal.Instant{}, -1, false
	}
	return n.instants[n.index], n.index, true
}

// Duration is the offset of the last instant from the first.
func (n *Navigator) Duration() time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.instants) == 0 {
		return 0
	}
	return n.instants[len(n.instants)-1].Timestamp.Sub(n.instants[0].Timestamp)
}

// StartedAt is the timestamp of the first instant.
func (n *Navigator) StartedAt() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.instants) == 0 {
		return time.Time{}
	}
	return n.instants[0].Timestamp
}

// Offset returns the elapsed time of instant i since the first instant.
func (n *Navigator) Offset(i int) time.Duration {
	n.mu.Lock()
	defer n.mu.Unlock()
	if i < 0 || i >= len(n.instants) {
		return 0
	}
	return n.instants[i].Timestamp.Sub(n.instants[0].Timestamp)
}

// SearchAt selects the last instant whose offset is at most elapsed and
// requests its facts. Before the first instant nothing is selected and no
// request is made.
func (n *Navigator) SearchAt(ctx context.Context, elapsed time.Duration) (*temporal.Instant, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, ErrClosed
	}
	if n.state != Ready {
		return nil, ErrNotLoaded
	}
	i := sort.Search(len(n.instants), func(i int) bool {
		return n.instants[i].Timestamp.Sub(n.instants[0].Timestamp) > elapsed
	}) - 1
	return n.selectLocked(ctx, i), nil
}

// NextInstant moves the selection one step forward. From an empty selection
// it selects the first instant. At the last instant it returns nil and the
// selection is unchanged.
func (n *Navigator) NextInstant(ctx context.Context) *temporal.Instant {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.state != Ready || n.index+1 >= len(n.instants) {
		return nil
	}
	return n.selectLocked(ctx, n.index+1)
}

// PreviousInstant moves the selection one step back. At the first instant,
// or with nothing selected, it returns nil and the selection is unchanged.
func (n *Navigator) PreviousInstant(ctx context.Context) *temporal.Instant {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed || n.state != Ready || n.index <= 0 {
		return nil
	}
	return n.selectLocked(ctx, n.index-1)
}

func (n *Navigator) moveLocked() {
	n.generation++
	close(n.moved)
	n.moved = make(chan struct{})
}

func (n *Navigator) selectLocked(ctx context.Context, i int) *temporal.Instant {
	n.index = i
	n.moveLocked()
	if i < 0 {
		return nil
	}
	instant := n.instants[i]
	n.wg.Add(1)
	go n.fetch(ctx, i, n.generation, n.moved, instant)
	return &instant
}

func (n *Navigator) fetch(ctx context.Context, index int, generation uint64, moved <-chan struct{}, instant temporal.Instant) {
	defer n.wg.Done()

	groups, err := n.store.FactsAt(ctx, n.session, instant)
	frame := Frame{Index: index, Instant: instant, Groups: groups, generation: generation}
	if err != nil {
		frame.Err = &fact.TransportError{Op: "facts at " + instant.IRI(), Err: err}
	} else if len(groups) > 0 {
		frame.Content, frame.Err = scene.Rebuild(groups)
	}

	if !n.IsCurrent(frame) {
		n.discard(frame)
		return
	}
	select {
	case n.frames <- frame:
	case <-moved:
		n.discard(frame)
	case <-ctx.Done():
	case <-n.done:
	}
}

func (n *Navigator) discard(f Frame) {
	n.mu.Lock()
	n.stale++
	n.mu.Unlock()
	n.logger.Debug("Discarding stale replay frame",
		"instant", f.Instant.Timestamp,
		"index", f.Index)
}

// Frames delivers the answers to selections. A frame sent just before the
// selection moved can still be buffered; filter with IsCurrent, or use Next.
func (n *Navigator) Frames() <-chan Frame {
	return n.frames
}

// Next returns the answer for the current selection, discarding frames the
// selection has moved past.
func (n *Navigator) Next(ctx context.Context) (Frame, error) {
	for {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case f, ok := <-n.frames:
			if !ok {
				return Frame{}, ErrClosed
			}
			if n.IsCurrent(f) {
				return f, nil
			}
			n.discard(f)
		}
	}
}

// IsCurrent reports whether a frame answers the current selection.
func (n *Navigator) IsCurrent(f Frame) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return !n.closed && f.generation == n.generation && n.index == f.Index
}

// Stale returns how many answers were dropped because the selection moved.
func (n *Navigator) Stale() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.stale
}

// Wait blocks until every issued query has been answered or dropped.
func (n *Navigator) Wait() {
	n.wg.Wait()
}

// Close drops in-flight answers and closes the frame channel.
func (n *Navigator) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	close(n.done)
	n.mu.Unlock()

	n.wg.Wait()
	close(n.frames)
}
