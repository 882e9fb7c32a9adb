// Package recorder samples a scene host at a fixed tick rate and records
// snapshots, the session interval and events as ordered fact groups.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/event"
	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/scene"
	"github.com/c360studio/semrec/temporal"
	vocab "github.com/c360studio/semrec/vocabulary/scene"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// SessionPrefix is the IRI prefix of recording sessions.
const SessionPrefix = string(vocab.EntityTypeSession)

// ErrClosed is returned when recording into a closed recorder.
var ErrClosed = errors.New("recorder closed")

var sessionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(vocab.EntityNamespace+SessionPrefix))

// SessionID returns the ID of a named session.
func SessionID(name string) uuid.UUID {
	return uuid.NewSHA1(sessionNamespace, []byte(name))
}

// SessionIRI returns the IRI of a named session.
func SessionIRI(name string) string {
	return fact.Ref(SessionPrefix, SessionID(name))
}

type options struct {
	ticksPerSecond int
	session        string
	include        []string
	exclude        []string
	registry       *codec.Registry
	now            func() time.Time
	logger         *slog.Logger
	registerer     prometheus.Registerer
	queueSize      int
}

// Option configures a Recorder.
type Option func(*options)

// WithTicksPerSecond sets the sampling rate.
func WithTicksPerSecond(n int) Option {
	return func(o *options) { o.ticksPerSecond = n }
}

// WithSessionName names the session. Unnamed sessions get a random name.
func WithSessionName(name string) Option {
	return func(o *options) { o.session = name }
}

// WithFilters sets the entity name include and exclude globs.
func WithFilters(include, exclude []string) Option {
	return func(o *options) {
		o.include = include
		o.exclude = exclude
	}
}

// WithRegistry sets the codec registry used to describe property values.
func WithRegistry(reg *codec.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the recorder logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRegisterer registers the recorder metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithQueueSize sets the fact queue buffer.
func WithQueueSize(n int) Option {
	return func(o *options) { o.queueSize = n }
}

// Recorder owns everything one recording session needs: the clock, the
// timeline, the scanner, the event log and the fact queue in front of the
// sink.
type Recorder struct {
	clock    *temporal.Clock
	timeline *temporal.Timeline
	registry *codec.Registry
	events   *event.Log
	queue    *fact.Queue
	emitter  fact.Emitter
	metrics  *Metrics
	logger   *slog.Logger

	name      string
	sessionID uuid.UUID
	session   string

	scanMu  sync.RWMutex
	scanner *scene.Scanner

	// mu serializes clock access, ticks and Close
	mu     sync.Mutex
	last   temporal.Instant
	began  bool
	closed bool
}

// New creates a recorder emitting into sink.
func New(sink fact.Sink, opts ...Option) (*Recorder, error) {
	o := options{ticksPerSecond: 10}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.registry == nil {
		o.registry = codec.NewRegistryWithBuiltins()
	}
	if o.session == "" {
		o.session = uuid.NewString()
	}

	var clockOpts []temporal.ClockOption
	if o.now != nil {
		clockOpts = append(clockOpts, temporal.WithNow(o.now))
	}
	clock, err := temporal.NewClock(o.ticksPerSecond, clockOpts...)
	if err != nil {
		return nil, fmt.Errorf("create clock: %w", err)
	}

	r := &Recorder{
		clock:     clock,
		registry:  o.registry,
		metrics:   NewMetrics(o.registerer),
		logger:    o.logger.With("session", o.session),
		name:      o.session,
		sessionID: SessionID(o.session),
		session:   SessionIRI(o.session),
	}

	scanner, err := r.newScanner(o.include, o.exclude)
	if err != nil {
		return nil, err
	}
	r.scanner = scanner

	r.queue = fact.NewQueue(sink, o.queueSize, r.logger)
	r.emitter = countingEmitter{queue: r.queue, groups: r.metrics.Groups}
	r.timeline = temporal.NewTimeline(r.emitter,
		temporal.WithSession(r.session),
		temporal.WithLogger(r.logger))
	if err := r.timeline.AdoptInterval(SessionPrefix, r.sessionID); err != nil {
		return nil, err
	}
	r.events = event.NewLog(r.timeline, r.emitter,
		event.WithSession(r.session),
		event.WithLogger(r.logger))
	return r, nil
}

func (r *Recorder) newScanner(include, exclude []string) (*scene.Scanner, error) {
	s, err := scene.NewScanner(r.registry,
		scene.WithInclude(include...),
		scene.WithExclude(exclude...),
		scene.WithSession(r.session),
		scene.WithLogger(r.logger))
	if err != nil {
		return nil, fmt.Errorf("create scanner: %w", err)
	}
	return s, nil
}

// Session returns the session IRI.
func (r *Recorder) Session() string { return r.session }

// SessionName returns the session name.
func (r *Recorder) SessionName() string { return r.name }

// Registry returns the codec registry.
func (r *Recorder) Registry() *codec.Registry { return r.registry }

// Timeline returns the session timeline.
func (r *Recorder) Timeline() *temporal.Timeline { return r.timeline }

// Events returns the event log.
func (r *Recorder) Events() *event.Log { return r.events }

// Metrics returns the recorder collectors.
func (r *Recorder) Metrics() *Metrics { return r.metrics }

// TicksPerSecond returns the sampling rate.
func (r *Recorder) TicksPerSecond() int { return r.clock.TicksPerSecond() }

// SetFilters replaces the entity filters from the next tick on.
func (r *Recorder) SetFilters(include, exclude []string) error {
	s, err := r.newScanner(include, exclude)
	if err != nil {
		return err
	}
	r.scanMu.Lock()
	r.scanner = s
	r.scanMu.Unlock()
	r.logger.Info("Entity filters updated", "include", include, "exclude", exclude)
	return nil
}

func (r *Recorder) currentScanner() *scene.Scanner {
	r.scanMu.RLock()
	defer r.scanMu.RUnlock()
	return r.scanner
}

// Start launches the fact queue consumer. Without it groups are buffered
// and appended synchronously on Flush and Close; a full buffer drops groups
// and the next Flush reports them.
func (r *Recorder) Start(ctx context.Context) {
	r.queue.Start(ctx)
}

// Now returns the current quantized instant.
func (r *Recorder) Now() temporal.Instant {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clock.CurrentInstant()
}

// Tick samples host at the current instant. A second tick within the same
// instant is a no-op. The first tick begins the session interval. A scan
// error is a partial failure: the described part of the scene is still
// emitted.
func (r *Recorder) Tick(ctx context.Context, host scene.Host) (temporal.Instant, error) {
	if err := ctx.Err(); err != nil {
		return temporal.Instant{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return temporal.Instant{}, ErrClosed
	}

	tickStart := time.Now()
	inst := r.clock.CurrentInstant()
	if !r.last.IsZero() && inst.ID == r.last.ID {
		return inst, nil
	}

	if !r.began {
		if err := r.beginSession(inst); err != nil {
			return inst, err
		}
	}

	content, scanErr := r.currentScanner().Scan(host, inst)
	if scanErr != nil {
		r.metrics.Failures.WithLabelValues(StageDescribe).Add(float64(countErrors(scanErr)))
	}
	for _, g := range content.Groups() {
		r.emitter.Emit(g)
	}
	if err := r.timeline.AddInside(r.sessionID, inst); err != nil {
		return inst, fmt.Errorf("extend session: %w", err)
	}
	r.last = inst

	r.metrics.Ticks.Inc()
	r.metrics.Entities.Set(float64(len(content.GameObjects)))
	r.metrics.TickDuration.Observe(time.Since(tickStart).Seconds())
	return inst, scanErr
}

func (r *Recorder) beginSession(inst temporal.Instant) error {
	if err := r.timeline.Start(r.sessionID, inst, nil); err != nil {
		return fmt.Errorf("begin session: %w", err)
	}
	g := fact.Group{Session: r.session, Instant: inst.IRI(), At: inst.Timestamp, Subject: r.session}
	g.Add(vocab.Type, vocab.ClassSession)
	g.Add(vocab.EntityName, fact.String(r.name))
	g.Add(vocab.SessionStartedAt, fact.Day(inst.Timestamp))
	r.emitter.Emit(g)
	r.began = true

	r.logger.Info("Recording session started",
		"iri", r.session,
		"ticks_per_second", r.clock.TicksPerSecond())
	return nil
}

// Collision creates a collision event on the session timeline.
func (r *Recorder) Collision(sender, receiver uuid.UUID) *event.CollisionEvent {
	return event.NewCollision(r.timeline, sender, receiver)
}

// Input creates an input event on the session timeline.
func (r *Recorder) Input(user *event.User, input string) *event.InputEvent {
	return event.NewInput(r.timeline, user, input)
}

// Begin starts an occurrence at the current instant.
func (r *Recorder) Begin(o event.Occurrence) error {
	if err := r.events.Begin(o, r.Now()); err != nil {
		r.metrics.Failures.WithLabelValues(StageEvent).Inc()
		return err
	}
	r.metrics.OpenEvents.Set(float64(len(r.events.Open())))
	return nil
}

// Complete ends an occurrence at the current instant and emits it.
func (r *Recorder) Complete(o event.Occurrence) error {
	if err := r.events.Complete(o, r.Now()); err != nil {
		r.metrics.Failures.WithLabelValues(StageEvent).Inc()
		return err
	}
	r.metrics.EventsEmitted.Inc()
	r.metrics.OpenEvents.Set(float64(len(r.events.Open())))
	return nil
}

// Record emits an occurrence that begins and ends at the current instant.
func (r *Recorder) Record(o event.Occurrence) error {
	now := r.Now()
	if err := r.events.Record(o, now, now); err != nil {
		r.metrics.Failures.WithLabelValues(StageEvent).Inc()
		return err
	}
	r.metrics.EventsEmitted.Inc()
	return nil
}

// Flush waits for every emitted group to reach the sink and returns the
// delivery failures since the previous flush.
func (r *Recorder) Flush(ctx context.Context) error {
	err := r.queue.Flush(ctx)
	if err != nil && !errors.Is(err, ctx.Err()) {
		r.metrics.Failures.WithLabelValues(StageSink).Add(float64(countErrors(err)))
	}
	return err
}

// Run ticks host at the configured rate until ctx is done. before, when set,
// runs ahead of every tick with the time since the previous one. Delivery
// failures are logged once per second of ticks.
func (r *Recorder) Run(ctx context.Context, host scene.Host, before func(dt time.Duration)) error {
	period := time.Second / time.Duration(r.clock.TicksPerSecond())
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	last := time.Now()
	ticks := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if before != nil {
				before(now.Sub(last))
			}
			last = now

			if _, err := r.Tick(ctx, host); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				if errors.Is(err, ErrClosed) {
					return err
				}
				r.logger.Warn("Partial snapshot", "error", err)
			}

			ticks++
			if ticks%r.clock.TicksPerSecond() == 0 {
				if err := r.Flush(ctx); err != nil && ctx.Err() == nil {
					r.logger.Warn("Fact delivery failed", "error", err)
				}
			}
		}
	}
}

// Close completes open events and the session interval at the current
// instant, then flushes and stops the queue. Close is idempotent.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true

	var errs []error
	if r.began {
		at := r.clock.CurrentInstant()
		open := len(r.events.Open())
		if err := r.events.CompleteAll(at); err != nil {
			errs = append(errs, err)
		}
		r.metrics.EventsEmitted.Add(float64(open - len(r.events.Open())))
		if err := r.timeline.End(r.sessionID, at, nil); err != nil {
			errs = append(errs, fmt.Errorf("end session: %w", err))
		}
		if e, ok := r.timeline.Get(r.sessionID); ok {
			g := fact.Group{Session: r.session, Instant: at.IRI(), At: at.Timestamp, Subject: r.session}
			g.Add(vocab.SessionInstants, fact.Int(len(e.Inside)))
			r.emitter.Emit(g)
		}
	}
	r.mu.Unlock()

	if err := r.Flush(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := r.queue.Close(); err != nil {
		r.metrics.Failures.WithLabelValues(StageSink).Add(float64(countErrors(err)))
		errs = append(errs, err)
	}
	r.metrics.OpenEvents.Set(0)

	r.logger.Info("Recording session closed", "iri", r.session)
	return errors.Join(errs...)
}

type countingEmitter struct {
	queue  *fact.Queue
	groups prometheus.Counter
}

func (c countingEmitter) Emit(g fact.Group) {
	c.groups.Inc()
	c.queue.Emit(g)
}

func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
