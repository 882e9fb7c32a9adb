package event

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/temporal"
	"github.com/google/uuid"
)

// Log records occurrences against a timeline and emits each one as a single
// fact group once it completes.
type Log struct {
	timeline *temporal.Timeline
	emitter  fact.Emitter
	session  string
	logger   *slog.Logger

	mu   sync.Mutex
	open map[uuid.UUID]Occurrence
}

// LogOption configures a Log.
type LogOption func(*Log)

// WithSession tags emitted groups with the session IRI.
func WithSession(iri string) LogOption {
	return func(l *Log) {
		l.session = iri
	}
}

// WithLogger sets the log's logger.
func WithLogger(logger *slog.Logger) LogOption {
	return func(l *Log) {
		l.logger = logger
	}
}

// NewLog creates an event log.
func NewLog(tl *temporal.Timeline, emitter fact.Emitter, opts ...LogOption) *Log {
	l := &Log{
		timeline: tl,
		emitter:  emitter,
		logger:   slog.Default(),
		open:     make(map[uuid.UUID]Occurrence),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Timeline returns the timeline events are bounded on.
func (l *Log) Timeline() *temporal.Timeline { return l.timeline }

// Begin starts an occurrence and tracks it until Complete.
func (l *Log) Begin(o Occurrence, at temporal.Instant) error {
	if err := o.Base().Start(at); err != nil {
		return err
	}
	l.mu.Lock()
	l.open[o.Base().ID] = o
	l.mu.Unlock()
	return nil
}

// Complete ends an occurrence and emits its facts.
func (l *Log) Complete(o Occurrence, at temporal.Instant) error {
	e := o.Base()
	if err := e.End(at); err != nil {
		return err
	}
	l.mu.Lock()
	delete(l.open, e.ID)
	l.mu.Unlock()

	g := fact.Group{
		Session: l.session,
		Instant: at.IRI(),
		At:      at.Timestamp,
		Subject: e.IRI(),
		Triples: o.Semantize(),
	}
	if l.emitter != nil {
		l.emitter.Emit(g)
	}
	l.timeline.Forget(e.Interval)

	l.logger.Debug("Recorded event", "event", g.Subject, "triples", len(g.Triples))
	return nil
}

// Record starts and completes an occurrence.
func (l *Log) Record(o Occurrence, start, end temporal.Instant) error {
	if err := l.Begin(o, start); err != nil {
		return fmt.Errorf("record %s: %w", o.Base().IRI(), err)
	}
	if err := l.Complete(o, end); err != nil {
		return fmt.Errorf("record %s: %w", o.Base().IRI(), err)
	}
	return nil
}

// Open returns the occurrences begun but not completed.
func (l *Log) Open() []Occurrence {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Occurrence, 0, len(l.open))
	for _, o := range l.open {
		out = append(out, o)
	}
	return out
}

// CompleteAll ends every open occurrence at the given instant, typically when
// the session closes. Failures are joined.
func (l *Log) CompleteAll(at temporal.Instant) error {
	var errs []error
	for _, o := range l.Open() {
		if err := l.Complete(o, at); err != nil {
			errs = append(errs, err)
		}
	}
	return joinErrors(errs)
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("complete open events: %w", errors.Join(errs...))
}
