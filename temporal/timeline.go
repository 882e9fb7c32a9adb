package temporal

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/vocabulary/scene"
	"github.com/google/uuid"
)

// TemporalEntity is a span with optional bounds. Before and After are lookup
// keys into the owning Timeline, never pointers to other entities.
type TemporalEntity struct {
	Prefix    string            `json:"prefix"`
	ID        uuid.UUID         `json:"id"`
	Beginning *Instant          `json:"beginning,omitempty"`
	End       *Instant          `json:"end,omitempty"`
	Before    *uuid.UUID        `json:"before,omitempty"`
	After     *uuid.UUID        `json:"after,omitempty"`
	Duration  *CalendarDuration `json:"duration,omitempty"`

	// Inside holds the interior instants of an interval.
	Inside   []Instant `json:"inside,omitempty"`
	Interval bool      `json:"interval"`
}

// IRI returns the subject IRI of the entity.
func (e *TemporalEntity) IRI() string {
	return fact.Ref(e.Prefix, e.ID)
}

// Started reports whether a beginning is set.
func (e *TemporalEntity) Started() bool { return e.Beginning != nil }

// Ended reports whether an end is set.
func (e *TemporalEntity) Ended() bool { return e.End != nil }

func (e *TemporalEntity) class() string {
	if e.Interval {
		return scene.ClassInterval
	}
	return scene.ClassTemporalEntity
}

func (e *TemporalEntity) clone() TemporalEntity {
	out := *e
	out.Inside = append([]Instant(nil), e.Inside...)
	return out
}

// Timeline owns every temporal entity of a session, keyed by ID.
type Timeline struct {
	mu       sync.Mutex
	entities map[uuid.UUID]*TemporalEntity
	emitter  fact.Emitter
	session  string
	logger   *slog.Logger
}

// TimelineOption configures a Timeline.
type TimelineOption func(*Timeline)

// WithSession tags emitted groups with the session IRI.
func WithSession(iri string) TimelineOption {
	return func(t *Timeline) {
		t.session = iri
	}
}

// WithLogger sets the timeline logger.
func WithLogger(logger *slog.Logger) TimelineOption {
	return func(t *Timeline) {
		t.logger = logger
	}
}

// NewTimeline creates an empty timeline. Start and End describe entities
// through emitter; a nil emitter disables emission.
func NewTimeline(emitter fact.Emitter, opts ...TimelineOption) *Timeline {
	t := &Timeline{
		entities: make(map[uuid.UUID]*TemporalEntity),
		emitter:  emitter,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewEntity adds an unbounded temporal entity.
func (t *Timeline) NewEntity(prefix string) uuid.UUID {
	return t.add(prefix, false)
}

// NewInterval adds an unbounded interval.
func (t *Timeline) NewInterval(prefix string) uuid.UUID {
	return t.add(prefix, true)
}

// AdoptInterval adds an unbounded interval under a caller-chosen ID, so that
// a well-known IRI such as a session's can also be an interval.
func (t *Timeline) AdoptInterval(prefix string, id uuid.UUID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.entities[id]; ok {
		return fmt.Errorf("adopt %s: %w", id, ErrDuplicateEntity)
	}
	t.entities[id] = &TemporalEntity{Prefix: prefix, ID: id, Interval: true}
	return nil
}

func (t *Timeline) add(prefix string, interval bool) uuid.UUID {
	id := uuid.New()
	t.mu.Lock()
	t.entities[id] = &TemporalEntity{Prefix: prefix, ID: id, Interval: interval}
	t.mu.Unlock()
	return id
}

// Get returns a copy of the entity.
func (t *Timeline) Get(id uuid.UUID) (TemporalEntity, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entities[id]
	if !ok {
		return TemporalEntity{}, false
	}
	return e.clone(), true
}

// Len returns the number of entities held.
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entities)
}

// Forget drops an entity from the arena. Links to it from other entities
// stay valid as keys but no longer resolve.
func (t *Timeline) Forget(id uuid.UUID) {
	t.mu.Lock()
	delete(t.entities, id)
	t.mu.Unlock()
}

// Start sets the beginning of an entity. Starting an open entity again
// rebinds the beginning; starting an ended entity fails. previous names the
// entity this one follows.
func (t *Timeline) Start(id uuid.UUID, at Instant, previous *uuid.UUID) error {
	t.mu.Lock()
	e, ok := t.entities[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("start %s: %w", id, ErrUnknownEntity)
	}
	if e.Ended() {
		t.mu.Unlock()
		return &InvalidTemporalStateError{Entity: id, Op: "start", Reason: "entity already ended"}
	}
	if e.Started() {
		t.logger.Debug("Rebinding temporal entity beginning",
			"entity", e.IRI(),
			"previous", e.Beginning.Timestamp,
			"beginning", at.Timestamp)
	}
	begin := at
	e.Beginning = &begin
	if previous != nil {
		p := *previous
		e.After = &p
	}

	g := t.group(e, at)
	g.Add(scene.Type, e.class())
	g.Add(scene.EntityBeginning, at.IRI())
	at.Describe(&g)
	if e.After != nil {
		g.Add(scene.EntityAfter, t.refLocked(*e.After))
	}
	t.mu.Unlock()

	t.emit(g)
	return nil
}

// End sets the end of a started entity and computes its duration. next names
// the entity that follows this one.
func (t *Timeline) End(id uuid.UUID, at Instant, next *uuid.UUID) error {
	t.mu.Lock()
	e, ok := t.entities[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("end %s: %w", id, ErrUnknownEntity)
	}
	if !e.Started() {
		t.mu.Unlock()
		return &InvalidTemporalStateError{Entity: id, Op: "end", Reason: "entity was never started"}
	}
	if e.Ended() {
		t.mu.Unlock()
		return &InvalidTemporalStateError{Entity: id, Op: "end", Reason: "entity already ended"}
	}
	end := at
	e.End = &end
	d := Between(e.Beginning.Timestamp, at.Timestamp)
	e.Duration = &d
	if next != nil {
		n := *next
		e.Before = &n
	}

	g := t.group(e, at)
	g.Add(scene.EntityEnd, at.IRI())
	at.Describe(&g)
	g.Add(scene.EntityDuration, fact.Literal{Lexical: d.String(), Datatype: fact.Duration})
	if e.Before != nil {
		g.Add(scene.EntityBefore, t.refLocked(*e.Before))
	}
	t.mu.Unlock()

	t.emit(g)
	return nil
}

// AddInside records an interior instant of an interval. Adding the most
// recent instant again is a no-op.
func (t *Timeline) AddInside(id uuid.UUID, at Instant) error {
	t.mu.Lock()
	e, ok := t.entities[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("add inside %s: %w", id, ErrUnknownEntity)
	}
	if !e.Interval {
		t.mu.Unlock()
		return fmt.Errorf("add inside %s: %w", id, ErrNotInterval)
	}
	if n := len(e.Inside); n > 0 && e.Inside[n-1].ID == at.ID {
		t.mu.Unlock()
		return nil
	}
	e.Inside = append(e.Inside, at)

	g := t.group(e, at)
	g.Add(scene.IntervalInside, at.IRI())
	t.mu.Unlock()

	t.emit(g)
	return nil
}

func (t *Timeline) group(e *TemporalEntity, at Instant) fact.Group {
	return fact.Group{
		Session: t.session,
		Instant: at.IRI(),
		At:      at.Timestamp,
		Subject: e.IRI(),
	}
}

// refLocked resolves a linked entity to its IRI. Unknown keys fall back to
// the generic temporal prefix.
func (t *Timeline) refLocked(id uuid.UUID) string {
	if other, ok := t.entities[id]; ok {
		return other.IRI()
	}
	return fact.Ref(string(scene.EntityTypeTemporalEntity), id)
}

func (t *Timeline) emit(g fact.Group) {
	if t.emitter != nil {
		t.emitter.Emit(g)
	}
}
