// Package event models bounded occurrences, such as two entities touching or
// a user input, on top of the session timeline.
package event

import (
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/temporal"
	"github.com/c360studio/semrec/vocabulary/scene"
	"github.com/c360studio/semstreams/message"
	"github.com/google/uuid"
)

// IRI prefixes.
const (
	Prefix         = string(scene.EntityTypeEvent)
	IntervalPrefix = string(scene.EntityTypeInterval)
	UserPrefix     = string(scene.EntityTypeUser)
	EntityPrefix   = string(scene.EntityTypeEntity)
)

// Occurrence is anything the event log can record.
type Occurrence interface {
	Base() *Event
	Semantize() []message.Triple
}

// User is the human participant who triggered an event.
type User struct {
	ID   uuid.UUID
	Name string
}

// IRI returns the user subject.
func (u *User) IRI() string { return fact.Ref(UserPrefix, u.ID) }

// Event is a bounded occurrence. Its extent is an interval owned by the
// timeline it was created on.
type Event struct {
	ID       uuid.UUID
	Interval uuid.UUID
	User     *User

	timeline *temporal.Timeline
}

// New creates an unstarted event on tl.
func New(tl *temporal.Timeline, user *User) *Event {
	return &Event{
		ID:       uuid.New(),
		Interval: tl.NewInterval(IntervalPrefix),
		User:     user,
		timeline: tl,
	}
}

// Base returns e.
func (e *Event) Base() *Event { return e }

// IRI returns the event subject.
func (e *Event) IRI() string { return fact.Ref(Prefix, e.ID) }

// IntervalIRI returns the subject of the bounding interval.
func (e *Event) IntervalIRI() string { return fact.Ref(IntervalPrefix, e.Interval) }

// Start begins the event. Starting again before End moves the beginning.
func (e *Event) Start(at temporal.Instant) error {
	return e.timeline.Start(e.Interval, at, nil)
}

// End closes the event. It fails with InvalidTemporalStateError when the
// event was never started.
func (e *Event) End(at temporal.Instant) error {
	return e.timeline.End(e.Interval, at, nil)
}

// Extent returns the bounding interval.
func (e *Event) Extent() (temporal.TemporalEntity, bool) {
	return e.timeline.Get(e.Interval)
}

// at is the time stamped on the event's facts: its end, else its beginning.
func (e *Event) at() time.Time {
	ext, ok := e.Extent()
	switch {
	case !ok:
		return time.Time{}
	case ext.End != nil:
		return ext.End.Timestamp
	case ext.Beginning != nil:
		return ext.Beginning.Timestamp
	}
	return time.Time{}
}

// Semantize returns the base event facts.
func (e *Event) Semantize() []message.Triple {
	at := e.at()
	triples := []message.Triple{
		fact.Triple(e.IRI(), scene.Type, scene.ClassEvent, at),
		fact.Triple(e.IRI(), scene.EventExtent, e.IntervalIRI(), at),
	}
	if e.User != nil {
		triples = append(triples,
			fact.Triple(e.User.IRI(), scene.Type, scene.ClassUser, at),
			fact.Triple(e.User.IRI(), scene.UserPerforms, e.IRI(), at))
		if e.User.Name != "" {
			triples = append(triples, fact.Triple(e.User.IRI(), scene.UserName, fact.String(e.User.Name), at))
		}
	}
	return triples
}

// CollisionEvent records two entities being co-located.
type CollisionEvent struct {
	*Event
	Sender   uuid.UUID
	Receiver uuid.UUID
}

// NewCollision creates an unstarted collision between sender and receiver.
func NewCollision(tl *temporal.Timeline, sender, receiver uuid.UUID) *CollisionEvent {
	return &CollisionEvent{Event: New(tl, nil), Sender: sender, Receiver: receiver}
}

// Semantize returns the base facts followed by the collision parties.
func (c *CollisionEvent) Semantize() []message.Triple {
	at := c.at()
	return append(c.Event.Semantize(),
		fact.Triple(c.IRI(), scene.Type, scene.ClassCollisionEvent, at),
		fact.Triple(c.IRI(), scene.CollisionSender, fact.Ref(EntityPrefix, c.Sender), at),
		fact.Triple(c.IRI(), scene.CollisionReceiver, fact.Ref(EntityPrefix, c.Receiver), at))
}

// InputEvent records a user input.
type InputEvent struct {
	*Event
	Input string
}

// NewInput creates an unstarted input event.
func NewInput(tl *temporal.Timeline, user *User, input string) *InputEvent {
	return &InputEvent{Event: New(tl, user), Input: input}
}

// Semantize returns the base facts followed by the input payload.
func (i *InputEvent) Semantize() []message.Triple {
	at := i.at()
	return append(i.Event.Semantize(),
		fact.Triple(i.IRI(), scene.Type, scene.ClassInputEvent, at),
		fact.Triple(i.IRI(), scene.InputPayload, fact.String(i.Input), at))
}
