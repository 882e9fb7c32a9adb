// Package temporal quantizes wall-clock time into instants and tracks the
// lifecycle of temporal entities and intervals.
package temporal

import (
	"fmt"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/vocabulary/scene"
	"github.com/google/uuid"
)

// Tick rate bounds.
const (
	MinTicksPerSecond = 1
	MaxTicksPerSecond = 60
)

// instantNamespace seeds the name-based UUIDs of instants.
var instantNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(scene.Namespace+"Instant"))

// Instant is a quantized point in time. Its ID is derived from the timestamp,
// so equal timestamps always name the same instant.
type Instant struct {
	ID        uuid.UUID `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInstant returns the instant for an already quantized timestamp.
func NewInstant(ts time.Time) Instant {
	ts = ts.UTC()
	return Instant{
		ID:        uuid.NewSHA1(instantNamespace, []byte(ts.Format(time.RFC3339Nano))),
		Timestamp: ts,
	}
}

// IRI returns the subject IRI of the instant.
func (i Instant) IRI() string {
	return fact.Ref(string(scene.EntityTypeInstant), i.ID)
}

// IsZero reports whether the instant is unset.
func (i Instant) IsZero() bool {
	return i.ID == uuid.Nil
}

// Describe adds the instant's own facts to g.
func (i Instant) Describe(g *fact.Group) {
	g.AddFor(i.IRI(), scene.Type, scene.ClassInstant)
	g.AddFor(i.IRI(), scene.InstantTimestamp, fact.Time(i.Timestamp))
}

// Quantize truncates the sub-second part of t down to the nearest lower
// multiple of one tick.
func Quantize(t time.Time, ticksPerSecond int) (time.Time, error) {
	if ticksPerSecond < MinTicksPerSecond || ticksPerSecond > MaxTicksPerSecond {
		return time.Time{}, fmt.Errorf("%w: %d", ErrTicksOutOfRange, ticksPerSecond)
	}
	step := time.Second / time.Duration(ticksPerSecond)
	whole := t.Truncate(time.Second)
	sub := t.Sub(whole)
	return whole.Add(sub - sub%step), nil
}

// Clock hands out the current quantized instant. It is not safe for
// concurrent use: callers serialize tick-time calls.
type Clock struct {
	ticksPerSecond int
	now            func() time.Time
	current        Instant
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) ClockOption {
	return func(c *Clock) {
		c.now = now
	}
}

// NewClock creates a clock quantizing at the given tick rate.
func NewClock(ticksPerSecond int, opts ...ClockOption) (*Clock, error) {
	if ticksPerSecond < MinTicksPerSecond || ticksPerSecond > MaxTicksPerSecond {
		return nil, fmt.Errorf("%w: %d", ErrTicksOutOfRange, ticksPerSecond)
	}
	c := &Clock{ticksPerSecond: ticksPerSecond, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TicksPerSecond returns the configured tick rate.
func (c *Clock) TicksPerSecond() int {
	return c.ticksPerSecond
}

// CurrentInstant quantizes now. While the quantized value is unchanged the
// previously returned instant is returned again.
func (c *Clock) CurrentInstant() Instant {
	q, _ := Quantize(c.now(), c.ticksPerSecond)
	if !c.current.IsZero() && c.current.Timestamp.Equal(q) {
		return c.current
	}
	c.current = NewInstant(q)
	return c.current
}

// Current returns the last instant handed out, if any.
func (c *Clock) Current() (Instant, bool) {
	return c.current, !c.current.IsZero()
}
