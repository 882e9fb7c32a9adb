package event

import (
	"testing"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/temporal"
	"github.com/c360studio/semrec/vocabulary/scene"
	"github.com/c360studio/semstreams/message"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

func at(offset time.Duration) temporal.Instant {
	return temporal.NewInstant(epoch.Add(offset))
}

func find(triples []message.Triple, subject, predicate string) []any {
	var out []any
	for _, t := range triples {
		if t.Subject == subject && t.Predicate == predicate {
			out = append(out, t.Object)
		}
	}
	return out
}

func TestEndWithoutStartFails(t *testing.T) {
	tl := temporal.NewTimeline(nil)
	e := New(tl, nil)

	var stateErr *temporal.InvalidTemporalStateError
	require.ErrorAs(t, e.End(at(0)), &stateErr)
	assert.Equal(t, e.Interval, stateErr.Entity)
}

func TestRestartUsesMostRecentStart(t *testing.T) {
	tl := temporal.NewTimeline(nil)
	e := New(tl, nil)

	require.NoError(t, e.Start(at(0)))
	require.NoError(t, e.Start(at(4*time.Second)))
	require.NoError(t, e.End(at(5*time.Second)))

	ext, ok := e.Extent()
	require.True(t, ok)
	assert.Equal(t, at(4*time.Second), *ext.Beginning)
	assert.Equal(t, "PT1S", ext.Duration.String())
}

func TestSemantize(t *testing.T) {
	tl := temporal.NewTimeline(nil)
	user := &User{ID: uuid.New(), Name: "ada"}
	e := New(tl, user)
	require.NoError(t, e.Start(at(0)))

	triples := e.Semantize()
	assert.Equal(t, []any{scene.ClassEvent}, find(triples, e.IRI(), scene.Type))
	assert.Equal(t, []any{e.IntervalIRI()}, find(triples, e.IRI(), scene.EventExtent))
	assert.Equal(t, []any{e.IRI()}, find(triples, user.IRI(), scene.UserPerforms))
	for _, tr := range triples {
		assert.Equal(t, epoch, tr.Timestamp)
	}

	anonymous := New(tl, nil).Semantize()
	assert.Len(t, anonymous, 2)
}

func TestVariantsExtendBaseFacts(t *testing.T) {
	tl := temporal.NewTimeline(nil)
	sender, receiver := uuid.New(), uuid.New()

	c := NewCollision(tl, sender, receiver)
	triples := c.Semantize()
	base := c.Event.Semantize()
	require.Greater(t, len(triples), len(base))
	assert.Equal(t, base, triples[:len(base)], "base facts come first")
	assert.Equal(t, []any{scene.ClassEvent, scene.ClassCollisionEvent}, find(triples, c.IRI(), scene.Type))
	assert.Equal(t, []any{fact.Ref(EntityPrefix, sender)}, find(triples, c.IRI(), scene.CollisionSender))
	assert.Equal(t, []any{fact.Ref(EntityPrefix, receiver)}, find(triples, c.IRI(), scene.CollisionReceiver))

	in := NewInput(tl, &User{ID: uuid.New()}, "jump")
	assert.Equal(t, []any{fact.String("jump")}, find(in.Semantize(), in.IRI(), scene.InputPayload))
}

func TestLogEmitsCompletedEvents(t *testing.T) {
	sink := fact.NewMemorySink()
	q := fact.NewQueue(sink, 8, nil)
	q.Start(t.Context())
	defer q.Close()

	tl := temporal.NewTimeline(q, temporal.WithSession("urn:s"))
	log := NewLog(tl, q, WithSession("urn:s"))

	c := NewCollision(tl, uuid.New(), uuid.New())
	require.NoError(t, log.Begin(c, at(0)))
	assert.Len(t, log.Open(), 1)

	in := NewInput(tl, nil, "fire")
	require.NoError(t, log.Record(in, at(time.Second), at(2*time.Second)))

	require.NoError(t, log.CompleteAll(at(3*time.Second)))
	assert.Empty(t, log.Open())
	require.NoError(t, q.Flush(t.Context()))

	var subjects []string
	for _, g := range sink.Groups() {
		if g.Subject == c.IRI() || g.Subject == in.IRI() {
			subjects = append(subjects, g.Subject)
			assert.Equal(t, "urn:s", g.Session)
		}
	}
	assert.Equal(t, []string{in.IRI(), c.IRI()}, subjects)
	assert.Zero(t, tl.Len(), "completed intervals leave the arena")

	never := New(tl, nil)
	var stateErr *temporal.InvalidTemporalStateError
	assert.ErrorAs(t, log.Complete(never, at(time.Second)), &stateErr)
}
