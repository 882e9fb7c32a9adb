package temporal

import (
	"testing"
	"time"

	"github.com/c360studio/semrec/fact"
	"github.com/c360studio/semrec/vocabulary/scene"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingEmitter struct {
	groups []fact.Group
}

func (r *recordingEmitter) Emit(g fact.Group) { r.groups = append(r.groups, g) }

func instantAt(offset time.Duration) Instant {
	return NewInstant(time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC).Add(offset))
}

func predicates(g fact.Group) map[string]any {
	out := make(map[string]any)
	for _, tr := range g.Triples {
		if tr.Subject == g.Subject {
			out[tr.Predicate] = tr.Object
		}
	}
	return out
}

func TestTimelineLifecycle(t *testing.T) {
	em := &recordingEmitter{}
	tl := NewTimeline(em, WithSession("urn:session"))

	prev := tl.NewEntity("temporal")
	id := tl.NewInterval("interval")
	next := tl.NewEntity("temporal")

	start, end := instantAt(0), instantAt(23*time.Hour)
	require.NoError(t, tl.Start(id, start, &prev))
	require.NoError(t, tl.AddInside(id, instantAt(time.Hour)))
	require.NoError(t, tl.AddInside(id, instantAt(time.Hour)))
	require.NoError(t, tl.End(id, end, &next))

	e, ok := tl.Get(id)
	require.True(t, ok)
	assert.Equal(t, start, *e.Beginning)
	assert.Equal(t, end, *e.End)
	assert.Equal(t, prev, *e.After)
	assert.Equal(t, next, *e.Before)
	assert.Len(t, e.Inside, 1, "repeated instant is not added twice")
	require.NotNil(t, e.Duration)
	assert.Equal(t, "PT23H", e.Duration.String())

	require.Len(t, em.groups, 3)
	for _, g := range em.groups {
		assert.Equal(t, "urn:session", g.Session)
		assert.Equal(t, e.IRI(), g.Subject)
	}

	started := predicates(em.groups[0])
	assert.Equal(t, scene.ClassInterval, started[scene.Type])
	assert.Equal(t, start.IRI(), started[scene.EntityBeginning])
	assert.Equal(t, fact.Ref("temporal", prev), started[scene.EntityAfter])

	ended := predicates(em.groups[2])
	assert.Equal(t, end.IRI(), ended[scene.EntityEnd])
	assert.Equal(t, fact.Literal{Lexical: "PT23H", Datatype: fact.Duration}, ended[scene.EntityDuration])
	assert.Equal(t, fact.Ref("temporal", next), ended[scene.EntityBefore])
}

func TestTimelineStateErrors(t *testing.T) {
	tl := NewTimeline(nil)
	id := tl.NewEntity("temporal")

	var stateErr *InvalidTemporalStateError
	err := tl.End(id, instantAt(0), nil)
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "end", stateErr.Op)
	assert.Equal(t, id, stateErr.Entity)

	require.NoError(t, tl.Start(id, instantAt(0), nil))
	require.NoError(t, tl.End(id, instantAt(time.Second), nil))

	require.ErrorAs(t, tl.End(id, instantAt(2*time.Second), nil), &stateErr)
	require.ErrorAs(t, tl.Start(id, instantAt(3*time.Second), nil), &stateErr)
	assert.Equal(t, "start", stateErr.Op)

	assert.ErrorIs(t, tl.Start(uuid.New(), instantAt(0), nil), ErrUnknownEntity)
	assert.ErrorIs(t, tl.AddInside(id, instantAt(0)), ErrNotInterval)
}

func TestTimelineRestartUsesLatestBeginning(t *testing.T) {
	tl := NewTimeline(nil)
	id := tl.NewEntity("temporal")

	require.NoError(t, tl.Start(id, instantAt(0), nil))
	require.NoError(t, tl.Start(id, instantAt(10*time.Second), nil))
	require.NoError(t, tl.End(id, instantAt(15*time.Second), nil))

	e, _ := tl.Get(id)
	assert.Equal(t, "PT5S", e.Duration.String())
}

func TestTimelineGetReturnsCopy(t *testing.T) {
	tl := NewTimeline(nil)
	id := tl.NewInterval("interval")
	require.NoError(t, tl.AddInside(id, instantAt(0)))

	e, _ := tl.Get(id)
	e.Inside[0] = instantAt(time.Hour)

	again, _ := tl.Get(id)
	assert.Equal(t, instantAt(0), again.Inside[0])

	tl.Forget(id)
	_, ok := tl.Get(id)
	assert.False(t, ok)
	assert.Zero(t, tl.Len())
}

func TestTimelineAdoptInterval(t *testing.T) {
	em := &recordingEmitter{}
	tl := NewTimeline(em)
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte("session"))

	require.NoError(t, tl.AdoptInterval("session", id))
	require.ErrorIs(t, tl.AdoptInterval("session", id), ErrDuplicateEntity)

	e, ok := tl.Get(id)
	require.True(t, ok)
	assert.True(t, e.Interval)
	assert.Equal(t, fact.Ref("session", id), e.IRI())
	require.NoError(t, tl.AddInside(id, instantAt(0)))
}
