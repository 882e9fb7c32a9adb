package sim

import (
	"testing"
	"time"

	"github.com/c360studio/semrec/codec"
	"github.com/c360studio/semrec/scene"
	"github.com/c360studio/semrec/temporal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnIsDeterministic(t *testing.T) {
	a := NewWorld(10, 10).Spawn("Player", Vector2{}, Vector2{}, 1)
	b := NewWorld(10, 10).Spawn("Player", Vector2{}, Vector2{}, 1)
	assert.Equal(t, a.ID(), b.ID())
	assert.Equal(t, a.Body.ID(), b.Body.ID())

	w := NewWorld(10, 10)
	first := w.Spawn("Player", Vector2{X: 1}, Vector2{}, 1)
	again := w.Spawn("Player", Vector2{X: 9}, Vector2{}, 1)
	assert.Same(t, first, again)
	assert.Len(t, w.Entities(), 1)
}

func TestStepMovesAndBounces(t *testing.T) {
	w := NewWorld(10, 10)
	o := w.Spawn("Ball", Vector2{X: 8, Y: 5}, Vector2{X: 4, Y: 0}, 1)

	w.Step(250 * time.Millisecond)
	assert.InDelta(t, 9, o.Body.Position.X, 1e-9)
	assert.Equal(t, 4.0, o.Body.Velocity.X)

	w.Step(250 * time.Millisecond)
	assert.InDelta(t, 9, o.Body.Position.X, 1e-9, "clamped to the wall")
	assert.Equal(t, -4.0, o.Body.Velocity.X, "velocity reversed")
}

func TestContactsBeginAndEnd(t *testing.T) {
	w := NewWorld(100, 10)
	a := w.Spawn("A", Vector2{X: 10, Y: 5}, Vector2{X: 10, Y: 0}, 1).WithHealth(3)
	b := w.Spawn("B", Vector2{X: 14, Y: 5}, Vector2{}, 1)

	assert.Empty(t, w.Step(100*time.Millisecond), "distance 3 is no contact")

	contacts := w.Step(100 * time.Millisecond)
	require.Len(t, contacts, 1)
	assert.True(t, contacts[0].Began)
	assert.ElementsMatch(t, []any{a.ID(), b.ID()}, []any{contacts[0].Sender, contacts[0].Receiver})
	assert.Equal(t, 2, a.Health.Current)

	assert.Empty(t, w.Step(100*time.Millisecond), "still touching")

	var ended []Contact
	for i := 0; i < 5 && len(ended) == 0; i++ {
		ended = w.Step(100 * time.Millisecond)
	}
	require.Len(t, ended, 1)
	assert.False(t, ended[0].Began)
}

func TestOverlaps(t *testing.T) {
	a := &Body{Position: Vector2{X: 0, Y: 0}, Radius: 1}
	tests := []struct {
		name string
		at   Vector2
		want bool
	}{
		{"apart", Vector2{X: 2.5}, false},
		{"touching", Vector2{X: 2}, true},
		{"overlapping", Vector2{X: 1, Y: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Body{Position: tt.at, Radius: 1}
			assert.Equal(t, tt.want, overlaps(a, b))
			assert.Equal(t, tt.want, overlaps(b, a))
		})
	}
}

func TestHiddenObjectsDoNotTouch(t *testing.T) {
	w := NewWorld(10, 10)
	w.Spawn("A", Vector2{X: 5, Y: 5}, Vector2{}, 1)
	b := w.Spawn("B", Vector2{X: 5, Y: 5}, Vector2{}, 1)
	b.Hidden = true
	assert.Empty(t, w.Step(time.Millisecond))
	assert.False(t, b.Active())
}

func TestScript(t *testing.T) {
	s := NewScript(
		Input{At: 2 * time.Second, Action: "b"},
		Input{At: time.Second, Action: "a"},
		Input{At: 3 * time.Second, Action: "c"},
	)
	assert.Empty(t, s.Due(500*time.Millisecond))

	due := s.Due(2 * time.Second)
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].Action)
	assert.Equal(t, "b", due[1].Action)
	assert.Empty(t, s.Due(2*time.Second), "inputs are returned once")
	assert.False(t, s.Done())

	assert.Len(t, s.Due(time.Hour), 1)
	assert.True(t, s.Done())
}

func TestWorldIsAScanHost(t *testing.T) {
	reg := codec.NewRegistryWithBuiltins()
	require.NoError(t, Register(reg))

	w, _ := Demo()
	scanner, err := scene.NewScanner(reg, scene.WithExclude("Camera"))
	require.NoError(t, err)

	content, err := scanner.Scan(w, temporal.NewInstant(time.Unix(0, 0)))
	require.NoError(t, err)
	require.Len(t, content.GameObjects, 3)

	player, ok := content.FindByName("Player")
	require.True(t, ok)
	body, ok := player.ComponentOfType("Body")
	require.True(t, ok)
	pos, ok := body.Property("position")
	require.True(t, ok)
	assert.Equal(t, "vector2", pos.Type)

	v, err := pos.Value(reg)
	require.NoError(t, err)
	assert.Equal(t, Vector2{X: 2, Y: 5}, v)
}
