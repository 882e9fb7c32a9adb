package temporal

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantize(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 30, 15, 0, time.UTC)

	tests := []struct {
		name string
		in   time.Time
		tps  int
		want time.Time
	}{
		{"one tick truncates to the second", base.Add(999 * time.Millisecond), 1, base},
		{"ten ticks", base.Add(257 * time.Millisecond), 10, base.Add(200 * time.Millisecond)},
		{"exact boundary stays", base.Add(500 * time.Millisecond), 2, base.Add(500 * time.Millisecond)},
		{"sixty ticks", base.Add(20 * time.Millisecond), 60, base.Add(time.Second / 60)},
		{"seven ticks", base.Add(290 * time.Millisecond), 7, base.Add(2 * (time.Second / 7))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Quantize(tt.in, tt.tps)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestQuantizeRejectsTickRate(t *testing.T) {
	for _, tps := range []int{0, -1, 61} {
		_, err := Quantize(time.Now(), tps)
		assert.ErrorIs(t, err, ErrTicksOutOfRange)
	}
	_, err := NewClock(100)
	assert.ErrorIs(t, err, ErrTicksOutOfRange)
}

func TestQuantizeIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		ts := time.Unix(0, rng.Int63n(4_000_000_000)*1_000_000_000+rng.Int63n(1_000_000_000))
		tps := 1 + rng.Intn(60)

		once, err := Quantize(ts, tps)
		require.NoError(t, err)
		twice, err := Quantize(once, tps)
		require.NoError(t, err)

		require.True(t, once.Equal(twice), "tps=%d ts=%s", tps, ts)
		require.False(t, once.After(ts))
	}
}

func TestClockDeduplicatesInstants(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := base.Add(10 * time.Millisecond)
	clock, err := NewClock(10, WithNow(func() time.Time { return now }))
	require.NoError(t, err)

	_, ok := clock.Current()
	assert.False(t, ok)

	first := clock.CurrentInstant()
	now = base.Add(90 * time.Millisecond)
	second := clock.CurrentInstant()
	assert.Equal(t, first, second, "same bucket yields the same instant")

	now = base.Add(110 * time.Millisecond)
	third := clock.CurrentInstant()
	assert.NotEqual(t, first.ID, third.ID)
	assert.True(t, third.Timestamp.Equal(base.Add(100*time.Millisecond)))

	current, ok := clock.Current()
	assert.True(t, ok)
	assert.Equal(t, third, current)
}

func TestInstantIDIsDeterministic(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 500_000_000, time.FixedZone("X", 7200))
	a := NewInstant(ts)
	b := NewInstant(ts.UTC())
	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, NewInstant(ts.Add(time.Millisecond)).ID)
	assert.Contains(t, a.IRI(), "/instant/"+a.ID.String())
}
