package temporal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBetween(t *testing.T) {
	at := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339Nano, s)
		require.NoError(t, err)
		return ts
	}

	tests := []struct {
		name       string
		start, end string
		want       CalendarDuration
		text       string
	}{
		{
			name:  "borrows with the start month day count",
			start: "2024-01-31T10:00:00Z",
			end:   "2024-03-01T09:00:00Z",
			want:  CalendarDuration{Months: 1, Hours: 23},
			text:  "P1MT23H",
		},
		{
			name:  "zero span",
			start: "2024-01-31T10:00:00Z",
			end:   "2024-01-31T10:00:00Z",
			want:  CalendarDuration{},
			text:  "PT0S",
		},
		{
			name:  "every component",
			start: "2023-02-10T01:02:03.5Z",
			end:   "2024-04-13T05:07:10Z",
			want:  CalendarDuration{Years: 1, Months: 2, Days: 3, Hours: 4, Minutes: 5, Seconds: 6.5},
			text:  "P1Y2M3DT4H5M6.5S",
		},
		{
			name:  "year borrow",
			start: "2023-11-15T00:00:00Z",
			end:   "2024-02-14T00:00:00Z",
			want:  CalendarDuration{Months: 2, Days: 29},
			text:  "P2M29D",
		},
		{
			name:  "fractional seconds truncate to milliseconds",
			start: "2024-01-01T00:00:00Z",
			end:   "2024-01-01T00:00:01.2349Z",
			want:  CalendarDuration{Seconds: 1.234},
			text:  "PT1.234S",
		},
		{
			name:  "sub-millisecond span is zero",
			start: "2024-01-01T00:00:00Z",
			end:   "2024-01-01T00:00:00.0004Z",
			want:  CalendarDuration{},
			text:  "PT0S",
		},
		{
			name:  "seconds borrow from minutes",
			start: "2024-01-01T00:00:59.75Z",
			end:   "2024-01-01T00:01:00.25Z",
			want:  CalendarDuration{Seconds: 0.5},
			text:  "PT0.5S",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Between(at(tt.start), at(tt.end))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.text, got.String())
		})
	}
}

func TestBetweenNeverNegativeComponents(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 800; i++ {
		s := start.Add(time.Duration(i) * 37 * time.Hour)
		e := s.Add(time.Duration(i%90)*24*time.Hour + time.Duration(i%23)*time.Hour + 13*time.Minute)
		d := Between(s, e)
		require.False(t, d.Negative)
		require.GreaterOrEqual(t, d.Days, 0, "%s -> %s", s, e)
		require.GreaterOrEqual(t, d.Months, 0)
		require.GreaterOrEqual(t, d.Hours, 0)
		require.GreaterOrEqual(t, d.Minutes, 0)
	}
}

func TestBetweenReversed(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	d := Between(a.Add(90*time.Minute), a)
	assert.Equal(t, "-PT1H30M", d.String())
}

func TestParseDuration(t *testing.T) {
	for _, text := range []string{"PT0S", "P1MT23H", "P1Y2M3DT4H5M6.5S", "P3D", "PT0.125S", "-PT1H30M"} {
		t.Run(text, func(t *testing.T) {
			d, err := ParseDuration(text)
			require.NoError(t, err)
			assert.Equal(t, text, d.String())
		})
	}

	for _, bad := range []string{"", "P", "PT", "1D", "P1H", "PT1D", "PxD", "P1DT2HT"} {
		t.Run("invalid "+bad, func(t *testing.T) {
			_, err := ParseDuration(bad)
			assert.ErrorIs(t, err, ErrInvalidDuration)
		})
	}
}
