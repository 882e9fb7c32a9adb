package temporal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDuration is returned when a duration string cannot be parsed.
var ErrInvalidDuration = errors.New("invalid calendar duration")

// ZeroDuration is the canonical form of an empty span.
const ZeroDuration = "PT0S"

// CalendarDuration is a normalized span in calendar units. Seconds carry
// millisecond precision.
type CalendarDuration struct {
	Negative bool    `json:"negative,omitempty"`
	Years    int     `json:"years"`
	Months   int     `json:"months"`
	Days     int     `json:"days"`
	Hours    int     `json:"hours"`
	Minutes  int     `json:"minutes"`
	Seconds  float64 `json:"seconds"`
}

// Between returns the calendar-aware span from start to end. Day borrows use
// the day count of start's month. Fractional seconds are truncated to
// milliseconds.
func Between(start, end time.Time) CalendarDuration {
	if end.Before(start) {
		d := Between(end, start)
		d.Negative = !d.IsZero()
		return d
	}
	end = end.In(start.Location())

	years := end.Year() - start.Year()
	months := int(end.Month()) - int(start.Month())
	days := end.Day() - start.Day()
	hours := end.Hour() - start.Hour()
	minutes := end.Minute() - start.Minute()
	nanos := int64(end.Second()-start.Second())*int64(time.Second) +
		int64(end.Nanosecond()-start.Nanosecond())

	if nanos < 0 {
		nanos += int64(time.Minute)
		minutes--
	}
	if minutes < 0 {
		minutes += 60
		hours--
	}
	if hours < 0 {
		hours += 24
		days--
	}
	if days < 0 {
		days += daysIn(start.Year(), start.Month())
		months--
	}
	if months < 0 {
		months += 12
		years--
	}

	millis := nanos / int64(time.Millisecond)
	return CalendarDuration{
		Years:   years,
		Months:  months,
		Days:    days,
		Hours:   hours,
		Minutes: minutes,
		Seconds: float64(millis) / 1000,
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsZero reports whether every component is zero.
func (d CalendarDuration) IsZero() bool {
	return d.Years == 0 && d.Months == 0 && d.Days == 0 &&
		d.Hours == 0 && d.Minutes == 0 && d.Seconds == 0
}

// String renders the ISO 8601 / xsd:duration form, e.g. P1Y2M3DT4H5M6.5S.
func (d CalendarDuration) String() string {
	if d.IsZero() {
		return ZeroDuration
	}
	var b strings.Builder
	if d.Negative {
		b.WriteByte('-')
	}
	b.WriteByte('P')
	writeUnit(&b, d.Years, 'Y')
	writeUnit(&b, d.Months, 'M')
	writeUnit(&b, d.Days, 'D')
	if d.Hours != 0 || d.Minutes != 0 || d.Seconds != 0 {
		b.WriteByte('T')
		writeUnit(&b, d.Hours, 'H')
		writeUnit(&b, d.Minutes, 'M')
		if d.Seconds != 0 {
			b.WriteString(formatSeconds(d.Seconds))
			b.WriteByte('S')
		}
	}
	return b.String()
}

func writeUnit(b *strings.Builder, n int, unit byte) {
	if n == 0 {
		return
	}
	b.WriteString(strconv.Itoa(n))
	b.WriteByte(unit)
}

func formatSeconds(s float64) string {
	out := strconv.FormatFloat(s, 'f', 3, 64)
	out = strings.TrimRight(out, "0")
	return strings.TrimSuffix(out, ".")
}

// ParseDuration parses the form produced by CalendarDuration.String.
func ParseDuration(s string) (CalendarDuration, error) {
	var d CalendarDuration
	rest := s
	if strings.HasPrefix(rest, "-") {
		d.Negative = true
		rest = rest[1:]
	}
	if !strings.HasPrefix(rest, "P") || len(rest) < 3 {
		return CalendarDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}
	rest = rest[1:]

	inTime := false
	for rest != "" {
		if rest[0] == 'T' {
			if inTime {
				return CalendarDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			inTime = true
			rest = rest[1:]
			continue
		}
		i := strings.IndexAny(rest, "YMDHS")
		if i <= 0 {
			return CalendarDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		num, unit := rest[:i], rest[i]
		rest = rest[i+1:]

		if unit == 'S' {
			if !inTime {
				return CalendarDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			f, err := strconv.ParseFloat(num, 64)
			if err != nil {
				return CalendarDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
			}
			d.Seconds = f
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return CalendarDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		switch {
		case unit == 'Y' && !inTime:
			d.Years = n
		case unit == 'M' && !inTime:
			d.Months = n
		case unit == 'D' && !inTime:
			d.Days = n
		case unit == 'H' && inTime:
			d.Hours = n
		case unit == 'M' && inTime:
			d.Minutes = n
		default:
			return CalendarDuration{}, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
	}
	if d.IsZero() {
		d.Negative = false
	}
	return d, nil
}
