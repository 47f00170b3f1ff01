package circulation

import (
	"math"
	"time"
)

// Clock supplies the current time. Loans work in calendar days, see Today.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Today returns the clock's current calendar date as UTC midnight.
func Today(c Clock) time.Time {
	return dateOf(c.Now())
}

// dateOf keeps the calendar date of t in its own location and drops the rest.
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from one date to another;
// negative when to is earlier.
func DaysBetween(from, to time.Time) int {
	return int(math.Round(dateOf(to).Sub(dateOf(from)).Hours() / 24))
}
