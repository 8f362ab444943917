package stmthook

import (
	"database/sql/driver"
	"time"
)

// LocalTimeLayout is the text form of a LocalTime.
const LocalTimeLayout = "2006-01-02T15:04:05.999999999"

// LocalTime is a wall-clock date and time without a zone.
type LocalTime struct {
	wall time.Time // always in time.UTC
}

// LocalTimeOf returns the wall clock of t in t's own location.
func LocalTimeOf(t time.Time) LocalTime {
	y, mo, d := t.Date()
	h, mi, s := t.Clock()
	return LocalTime{wall: time.Date(y, mo, d, h, mi, s, t.Nanosecond(), time.UTC)}
}

// In returns the instant l denotes in loc.
func (l LocalTime) In(loc *time.Location) time.Time {
	y, mo, d := l.wall.Date()
	h, mi, s := l.wall.Clock()
	return time.Date(y, mo, d, h, mi, s, l.wall.Nanosecond(), loc)
}

// IsZero reports whether l is the zero LocalTime.
func (l LocalTime) IsZero() bool {
	return l.wall.IsZero()
}

// Equal reports whether l and u denote the same wall clock.
func (l LocalTime) Equal(u LocalTime) bool {
	return l.wall.Equal(u.wall)
}

// String formats l with LocalTimeLayout.
func (l LocalTime) String() string {
	return l.wall.Format(LocalTimeLayout)
}

// Value implements driver.Valuer.
func (l LocalTime) Value() (driver.Value, error) {
	return l.String(), nil
}
