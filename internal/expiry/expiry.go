package expiry

import (
	"fmt"
	"time"
)

// Layout is the canonical timestamp format used for storage and comparison.
// It is fixed-width and zero-padded, so lexical order equals chronological order.
const Layout = "2006-01-02 15:04:05"

// PermanentToken is the persisted form of a descriptor that never expires.
const PermanentToken = "permanent"

// Expiration describes when a UID stops being valid. Exactly one of
// Permanent or At is meaningful.
type Expiration struct {
	Permanent bool
	At        time.Time
}

// Never returns the permanent descriptor.
func Never() Expiration {
	return Expiration{Permanent: true}
}

// At returns a timestamp descriptor for t, truncated to whole seconds in local time.
func At(t time.Time) Expiration {
	return Expiration{At: t.Local().Truncate(time.Second)}
}

// Format renders t in the canonical layout, local time.
func Format(t time.Time) string {
	return t.Local().Format(Layout)
}

// Parse reads a persisted expiration string.
func Parse(s string) (Expiration, error) {
	if s == PermanentToken {
		return Never(), nil
	}
	t, err := time.ParseInLocation(Layout, s, time.Local)
	if err != nil {
		return Expiration{}, fmt.Errorf("expiry: parse %q: %w", s, err)
	}
	return Expiration{At: t}, nil
}

// String returns the persisted form: "permanent" or the canonical timestamp.
func (e Expiration) String() string {
	if e.Permanent {
		return PermanentToken
	}
	return Format(e.At)
}

// MarshalText implements encoding.TextMarshaler so that a map of
// expirations encodes as a flat JSON object of strings.
func (e Expiration) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Expiration) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// DueAt reports whether the reconciler should delete an entry at now.
// The comparison is inclusive and runs on the canonical strings.
func (e Expiration) DueAt(now time.Time) bool {
	if e.Permanent {
		return false
	}
	return e.String() <= Format(now)
}

// ExpiredAt reports whether a query at now sees the entry as expired.
// Unlike DueAt the comparison is strict, so an entry is still valid during
// its final second.
func (e Expiration) ExpiredAt(now time.Time) bool {
	if e.Permanent {
		return false
	}
	return now.After(e.At)
}

// Remaining is a calendar-agnostic breakdown of a duration.
type Remaining struct {
	Days    int64 `json:"days"`
	Hours   int64 `json:"hours"`
	Minutes int64 `json:"minutes"`
	Seconds int64 `json:"seconds"`
}

// RemainingUntil breaks at-now into whole days plus an hours/minutes/seconds
// remainder. Both times are compared as local wall-clock readings and
// fractional seconds are floored. A negative span yields zero.
func RemainingUntil(at, now time.Time) Remaining {
	a, n := wall(at), wall(now)
	total := a.Unix() - n.Unix()
	if a.Nanosecond() < n.Nanosecond() {
		total--
	}
	if total < 0 {
		return Remaining{}
	}
	rem := total % 86400
	return Remaining{
		Days:    total / 86400,
		Hours:   rem / 3600,
		Minutes: rem % 3600 / 60,
		Seconds: rem % 60,
	}
}

// wall returns t's local wall-clock reading as a UTC instant, so arithmetic on
// it ignores zone offset changes.
func wall(t time.Time) time.Time {
	t = t.Local()
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
