package expiry

import (
	"errors"
	"fmt"
	"time"
)

// ErrOutOfRange is returned when an expiration falls outside years 1..9999.
var ErrOutOfRange = errors.New("expiry: expiration out of range")

// Unit is a lifetime unit accepted by the add endpoint.
type Unit string

const (
	Days    Unit = "days"
	Months  Unit = "months"
	Years   Unit = "years"
	Seconds Unit = "seconds"
)

const day = 24 * time.Hour

// ParseUnit validates s against the supported units. Matching is case-sensitive.
func ParseUnit(s string) (Unit, error) {
	switch u := Unit(s); u {
	case Days, Months, Years, Seconds:
		return u, nil
	default:
		return "", fmt.Errorf("expiry: unknown unit %q", s)
	}
}

// Duration returns n units as a duration. Months are 30 days and years are
// 365 days; no calendar arithmetic is applied.
func (u Unit) Duration(n int64) time.Duration {
	switch u {
	case Days:
		return time.Duration(n) * day
	case Months:
		return time.Duration(n) * 30 * day
	case Years:
		return time.Duration(n) * 365 * day
	case Seconds:
		return time.Duration(n) * time.Second
	default:
		return 0
	}
}

// maxSpanDays bounds the day offset accepted by After. It is wider than the
// whole 1..9999 calendar, so anything beyond it is out of range anyway.
const maxSpanDays = 4_000_000

// After returns the timestamp descriptor for now plus n units, computed on the
// local wall clock. n may be negative. The result must fall within years
// 1..9999.
func After(now time.Time, n int64, u Unit) (Expiration, error) {
	var days, secs int64
	switch u {
	case Seconds:
		days, secs = n/86400, n%86400
	case Days, Months, Years:
		if n > maxSpanDays || n < -maxSpanDays {
			return Expiration{}, ErrOutOfRange
		}
		days = n * int64(u.Duration(1)/day)
	default:
		return Expiration{}, fmt.Errorf("expiry: unknown unit %q", u)
	}
	if days > maxSpanDays || days < -maxSpanDays {
		return Expiration{}, ErrOutOfRange
	}

	t := wall(now).Truncate(time.Second).AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second)
	if y := t.Year(); y < 1 || y > 9999 {
		return Expiration{}, ErrOutOfRange
	}
	return At(time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local)), nil
}
