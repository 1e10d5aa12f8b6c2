package expiry

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	for _, s := range []string{"days", "months", "years", "seconds"} {
		u, err := ParseUnit(s)
		require.NoError(t, err, s)
		assert.Equal(t, Unit(s), u)
	}
	for _, s := range []string{"", "weeks", "Days", "hours"} {
		_, err := ParseUnit(s)
		assert.Error(t, err, s)
	}
}

func TestUnitDuration_Approximate(t *testing.T) {
	assert.Equal(t, 3*24*time.Hour, Days.Duration(3))
	assert.Equal(t, 60*24*time.Hour, Months.Duration(2))
	assert.Equal(t, 365*24*time.Hour, Years.Duration(1))
	assert.Equal(t, 90*time.Second, Seconds.Duration(90))
	assert.Equal(t, -5*time.Second, Seconds.Duration(-5))
}

func TestAfter(t *testing.T) {
	now := time.Date(2024, 2, 28, 23, 59, 58, 600_000_000, time.Local)
	exp, err := After(now, 2, Seconds)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29 00:00:00", exp.String())

	jan := time.Date(2024, 1, 10, 8, 30, 0, 0, time.Local)
	exp, err = After(jan, 1, Months)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-09 08:30:00", exp.String())

	exp, err = After(jan, -10, Seconds)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-10 08:29:50", exp.String())
}

func TestAfter_BeyondDurationRange(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 30, 0, 0, time.Local)

	exp, err := After(now, 500, Years)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 500*365).Format(Layout), exp.String())

	exp, err = After(now, 110000, Days)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 110000).Format(Layout), exp.String())

	exp, err = After(now, 400*365*86400+5, Seconds)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, 400*365).Add(5*time.Second).Format(Layout), exp.String())
}

func TestAfter_OutOfRange(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 30, 0, 0, time.Local)

	_, err := After(now, 7900, Years)
	assert.NoError(t, err)

	_, err = After(now, 8000, Years)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = After(now, -2100, Years)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = After(now, math.MaxInt64, Months)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = After(now, math.MinInt64, Seconds)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = After(now, 1, Unit("weeks"))
	assert.Error(t, err)
}
