package expiry

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func local(y int, mo time.Month, d, h, mi, s, ns int) time.Time {
	return time.Date(y, mo, d, h, mi, s, ns, time.Local)
}

func TestAt_TruncatesToSecond(t *testing.T) {
	e := At(local(2024, 3, 1, 10, 0, 5, 900_000_000))
	assert.False(t, e.Permanent)
	assert.Equal(t, "2024-03-01 10:00:05", e.String())
}

func TestParse(t *testing.T) {
	e, err := Parse("permanent")
	require.NoError(t, err)
	assert.True(t, e.Permanent)

	e, err = Parse("2024-12-31 23:59:59")
	require.NoError(t, err)
	assert.False(t, e.Permanent)
	assert.True(t, e.At.Equal(local(2024, 12, 31, 23, 59, 59, 0)))

	_, err = Parse("tomorrow")
	assert.Error(t, err)
	_, err = Parse("2024-12-31T23:59:59Z")
	assert.Error(t, err)
}

func TestJSONMapEncoding(t *testing.T) {
	in := map[string]Expiration{
		"abc": At(local(2025, 1, 2, 3, 4, 5, 0)),
		"xyz": Never(),
	}
	b, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"abc":"2025-01-02 03:04:05","xyz":"permanent"}`, string(b))

	var out map[string]Expiration
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, in["abc"].String(), out["abc"].String())
	assert.True(t, out["xyz"].Permanent)
}

func TestJSONMapEncoding_BadValue(t *testing.T) {
	var out map[string]Expiration
	err := json.Unmarshal([]byte(`{"abc":"soon"}`), &out)
	assert.Error(t, err)
}

func TestDueAt_Inclusive(t *testing.T) {
	exp := At(local(2024, 5, 5, 12, 0, 0, 0))

	assert.False(t, exp.DueAt(local(2024, 5, 5, 11, 59, 59, 999_000_000)))
	assert.True(t, exp.DueAt(local(2024, 5, 5, 12, 0, 0, 0)))
	assert.True(t, exp.DueAt(local(2024, 5, 5, 12, 0, 0, 500_000_000)))
	assert.True(t, exp.DueAt(local(2024, 5, 5, 12, 0, 1, 0)))
	assert.False(t, Never().DueAt(local(2999, 1, 1, 0, 0, 0, 0)))
}

func TestExpiredAt_Strict(t *testing.T) {
	exp := At(local(2024, 5, 5, 12, 0, 0, 0))

	assert.False(t, exp.ExpiredAt(local(2024, 5, 5, 12, 0, 0, 0)))
	assert.True(t, exp.ExpiredAt(local(2024, 5, 5, 12, 0, 0, 1)))
	assert.False(t, Never().ExpiredAt(local(2999, 1, 1, 0, 0, 0, 0)))
}

func TestDueAndExpired_DisagreeAtBoundary(t *testing.T) {
	exp := At(local(2024, 5, 5, 12, 0, 0, 0))
	now := local(2024, 5, 5, 12, 0, 0, 0)
	assert.True(t, exp.DueAt(now))
	assert.False(t, exp.ExpiredAt(now))
}

func TestRemainingUntil_FractionalNowFloors(t *testing.T) {
	now := local(2024, 1, 1, 0, 0, 0, 500_000_000)
	at := local(2024, 1, 1, 0, 0, 2, 0)
	assert.Equal(t, Remaining{Seconds: 1}, RemainingUntil(at, now))
}

func TestRemainingUntil(t *testing.T) {
	now := local(2024, 1, 1, 0, 0, 0, 0)

	tests := []struct {
		name string
		at   time.Time
		want Remaining
	}{
		{"zero", now, Remaining{}},
		{"seconds", now.Add(42 * time.Second), Remaining{Seconds: 42}},
		{"fraction dropped", now.Add(1999 * time.Millisecond), Remaining{Seconds: 1}},
		{"mixed", now.Add(2*24*time.Hour + 3*time.Hour + 4*time.Minute + 5*time.Second),
			Remaining{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}},
		{"past", now.Add(-time.Minute), Remaining{}},
		{"centuries", now.AddDate(0, 0, 500*365), Remaining{Days: 500 * 365}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RemainingUntil(tt.at, now))
		})
	}
}
