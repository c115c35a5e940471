package timestamp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestResolveNoConfig(t *testing.T) {
	r := New("", "", 0)
	r.now = fixedNow(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	dt, err := r.Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), dt)
}

func TestResolveEpoch(t *testing.T) {
	r := New("time", FormatEpoch, 0)

	seconds, err := r.Resolve("1700000000")
	require.NoError(t, err)

	millis, err := r.Resolve("1700000000000")
	require.NoError(t, err)

	assert.True(t, seconds.Equal(millis), "second and millisecond epochs must resolve to the same instant")
	assert.Equal(t, int64(1700000000), seconds.Unix())
}

func TestResolveEpochNumericValue(t *testing.T) {
	r := New("time", FormatEpoch, 9)

	dt, err := r.Resolve(float64(1700000000))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), dt.Unix())

	_, off := dt.Zone()
	assert.Equal(t, 9*3600, off)
}

func TestResolveEpochBadValue(t *testing.T) {
	r := New("time", FormatEpoch, 0)
	_, err := r.Resolve("not-a-number")

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "time", perr.Field)
	assert.Equal(t, "not-a-number", perr.Raw)
}

func TestResolveSyslog(t *testing.T) {
	r := New("ts", FormatSyslog, 0)
	r.now = fixedNow(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	dt, err := r.Resolve("Jun 10 08:30:15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 10, 8, 30, 15, 0, time.UTC), dt.UTC())
}

func TestResolveSyslogFraction(t *testing.T) {
	r := New("ts", FormatSyslog, 0)
	r.now = fixedNow(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))

	dt, err := r.Resolve("Jun 10 08:30:15.5")
	require.NoError(t, err)
	assert.Equal(t, 500000000, dt.Nanosecond())
}

func TestResolveSyslogYearBoundary(t *testing.T) {
	// reference is now+12h = 2024-01-02T00:00:00Z; a naive same-year parse of
	// Dec 31 would land in the future, so the previous year applies
	r := New("ts", FormatSyslog, 0)
	r.now = fixedNow(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))

	dt, err := r.Resolve("Dec 31 23:59:59")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 12, 31, 23, 59, 59, 0, time.UTC), dt.UTC())
}

func TestResolveSyslogLeapDay(t *testing.T) {
	// Feb 29 does not exist in 2025; the entry must come from 2024
	r := New("ts", FormatSyslog, 0)
	r.now = fixedNow(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC))

	dt, err := r.Resolve("Feb 29 01:02:03")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 1, 2, 3, 0, time.UTC), dt.UTC())
}

func TestResolveSyslogMismatch(t *testing.T) {
	r := New("ts", FormatSyslog, 0)
	_, err := r.Resolve("2024-01-01T00:00:00Z")

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
}

func TestResolveISO8601(t *testing.T) {
	r := New("ts", FormatISO8601, 9)

	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{
			"zoned utc",
			"2024-03-01T10:20:30Z",
			time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC),
		},
		{
			"zoned offset",
			"2024-03-01T10:20:30+02:00",
			time.Date(2024, 3, 1, 8, 20, 30, 0, time.UTC),
		},
		{
			"naive gets default offset",
			"2024-03-01T10:20:30",
			time.Date(2024, 3, 1, 1, 20, 30, 0, time.UTC),
		},
		{
			"space separated",
			"2024-03-01 10:20:30.123456",
			time.Date(2024, 3, 1, 1, 20, 30, 123456000, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dt, err := r.Resolve(tt.raw)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(dt), "got %v want %v", dt, tt.want)
		})
	}
}

func TestResolveISO8601Invalid(t *testing.T) {
	r := New("ts", FormatISO8601, 0)
	_, err := r.Resolve("yesterday")

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, FormatISO8601, perr.Format)
}

func TestResolveExplicitLayout(t *testing.T) {
	r := New("ts", "02/Jan/2006:15:04:05 -0700", 0)

	dt, err := r.Resolve("10/Oct/2023:13:55:36 +0900")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 10, 10, 4, 55, 36, 0, time.UTC), dt.UTC())
}

func TestResolveExplicitLayoutNaive(t *testing.T) {
	r := New("ts", "2006/01/02 15:04:05", -5)

	dt, err := r.Resolve("2023/10/10 13:55:36")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 10, 10, 18, 55, 36, 0, time.UTC), dt.UTC())
}

func TestResolveExplicitLayoutMismatch(t *testing.T) {
	r := New("ts", "2006/01/02 15:04:05", 0)
	_, err := r.Resolve("definitely not a date")

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, perr.Error(), "ts")
}
