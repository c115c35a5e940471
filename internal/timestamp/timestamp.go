// Package timestamp resolves raw timestamp values from log entries into
// timezone-aware instants according to a per-log-type format policy.
package timestamp

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Format tags understood beyond explicit Go reference layouts.
const (
	FormatEpoch   = "epoch"
	FormatSyslog  = "syslog"
	FormatISO8601 = "iso8601"
)

// milliEpochThreshold separates second from millisecond epochs.
const milliEpochThreshold = 1_000_000_000_000

var syslogRe = regexp.MustCompile(
	`^([A-Z][a-z]{2})\s+(\d{1,2})\s+(\d{2}):(\d{2}):(\d{2})(\.(\d{1,6}))?`)

var monthNum = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// iso8601 layouts tried in order. The first group carries a zone offset,
// the rest are naive and receive the configured default offset.
var isoZonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07:00",
}

var isoNaiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// ParseError is a hard failure: the configured format did not match the
// raw value. It carries enough context to fix the log-type configuration
// without re-running the batch.
type ParseError struct {
	Field  string
	Format string
	Raw    string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("timestamp field %q with format %q does not match value %q: %v",
		e.Field, e.Format, e.Raw, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Resolver turns raw timestamp values into instants. Zero value is not
// usable; construct with New.
type Resolver struct {
	field  string
	format string
	zone   *time.Location

	// now is stubbed in tests
	now func() time.Time
}

// New builds a Resolver for one log type. field is the source field name,
// format one of the Format tags or an explicit Go layout ("" means no
// timestamp is configured and ingestion time is used), tzHours the default
// zone offset applied to values that carry none.
func New(field, format string, tzHours float64) *Resolver {
	return &Resolver{
		field:  field,
		format: format,
		zone:   time.FixedZone("", int(tzHours*3600)),
		now:    time.Now,
	}
}

// Field returns the configured source field name, "" if none.
func (r *Resolver) Field() string { return r.field }

// Resolve parses raw into a zoned instant. raw is the value read from the
// document at the configured field; it may be a string or a number. With no
// timestamp configured, Resolve returns the current UTC wall clock.
func (r *Resolver) Resolve(raw any) (time.Time, error) {
	if r.field == "" {
		return r.now().UTC(), nil
	}
	text := fmt.Sprintf("%v", raw)

	switch r.format {
	case FormatEpoch:
		return r.resolveEpoch(text)
	case FormatSyslog:
		return r.resolveSyslog(text)
	case FormatISO8601:
		return r.resolveISO(text)
	case "":
		return time.Time{}, &ParseError{Field: r.field, Raw: text,
			Err: fmt.Errorf("timestamp format is required when a timestamp key is set")}
	default:
		return r.resolveLayout(text)
	}
}

func (r *Resolver) resolveEpoch(text string) (time.Time, error) {
	epoch, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return time.Time{}, &ParseError{Field: r.field, Format: FormatEpoch, Raw: text, Err: err}
	}
	if epoch > milliEpochThreshold {
		epoch /= 1000
	}
	sec := int64(epoch)
	nsec := int64((epoch - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).In(r.zone), nil
}

// resolveSyslog handles month-name timestamps that carry no year. The
// reference instant is now+12h; a candidate later than the reference is
// assumed to belong to the previous year, since sources are not expected
// to ship logs older than a year.
func (r *Resolver) resolveSyslog(text string) (time.Time, error) {
	m := syslogRe.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, &ParseError{Field: r.field, Format: FormatSyslog, Raw: text,
			Err: fmt.Errorf("value does not look like a syslog timestamp")}
	}
	month, ok := monthNum[m[1]]
	if !ok {
		return time.Time{}, &ParseError{Field: r.field, Format: FormatSyslog, Raw: text,
			Err: fmt.Errorf("unknown month %q", m[1])}
	}
	day, _ := strconv.Atoi(m[2])
	hour, _ := strconv.Atoi(m[3])
	minute, _ := strconv.Atoi(m[4])
	sec, _ := strconv.Atoi(m[5])
	nsec := 0
	if m[7] != "" {
		micro, _ := strconv.Atoi(padRight(m[7], 6))
		nsec = micro * 1000
	}

	ref := r.now().UTC().Add(12 * time.Hour)
	year := ref.Year()
	if month == time.February && day == 29 && !isLeapYear(year) {
		// Feb 29 only exists in the previous leap year
		year--
	}
	dt := time.Date(year, month, day, hour, minute, sec, nsec, r.zone)
	if dt.After(ref) {
		dt = time.Date(year-1, month, day, hour, minute, sec, nsec, r.zone)
	}
	return dt, nil
}

func (r *Resolver) resolveISO(text string) (time.Time, error) {
	for _, layout := range isoZonedLayouts {
		if dt, err := time.Parse(layout, text); err == nil {
			return dt, nil
		}
	}
	for _, layout := range isoNaiveLayouts {
		if dt, err := time.ParseInLocation(layout, text, r.zone); err == nil {
			return dt, nil
		}
	}
	return time.Time{}, &ParseError{Field: r.field, Format: FormatISO8601, Raw: text,
		Err: fmt.Errorf("value is not ISO-8601")}
}

func (r *Resolver) resolveLayout(text string) (time.Time, error) {
	dt, err := time.ParseInLocation(r.format, text, r.zone)
	if err != nil {
		return time.Time{}, &ParseError{Field: r.field, Format: r.format, Raw: text, Err: err}
	}
	return dt, nil
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func padRight(s string, width int) string {
	for len(s) < width {
		s += "0"
	}
	return s
}
