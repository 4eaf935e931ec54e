package lib

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTimestamp is returned when a log date does not parse.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// logTimestampLayout is the syslog prefix completed with a year.
const logTimestampLayout = "Jan 2 15:04:05 2006"

// TimeDateLayout is the exported time_date column format.
const TimeDateLayout = "01/02 15:04:05"

var leadingTimestamp = regexp.MustCompile(`^\w{3}\s+\d+\s+(?:\d+:){2}\d+`)

// ParseLogTimestamp parses a yearless syslog date such as "Jan  2 03:04:05"
// and places it in the given year (UTC).
func ParseLogTimestamp(s string, year int) (time.Time, error) {
	norm := strings.Join(strings.Fields(s), " ")
	if norm == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrMalformedTimestamp)
	}
	t, err := time.ParseInLocation(logTimestampLayout, norm+" "+strconv.Itoa(year), time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrMalformedTimestamp, s, err)
	}
	return t, nil
}

// FormatTimeDate renders t for the time_date column.
func FormatTimeDate(t time.Time) string {
	return t.Format(TimeDateLayout)
}

// LeadingTimestamp returns the syslog date prefix of line, if any.
func LeadingTimestamp(line string) (string, bool) {
	m := leadingTimestamp.FindString(line)
	return m, m != ""
}
