package util

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// barLayouts are tried in order by ParseBarTime. The first is the Dukascopy
// export format, e.g. "01.01.2010 00:00:00.000 GMT+0100".
var barLayouts = []string{
	"02.01.2006 15:04:05.000 GMT-0700",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	DateLayout,
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC. Full timestamps are
// accepted and truncated to their UTC day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(DateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	if t, ok := ParseTime(s); ok {
		return StartOfDay(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

// ParseBarTime parses a bar timestamp in any supported export layout and
// returns it in UTC. Layouts without a zone are read as UTC.
func ParseBarTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range barLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// StartOfDay truncates t to midnight UTC of its UTC day.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
