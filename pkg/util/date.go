package util

import (
	"strconv"
	"time"
)

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

// FromNanosTruncated converts a nanosecond epoch to wall-clock time in loc,
// dropping everything below the millisecond.
func FromNanosTruncated(ns int64, loc *time.Location) time.Time {
	t := time.UnixMilli(ns / int64(time.Millisecond))
	if loc != nil {
		t = t.In(loc)
	}
	return t
}
