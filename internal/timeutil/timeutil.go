// Package timeutil converts between time.Time and the epoch-millisecond
// timestamps stored in the database.
package timeutil

import "time"

// FromTime converts t to epoch milliseconds.
func FromTime(t time.Time) int64 {
	return t.UnixMilli()
}

// ToTime converts epoch milliseconds to a UTC time.Time.
func ToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

// StartOfDay returns 00:00:00.000 of the day containing t, in t's location.
func StartOfDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).UnixMilli()
}

// EndOfDay returns 23:59:59.999 of the day containing t, in t's location.
func EndOfDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location()).UnixMilli()
}

// AddDays shifts a millisecond timestamp by whole calendar days in loc.
func AddDays(ms int64, days int, loc *time.Location) int64 {
	if loc == nil {
		loc = time.UTC
	}
	return time.UnixMilli(ms).In(loc).AddDate(0, 0, days).UnixMilli()
}

// Ptr returns a pointer to ms. Handy for optional date columns.
func Ptr(ms int64) *int64 {
	return &ms
}
