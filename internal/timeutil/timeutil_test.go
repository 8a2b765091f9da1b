package timeutil

import (
	"testing"
	"time"
)

func TestRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 10, 14, 30, 15, int(250*time.Millisecond), time.UTC)
	ms := FromTime(in)
	if got := ToTime(ms); !got.Equal(in) {
		t.Errorf("ToTime(FromTime(%v)) = %v", in, got)
	}
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	ref := time.Date(2024, 3, 10, 14, 30, 0, 0, loc)

	start := time.UnixMilli(StartOfDay(ref)).In(loc)
	if start.Hour() != 0 || start.Minute() != 0 || start.Day() != 10 {
		t.Errorf("StartOfDay = %v, want 2024-03-10 00:00", start)
	}

	end := time.UnixMilli(EndOfDay(ref)).In(loc)
	if end.Hour() != 23 || end.Minute() != 59 || end.Second() != 59 || end.Day() != 10 {
		t.Errorf("EndOfDay = %v, want 2024-03-10 23:59:59.999", end)
	}
	if EndOfDay(ref)-StartOfDay(ref) != int64(24*time.Hour/time.Millisecond)-1 {
		t.Errorf("day span = %d ms", EndOfDay(ref)-StartOfDay(ref))
	}
}

func TestAddDays(t *testing.T) {
	base := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	got := ToTime(AddDays(FromTime(base), 1, time.UTC))
	want := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("AddDays = %v, want %v", got, want)
	}

	back := ToTime(AddDays(FromTime(base), -31, nil))
	if back.Month() != time.December || back.Day() != 31 {
		t.Errorf("AddDays(-31) = %v", back)
	}
}
