package utils

import (
	"fmt"
	"math"
	"time"
)

// Constants
const (
	DATE_LAYOUT = "2006-01-02"
)

// DateOnly truncates t to midnight UTC of its calendar day
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same UTC calendar day
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// InclusiveDays counts calendar days from start to end, both included
func InclusiveDays(start, end time.Time) (int, error) {
	s, e := DateOnly(start), DateOnly(end)
	if e.Before(s) {
		return 0, fmt.Errorf("end date %s is before start date %s", e.Format(DATE_LAYOUT), s.Format(DATE_LAYOUT))
	}
	return int(e.Sub(s).Hours()/24) + 1, nil
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the UTC calendar day
func ParseDate(value string) (time.Time, error) {
	if t, err := time.Parse(DATE_LAYOUT, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected %s or RFC3339", value, DATE_LAYOUT)
	}
	return DateOnly(t), nil
}

// RoundCents rounds an amount to two decimals
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
