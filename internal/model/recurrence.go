package model

import (
	"fmt"
	"time"
)

// NextDue computes the due date of the successor spawned when a recurring
// task is completed. Arithmetic is calendar-based and the time of day of
// prev is preserved exactly. Monthly recurrence lands on the same
// day-of-month in the following month, clamped to that month's last day
// (Jan 31 -> Feb 28/29, never Mar 3).
func NextDue(prev time.Time, p Pattern) (time.Time, error) {
	switch p {
	case PatternDaily:
		return prev.AddDate(0, 0, 1), nil
	case PatternWeekly:
		return prev.AddDate(0, 0, 7), nil
	case PatternMonthly:
		return nextMonthClamped(prev), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidPattern, p)
	}
}

func nextMonthClamped(prev time.Time) time.Time {
	y, m, d := prev.Date()
	firstOfNext := time.Date(y, m, 1, 0, 0, 0, 0, prev.Location()).AddDate(0, 1, 0)
	ny, nm, _ := firstOfNext.Date()
	if last := daysInMonth(nm, ny); d > last {
		d = last
	}
	return time.Date(ny, nm, d, prev.Hour(), prev.Minute(), prev.Second(), prev.Nanosecond(), prev.Location())
}

func daysInMonth(month time.Month, year int) int {
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}
