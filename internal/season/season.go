// File: internal/season/season.go
package season

import (
	"fmt"
	"time"
)

// WeekOf returns the ISO-week identifier for a point in time, e.g. "2026-W35".
// All week math is done in UTC.
func WeekOf(t time.Time) string {
	year, week := t.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// CurrentWeek returns the ISO-week identifier for now
func CurrentWeek() string {
	return WeekOf(time.Now())
}

// PreviousWeek returns the ISO-week identifier of the week before t.
// Settlement always targets the week that just closed.
func PreviousWeek(t time.Time) string {
	return WeekOf(t.UTC().AddDate(0, 0, -7))
}

// Window describes when the weekly payout job is allowed to run
type Window struct {
	Weekday time.Weekday
	Hours   int // number of hours from midnight UTC the window stays open
}

// Contains reports whether t falls inside the settlement window
func (w Window) Contains(t time.Time) bool {
	t = t.UTC()
	if t.Weekday() != w.Weekday {
		return false
	}
	return t.Hour() < w.Hours
}
