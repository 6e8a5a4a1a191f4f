package season

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekOf(t *testing.T) {
	// 2026-08-29 is a Saturday in ISO week 35
	assert.Equal(t, "2026-W35", WeekOf(time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)))

	// Week identifiers are zero padded
	assert.Equal(t, "2026-W01", WeekOf(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC)))
}

func TestWeekOfYearBoundary(t *testing.T) {
	// Jan 1 2027 falls in ISO week 53 of 2026
	assert.Equal(t, "2026-W53", WeekOf(time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPreviousWeek(t *testing.T) {
	now := time.Date(2026, 8, 31, 2, 0, 0, 0, time.UTC) // Monday, W36
	assert.Equal(t, "2026-W36", WeekOf(now))
	assert.Equal(t, "2026-W35", PreviousWeek(now))
}

func TestWindowContains(t *testing.T) {
	window := Window{Weekday: time.Monday, Hours: 3}

	monday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Monday, monday.Weekday())

	assert.True(t, window.Contains(monday))
	assert.True(t, window.Contains(monday.Add(2*time.Hour+59*time.Minute)))
	assert.False(t, window.Contains(monday.Add(3*time.Hour)))
	assert.False(t, window.Contains(monday.Add(12*time.Hour)))

	tuesday := monday.AddDate(0, 0, 1)
	assert.False(t, window.Contains(tuesday))
}

func TestWindowContainsConvertsToUTC(t *testing.T) {
	window := Window{Weekday: time.Monday, Hours: 3}

	// 23:30 Sunday in UTC-2 is 01:30 Monday UTC
	loc := time.FixedZone("UTC-2", -2*60*60)
	sundayLocal := time.Date(2026, 8, 30, 23, 30, 0, 0, loc)
	assert.True(t, window.Contains(sundayLocal))
}
