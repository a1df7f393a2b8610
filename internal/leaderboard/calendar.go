package leaderboard

import (
	"fmt"
	"strconv"
	"time"
)

// AllTimeLabel is the label shown for the all-time leaderboard
const AllTimeLabel = "All Time"

// MaxOffset returns how many periods back from now can be navigated
// without passing the competition start. Always 0 for PeriodAll.
func MaxOffset(p Period, start, now time.Time) int {
	var n int
	switch p {
	case PeriodYear:
		n = now.Year() - start.Year()
	case PeriodMonth:
		n = (now.Year()-start.Year())*12 + int(now.Month()) - int(start.Month())
	case PeriodWeek:
		n = daysBetween(weekStart(start), weekStart(now)) / 7
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

// Label derives the human-readable name of the period offset steps back from now
func Label(p Period, offset int, now time.Time) string {
	switch p {
	case PeriodYear:
		return strconv.Itoa(now.Year() - offset)
	case PeriodMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first.AddDate(0, -offset, 0).Format("January 2006")
	case PeriodWeek:
		monday := weekStart(now).AddDate(0, 0, -7*offset)
		_, week := monday.ISOWeek()
		sunday := monday.AddDate(0, 0, 6)
		return fmt.Sprintf("Week %d (%s - %s)", week, monday.Format("2 Jan"), sunday.Format("2 Jan"))
	default:
		return AllTimeLabel
	}
}

// weekStart returns midnight of the Monday starting t's week
func weekStart(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	sinceMonday := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -sinceMonday)
}

// daysBetween counts calendar days from a to b, ignoring DST shifts
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
