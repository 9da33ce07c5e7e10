package domain

import (
	"time"
)

// DateLayout is the calendar date format used for walk and schedule dates.
const DateLayout = "2006-01-02"

// Calendar buckets instants into days and weeks of the canonical progression
// time zone.
type Calendar struct {
	loc       *time.Location
	weekStart time.Weekday
}

// NewCalendar constructs a Calendar. A nil location means UTC.
func NewCalendar(loc *time.Location, weekStart time.Weekday) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc, weekStart: weekStart}
}

// Location returns the calendar time zone.
func (c Calendar) Location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// Day truncates t to midnight of its day in the calendar zone.
func (c Calendar) Day(t time.Time) time.Time {
	y, m, d := t.In(c.Location()).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.Location())
}

// DateString formats the day of t as YYYY-MM-DD.
func (c Calendar) DateString(t time.Time) string {
	return t.In(c.Location()).Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD as midnight in the calendar zone.
func (c Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, c.Location())
}

// WeekStart returns midnight of the first day of the week containing t.
func (c Calendar) WeekStart(t time.Time) time.Time {
	day := c.Day(t)
	offset := (int(day.Weekday()) - int(c.weekStart) + 7) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekRange returns the inclusive first and last dates of the week containing t.
func (c Calendar) WeekRange(t time.Time) (string, string) {
	start := c.WeekStart(t)
	return start.Format(DateLayout), start.AddDate(0, 0, 6).Format(DateLayout)
}
