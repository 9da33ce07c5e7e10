package domain

import "time"

// WeekActiveDays counts distinct calendar dates with at least one walk in the
// week containing now.
func WeekActiveDays(walks []Walk, now time.Time, cal Calendar) int {
	first, last := cal.WeekRange(now)
	days := make(map[string]struct{})
	for _, w := range walks {
		if w.CalendarDate >= first && w.CalendarDate <= last {
			days[w.CalendarDate] = struct{}{}
		}
	}
	return len(days)
}

// WeeklyGoalReached reports whether activeDays meets target.
func WeeklyGoalReached(activeDays, target int) bool {
	return target > 0 && activeDays >= target
}

// NewWeeklyGoalKudos builds the period-keyed weekly goal kudos.
func NewWeeklyGoalKudos(activeDays int, weekStart time.Time) KudosGrant {
	title, description := WeeklyGoalText(activeDays)
	return KudosGrant{
		Type:        KudosWeeklyGoal,
		Period:      weekStart.Format(DateLayout),
		Title:       title,
		Description: description,
	}
}

func hasWeeklyKudos(grants []KudosGrant, period string) bool {
	for _, g := range grants {
		if g.Type == KudosWeeklyGoal && g.Period == period {
			return true
		}
	}
	return false
}
