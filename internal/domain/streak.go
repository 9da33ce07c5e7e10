package domain

import (
	"sort"
	"time"
)

// CurrentStreak counts consecutive active days ending today. Several walks on
// the same day count once and walks dated after today are ignored.
func CurrentStreak(walks []Walk, now time.Time, cal Calendar) int {
	if len(walks) == 0 {
		return 0
	}
	today := cal.Day(now)

	seen := make(map[string]struct{}, len(walks))
	days := make([]time.Time, 0, len(walks))
	for _, w := range walks {
		day := cal.Day(w.CompletedAt)
		if day.After(today) {
			continue
		}
		key := day.Format(DateLayout)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	streak := 0
	for i, day := range days {
		if !day.Equal(today.AddDate(0, 0, -i)) {
			break
		}
		streak++
	}
	return streak
}
