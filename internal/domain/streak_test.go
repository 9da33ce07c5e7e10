package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func walkAt(ts time.Time, minutes int) Walk {
	cal := NewCalendar(time.UTC, time.Sunday)
	return Walk{ID: ts.Format(time.RFC3339Nano), UserID: "u1", DurationMin: minutes, CompletedAt: ts, CalendarDate: cal.DateString(ts)}
}

func TestCurrentStreak(t *testing.T) {
	cal := NewCalendar(time.UTC, time.Sunday)
	now := time.Date(2024, 5, 15, 18, 0, 0, 0, time.UTC)
	day := func(offset int, hour int) time.Time {
		return time.Date(2024, 5, 15+offset, hour, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name  string
		walks []Walk
		want  int
	}{
		{name: "empty", want: 0},
		{name: "today only", walks: []Walk{walkAt(day(0, 8), 10)}, want: 1},
		{name: "yesterday only", walks: []Walk{walkAt(day(-1, 8), 10)}, want: 0},
		{
			name:  "three consecutive days unsorted",
			walks: []Walk{walkAt(day(-1, 8), 10), walkAt(day(0, 8), 10), walkAt(day(-2, 8), 10)},
			want:  3,
		},
		{
			name:  "several walks on one day count once",
			walks: []Walk{walkAt(day(0, 7), 5), walkAt(day(0, 12), 5), walkAt(day(0, 17), 5), walkAt(day(-1, 9), 5)},
			want:  2,
		},
		{
			name:  "gap breaks the streak",
			walks: []Walk{walkAt(day(0, 8), 10), walkAt(day(-1, 8), 10), walkAt(day(-3, 8), 10)},
			want:  2,
		},
		{
			name:  "future walks are ignored",
			walks: []Walk{walkAt(day(1, 8), 10), walkAt(day(0, 8), 10)},
			want:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, CurrentStreak(tt.walks, now, cal))
		})
	}
}

func TestCurrentStreakUsesCalendarZone(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	cal := NewCalendar(rome, time.Monday)

	// 23:30 UTC on the 14th is already the 15th in Rome.
	now := time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)
	walks := []Walk{
		{CompletedAt: time.Date(2024, 5, 14, 23, 30, 0, 0, time.UTC)},
		{CompletedAt: time.Date(2024, 5, 13, 12, 0, 0, 0, time.UTC)},
	}
	require.Equal(t, 1, CurrentStreak(walks, now, cal))

	walks = append(walks, Walk{CompletedAt: time.Date(2024, 5, 14, 12, 0, 0, 0, time.UTC)})
	require.Equal(t, 3, CurrentStreak(walks, now, cal))
}

func TestCurrentStreakAcrossDSTChange(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)
	cal := NewCalendar(rome, time.Sunday)

	// Clocks go forward on 2024-03-31 in Rome.
	now := time.Date(2024, 4, 1, 10, 0, 0, 0, rome)
	walks := []Walk{
		{CompletedAt: time.Date(2024, 4, 1, 8, 0, 0, 0, rome)},
		{CompletedAt: time.Date(2024, 3, 31, 8, 0, 0, 0, rome)},
		{CompletedAt: time.Date(2024, 3, 30, 8, 0, 0, 0, rome)},
	}
	require.Equal(t, 3, CurrentStreak(walks, now, cal))
}

func TestCalendarWeekStart(t *testing.T) {
	wednesday := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)

	sunday := NewCalendar(time.UTC, time.Sunday)
	first, last := sunday.WeekRange(wednesday)
	require.Equal(t, "2024-05-12", first)
	require.Equal(t, "2024-05-18", last)

	monday := NewCalendar(time.UTC, time.Monday)
	first, last = monday.WeekRange(wednesday)
	require.Equal(t, "2024-05-13", first)
	require.Equal(t, "2024-05-19", last)

	// A Sunday belongs to the previous Monday-based week.
	first, _ = monday.WeekRange(time.Date(2024, 5, 19, 12, 0, 0, 0, time.UTC))
	require.Equal(t, "2024-05-13", first)
}
