package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEvaluateStreakBadges(t *testing.T) {
	require.Empty(t, EvaluateStreakBadges(2, nil))
	require.Equal(t, []BadgeType{BadgeThreeDays}, EvaluateStreakBadges(3, nil))
	require.Equal(t, []BadgeType{BadgeThreeDays, BadgeOneWeek, BadgeTwoWeeks}, EvaluateStreakBadges(14, nil))

	granted := map[BadgeType]bool{BadgeThreeDays: true, BadgeOneWeek: true}
	require.Equal(t, []BadgeType{BadgeTwoWeeks, BadgeOneMonth}, EvaluateStreakBadges(45, granted))
	require.Empty(t, EvaluateStreakBadges(7, granted))
}

func TestEvaluateMilestones(t *testing.T) {
	require.Equal(t, []BadgeType{BadgeFirstWalk}, EvaluateMilestones(Totals{Walks: 1, Minutes: 15}, nil))
	require.Equal(t,
		[]BadgeType{BadgeFirstWalk, BadgeTotalWalks10, BadgeTotalMinutes100, BadgeTotalMinutes500},
		EvaluateMilestones(Totals{Walks: 12, Minutes: 640}, nil))
	require.Empty(t, EvaluateMilestones(Totals{Walks: 1, Minutes: 20}, map[BadgeType]bool{BadgeFirstWalk: true}))
	require.True(t, IsMilestone(BadgeTotalMinutes1000))
	require.False(t, IsMilestone(BadgeOneMonth))
}

func TestEvaluateKudos(t *testing.T) {
	tests := []struct {
		name    string
		in      KudosInput
		granted map[KudosType]bool
		want    []KudosType
	}{
		{name: "first short walk", in: KudosInput{DurationMin: 5, StreakDays: 1, TotalWalks: 1}, want: []KudosType{KudosFirstWalk}},
		{name: "first long walk", in: KudosInput{DurationMin: 15, StreakDays: 1, TotalWalks: 1}, want: []KudosType{KudosFirstWalk, KudosDailyGoal10}},
		{name: "exactly ten minutes", in: KudosInput{DurationMin: 10, StreakDays: 1, TotalWalks: 2}, granted: map[KudosType]bool{KudosFirstWalk: true}, want: []KudosType{KudosDailyGoal10}},
		{name: "streak three", in: KudosInput{DurationMin: 5, StreakDays: 3, TotalWalks: 3}, granted: map[KudosType]bool{KudosFirstWalk: true}, want: []KudosType{KudosStreak3}},
		{name: "streak four skips three", in: KudosInput{DurationMin: 5, StreakDays: 4, TotalWalks: 4}, granted: map[KudosType]bool{KudosFirstWalk: true}, want: []KudosType{}},
		{name: "streak seven", in: KudosInput{DurationMin: 5, StreakDays: 7, TotalWalks: 7}, granted: map[KudosType]bool{KudosFirstWalk: true, KudosStreak3: true}, want: []KudosType{KudosStreak7}},
		{name: "streak eight", in: KudosInput{DurationMin: 5, StreakDays: 8, TotalWalks: 8}, granted: map[KudosType]bool{KudosFirstWalk: true}, want: []KudosType{}},
		{name: "already granted", in: KudosInput{DurationMin: 30, StreakDays: 3, TotalWalks: 9}, granted: map[KudosType]bool{KudosFirstWalk: true, KudosDailyGoal10: true, KudosStreak3: true}, want: []KudosType{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, EvaluateKudos(tt.in, tt.granted))
		})
	}
}

func TestWeekActiveDays(t *testing.T) {
	cal := NewCalendar(time.UTC, time.Sunday)
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC) // Wednesday
	walks := []Walk{
		{CalendarDate: "2024-05-11"}, // previous Saturday
		{CalendarDate: "2024-05-12"},
		{CalendarDate: "2024-05-12"},
		{CalendarDate: "2024-05-13"},
		{CalendarDate: "2024-05-15"},
	}
	require.Equal(t, 3, WeekActiveDays(walks, now, cal))
	require.True(t, WeeklyGoalReached(3, 3))
	require.False(t, WeeklyGoalReached(3, 4))
	require.False(t, WeeklyGoalReached(3, 0))
}

func TestNewWeeklyGoalKudos(t *testing.T) {
	start := time.Date(2024, 5, 12, 0, 0, 0, 0, time.UTC)
	grant := NewWeeklyGoalKudos(4, start)
	require.Equal(t, KudosWeeklyGoal, grant.Type)
	require.Equal(t, "2024-05-12", grant.Period)
	require.Contains(t, grant.Description, "4 walks")
}
