package domain

import (
	"fmt"
	"time"
)

// BadgeType enumerates permanent achievements.
type BadgeType string

const (
	BadgeThreeDays        BadgeType = "three_days"
	BadgeOneWeek          BadgeType = "one_week"
	BadgeTwoWeeks         BadgeType = "two_weeks"
	BadgeOneMonth         BadgeType = "one_month"
	BadgeFirstWalk        BadgeType = "first_walk"
	BadgeTotalWalks10     BadgeType = "total_walks_10"
	BadgeTotalWalks50     BadgeType = "total_walks_50"
	BadgeTotalWalks100    BadgeType = "total_walks_100"
	BadgeTotalMinutes100  BadgeType = "total_minutes_100"
	BadgeTotalMinutes500  BadgeType = "total_minutes_500"
	BadgeTotalMinutes1000 BadgeType = "total_minutes_1000"
)

// KudosType enumerates congratulatory events.
type KudosType string

const (
	KudosFirstWalk   KudosType = "first_walk"
	KudosDailyGoal10 KudosType = "daily_goal_10"
	KudosStreak3     KudosType = "streak_3"
	KudosStreak7     KudosType = "streak_7"
	KudosWeeklyGoal  KudosType = "weekly_goal"
)

// BadgeGrant records that a user earned a badge. At most one per user and type.
type BadgeGrant struct {
	ID        string
	UserID    string
	Type      BadgeType
	EarnedAt  time.Time
	Milestone bool
}

// KudosGrant records a congratulatory event. Period is empty for lifetime
// kudos and the week-start date for weekly goals.
type KudosGrant struct {
	ID          string
	UserID      string
	Type        KudosType
	Period      string
	Title       string
	Description string
	EarnedAt    time.Time
}

// BadgeInfo is the display metadata for a badge.
type BadgeInfo struct {
	Name        string
	Description string
	Emoji       string
}

var badgeCatalog = map[BadgeType]BadgeInfo{
	BadgeThreeDays:        {Name: "Three in a Row", Description: "Walked three days in a row", Emoji: "🔥"},
	BadgeOneWeek:          {Name: "One Week", Description: "Walked every day for a week", Emoji: "📅"},
	BadgeTwoWeeks:         {Name: "Two Weeks", Description: "Walked every day for two weeks", Emoji: "💪"},
	BadgeOneMonth:         {Name: "One Month", Description: "Walked every day for a month", Emoji: "🏆"},
	BadgeFirstWalk:        {Name: "First Step", Description: "Completed your first walk", Emoji: "🚶"},
	BadgeTotalWalks10:     {Name: "Regular Walker", Description: "Completed 10 walks", Emoji: "🎯"},
	BadgeTotalWalks50:     {Name: "Committed Walker", Description: "Completed 50 walks", Emoji: "⭐"},
	BadgeTotalWalks100:    {Name: "Centurion", Description: "Completed 100 walks", Emoji: "👑"},
	BadgeTotalMinutes100:  {Name: "100 Minutes", Description: "Walked for 100 minutes in total", Emoji: "⏱️"},
	BadgeTotalMinutes500:  {Name: "500 Minutes", Description: "Walked for 500 minutes in total", Emoji: "⌛"},
	BadgeTotalMinutes1000: {Name: "1000 Minutes", Description: "Walked for 1000 minutes in total", Emoji: "🌟"},
}

// DescribeBadge returns display metadata, falling back to the raw type name.
func DescribeBadge(t BadgeType) BadgeInfo {
	if info, ok := badgeCatalog[t]; ok {
		return info
	}
	return BadgeInfo{Name: string(t), Emoji: "🏅"}
}

type kudosText struct {
	Title       string
	Description string
}

var kudosCatalog = map[KudosType]kudosText{
	KudosFirstWalk:   {Title: "First walk!", Description: "You completed your very first walk."},
	KudosDailyGoal10: {Title: "Daily goal reached!", Description: "You walked for at least 10 minutes."},
	KudosStreak3:     {Title: "Three days in a row!", Description: "You walked three days in a row."},
	KudosStreak7:     {Title: "One week streak!", Description: "You walked every day for a week."},
}

// WeeklyGoalText builds the title and description for a weekly goal kudos.
func WeeklyGoalText(activeDays int) (string, string) {
	return "Weekly goal reached!", fmt.Sprintf("You completed %d walks this week!", activeDays)
}
