package domain

import (
	"context"
	"fmt"
	"sort"
)

const recentKudosLimit = 5

// ProgressState is derived from the walk log and never stored.
type ProgressState struct {
	CurrentStreakDays int
	TodayMinutes      int
	DailyGoalTarget   int
	WeekActiveDays    int
	WeeklyGoalTarget  int
	TotalWalks        int
	TotalMinutes      int
}

// ProgressSnapshot is everything a client needs to render progression.
type ProgressSnapshot struct {
	UserID      string
	Today       string
	State       ProgressState
	Badges      []BadgeGrant
	RecentKudos []KudosGrant
}

// Progress computes the user's current progression snapshot.
func (s *Service) Progress(ctx context.Context, userID string) (*ProgressSnapshot, error) {
	now := s.now()

	walks, err := s.store.ListWalks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list walks: %w", err)
	}
	badges, err := s.store.ListBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	kudos, err := s.store.ListKudos(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list kudos: %w", err)
	}
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := s.calendar.DateString(now)
	totals := TotalsOf(walks)
	state := ProgressState{
		CurrentStreakDays: CurrentStreak(walks, now, s.calendar),
		DailyGoalTarget:   profile.DailyGoalTarget,
		WeekActiveDays:    WeekActiveDays(walks, now, s.calendar),
		WeeklyGoalTarget:  profile.WeeklyGoalTarget,
		TotalWalks:        totals.Walks,
		TotalMinutes:      totals.Minutes,
	}
	for _, w := range walks {
		if w.CalendarDate == today {
			state.TodayMinutes += w.DurationMin
		}
	}

	sort.SliceStable(badges, func(i, j int) bool { return badges[i].EarnedAt.After(badges[j].EarnedAt) })
	for i := range badges {
		badges[i].Milestone = IsMilestone(badges[i].Type)
	}
	sort.SliceStable(kudos, func(i, j int) bool { return kudos[i].EarnedAt.After(kudos[j].EarnedAt) })
	if len(kudos) > recentKudosLimit {
		kudos = kudos[:recentKudosLimit]
	}

	return &ProgressSnapshot{
		UserID:      userID,
		Today:       today,
		State:       state,
		Badges:      badges,
		RecentKudos: kudos,
	}, nil
}
