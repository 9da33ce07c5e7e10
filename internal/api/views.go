package api

import (
	"errors"
	"time"

	"example.com/lazywalker/internal/domain"
)

// SubmitWalkRequest is the payload for POST /v1/walks.
type SubmitWalkRequest struct {
	DurationMin int        `json:"duration_min"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// Validate ensures request correctness.
func (r SubmitWalkRequest) Validate() error {
	if r.DurationMin <= 0 {
		return errors.New("duration_min must be > 0")
	}
	return nil
}

// UpdateProfileRequest is the payload for PUT /v1/me. Omitted fields are unchanged.
type UpdateProfileRequest struct {
	Email            *string `json:"email,omitempty"`
	DisplayName      *string `json:"display_name,omitempty"`
	Nickname         *string `json:"nickname,omitempty"`
	WeeklyGoalTarget *int    `json:"weekly_goal_target,omitempty"`
	DailyGoalTarget  *int    `json:"daily_goal_target,omitempty"`
}

// ScheduleWalkRequest is the payload for POST /v1/calendar.
type ScheduleWalkRequest struct {
	Date  string `json:"date"`
	Time  string `json:"time,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// WalkView exposes a walk record.
type WalkView struct {
	WalkID       string    `json:"walk_id"`
	UserID       string    `json:"user_id"`
	DurationMin  int       `json:"duration_min"`
	CalendarDate string    `json:"calendar_date"`
	CompletedAt  time.Time `json:"completed_at"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// AdminWalkView adds owner details for the admin listing.
type AdminWalkView struct {
	WalkView
	UserEmail       string `json:"user_email,omitempty"`
	UserDisplayName string `json:"user_display_name,omitempty"`
}

// ListWalksResponse packages list results.
type ListWalksResponse struct {
	Items      []WalkView `json:"items"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// BadgeView is a granted badge with its display metadata.
type BadgeView struct {
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Emoji       string    `json:"emoji"`
	Milestone   bool      `json:"milestone"`
	EarnedAt    time.Time `json:"earned_at"`
}

// KudosView is a granted kudos.
type KudosView struct {
	Type        string    `json:"type"`
	Period      string    `json:"period,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	EarnedAt    time.Time `json:"earned_at"`
}

// SubmissionView is the response body for POST /v1/walks.
type SubmissionView struct {
	Walk              WalkView    `json:"walk"`
	CurrentStreakDays int         `json:"current_streak_days"`
	NewBadges         []BadgeView `json:"new_badges"`
	NewMilestones     []BadgeView `json:"new_milestones"`
	NewKudos          []KudosView `json:"new_kudos"`
}

// ProgressView is the response body for GET /v1/progress.
type ProgressView struct {
	Today             string      `json:"today"`
	CurrentStreakDays int         `json:"current_streak_days"`
	TodayMinutes      int         `json:"today_minutes"`
	DailyGoalTarget   int         `json:"daily_goal_target"`
	WeekActiveDays    int         `json:"week_active_days"`
	WeeklyGoalTarget  int         `json:"weekly_goal_target"`
	TotalWalks        int         `json:"total_walks"`
	TotalMinutes      int         `json:"total_minutes"`
	Badges            []BadgeView `json:"badges"`
	RecentKudos       []KudosView `json:"recent_kudos"`
}

// ProfileView exposes profile and goal preferences.
type ProfileView struct {
	UserID           string `json:"user_id"`
	Email            string `json:"email,omitempty"`
	DisplayName      string `json:"display_name,omitempty"`
	Nickname         string `json:"nickname,omitempty"`
	WeeklyGoalTarget int    `json:"weekly_goal_target"`
	DailyGoalTarget  int    `json:"daily_goal_target"`
}

// ScheduledWalkView exposes a planned walk.
type ScheduledWalkView struct {
	ScheduleID string    `json:"schedule_id"`
	Date       string    `json:"date"`
	Time       string    `json:"time,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CalendarResponse combines planned and completed walks.
type CalendarResponse struct {
	Scheduled []ScheduledWalkView `json:"scheduled"`
	Completed []WalkView          `json:"completed"`
}

func toWalkView(w domain.Walk) WalkView {
	return WalkView{
		WalkID:       w.ID,
		UserID:       w.UserID,
		DurationMin:  w.DurationMin,
		CalendarDate: w.CalendarDate,
		CompletedAt:  w.CompletedAt,
		Notes:        w.Notes,
		CreatedAt:    w.CreatedAt,
	}
}

func toBadgeViews(grants []domain.BadgeGrant) []BadgeView {
	out := make([]BadgeView, 0, len(grants))
	for _, g := range grants {
		info := domain.DescribeBadge(g.Type)
		out = append(out, BadgeView{
			Type:        string(g.Type),
			Name:        info.Name,
			Description: info.Description,
			Emoji:       info.Emoji,
			Milestone:   g.Milestone,
			EarnedAt:    g.EarnedAt,
		})
	}
	return out
}

func toKudosViews(grants []domain.KudosGrant) []KudosView {
	out := make([]KudosView, 0, len(grants))
	for _, g := range grants {
		out = append(out, KudosView{
			Type:        string(g.Type),
			Period:      g.Period,
			Title:       g.Title,
			Description: g.Description,
			EarnedAt:    g.EarnedAt,
		})
	}
	return out
}

func toSubmissionView(r domain.SubmissionResult) SubmissionView {
	return SubmissionView{
		Walk:              toWalkView(r.Walk),
		CurrentStreakDays: r.CurrentStreakDays,
		NewBadges:         toBadgeViews(r.NewBadges),
		NewMilestones:     toBadgeViews(r.NewMilestones),
		NewKudos:          toKudosViews(r.NewKudos),
	}
}

func toProgressView(s domain.ProgressSnapshot) ProgressView {
	return ProgressView{
		Today:             s.Today,
		CurrentStreakDays: s.State.CurrentStreakDays,
		TodayMinutes:      s.State.TodayMinutes,
		DailyGoalTarget:   s.State.DailyGoalTarget,
		WeekActiveDays:    s.State.WeekActiveDays,
		WeeklyGoalTarget:  s.State.WeeklyGoalTarget,
		TotalWalks:        s.State.TotalWalks,
		TotalMinutes:      s.State.TotalMinutes,
		Badges:            toBadgeViews(s.Badges),
		RecentKudos:       toKudosViews(s.RecentKudos),
	}
}

func toProfileView(p domain.UserProfile) ProfileView {
	return ProfileView{
		UserID:           p.ID,
		Email:            p.Email,
		DisplayName:      p.DisplayName,
		Nickname:         p.Nickname,
		WeeklyGoalTarget: p.WeeklyGoalTarget,
		DailyGoalTarget:  p.DailyGoalTarget,
	}
}

func toScheduledWalkView(s domain.ScheduledWalk) ScheduledWalkView {
	return ScheduledWalkView{
		ScheduleID: s.ID,
		Date:       s.ScheduledDate,
		Time:       s.Time,
		Notes:      s.Notes,
		CreatedAt:  s.CreatedAt,
	}
}
