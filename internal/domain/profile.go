package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Goal defaults applied when a user has no stored preferences.
const (
	DefaultWeeklyGoal = 4
	DefaultDailyGoal  = 10
)

// UserProfile holds identity details and goal preferences.
type UserProfile struct {
	ID               string
	Email            string
	DisplayName      string
	Nickname         string
	WeeklyGoalTarget int
	DailyGoalTarget  int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Name is the name used to greet the user.
func (p UserProfile) Name() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	if fields := strings.Fields(p.DisplayName); len(fields) > 0 {
		return fields[0]
	}
	return "walker"
}

// DefaultProfile is the profile assumed for users without a stored one.
func DefaultProfile(userID string) UserProfile {
	return UserProfile{ID: userID, WeeklyGoalTarget: DefaultWeeklyGoal, DailyGoalTarget: DefaultDailyGoal}
}

func (p UserProfile) withDefaults() UserProfile {
	if p.WeeklyGoalTarget <= 0 {
		p.WeeklyGoalTarget = DefaultWeeklyGoal
	}
	if p.DailyGoalTarget <= 0 {
		p.DailyGoalTarget = DefaultDailyGoal
	}
	return p
}

// profileOrDefault never fails; lookup errors fall back to defaults.
func (s *Service) profileOrDefault(ctx context.Context, logger *slog.Logger, userID string) UserProfile {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		s.stepFailed(ctx, logger, StepWeeklyGoal, err)
		return DefaultProfile(userID)
	}
	return *profile
}

// GetProfile returns the stored profile, or defaults when none exists.
func (s *Service) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	profile, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		p := DefaultProfile(userID)
		return &p, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	p := profile.withDefaults()
	return &p, nil
}

// UpdateProfileInput captures editable profile fields. Nil pointers keep the
// current value.
type UpdateProfileInput struct {
	UserID           string
	Email            *string
	DisplayName      *string
	Nickname         *string
	WeeklyGoalTarget *int
	DailyGoalTarget  *int
}

// UpdateProfile validates and stores profile changes.
func (s *Service) UpdateProfile(ctx context.Context, input UpdateProfileInput) (*UserProfile, error) {
	current, err := s.GetProfile(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	p := *current
	if input.Email != nil {
		email := strings.TrimSpace(*input.Email)
		if email != "" && !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: email address is malformed", ErrInvalidProfile)
		}
		p.Email = email
	}
	if input.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*input.DisplayName)
	}
	if input.Nickname != nil {
		p.Nickname = strings.TrimSpace(*input.Nickname)
	}
	if input.WeeklyGoalTarget != nil {
		if *input.WeeklyGoalTarget < 1 || *input.WeeklyGoalTarget > 7 {
			return nil, fmt.Errorf("%w: weekly goal must be between 1 and 7 days", ErrInvalidProfile)
		}
		p.WeeklyGoalTarget = *input.WeeklyGoalTarget
	}
	if input.DailyGoalTarget != nil {
		if *input.DailyGoalTarget < 1 || *input.DailyGoalTarget > 600 {
			return nil, fmt.Errorf("%w: daily goal must be between 1 and 600 minutes", ErrInvalidProfile)
		}
		p.DailyGoalTarget = *input.DailyGoalTarget
	}
	now := s.now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	if err := s.store.UpsertUser(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return &p, nil
}
