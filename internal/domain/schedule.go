package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const timeOfDayLayout = "15:04"

// ScheduledWalk is a planned walk; at most one per user and date.
type ScheduledWalk struct {
	ID            string
	UserID        string
	ScheduledDate string
	Time          string
	Notes         string
	CreatedAt     time.Time
}

// CalendarView combines planned and completed walks.
type CalendarView struct {
	Scheduled []ScheduledWalk
	Completed []Walk
}

// ScheduleWalkInput captures a scheduling request.
type ScheduleWalkInput struct {
	UserID        string
	ScheduledDate string
	Time          string
	Notes         string
}

// ScheduleWalk plans a walk on a date.
func (s *Service) ScheduleWalk(ctx context.Context, input ScheduleWalkInput) (*ScheduledWalk, error) {
	date := strings.TrimSpace(input.ScheduledDate)
	if _, err := s.calendar.ParseDate(date); err != nil {
		return nil, fmt.Errorf("%w: scheduled date must be YYYY-MM-DD", ErrInvalidSchedule)
	}
	clock := strings.TrimSpace(input.Time)
	if clock != "" {
		if _, err := time.Parse(timeOfDayLayout, clock); err != nil {
			return nil, fmt.Errorf("%w: time must be HH:MM", ErrInvalidSchedule)
		}
	}
	if len(input.Notes) > maxNotesLength {
		return nil, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidSchedule, maxNotesLength)
	}
	walk := ScheduledWalk{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		ScheduledDate: date,
		Time:          clock,
		Notes:         strings.TrimSpace(input.Notes),
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.CreateScheduledWalk(ctx, walk); err != nil {
		return nil, err
	}
	return &walk, nil
}

// UnscheduleWalk deletes one of the user's scheduled walks.
func (s *Service) UnscheduleWalk(ctx context.Context, userID, scheduleID string) error {
	return s.store.DeleteScheduledWalk(ctx, userID, scheduleID)
}

// CalendarFor returns scheduled and completed walks for the user.
func (s *Service) CalendarFor(ctx context.Context, userID string) (*CalendarView, error) {
	scheduled, err := s.store.ListScheduledWalks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list scheduled walks: %w", err)
	}
	completed, err := s.store.ListWalks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list walks: %w", err)
	}
	return &CalendarView{Scheduled: scheduled, Completed: completed}, nil
}
