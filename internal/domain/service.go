package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"example.com/lazywalker/internal/observability"
)

// Progression steps used in logs and the step failure metric.
const (
	StepStreak     = "streak"
	StepBadges     = "badges"
	StepMilestones = "milestones"
	StepKudos      = "kudos"
	StepWeeklyGoal = "weekly_goal"
	StepNotify     = "notify"
	StepInvalidate = "invalidate"
)

// maxClockSkew tolerates client clocks slightly ahead of the server.
const maxClockSkew = time.Minute

const maxNotesLength = 1000

// Service orchestrates walk submission and the progression engine.
type Service struct {
	store         Store
	notifier      Notifier
	invalidator   CacheInvalidator
	calendar      Calendar
	now           func() time.Time
	logger        *slog.Logger
	notifyTimeout time.Duration
}

// Option customises Service construction.
type Option func(*Service)

// WithNotifier sets the kudos notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithInvalidator sets the client cache invalidator.
func WithInvalidator(inv CacheInvalidator) Option {
	return func(s *Service) {
		if inv != nil {
			s.invalidator = inv
		}
	}
}

// WithCalendar sets the canonical progression calendar.
func WithCalendar(cal Calendar) Option {
	return func(s *Service) { s.calendar = cal }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifyTimeout bounds each notification call.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:         store,
		notifier:      noopNotifier{},
		invalidator:   noopInvalidator{},
		calendar:      NewCalendar(time.UTC, time.Sunday),
		now:           time.Now,
		logger:        slog.Default(),
		notifyTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calendar returns the progression calendar.
func (s *Service) Calendar() Calendar {
	return s.calendar
}

// SubmitWalkInput captures a walk submission from the API or CLI.
type SubmitWalkInput struct {
	UserID      string
	DurationMin int
	CompletedAt time.Time // zero means now
	Notes       string
}

// SubmissionResult is the outcome of one walk submission. Slices are never nil.
type SubmissionResult struct {
	Walk              Walk
	CurrentStreakDays int
	NewBadges         []BadgeGrant
	NewMilestones     []BadgeGrant
	NewKudos          []KudosGrant
}

// SubmitWalk appends a walk and runs the progression engine. Only the append
// is fatal; later steps degrade to partial results.
func (s *Service) SubmitWalk(ctx context.Context, input SubmitWalkInput) (*SubmissionResult, error) {
	now := s.now()
	walk, err := s.newWalk(input, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateWalk(ctx, walk); err != nil {
		return nil, fmt.Errorf("create walk: %w", err)
	}
	observability.RecordWalkSubmitted()
	observability.RecordWalkPersisted(walk.CreatedAt)

	result := &SubmissionResult{
		Walk:          walk,
		NewBadges:     []BadgeGrant{},
		NewMilestones: []BadgeGrant{},
		NewKudos:      []KudosGrant{},
	}
	logger := s.logger.With("user_id", walk.UserID, "walk_id", walk.ID)

	history, historyErr := s.store.ListWalks(ctx, walk.UserID)
	if historyErr != nil {
		s.stepFailed(ctx, logger, StepStreak, historyErr)
	} else {
		history = ensureWalk(history, walk)
		result.CurrentStreakDays = CurrentStreak(history, now, s.calendar)
	}

	s.grantBadges(ctx, logger, result, history, historyErr == nil, now)
	existingKudos := s.grantKudos(ctx, logger, result, history, historyErr == nil, now)

	profile := s.profileOrDefault(ctx, logger, walk.UserID)
	if historyErr == nil {
		s.grantWeeklyGoal(ctx, logger, result, history, existingKudos, profile, now)
	}

	s.notifyKudos(ctx, logger, profile, result.NewKudos)

	if err := s.invalidator.InvalidateUser(ctx, walk.UserID); err != nil {
		s.stepFailed(ctx, logger, StepInvalidate, err)
	}

	return result, nil
}

func (s *Service) newWalk(input SubmitWalkInput, now time.Time) (Walk, error) {
	if strings.TrimSpace(input.UserID) == "" {
		return Walk{}, fmt.Errorf("%w: user id is required", ErrInvalidWalk)
	}
	if input.DurationMin <= 0 {
		return Walk{}, fmt.Errorf("%w: duration must be a positive number of minutes", ErrInvalidWalk)
	}
	if len(input.Notes) > maxNotesLength {
		return Walk{}, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidWalk, maxNotesLength)
	}
	completedAt := input.CompletedAt
	if completedAt.IsZero() {
		completedAt = now
	}
	if completedAt.After(now.Add(maxClockSkew)) {
		return Walk{}, fmt.Errorf("%w: completion time is in the future", ErrInvalidWalk)
	}
	return Walk{
		ID:           uuid.NewString(),
		UserID:       input.UserID,
		DurationMin:  input.DurationMin,
		CalendarDate: s.calendar.DateString(completedAt),
		CompletedAt:  completedAt.UTC(),
		Notes:        strings.TrimSpace(input.Notes),
		CreatedAt:    now.UTC(),
	}, nil
}

// ensureWalk guards against stores with read-after-write lag.
func ensureWalk(history []Walk, walk Walk) []Walk {
	for _, w := range history {
		if w.ID == walk.ID {
			return history
		}
	}
	return append(history, walk)
}

func (s *Service) grantBadges(ctx context.Context, logger *slog.Logger, result *SubmissionResult, history []Walk, historyOK bool, now time.Time) {
	granted, err := s.store.ListBadges(ctx, result.Walk.UserID)
	if err != nil {
		s.stepFailed(ctx, logger, StepBadges, err)
		return
	}
	set := badgeSet(granted)

	for _, t := range EvaluateStreakBadges(result.CurrentStreakDays, set) {
		if grant, ok := s.grantBadge(ctx, logger, result.Walk.UserID, t, false, now, StepBadges); ok {
			result.NewBadges = append(result.NewBadges, grant)
		}
	}
	if !historyOK {
		return
	}
	for _, t := range EvaluateMilestones(TotalsOf(history), set) {
		if grant, ok := s.grantBadge(ctx, logger, result.Walk.UserID, t, true, now, StepMilestones); ok {
			result.NewMilestones = append(result.NewMilestones, grant)
		}
	}
}

func (s *Service) grantBadge(ctx context.Context, logger *slog.Logger, userID string, t BadgeType, milestone bool, now time.Time, step string) (BadgeGrant, bool) {
	grant := BadgeGrant{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      t,
		EarnedAt:  now.UTC(),
		Milestone: milestone,
	}
	if err := s.store.GrantBadge(ctx, grant); err != nil {
		if errors.Is(err, ErrAlreadyGranted) {
			logger.DebugContext(ctx, "badge already granted", "badge", t)
			return BadgeGrant{}, false
		}
		s.stepFailed(ctx, logger, step, err)
		return BadgeGrant{}, false
	}
	kind := observability.GrantKindBadge
	if milestone {
		kind = observability.GrantKindMilestone
	}
	observability.RecordGrant(kind, string(t))
	logger.InfoContext(ctx, "badge granted", "badge", t, "milestone", milestone)
	return grant, true
}

// grantKudos returns the kudos already held before this submission, or nil if
// they could not be read.
func (s *Service) grantKudos(ctx context.Context, logger *slog.Logger, result *SubmissionResult, history []Walk, historyOK bool, now time.Time) []KudosGrant {
	existing, err := s.store.ListKudos(ctx, result.Walk.UserID)
	if err != nil {
		s.stepFailed(ctx, logger, StepKudos, err)
		return nil
	}

	// The walk was just appended, so there is at least one even when the
	// history could not be read.
	input := KudosInput{DurationMin: result.Walk.DurationMin, StreakDays: result.CurrentStreakDays, TotalWalks: 1}
	if historyOK {
		input.TotalWalks = len(history)
	}
	for _, t := range EvaluateKudos(input, lifetimeKudosSet(existing)) {
		grant := NewLifetimeKudos(t)
		if s.grantKudosRecord(ctx, logger, result.Walk.UserID, &grant, now, StepKudos) {
			result.NewKudos = append(result.NewKudos, grant)
		}
	}
	return existing
}

func (s *Service) grantWeeklyGoal(ctx context.Context, logger *slog.Logger, result *SubmissionResult, history []Walk, existing []KudosGrant, profile UserProfile, now time.Time) {
	activeDays := WeekActiveDays(history, now, s.calendar)
	if !WeeklyGoalReached(activeDays, profile.WeeklyGoalTarget) {
		return
	}
	grant := NewWeeklyGoalKudos(activeDays, s.calendar.WeekStart(now))
	if hasWeeklyKudos(existing, grant.Period) {
		return
	}
	if s.grantKudosRecord(ctx, logger, result.Walk.UserID, &grant, now, StepWeeklyGoal) {
		result.NewKudos = append(result.NewKudos, grant)
	}
}

func (s *Service) grantKudosRecord(ctx context.Context, logger *slog.Logger, userID string, grant *KudosGrant, now time.Time, step string) bool {
	grant.ID = uuid.NewString()
	grant.UserID = userID
	grant.EarnedAt = now.UTC()
	if err := s.store.GrantKudos(ctx, *grant); err != nil {
		if errors.Is(err, ErrAlreadyGranted) {
			logger.DebugContext(ctx, "kudos already granted", "kudos", grant.Type, "period", grant.Period)
			return false
		}
		s.stepFailed(ctx, logger, step, err)
		return false
	}
	observability.RecordGrant(observability.GrantKindKudos, string(grant.Type))
	logger.InfoContext(ctx, "kudos granted", "kudos", grant.Type, "period", grant.Period)
	return true
}

func (s *Service) notifyKudos(ctx context.Context, logger *slog.Logger, profile UserProfile, kudos []KudosGrant) {
	if len(kudos) == 0 {
		return
	}
	if profile.Email == "" {
		for range kudos {
			observability.RecordNotification(observability.NotificationSkipped)
		}
		logger.DebugContext(ctx, "no email on file, skipping kudos notification")
		return
	}
	// Grants are committed; a caller that hangs up must not cancel the emails.
	detached := context.WithoutCancel(ctx)
	for _, k := range kudos {
		notifyCtx, cancel := context.WithTimeout(detached, s.notifyTimeout)
		err := s.notifier.Notify(notifyCtx, Notification{
			Email:       profile.Email,
			DisplayName: profile.Name(),
			Title:       k.Title,
			Description: k.Description,
			KudosType:   k.Type,
			EarnedAt:    k.EarnedAt,
		})
		cancel()
		if err != nil {
			observability.RecordNotification(observability.NotificationFailed)
			s.stepFailed(ctx, logger.With("kudos", k.Type), StepNotify, err)
			continue
		}
		observability.RecordNotification(observability.NotificationSent)
	}
}

func (s *Service) stepFailed(ctx context.Context, logger *slog.Logger, step string, err error) {
	observability.RecordStepFailure(step)
	logger.WarnContext(ctx, "progression step failed", "step", step, "error", err)
}

// GetWalk returns one of the user's walks.
func (s *Service) GetWalk(ctx context.Context, userID, walkID string) (*Walk, error) {
	walk, err := s.store.GetWalk(ctx, userID, walkID)
	if err != nil {
		return nil, err
	}
	if walk == nil {
		return nil, ErrWalkNotFound
	}
	return walk, nil
}

// ListWalks fetches walk history with cursor pagination.
func (s *Service) ListWalks(ctx context.Context, userID string, cursor *Cursor, limit int) ([]Walk, *Cursor, error) {
	return s.store.ListWalksPage(ctx, userID, cursor, limit)
}

// RecentWalks lists the latest walks across all users.
func (s *Service) RecentWalks(ctx context.Context, limit int) ([]WalkSummary, error) {
	return s.store.ListRecentWalks(ctx, limit)
}
